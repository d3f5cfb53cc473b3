package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements Repository on a MongoDB collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewRepository creates a new Repository backed by the tasks collection of db.
func NewRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the team and assignee lookup indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "team_id", Value: 1}}},
		{Keys: bson.D{{Key: "assigned_to", Value: 1}, {Key: "due_date", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating task indexes: %w", err)
	}
	return nil
}

// Insert stores a new task and sets its ID and timestamps.
func (r *MongoRepository) Insert(ctx context.Context, t *Task) error {
	now := storedTime(time.Now())
	t.ID = primitive.NewObjectID()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.DueDate != nil {
		due := storedTime(*t.DueDate)
		t.DueDate = &due
	}

	if _, err := r.coll.InsertOne(ctx, newDocument(t)); err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// GetByID retrieves a single task by ID.
func (r *MongoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*Task, error) {
	var doc taskDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return doc.toTask()
}

// List returns up to limit tasks matching f.
func (r *MongoRepository) List(ctx context.Context, f ListFilter, limit int) ([]Task, error) {
	filter := bson.M{}
	if f.TeamID != "" {
		filter["team_id"] = f.TeamID
	}
	if f.AssignedTo != "" {
		filter["assigned_to"] = f.AssignedTo
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	sort := bson.D{{Key: "_id", Value: 1}}
	if f.SortByDue {
		sort = bson.D{{Key: "due_date", Value: 1}, {Key: "_id", Value: 1}}
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(sort).SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []Task{}
	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding task: %w", err)
		}
		t, err := doc.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}

	return tasks, nil
}

// Update applies the non-nil fields of p.
func (r *MongoRepository) Update(ctx context.Context, id primitive.ObjectID, p Patch) (*Task, error) {
	set := bson.M{"updated_at": storedTime(time.Now())}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.AssignedTo != nil {
		set["assigned_to"] = *p.AssignedTo
	}
	if p.Priority != nil {
		set["priority"] = string(*p.Priority)
	}
	if p.DueDate != nil {
		set["due_date"] = storedTime(*p.DueDate)
	}

	return r.findOneAndUpdate(ctx, id, bson.M{"$set": set})
}

// SetStatus replaces the status of a task.
func (r *MongoRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (*Task, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": storedTime(time.Now()),
	}})
}

// Delete removes a task.
func (r *MongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// DeleteByTeam removes every task whose team_id equals teamID and returns the
// IDs it removed. Only the listed IDs are deleted, so a task inserted between
// the listing and the delete survives and its files stay in place.
func (r *MongoRepository) DeleteByTeam(ctx context.Context, teamID string) ([]primitive.ObjectID, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"team_id": teamID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("listing team tasks: %w", err)
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("reading team tasks: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	if _, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, fmt.Errorf("deleting team tasks: %w", err)
	}
	return ids, nil
}

// AddComment appends c to the task's comments.
func (r *MongoRepository) AddComment(ctx context.Context, id primitive.ObjectID, c Comment) error {
	c.CreatedAt = storedTime(c.CreatedAt)
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"comments": newCommentDocument(c)}}, ErrTaskNotFound)
}

// RemoveComment pulls a comment from the task.
func (r *MongoRepository) RemoveComment(ctx context.Context, id, commentID primitive.ObjectID) error {
	return r.updateOne(ctx,
		bson.M{"_id": id, "comments._id": commentID},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}},
		ErrCommentNotFound)
}

// AddAttachment appends a to the task's attachments.
func (r *MongoRepository) AddAttachment(ctx context.Context, id primitive.ObjectID, a Attachment) error {
	a.UploadedAt = storedTime(a.UploadedAt)
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"attachments": newAttachmentDocument(a)}}, ErrTaskNotFound)
}

// RemoveAttachment pulls an attachment from the task.
func (r *MongoRepository) RemoveAttachment(ctx context.Context, id, attachmentID primitive.ObjectID) error {
	return r.updateOne(ctx,
		bson.M{"_id": id, "attachments._id": attachmentID},
		bson.M{"$pull": bson.M{"attachments": bson.M{"_id": attachmentID}}},
		ErrAttachmentNotFound)
}

// updateOne runs a single-document update and returns notMatched when the
// filter matched nothing.
func (r *MongoRepository) updateOne(ctx context.Context, filter, update bson.M, notMatched error) error {
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if result.MatchedCount == 0 {
		return notMatched
	}
	return nil
}

func (r *MongoRepository) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*Task, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("updating task: %w", err)
	}
	return doc.toTask()
}

// storedTime normalises t to what BSON dates can represent so values read
// back compare equal.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
