package team

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

// NewRepository creates a new Repository backed by the teams collection of db.
func NewRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique name index and the member lookup index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "member_ids", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating team indexes: %w", err)
	}
	return nil
}

// Create inserts a new team and sets its ID and CreatedAt.
func (r *MongoRepository) Create(ctx context.Context, t *Team) error {
	t.ID = primitive.NewObjectID()
	t.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.coll.InsertOne(ctx, newDocument(t)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateTeamName
		}
		return fmt.Errorf("inserting team: %w", err)
	}

	return nil
}

// GetByID retrieves a single team by ID.
func (r *MongoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*Team, error) {
	var doc teamDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("querying team: %w", err)
	}
	return doc.toTeam()
}

// List retrieves all teams ordered by name.
func (r *MongoRepository) List(ctx context.Context) ([]Team, error) {
	return r.find(ctx, bson.M{})
}

// ListForMember retrieves the teams username belongs to, ordered by name.
func (r *MongoRepository) ListForMember(ctx context.Context, username string) ([]Team, error) {
	return r.find(ctx, bson.M{"member_ids": username})
}

// Update applies the non-nil fields of u.
func (r *MongoRepository) Update(ctx context.Context, id primitive.ObjectID, u Update) (*Team, error) {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	t, err := r.findOneAndUpdate(ctx, id, bson.M{"$set": set})
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicateTeamName
	}
	return t, err
}

// Delete removes a team.
func (r *MongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting team: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrTeamNotFound
	}

	return nil
}

// AddMember adds username to the member set. Adding an existing member is a no-op.
func (r *MongoRepository) AddMember(ctx context.Context, id primitive.ObjectID, username string) (*Team, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$addToSet": bson.M{"member_ids": username}})
}

// RemoveMember pulls username from the member set.
func (r *MongoRepository) RemoveMember(ctx context.Context, id primitive.ObjectID, username string) (*Team, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$pull": bson.M{"member_ids": username}})
}

func (r *MongoRepository) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*Team, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc teamDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("updating team: %w", err)
	}
	return doc.toTeam()
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M) ([]Team, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer cursor.Close(ctx)

	teams := []Team{}
	for cursor.Next(ctx) {
		var doc teamDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding team: %w", err)
		}
		t, err := doc.toTeam()
		if err != nil {
			return nil, err
		}
		teams = append(teams, *t)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating teams: %w", err)
	}

	return teams, nil
}
