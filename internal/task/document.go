package task

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/daap14/taskhub/internal/database"
)

const (
	collectionName = "tasks"
	schemaVersion  = 1
)

type taskDocument struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	SchemaVersion int                  `bson:"schema_version"`
	TeamID        string               `bson:"team_id"`
	Title         string               `bson:"title"`
	Description   string               `bson:"description"`
	CreatedBy     string               `bson:"created_by"`
	AssignedTo    string               `bson:"assigned_to"`
	Status        string               `bson:"status"`
	Priority      string               `bson:"priority"`
	DueDate       *time.Time           `bson:"due_date"`
	Comments      []commentDocument    `bson:"comments"`
	Attachments   []attachmentDocument `bson:"attachments"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

type commentDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Text      string             `bson:"text"`
	CreatedBy string             `bson:"created_by"`
	CreatedAt time.Time          `bson:"created_at"`
}

type attachmentDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Filename    string             `bson:"filename"`
	ContentType string             `bson:"content_type"`
	Path        string             `bson:"path"`
	UploadedBy  string             `bson:"uploaded_by"`
	UploadedAt  time.Time          `bson:"uploaded_at"`
}

func newDocument(t *Task) taskDocument {
	doc := taskDocument{
		ID:            t.ID,
		SchemaVersion: schemaVersion,
		TeamID:        t.TeamID,
		Title:         t.Title,
		Description:   t.Description,
		CreatedBy:     t.CreatedBy,
		AssignedTo:    t.AssignedTo,
		Status:        t.Status,
		Priority:      string(t.Priority),
		DueDate:       t.DueDate,
		Comments:      make([]commentDocument, 0, len(t.Comments)),
		Attachments:   make([]attachmentDocument, 0, len(t.Attachments)),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	for _, c := range t.Comments {
		doc.Comments = append(doc.Comments, newCommentDocument(c))
	}
	for _, a := range t.Attachments {
		doc.Attachments = append(doc.Attachments, newAttachmentDocument(a))
	}
	return doc
}

func newCommentDocument(c Comment) commentDocument {
	return commentDocument{
		ID:        c.ID,
		Text:      c.Text,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
	}
}

func newAttachmentDocument(a Attachment) attachmentDocument {
	return attachmentDocument{
		ID:          a.ID,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Path:        a.Key,
		UploadedBy:  a.UploadedBy,
		UploadedAt:  a.UploadedAt,
	}
}

func (d taskDocument) toTask() (*Task, error) {
	if err := database.CheckSchemaVersion(collectionName, d.SchemaVersion, schemaVersion); err != nil {
		return nil, err
	}

	t := &Task{
		ID:          d.ID,
		TeamID:      d.TeamID,
		Title:       d.Title,
		Description: d.Description,
		CreatedBy:   d.CreatedBy,
		AssignedTo:  d.AssignedTo,
		Status:      d.Status,
		Priority:    Priority(d.Priority),
		DueDate:     d.DueDate,
		Comments:    make([]Comment, 0, len(d.Comments)),
		Attachments: make([]Attachment, 0, len(d.Attachments)),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, c := range d.Comments {
		t.Comments = append(t.Comments, Comment{
			ID:        c.ID,
			Text:      c.Text,
			CreatedBy: c.CreatedBy,
			CreatedAt: c.CreatedAt,
		})
	}
	for _, a := range d.Attachments {
		t.Attachments = append(t.Attachments, Attachment{
			ID:          a.ID,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Key:         a.Path,
			UploadedBy:  a.UploadedBy,
			UploadedAt:  a.UploadedAt,
		})
	}
	return t, nil
}
