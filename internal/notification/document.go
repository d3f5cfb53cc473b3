package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/daap14/taskhub/internal/database"
)

const (
	collectionName = "notifications"
	schemaVersion  = 1
)

type notificationDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	SchemaVersion int                `bson:"schema_version"`
	UserID        string             `bson:"user_id"`
	Title         string             `bson:"title"`
	Message       string             `bson:"message"`
	Link          string             `bson:"link"`
	Type          string             `bson:"type"`
	IsRead        bool               `bson:"is_read"`
	CreatedAt     time.Time          `bson:"created_at"`
}

func newDocument(n *Notification) notificationDocument {
	return notificationDocument{
		ID:            n.ID,
		SchemaVersion: schemaVersion,
		UserID:        n.UserID,
		Title:         n.Title,
		Message:       n.Message,
		Link:          n.Link,
		Type:          string(n.Type),
		IsRead:        n.IsRead,
		CreatedAt:     n.CreatedAt,
	}
}

func (d notificationDocument) toNotification() (*Notification, error) {
	if err := database.CheckSchemaVersion(collectionName, d.SchemaVersion, schemaVersion); err != nil {
		return nil, err
	}
	return &Notification{
		ID:        d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		Message:   d.Message,
		Link:      d.Link,
		Type:      Type(d.Type),
		IsRead:    d.IsRead,
		CreatedAt: d.CreatedAt,
	}, nil
}
