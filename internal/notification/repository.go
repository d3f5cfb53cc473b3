package notification

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListLimit caps how many notifications a user sees.
const ListLimit = 50

// Repository stores notifications. Every read and write except Insert is
// scoped to a single recipient.
type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, userID string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}
