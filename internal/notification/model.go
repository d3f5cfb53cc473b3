package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Type classifies a notification.
type Type string

// Notification types written by the task service.
const (
	TypeTaskAssigned      Type = "TASK_ASSIGNED"
	TypeTaskStatusChanged Type = "TASK_STATUS_CHANGED"
	TypeNewComment        Type = "NEW_COMMENT"
)

// Valid reports whether t is a known notification type.
func (t Type) Valid() bool {
	switch t {
	case TypeTaskAssigned, TypeTaskStatusChanged, TypeNewComment:
		return true
	}
	return false
}

// Notification is a message addressed to a single user.
type Notification struct {
	ID        primitive.ObjectID
	UserID    string
	Title     string
	Message   string
	Link      string
	Type      Type
	IsRead    bool
	CreatedAt time.Time
}
