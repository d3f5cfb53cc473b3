package task

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrTaskNotFound is returned when a task record is not found.
	ErrTaskNotFound = errors.New("task not found")
	// ErrCommentNotFound is returned when a comment is not part of the task.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrAttachmentNotFound is returned when an attachment is not part of the task.
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// Repository stores tasks with their embedded comments and attachments.
// Every mutation is a single-document update.
type Repository interface {
	Insert(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Task, error)
	List(ctx context.Context, f ListFilter, limit int) ([]Task, error)
	Update(ctx context.Context, id primitive.ObjectID, p Patch) (*Task, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) (*Task, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// DeleteByTeam removes every task of teamID and returns the IDs it found.
	DeleteByTeam(ctx context.Context, teamID string) ([]primitive.ObjectID, error)
	AddComment(ctx context.Context, id primitive.ObjectID, c Comment) error
	RemoveComment(ctx context.Context, id, commentID primitive.ObjectID) error
	AddAttachment(ctx context.Context, id primitive.ObjectID, a Attachment) error
	RemoveAttachment(ctx context.Context, id, attachmentID primitive.ObjectID) error
}
