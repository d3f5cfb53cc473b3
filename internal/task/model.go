package task

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Priority ranks a task.
type Priority string

// Task priorities.
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityUrgent Priority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityUrgent:
		return true
	}
	return false
}

// Well-known status values. Status is free-form: the assignee may set any
// non-empty string.
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

// Task is a unit of work owned by a team.
type Task struct {
	ID          primitive.ObjectID
	TeamID      string
	Title       string
	Description string
	CreatedBy   string
	AssignedTo  string
	Status      string
	Priority    Priority
	DueDate     *time.Time
	Comments    []Comment
	Attachments []Attachment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is a note left on a task.
type Comment struct {
	ID        primitive.ObjectID
	Text      string
	CreatedBy string
	CreatedAt time.Time
}

// Attachment describes a file stored for a task. Key addresses the bytes in
// the file store.
type Attachment struct {
	ID          primitive.ObjectID
	Filename    string
	ContentType string
	Key         string
	UploadedBy  string
	UploadedAt  time.Time
}

// FindComment returns the comment with the given ID.
func (t *Task) FindComment(id primitive.ObjectID) (*Comment, bool) {
	for i := range t.Comments {
		if t.Comments[i].ID == id {
			return &t.Comments[i], true
		}
	}
	return nil, false
}

// FindAttachment returns the attachment with the given ID.
func (t *Task) FindAttachment(id primitive.ObjectID) (*Attachment, bool) {
	for i := range t.Attachments {
		if t.Attachments[i].ID == id {
			return &t.Attachments[i], true
		}
	}
	return nil, false
}

// Patch carries the fields a team leader may change. Nil fields are left
// unchanged. Status is not patchable; only the assignee changes it.
type Patch struct {
	Title       *string
	Description *string
	AssignedTo  *string
	Priority    *Priority
	DueDate     *time.Time
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.AssignedTo == nil &&
		p.Priority == nil && p.DueDate == nil
}

// ListLimit caps task listings.
const ListLimit = 100

// ListFilter selects tasks for a listing. Empty fields do not filter.
type ListFilter struct {
	TeamID     string
	AssignedTo string
	Status     string
	SortByDue  bool
}
