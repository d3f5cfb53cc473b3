package team

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Team is a group of users owned by a single leader. The leader is always
// one of MemberIDs.
type Team struct {
	ID          primitive.ObjectID
	Name        string
	Description string
	LeaderID    string
	MemberIDs   []string
	CreatedAt   time.Time
}

// HasMember reports whether username belongs to the team.
func (t *Team) HasMember(username string) bool {
	return slices.Contains(t.MemberIDs, username)
}

// Update carries the mutable team fields. Nil fields are left unchanged.
type Update struct {
	Name        *string
	Description *string
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Name == nil && u.Description == nil
}
