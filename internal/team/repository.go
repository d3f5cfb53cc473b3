package team

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrTeamNotFound is returned when a team record is not found.
var ErrTeamNotFound = errors.New("team not found")

// ErrDuplicateTeamName is returned when a team with the same name already exists.
var ErrDuplicateTeamName = errors.New("team name already exists")

// Repository provides CRUD operations on the teams collection.
type Repository interface {
	Create(ctx context.Context, team *Team) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Team, error)
	List(ctx context.Context) ([]Team, error)
	ListForMember(ctx context.Context, username string) ([]Team, error)
	Update(ctx context.Context, id primitive.ObjectID, u Update) (*Team, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddMember(ctx context.Context, id primitive.ObjectID, username string) (*Team, error)
	RemoveMember(ctx context.Context, id primitive.ObjectID, username string) (*Team, error)
}
