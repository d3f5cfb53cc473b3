package user

import (
	"context"
	"errors"

	"github.com/daap14/taskhub/internal/auth"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateUser is returned when the username or email is already taken.
var ErrDuplicateUser = errors.New("username or email already registered")

// Repository provides operations on the users table.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateRole(ctx context.Context, username string, role auth.Role) (*User, error)
	SetActive(ctx context.Context, username string, active bool) (*User, error)
	Delete(ctx context.Context, username string) error
	CountAll(ctx context.Context) (int, error)
}
