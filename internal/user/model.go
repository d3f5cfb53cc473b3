package user

import (
	"time"

	"github.com/daap14/taskhub/internal/auth"
)

// User represents a row in the users table.
type User struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         auth.Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
