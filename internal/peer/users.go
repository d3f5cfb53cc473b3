package peer

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// User is the user service's view of an account.
type User struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
}

// UserClient calls the user service.
type UserClient struct {
	client
}

// NewUserClient creates a UserClient for the service at baseURL.
func NewUserClient(baseURL string, timeout time.Duration, logger *zap.Logger) *UserClient {
	return &UserClient{client: newClient(baseURL, timeout, logger.Named("user-client"))}
}

// GetUser fetches username, relaying token.
func (c *UserClient) GetUser(ctx context.Context, token, username string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, token, &u, "users", username); err != nil {
		return nil, err
	}
	return &u, nil
}
