package user

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/auth"
)

var (
	// ErrInvalidCredentials is returned when the username/password pair does not match.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInactiveUser is returned when an inactive user logs in or is resolved from a token.
	ErrInactiveUser = errors.New("inactive user")
	// ErrInvalidRole is returned when a role outside ADMIN, TEAM_LEADER, MEMBER is requested.
	ErrInvalidRole = errors.New("invalid role")
)

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Service provides identity operations for the user service.
type Service struct {
	repo       Repository
	tokens     *auth.TokenService
	bcryptCost int
	logger     *zap.Logger
}

// NewService creates a new user Service.
func NewService(repo Repository, tokens *auth.TokenService, bcryptCost int, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger.Named("user-service"),
	}
}

// Register creates an active MEMBER account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         auth.RoleMember,
		Active:       true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("username", u.Username))
	return u, nil
}

// Login verifies credentials and issues a bearer token carrying the user's role.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	if !u.Active {
		return "", ErrInactiveUser
	}

	token, err := s.tokens.Issue(u.Username, u.Role)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Resolve loads the account behind a verified principal. The returned
// principal carries the role stored in the table rather than the one in the
// token, so role changes apply to the user service immediately.
func (s *Service) Resolve(ctx context.Context, p auth.Principal) (*User, auth.Principal, error) {
	u, err := s.repo.GetByUsername(ctx, p.Username)
	if err != nil {
		return nil, auth.Principal{}, err
	}
	if !u.Active {
		return nil, auth.Principal{}, ErrInactiveUser
	}

	p.Role = u.Role
	return u, p, nil
}

// Get returns a user by username.
func (s *Service) Get(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// List returns every user.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// UpdateRole changes a user's role.
func (s *Service) UpdateRole(ctx context.Context, username string, role auth.Role) (*User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	u, err := s.repo.UpdateRole(ctx, username, role)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User role updated", zap.String("username", username), zap.String("role", string(role)))
	return u, nil
}

// SetActive activates or deactivates a user.
func (s *Service) SetActive(ctx context.Context, username string, active bool) (*User, error) {
	u, err := s.repo.SetActive(ctx, username, active)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User activation changed", zap.String("username", username), zap.Bool("active", active))
	return u, nil
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, username string) error {
	if err := s.repo.Delete(ctx, username); err != nil {
		return err
	}

	s.logger.Info("User deleted", zap.String("username", username))
	return nil
}

// BootstrapAdmin creates the initial ADMIN account if the users table is
// empty. It returns false when users already exist.
func (s *Service) BootstrapAdmin(ctx context.Context, username, email, password string) (bool, error) {
	count, err := s.repo.CountAll(ctx)
	if err != nil {
		return false, fmt.Errorf("counting users: %w", err)
	}

	if count > 0 {
		return false, nil
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return false, fmt.Errorf("hashing admin password: %w", err)
	}

	u := &User{
		Username:     username,
		Email:        email,
		FirstName:    "Admin",
		LastName:     "User",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		Active:       true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return false, fmt.Errorf("creating admin: %w", err)
	}

	s.logger.Info("Bootstrap admin created", zap.String("username", username))
	return true, nil
}
