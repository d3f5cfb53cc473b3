package team

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/auth"
	"github.com/daap14/taskhub/internal/peer"
)

var (
	// ErrUserNotFound is returned when a leader or member does not exist in the user service.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserInactive is returned when a leader or member is deactivated.
	ErrUserInactive = errors.New("user is not active")
	// ErrLeaderRemoval is returned when removing the leader from their own team.
	ErrLeaderRemoval = errors.New("the team leader cannot be removed from the team")
	// ErrNotMember is returned when removing a username that is not in the team.
	ErrNotMember = errors.New("user is not a member of this team")
	// ErrEmptyUpdate is returned when an update carries no fields.
	ErrEmptyUpdate = errors.New("no update data provided")
)

// UserDirectory resolves accounts in the user service.
type UserDirectory interface {
	GetUser(ctx context.Context, token, username string) (*peer.User, error)
}

// TaskCleaner removes the tasks of a deleted team.
type TaskCleaner interface {
	CleanupTeam(ctx context.Context, token, teamID string) error
}

// CreateInput carries the fields accepted when creating a team.
type CreateInput struct {
	Name        string
	Description string
	LeaderID    string
	MemberIDs   []string
}

// Service implements team management on top of the Authorizer checks.
type Service struct {
	repo   Repository
	authz  *Authorizer
	users  UserDirectory
	tasks  TaskCleaner
	logger *zap.Logger
}

// NewService creates a new team Service.
func NewService(repo Repository, users UserDirectory, tasks TaskCleaner, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		authz:  NewAuthorizer(repo),
		users:  users,
		tasks:  tasks,
		logger: logger.Named("team-service"),
	}
}

// Create validates the leader and members against the user service and
// inserts the team. The leader is always added to the members.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Team, error) {
	members := []string{in.LeaderID}
	for _, m := range in.MemberIDs {
		if m != in.LeaderID && !slices.Contains(members, m) {
			members = append(members, m)
		}
	}

	for _, m := range members {
		if err := s.requireActiveUser(ctx, p.Token, m); err != nil {
			return nil, err
		}
	}

	t := &Team{
		Name:        in.Name,
		Description: in.Description,
		LeaderID:    in.LeaderID,
		MemberIDs:   members,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("Team created",
		zap.String("team_id", t.ID.Hex()),
		zap.String("leader_id", t.LeaderID),
		zap.String("created_by", p.Username))
	return t, nil
}

// List returns every team for an ADMIN and the caller's own teams otherwise.
func (s *Service) List(ctx context.Context, p auth.Principal) ([]Team, error) {
	if p.IsAdmin() {
		return s.repo.List(ctx)
	}
	return s.repo.ListForMember(ctx, p.Username)
}

// Get returns a team visible to the caller.
func (s *Service) Get(ctx context.Context, p auth.Principal, teamID string) (*Team, error) {
	return s.authz.MemberOrAdmin(ctx, teamID, p)
}

// Update changes the name or description of a team.
func (s *Service) Update(ctx context.Context, p auth.Principal, teamID string, u Update) (*Team, error) {
	t, err := s.authz.LeaderOrAdmin(ctx, teamID, p)
	if err != nil {
		return nil, err
	}
	if u.Empty() {
		return nil, ErrEmptyUpdate
	}
	return s.repo.Update(ctx, t.ID, u)
}

// Delete removes a team after the task service has removed its tasks. If the
// cleanup fails the team is kept.
func (s *Service) Delete(ctx context.Context, p auth.Principal, teamID string) error {
	t, err := s.authz.LeaderOrAdmin(ctx, teamID, p)
	if err != nil {
		return err
	}

	if err := s.tasks.CleanupTeam(ctx, p.Token, t.ID.Hex()); err != nil {
		s.logger.Error("Task cleanup failed, team kept",
			zap.String("team_id", t.ID.Hex()),
			zap.Error(err))
		return fmt.Errorf("cleaning up team tasks: %w", err)
	}

	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return err
	}

	s.logger.Info("Team deleted", zap.String("team_id", t.ID.Hex()), zap.String("deleted_by", p.Username))
	return nil
}

// AddMember adds an active user to the team. Only the leader may do this.
func (s *Service) AddMember(ctx context.Context, p auth.Principal, teamID, username string) (*Team, error) {
	t, err := s.authz.LeaderOnly(ctx, teamID, p)
	if err != nil {
		return nil, err
	}

	if err := s.requireActiveUser(ctx, p.Token, username); err != nil {
		return nil, err
	}

	return s.repo.AddMember(ctx, t.ID, username)
}

// RemoveMember removes a member other than the leader. Only the leader may do this.
func (s *Service) RemoveMember(ctx context.Context, p auth.Principal, teamID, username string) (*Team, error) {
	t, err := s.authz.LeaderOnly(ctx, teamID, p)
	if err != nil {
		return nil, err
	}

	if username == t.LeaderID {
		return nil, ErrLeaderRemoval
	}
	if !t.HasMember(username) {
		return nil, ErrNotMember
	}

	return s.repo.RemoveMember(ctx, t.ID, username)
}

// requireActiveUser maps the user service answer onto team errors.
// Peer connectivity errors are returned unchanged.
func (s *Service) requireActiveUser(ctx context.Context, token, username string) error {
	if !auth.ValidUsername(username) {
		return fmt.Errorf("%w: %q", ErrUserNotFound, username)
	}

	u, err := s.users.GetUser(ctx, token, username)
	if err != nil {
		if errors.Is(err, peer.ErrNotFound) || errors.Is(err, peer.ErrInvalidSegment) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return err
	}
	if !u.Active {
		return fmt.Errorf("%w: %s", ErrUserInactive, username)
	}
	return nil
}
