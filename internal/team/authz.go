package team

import (
	"context"
	"errors"
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/daap14/taskhub/internal/auth"
)

var (
	// ErrInvalidTeamID is returned when a team ID is not a valid ObjectID.
	ErrInvalidTeamID = errors.New("invalid team ID format")
	// ErrForbidden is returned when the caller is neither admin nor team leader.
	ErrForbidden = errors.New("you are not authorized to modify this team")
	// ErrAdminCannotManage is returned when an ADMIN calls a leader-only operation.
	ErrAdminCannotManage = errors.New("admin users cannot manage team members directly; this is a team leader function")
	// ErrNotLeader is returned when a non-admin caller is not the team leader.
	ErrNotLeader = errors.New("you are not authorized to manage members for this team")
	// ErrInaccessible is returned both when the team does not exist and when the
	// caller is not a member, so the two cases cannot be told apart.
	ErrInaccessible = errors.New("the requested resource was not found or is inaccessible")
)

// ParseID parses a hex team ID.
func ParseID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidTeamID
	}
	return id, nil
}

// IsLeaderOrAdmin reports whether p is an ADMIN or the team leader.
func IsLeaderOrAdmin(p auth.Principal, leaderID string) bool {
	return p.IsAdmin() || p.Username == leaderID
}

// IsLeaderOnly reports whether p is the team leader and not an ADMIN.
func IsLeaderOnly(p auth.Principal, leaderID string) bool {
	return !p.IsAdmin() && p.Username == leaderID
}

// IsMemberOrAdmin reports whether p is an ADMIN or one of memberIDs.
func IsMemberOrAdmin(p auth.Principal, memberIDs []string) bool {
	return p.IsAdmin() || slices.Contains(memberIDs, p.Username)
}

// Authorizer evaluates the team-scoped access checks against the repository.
type Authorizer struct {
	repo Repository
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(repo Repository) *Authorizer {
	return &Authorizer{repo: repo}
}

// LeaderOrAdmin returns the team if p is an ADMIN or its leader.
func (a *Authorizer) LeaderOrAdmin(ctx context.Context, teamID string, p auth.Principal) (*Team, error) {
	t, err := a.load(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if !IsLeaderOrAdmin(p, t.LeaderID) {
		return nil, ErrForbidden
	}
	return t, nil
}

// LeaderOnly returns the team if p is its leader. ADMIN is rejected before
// the team is looked up.
func (a *Authorizer) LeaderOnly(ctx context.Context, teamID string, p auth.Principal) (*Team, error) {
	if p.IsAdmin() {
		return nil, ErrAdminCannotManage
	}

	t, err := a.load(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if !IsLeaderOnly(p, t.LeaderID) {
		return nil, ErrNotLeader
	}
	return t, nil
}

// MemberOrAdmin returns the team if p is an ADMIN or a member. A missing team
// and a non-member caller both yield ErrInaccessible.
func (a *Authorizer) MemberOrAdmin(ctx context.Context, teamID string, p auth.Principal) (*Team, error) {
	t, err := a.load(ctx, teamID)
	if errors.Is(err, ErrTeamNotFound) {
		return nil, ErrInaccessible
	}
	if err != nil {
		return nil, err
	}

	if !IsMemberOrAdmin(p, t.MemberIDs) {
		return nil, ErrInaccessible
	}
	return t, nil
}

func (a *Authorizer) load(ctx context.Context, teamID string) (*Team, error) {
	id, err := ParseID(teamID)
	if err != nil {
		return nil, err
	}
	return a.repo.GetByID(ctx, id)
}
