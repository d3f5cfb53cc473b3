package team_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/auth"
	"github.com/daap14/taskhub/internal/peer"
	"github.com/daap14/taskhub/internal/team"
)

// --- Mock peers ---

type mockUsers struct {
	getUserFn func(ctx context.Context, token, username string) (*peer.User, error)
}

func (m *mockUsers) GetUser(ctx context.Context, token, username string) (*peer.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, token, username)
	}
	return &peer.User{Username: username, Active: true}, nil
}

type mockTasks struct {
	calls     []string
	cleanupFn func(ctx context.Context, token, teamID string) error
}

func (m *mockTasks) CleanupTeam(ctx context.Context, token, teamID string) error {
	m.calls = append(m.calls, teamID)
	if m.cleanupFn != nil {
		return m.cleanupFn(ctx, token, teamID)
	}
	return nil
}

func newTeamService(repo team.Repository, users *mockUsers, tasks *mockTasks) *team.Service {
	return team.NewService(repo, users, tasks, zap.NewNop())
}

// ===== Create =====

func TestServiceCreate_LeaderAddedToMembers(t *testing.T) {
	t.Parallel()

	repo := newMemRepo()
	svc := newTeamService(repo, &mockUsers{}, &mockTasks{})

	tm, err := svc.Create(context.Background(), principal("root", auth.RoleAdmin), team.CreateInput{
		Name:      "core",
		LeaderID:  "lead",
		MemberIDs: []string{"bob", "bob"},
	})
	require.NoError(t, err)

	assert.Equal(t, "lead", tm.LeaderID)
	assert.Equal(t, []string{"lead", "bob"}, tm.MemberIDs)
	assert.False(t, tm.ID.IsZero())
}

func TestServiceCreate_RelaysTokenAndValidatesUsers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		lookup  func(ctx context.Context, token, username string) (*peer.User, error)
		wantErr error
	}{
		{
			name: "unknown leader",
			lookup: func(_ context.Context, _, _ string) (*peer.User, error) {
				return nil, peer.ErrNotFound
			},
			wantErr: team.ErrUserNotFound,
		},
		{
			name: "inactive leader",
			lookup: func(_ context.Context, _, username string) (*peer.User, error) {
				return &peer.User{Username: username, Active: false}, nil
			},
			wantErr: team.ErrUserInactive,
		},
		{
			name: "user service down",
			lookup: func(_ context.Context, _, _ string) (*peer.User, error) {
				return nil, fmt.Errorf("%w: dial tcp", peer.ErrUnreachable)
			},
			wantErr: peer.ErrUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			var gotToken string
			users := &mockUsers{getUserFn: func(ctx context.Context, token, username string) (*peer.User, error) {
				gotToken = token
				return tt.lookup(ctx, token, username)
			}}
			svc := newTeamService(repo, users, &mockTasks{})

			_, err := svc.Create(context.Background(), principal("root", auth.RoleAdmin), team.CreateInput{
				Name: "core", LeaderID: "lead",
			})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, "tok", gotToken)
			assert.Empty(t, repo.teams)
		})
	}
}

// ===== List =====

func TestServiceList_ScopedToMembership(t *testing.T) {
	t.Parallel()

	tm := sampleTeam()
	svc := newTeamService(newMemRepo(tm), &mockUsers{}, &mockTasks{})

	all, err := svc.List(context.Background(), principal("root", auth.RoleAdmin))
	require.NoError(t, err)
	assert.Len(t, all, 1)

	mine, err := svc.List(context.Background(), principal("bob", auth.RoleMember))
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := svc.List(context.Background(), principal("eve", auth.RoleMember))
	require.NoError(t, err)
	assert.Empty(t, none)
}

// ===== Update =====

func TestServiceUpdate(t *testing.T) {
	t.Parallel()

	tm := sampleTeam()
	svc := newTeamService(newMemRepo(tm), &mockUsers{}, &mockTasks{})
	name := "renamed"

	got, err := svc.Update(context.Background(), principal("lead", auth.RoleTeamLeader), tm.ID.Hex(), team.Update{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	_, err = svc.Update(context.Background(), principal("lead", auth.RoleTeamLeader), tm.ID.Hex(), team.Update{})
	assert.ErrorIs(t, err, team.ErrEmptyUpdate)

	_, err = svc.Update(context.Background(), principal("bob", auth.RoleMember), tm.ID.Hex(), team.Update{Name: &name})
	assert.ErrorIs(t, err, team.ErrForbidden)
}

// ===== Delete =====

func TestServiceDelete_CleansUpTasksFirst(t *testing.T) {
	t.Parallel()

	tm := sampleTeam()
	repo := newMemRepo(tm)
	tasks := &mockTasks{}
	svc := newTeamService(repo, &mockUsers{}, tasks)

	err := svc.Delete(context.Background(), principal("root", auth.RoleAdmin), tm.ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, []string{tm.ID.Hex()}, tasks.calls)
	assert.Empty(t, repo.teams)
}

func TestServiceDelete_CleanupFailureKeepsTeam(t *testing.T) {
	t.Parallel()

	tm := sampleTeam()
	repo := newMemRepo(tm)
	tasks := &mockTasks{cleanupFn: func(_ context.Context, _, _ string) error {
		return peer.ErrUnreachable
	}}
	svc := newTeamService(repo, &mockUsers{}, tasks)

	err := svc.Delete(context.Background(), principal("lead", auth.RoleTeamLeader), tm.ID.Hex())
	assert.ErrorIs(t, err, peer.ErrUnreachable)
	assert.Len(t, repo.teams, 1)
}

func TestServiceDelete_NonLeaderSkipsCleanup(t *testing.T) {
	t.Parallel()

	tm := sampleTeam()
	tasks := &mockTasks{}
	svc := newTeamService(newMemRepo(tm), &mockUsers{}, tasks)

	err := svc.Delete(context.Background(), principal("bob", auth.RoleMember), tm.ID.Hex())
	assert.ErrorIs(t, err, team.ErrForbidden)
	assert.Empty(t, tasks.calls)
}

// ===== Members =====

func TestServiceAddMember(t *testing.T) {
	t.Parallel()

	tm := sampleTeam()
	svc := newTeamService(newMemRepo(tm), &mockUsers{}, &mockTasks{})

	got, err := svc.AddMember(context.Background(), principal("lead", auth.RoleTeamLeader), tm.ID.Hex(), "carol")
	require.NoError(t, err)
	assert.Contains(t, got.MemberIDs, "carol")

	_, err = svc.AddMember(context.Background(), principal("root", auth.RoleAdmin), tm.ID.Hex(), "dave")
	assert.ErrorIs(t, err, team.ErrAdminCannotManage)
}

func TestServiceAddMember_UnknownUser(t *testing.T) {
	t.Parallel()

	tm := sampleTeam()
	users := &mockUsers{getUserFn: func(_ context.Context, _, _ string) (*peer.User, error) {
		return nil, peer.ErrNotFound
	}}
	svc := newTeamService(newMemRepo(tm), users, &mockTasks{})

	_, err := svc.AddMember(context.Background(), principal("lead", auth.RoleTeamLeader), tm.ID.Hex(), "ghost")
	assert.ErrorIs(t, err, team.ErrUserNotFound)
}

func TestServiceAddMember_RouteWordsAndPathsNotFound(t *testing.T) {
	t.Parallel()

	lookups := 0
	users := &mockUsers{getUserFn: func(_ context.Context, _, username string) (*peer.User, error) {
		lookups++
		return &peer.User{Username: username, Active: true}, nil
	}}
	tm := sampleTeam()
	repo := newMemRepo(tm)
	svc := newTeamService(repo, users, &mockTasks{})

	for _, name := range []string{"me", "a/b", "..", "ghost/../me"} {
		_, err := svc.AddMember(context.Background(), principal("lead", auth.RoleTeamLeader), tm.ID.Hex(), name)
		assert.ErrorIs(t, err, team.ErrUserNotFound, name)
	}
	assert.Zero(t, lookups)

	got, err := repo.GetByID(context.Background(), tm.ID)
	require.NoError(t, err)
	assert.Equal(t, tm.MemberIDs, got.MemberIDs)
}

func TestServiceRemoveMember(t *testing.T) {
	t.Parallel()

	tm := sampleTeam()
	svc := newTeamService(newMemRepo(tm), &mockUsers{}, &mockTasks{})
	ctx := context.Background()
	leader := principal("lead", auth.RoleTeamLeader)

	_, err := svc.RemoveMember(ctx, leader, tm.ID.Hex(), "lead")
	assert.ErrorIs(t, err, team.ErrLeaderRemoval)

	_, err = svc.RemoveMember(ctx, leader, tm.ID.Hex(), "eve")
	assert.ErrorIs(t, err, team.ErrNotMember)

	got, err := svc.RemoveMember(ctx, leader, tm.ID.Hex(), "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"lead"}, got.MemberIDs)
}

func TestServiceGet_PropagatesRepositoryFailure(t *testing.T) {
	t.Parallel()

	svc := newTeamService(failingRepo{}, &mockUsers{}, &mockTasks{})

	_, err := svc.Get(context.Background(), principal("bob", auth.RoleMember), sampleTeam().ID.Hex())
	require.Error(t, err)
	assert.NotErrorIs(t, err, team.ErrInaccessible)
}

// failingRepo fails every lookup with a storage error.
type failingRepo struct{ team.Repository }

func (failingRepo) GetByID(context.Context, primitive.ObjectID) (*team.Team, error) {
	return nil, errors.New("connection reset")
}
