package team_test

import (
	"context"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/daap14/taskhub/internal/team"
)

// memRepo is an in-memory team.Repository.
type memRepo struct {
	teams map[primitive.ObjectID]*team.Team
}

func newMemRepo(teams ...*team.Team) *memRepo {
	m := &memRepo{teams: map[primitive.ObjectID]*team.Team{}}
	for _, t := range teams {
		m.teams[t.ID] = t
	}
	return m
}

func (m *memRepo) Create(_ context.Context, t *team.Team) error {
	for _, existing := range m.teams {
		if existing.Name == t.Name {
			return team.ErrDuplicateTeamName
		}
	}
	t.ID = primitive.NewObjectID()
	t.CreatedAt = time.Now().UTC()
	cp := *t
	m.teams[t.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id primitive.ObjectID) (*team.Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, team.ErrTeamNotFound
	}
	cp := *t
	cp.MemberIDs = slices.Clone(t.MemberIDs)
	return &cp, nil
}

func (m *memRepo) List(_ context.Context) ([]team.Team, error) {
	out := []team.Team{}
	for _, t := range m.teams {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memRepo) ListForMember(_ context.Context, username string) ([]team.Team, error) {
	out := []team.Team{}
	for _, t := range m.teams {
		if t.HasMember(username) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memRepo) Update(ctx context.Context, id primitive.ObjectID, u team.Update) (*team.Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, team.ErrTeamNotFound
	}
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	return m.GetByID(ctx, id)
}

func (m *memRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.teams[id]; !ok {
		return team.ErrTeamNotFound
	}
	delete(m.teams, id)
	return nil
}

func (m *memRepo) AddMember(ctx context.Context, id primitive.ObjectID, username string) (*team.Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, team.ErrTeamNotFound
	}
	if !t.HasMember(username) {
		t.MemberIDs = append(t.MemberIDs, username)
	}
	return m.GetByID(ctx, id)
}

func (m *memRepo) RemoveMember(ctx context.Context, id primitive.ObjectID, username string) (*team.Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, team.ErrTeamNotFound
	}
	t.MemberIDs = slices.DeleteFunc(t.MemberIDs, func(s string) bool { return s == username })
	return m.GetByID(ctx, id)
}

func sampleTeam() *team.Team {
	return &team.Team{
		ID:        primitive.NewObjectID(),
		Name:      "core",
		LeaderID:  "lead",
		MemberIDs: []string{"lead", "bob"},
		CreatedAt: time.Now().UTC(),
	}
}
