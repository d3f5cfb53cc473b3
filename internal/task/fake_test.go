package task_test

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/daap14/taskhub/internal/auth"
	"github.com/daap14/taskhub/internal/notification"
	"github.com/daap14/taskhub/internal/peer"
	"github.com/daap14/taskhub/internal/task"
)

// memRepo is an in-memory task.Repository.
type memRepo struct {
	mu    sync.Mutex
	tasks map[primitive.ObjectID]*task.Task
}

func newMemRepo(tasks ...*task.Task) *memRepo {
	m := &memRepo{tasks: map[primitive.ObjectID]*task.Task{}}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

func clone(t *task.Task) *task.Task {
	cp := *t
	cp.Comments = slices.Clone(t.Comments)
	cp.Attachments = slices.Clone(t.Attachments)
	return &cp
}

func (m *memRepo) Insert(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = primitive.NewObjectID()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.tasks[t.ID] = clone(t)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id primitive.ObjectID) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	return clone(t), nil
}

func (m *memRepo) List(_ context.Context, f task.ListFilter, limit int) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []task.Task{}
	for _, t := range m.tasks {
		if f.TeamID != "" && t.TeamID != f.TeamID {
			continue
		}
		if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, *clone(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, id primitive.ObjectID, p task.Patch) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	return clone(t), nil
}

func (m *memRepo) SetStatus(_ context.Context, id primitive.ObjectID, status string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	t.Status = status
	return clone(t), nil
}

func (m *memRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return task.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memRepo) DeleteByTeam(_ context.Context, teamID string) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []primitive.ObjectID
	for id, t := range m.tasks {
		if t.TeamID == teamID {
			ids = append(ids, id)
			delete(m.tasks, id)
		}
	}
	return ids, nil
}

func (m *memRepo) AddComment(_ context.Context, id primitive.ObjectID, c task.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return task.ErrTaskNotFound
	}
	t.Comments = append(t.Comments, c)
	return nil
}

func (m *memRepo) RemoveComment(_ context.Context, id, commentID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return task.ErrCommentNotFound
	}
	n := len(t.Comments)
	t.Comments = slices.DeleteFunc(t.Comments, func(c task.Comment) bool { return c.ID == commentID })
	if len(t.Comments) == n {
		return task.ErrCommentNotFound
	}
	return nil
}

func (m *memRepo) AddAttachment(_ context.Context, id primitive.ObjectID, a task.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return task.ErrTaskNotFound
	}
	t.Attachments = append(t.Attachments, a)
	return nil
}

func (m *memRepo) RemoveAttachment(_ context.Context, id, attachmentID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return task.ErrAttachmentNotFound
	}
	n := len(t.Attachments)
	t.Attachments = slices.DeleteFunc(t.Attachments, func(a task.Attachment) bool { return a.ID == attachmentID })
	if len(t.Attachments) == n {
		return task.ErrAttachmentNotFound
	}
	return nil
}

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

// mockTeams serves a fixed set of teams the way the team service does:
// non-members get 403 and unknown IDs get 404.
type mockTeams struct {
	teams     map[string]*peer.Team
	getTeamFn func(ctx context.Context, token, teamID string) (*peer.Team, error)
	tokens    []string
}

func (m *mockTeams) GetTeam(ctx context.Context, token, teamID string) (*peer.Team, error) {
	m.tokens = append(m.tokens, token)
	if m.getTeamFn != nil {
		return m.getTeamFn(ctx, token, teamID)
	}
	t, ok := m.teams[teamID]
	if !ok {
		return nil, peer.ErrNotFound
	}
	return t, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, n := range r.sent {
		out = append(out, n.UserID)
	}
	return out
}

// --- Fixtures ---

var sampleTeamID = primitive.NewObjectID().Hex()

func sampleTeams() *mockTeams {
	return &mockTeams{teams: map[string]*peer.Team{
		sampleTeamID: {
			ID:        sampleTeamID,
			Name:      "core",
			LeaderID:  "lead",
			MemberIDs: []string{"lead", "bob", "carol"},
		},
	}}
}

// sampleTask is created by lead and assigned to bob.
func sampleTask() *task.Task {
	return &task.Task{
		ID:          primitive.NewObjectID(),
		TeamID:      sampleTeamID,
		Title:       "Ship it",
		CreatedBy:   "lead",
		AssignedTo:  "bob",
		Status:      task.StatusTodo,
		Priority:    task.PriorityMedium,
		Comments:    []task.Comment{},
		Attachments: []task.Attachment{},
	}
}

func principal(username string, role auth.Role) auth.Principal {
	return auth.Principal{Username: username, Role: role, Token: "tok"}
}
