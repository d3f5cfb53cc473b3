package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/auth"
	"github.com/daap14/taskhub/internal/filestore"
	"github.com/daap14/taskhub/internal/notification"
	"github.com/daap14/taskhub/internal/peer"
	"github.com/daap14/taskhub/internal/team"
)

var (
	// ErrInvalidID is returned when a task, comment or attachment ID is malformed.
	ErrInvalidID = errors.New("invalid task, comment or attachment ID format")
	// ErrNotTeamLeader is returned when the caller is not the live leader of the task's team.
	ErrNotTeamLeader = errors.New("only the team leader can perform this action")
	// ErrNotAssignee is returned when someone other than the assignee changes the status.
	ErrNotAssignee = errors.New("you are not authorized to change the status; only the assigned user can")
	// ErrCommentForbidden is returned when the caller may not delete a comment.
	ErrCommentForbidden = errors.New("you are not authorized to delete this comment")
	// ErrAttachmentForbidden is returned when the caller may not delete an attachment.
	ErrAttachmentForbidden = errors.New("you are not authorized to delete this file")
	// ErrAssigneeNotFound is returned when the assignee does not exist.
	ErrAssigneeNotFound = errors.New("assigned user not found")
	// ErrAssigneeInactive is returned when the assignee is deactivated.
	ErrAssigneeInactive = errors.New("assigned user is not active and cannot be assigned a task")
	// ErrEmptyPatch is returned when an update carries no fields.
	ErrEmptyPatch = errors.New("no update data provided")
	// ErrEmptyStatus is returned when the new status is blank.
	ErrEmptyStatus = errors.New("status must not be empty")
	// ErrUpstream is returned when a peer service fails in a way other than
	// being unreachable.
	ErrUpstream = errors.New("error during validation with peer service")
	// ErrWriteFailed is returned when a store write does not take effect.
	ErrWriteFailed = errors.New("failed to store change")
	// ErrFileGone is returned when an attachment's bytes are missing from the store.
	ErrFileGone = errors.New("attachment file no longer exists on server")
	// ErrInvalidStoredPath is returned when an attachment's key escapes the store.
	ErrInvalidStoredPath = errors.New("invalid attachment path on server")
)

// LeaderCheck is the outcome of asking the team service whether the caller
// leads a team.
type LeaderCheck int

// Leader check outcomes. Only LeaderConfirmed authorizes.
const (
	LeaderDenied LeaderCheck = iota
	LeaderConfirmed
	LeaderUnavailable
)

func (c LeaderCheck) String() string {
	switch c {
	case LeaderConfirmed:
		return "confirmed"
	case LeaderUnavailable:
		return "unavailable"
	default:
		return "denied"
	}
}

// UserDirectory resolves accounts in the user service.
type UserDirectory interface {
	GetUser(ctx context.Context, token, username string) (*peer.User, error)
}

// TeamDirectory fetches teams from the team service. The team service only
// returns a team to its members and to admins.
type TeamDirectory interface {
	GetTeam(ctx context.Context, token, teamID string) (*peer.Team, error)
}

// Notifier writes notifications without reporting failures.
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

// CreateInput carries the fields accepted when creating a task.
type CreateInput struct {
	TeamID      string
	Title       string
	Description string
	AssignedTo  string
	Status      string
	Priority    Priority
	DueDate     *time.Time
}

// ListOptions narrows a task listing.
type ListOptions struct {
	Status    string
	SortByDue bool
}

// Upload describes an incoming attachment.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Service applies task mutations, their authorization rules and the
// notifications they trigger.
type Service struct {
	repo     Repository
	users    UserDirectory
	teams    TeamDirectory
	notifier Notifier
	files    filestore.Store
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a task Service.
func NewService(repo Repository, users UserDirectory, teams TeamDirectory, notifier Notifier, files filestore.Store, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		teams:    teams,
		notifier: notifier,
		files:    files,
		logger:   logger.Named("task-service"),
		now:      time.Now,
	}
}

// Create inserts a task into a team led by the caller and notifies the
// assignee when it is someone else.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Task, error) {
	view, err := s.accessTeam(ctx, p, in.TeamID)
	if err != nil {
		return nil, err
	}
	if p.Username != view.LeaderID {
		return nil, ErrNotTeamLeader
	}

	if err := s.validateAssignee(ctx, p, in.AssignedTo); err != nil {
		return nil, err
	}

	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = StatusTodo
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	t := &Task{
		TeamID:      view.ID,
		Title:       in.Title,
		Description: in.Description,
		CreatedBy:   p.Username,
		AssignedTo:  in.AssignedTo,
		Status:      status,
		Priority:    priority,
		DueDate:     in.DueDate,
		Comments:    []Comment{},
		Attachments: []Attachment{},
	}
	if err := s.repo.Insert(ctx, t); err != nil {
		return nil, err
	}

	if t.AssignedTo != p.Username {
		s.notifier.Notify(ctx, notification.Notification{
			UserID:  t.AssignedTo,
			Title:   "New Task Assigned",
			Message: fmt.Sprintf("You were assigned to '%s' by %s", t.Title, p.Username),
			Link:    taskLink(t),
			Type:    notification.TypeTaskAssigned,
		})
	}

	s.logger.Info("Task created",
		zap.String("task_id", t.ID.Hex()),
		zap.String("team_id", t.TeamID),
		zap.String("created_by", t.CreatedBy),
		zap.String("assigned_to", t.AssignedTo))
	return t, nil
}

// Get returns a task visible to the caller.
func (s *Service) Get(ctx context.Context, p auth.Principal, taskID string) (*Task, error) {
	t, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.accessTeam(ctx, p, t.TeamID); err != nil {
		return nil, err
	}
	return t, nil
}

// ListMine returns tasks assigned to the caller across all teams.
func (s *Service) ListMine(ctx context.Context, p auth.Principal, opts ListOptions) ([]Task, error) {
	return s.repo.List(ctx, ListFilter{
		AssignedTo: p.Username,
		Status:     opts.Status,
		SortByDue:  opts.SortByDue,
	}, ListLimit)
}

// ListByTeam returns the tasks of a team visible to the caller.
func (s *Service) ListByTeam(ctx context.Context, p auth.Principal, teamID string, opts ListOptions) ([]Task, error) {
	view, err := s.accessTeam(ctx, p, teamID)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{
		TeamID:    view.ID,
		Status:    opts.Status,
		SortByDue: opts.SortByDue,
	}, ListLimit)
}

// UpdateStatus sets the status of a task. Only the assignee may do this; the
// creator is notified when someone else changes it.
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, taskID, status string) (*Task, error) {
	t, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if p.Username != t.AssignedTo {
		return nil, ErrNotAssignee
	}

	status = strings.TrimSpace(status)
	if status == "" {
		return nil, ErrEmptyStatus
	}

	updated, err := s.repo.SetStatus(ctx, t.ID, status)
	if err != nil {
		return nil, err
	}

	if p.Username != t.CreatedBy {
		s.notifier.Notify(ctx, notification.Notification{
			UserID:  t.CreatedBy,
			Title:   "Task Status Changed",
			Message: fmt.Sprintf("Task '%s' marked as %s by %s", t.Title, status, p.Username),
			Link:    taskLink(t),
			Type:    notification.TypeTaskStatusChanged,
		})
	}

	return updated, nil
}

// Update applies a patch. Only the team leader may do this; admins are
// rejected. A new assignee is validated exactly as on creation.
func (s *Service) Update(ctx context.Context, p auth.Principal, taskID string, patch Patch) (*Task, error) {
	t, err := s.loadAsLeader(ctx, p, taskID)
	if err != nil {
		return nil, err
	}

	if patch.Empty() {
		return nil, ErrEmptyPatch
	}

	if patch.AssignedTo != nil {
		if err := s.validateAssignee(ctx, p, *patch.AssignedTo); err != nil {
			return nil, err
		}
	}

	return s.repo.Update(ctx, t.ID, patch)
}

// Delete removes a task and its stored files. Only the team leader may do this.
func (s *Service) Delete(ctx context.Context, p auth.Principal, taskID string) error {
	t, err := s.loadAsLeader(ctx, p, taskID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return err
	}
	s.removeFiles(ctx, t.ID)

	s.logger.Info("Task deleted", zap.String("task_id", t.ID.Hex()), zap.String("deleted_by", p.Username))
	return nil
}

// CleanupTeam deletes every task of teamID with its stored files and returns
// how many tasks were removed.
func (s *Service) CleanupTeam(ctx context.Context, teamID string) (int, error) {
	ids, err := s.repo.DeleteByTeam(ctx, teamID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.removeFiles(ctx, id)
	}

	s.logger.Info("Team tasks cleaned up", zap.String("team_id", teamID), zap.Int("count", len(ids)))
	return len(ids), nil
}

// AddComment appends a comment and notifies the assignee and the creator,
// each at most once and never the commenter.
func (s *Service) AddComment(ctx context.Context, p auth.Principal, taskID, text string) (*Comment, error) {
	t, err := s.Get(ctx, p, taskID)
	if err != nil {
		return nil, err
	}

	c := Comment{
		ID:        primitive.NewObjectID(),
		Text:      text,
		CreatedBy: p.Username,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.repo.AddComment(ctx, t.ID, c); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, fmt.Errorf("%w: comment not added", ErrWriteFailed)
		}
		return nil, err
	}

	for _, recipient := range commentRecipients(p.Username, t.AssignedTo, t.CreatedBy) {
		s.notifier.Notify(ctx, notification.Notification{
			UserID:  recipient,
			Title:   "New Comment",
			Message: fmt.Sprintf("%s commented on '%s'", p.Username, t.Title),
			Link:    taskLink(t),
			Type:    notification.TypeNewComment,
		})
	}

	return &c, nil
}

// commentRecipients returns who to notify about a new comment: the assignee
// unless they wrote it, then the creator unless they wrote it or were
// already notified as assignee.
func commentRecipients(commenter, assignee, creator string) []string {
	var out []string
	if assignee != "" && assignee != commenter {
		out = append(out, assignee)
	}
	if creator != "" && creator != commenter && creator != assignee {
		out = append(out, creator)
	}
	return out
}

// ListComments returns the comments of a task visible to the caller.
func (s *Service) ListComments(ctx context.Context, p auth.Principal, taskID string) ([]Comment, error) {
	t, err := s.Get(ctx, p, taskID)
	if err != nil {
		return nil, err
	}
	return t.Comments, nil
}

// DeleteComment removes a comment. The author, an admin or the live team
// leader may do this; an unavailable team service counts as not the leader.
func (s *Service) DeleteComment(ctx context.Context, p auth.Principal, taskID, commentID string) error {
	t, err := s.load(ctx, taskID)
	if err != nil {
		return err
	}
	cid, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return ErrInvalidID
	}

	c, ok := t.FindComment(cid)
	if !ok {
		return ErrCommentNotFound
	}

	if c.CreatedBy != p.Username && !p.IsAdmin() {
		if s.checkLeader(ctx, p, t.TeamID) != LeaderConfirmed {
			return ErrCommentForbidden
		}
	}

	if err := s.repo.RemoveComment(ctx, t.ID, cid); err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			return fmt.Errorf("%w: comment not removed", ErrWriteFailed)
		}
		return err
	}
	return nil
}

// AddAttachment stores the upload and records it on the task. If the task
// update fails the stored file is removed again.
func (s *Service) AddAttachment(ctx context.Context, p auth.Principal, taskID string, up Upload) (*Attachment, error) {
	t, err := s.Get(ctx, p, taskID)
	if err != nil {
		return nil, err
	}

	a := Attachment{
		ID:          primitive.NewObjectID(),
		Filename:    safeFilename(up.Filename),
		ContentType: up.ContentType,
		UploadedBy:  p.Username,
		UploadedAt:  s.now().UTC().Truncate(time.Millisecond),
	}
	if a.ContentType == "" {
		a.ContentType = "application/octet-stream"
	}
	a.Key = path.Join(t.ID.Hex(), a.ID.Hex()+"_"+a.Filename)

	err = s.files.Write(ctx, a.Key, func(w io.Writer) error {
		_, err := io.Copy(w, up.Body)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to save attachment", zap.String("key", a.Key), zap.Error(err))
		return nil, fmt.Errorf("%w: saving file: %v", ErrWriteFailed, err)
	}

	if err := s.repo.AddAttachment(ctx, t.ID, a); err != nil {
		if delErr := s.files.Delete(ctx, a.Key); delErr != nil {
			s.logger.Warn("Failed to remove orphaned attachment", zap.String("key", a.Key), zap.Error(delErr))
		}
		if errors.Is(err, ErrTaskNotFound) {
			return nil, fmt.Errorf("%w: attachment not recorded", ErrWriteFailed)
		}
		return nil, err
	}

	return &a, nil
}

// ListAttachments returns the attachments of a task visible to the caller.
func (s *Service) ListAttachments(ctx context.Context, p auth.Principal, taskID string) ([]Attachment, error) {
	t, err := s.Get(ctx, p, taskID)
	if err != nil {
		return nil, err
	}
	return t.Attachments, nil
}

// OpenAttachment returns an attachment and its contents. The caller must
// close the reader.
func (s *Service) OpenAttachment(ctx context.Context, p auth.Principal, taskID, attachmentID string) (*Attachment, io.ReadCloser, error) {
	aid, err := primitive.ObjectIDFromHex(attachmentID)
	if err != nil {
		return nil, nil, ErrInvalidID
	}
	t, err := s.Get(ctx, p, taskID)
	if err != nil {
		return nil, nil, err
	}

	a, ok := t.FindAttachment(aid)
	if !ok {
		return nil, nil, ErrAttachmentNotFound
	}

	rc, err := s.files.Open(ctx, a.Key)
	if err != nil {
		switch {
		case errors.Is(err, filestore.ErrNotExist):
			return nil, nil, ErrFileGone
		case errors.Is(err, filestore.ErrOutsideBase):
			s.logger.Error("Attachment key escapes upload directory", zap.String("key", a.Key))
			return nil, nil, ErrInvalidStoredPath
		default:
			return nil, nil, fmt.Errorf("opening attachment: %w", err)
		}
	}
	return a, rc, nil
}

// DeleteAttachment removes an attachment. The uploader, an admin or a
// TEAM_LEADER confirmed live as the team's leader may do this.
func (s *Service) DeleteAttachment(ctx context.Context, p auth.Principal, taskID, attachmentID string) error {
	t, err := s.load(ctx, taskID)
	if err != nil {
		return err
	}
	aid, err := primitive.ObjectIDFromHex(attachmentID)
	if err != nil {
		return ErrInvalidID
	}

	a, ok := t.FindAttachment(aid)
	if !ok {
		return ErrAttachmentNotFound
	}

	if !s.mayDeleteAttachment(ctx, p, t, a) {
		return ErrAttachmentForbidden
	}

	if err := s.files.Delete(ctx, a.Key); err != nil && !errors.Is(err, filestore.ErrNotExist) {
		s.logger.Error("Failed to delete attachment file", zap.String("key", a.Key), zap.Error(err))
	}

	if err := s.repo.RemoveAttachment(ctx, t.ID, aid); err != nil && !errors.Is(err, ErrAttachmentNotFound) {
		return err
	}
	return nil
}

func (s *Service) mayDeleteAttachment(ctx context.Context, p auth.Principal, t *Task, a *Attachment) bool {
	if a.UploadedBy == p.Username || p.IsAdmin() {
		return true
	}
	if p.Role != auth.RoleTeamLeader {
		return false
	}
	return s.checkLeader(ctx, p, t.TeamID) == LeaderConfirmed
}

// checkLeader asks the team service whether p leads teamID. Failures to
// reach or understand the team service yield LeaderUnavailable.
func (s *Service) checkLeader(ctx context.Context, p auth.Principal, teamID string) LeaderCheck {
	view, err := s.teams.GetTeam(ctx, p.Token, teamID)
	if err != nil {
		if errors.Is(err, peer.ErrForbidden) || errors.Is(err, peer.ErrNotFound) {
			return LeaderDenied
		}
		s.logger.Warn("Leader check unavailable",
			zap.String("team_id", teamID),
			zap.String("username", p.Username),
			zap.Error(err))
		return LeaderUnavailable
	}
	if view.LeaderID == p.Username {
		return LeaderConfirmed
	}
	return LeaderDenied
}

// accessTeam fetches a team through the team service, which admits only
// admins and members. A missing team and a non-member look the same.
func (s *Service) accessTeam(ctx context.Context, p auth.Principal, teamID string) (*peer.Team, error) {
	if _, err := team.ParseID(teamID); err != nil {
		return nil, err
	}

	view, err := s.teams.GetTeam(ctx, p.Token, teamID)
	if err != nil {
		switch {
		case errors.Is(err, peer.ErrForbidden), errors.Is(err, peer.ErrNotFound):
			return nil, team.ErrInaccessible
		case errors.Is(err, peer.ErrBadRequest):
			return nil, team.ErrInvalidTeamID
		case errors.Is(err, peer.ErrUnreachable):
			return nil, fmt.Errorf("fetching team: %w", err)
		default:
			return nil, fmt.Errorf("%w: fetching team: %v", ErrUpstream, err)
		}
	}

	if !team.IsMemberOrAdmin(p, view.MemberIDs) {
		return nil, team.ErrInaccessible
	}
	if view.ID == "" {
		view.ID = teamID
	}
	return view, nil
}

// loadAsLeader loads a task and requires the caller to be the live leader
// of its team. Admins are rejected.
func (s *Service) loadAsLeader(ctx context.Context, p auth.Principal, taskID string) (*Task, error) {
	t, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}

	view, err := s.teams.GetTeam(ctx, p.Token, t.TeamID)
	if err != nil {
		switch {
		case errors.Is(err, peer.ErrForbidden), errors.Is(err, peer.ErrNotFound):
			return nil, ErrNotTeamLeader
		case errors.Is(err, peer.ErrUnreachable):
			return nil, fmt.Errorf("fetching team: %w", err)
		default:
			return nil, fmt.Errorf("%w: fetching team: %v", ErrUpstream, err)
		}
	}

	if !team.IsLeaderOnly(p, view.LeaderID) {
		return nil, ErrNotTeamLeader
	}
	return t, nil
}

// validateAssignee requires username to be well formed and to exist and be
// active in the user service. An unreachable user service is reported as peer.ErrUnreachable.
func (s *Service) validateAssignee(ctx context.Context, p auth.Principal, username string) error {
	if !auth.ValidUsername(username) {
		return fmt.Errorf("%w: %q", ErrAssigneeNotFound, username)
	}

	u, err := s.users.GetUser(ctx, p.Token, username)
	if err != nil {
		switch {
		case errors.Is(err, peer.ErrNotFound), errors.Is(err, peer.ErrInvalidSegment):
			return fmt.Errorf("%w: %s", ErrAssigneeNotFound, username)
		case errors.Is(err, peer.ErrUnreachable):
			return fmt.Errorf("validating assignee: %w", err)
		default:
			return fmt.Errorf("%w: validating assignee: %v", ErrUpstream, err)
		}
	}
	if !u.Active {
		return ErrAssigneeInactive
	}
	return nil
}

func (s *Service) load(ctx context.Context, taskID string) (*Task, error) {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, ErrInvalidID
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) removeFiles(ctx context.Context, taskID primitive.ObjectID) {
	if err := s.files.DeletePrefix(ctx, taskID.Hex()); err != nil {
		s.logger.Warn("Failed to remove task files", zap.String("task_id", taskID.Hex()), zap.Error(err))
	}
}

func taskLink(t *Task) string {
	return fmt.Sprintf("/teams/%s/tasks/%s", t.TeamID, t.ID.Hex())
}

// safeFilename keeps only the final path element of a client-supplied name.
func safeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "attachment"
	}
	return name
}
