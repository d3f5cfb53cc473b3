package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/api/middleware"
	"github.com/daap14/taskhub/internal/api/response"
	"github.com/daap14/taskhub/internal/api/validation"
	"github.com/daap14/taskhub/internal/auth"
	"github.com/daap14/taskhub/internal/peer"
	"github.com/daap14/taskhub/internal/task"
	"github.com/daap14/taskhub/internal/team"
)

const (
	maxUploadBytes  = 25 << 20
	uploadMemoryCap = 8 << 20
)

// TaskService is the subset of task.Service the handlers use.
type TaskService interface {
	Create(ctx context.Context, p auth.Principal, in task.CreateInput) (*task.Task, error)
	Get(ctx context.Context, p auth.Principal, taskID string) (*task.Task, error)
	ListMine(ctx context.Context, p auth.Principal, opts task.ListOptions) ([]task.Task, error)
	ListByTeam(ctx context.Context, p auth.Principal, teamID string, opts task.ListOptions) ([]task.Task, error)
	UpdateStatus(ctx context.Context, p auth.Principal, taskID, status string) (*task.Task, error)
	Update(ctx context.Context, p auth.Principal, taskID string, patch task.Patch) (*task.Task, error)
	Delete(ctx context.Context, p auth.Principal, taskID string) error
	CleanupTeam(ctx context.Context, teamID string) (int, error)
	AddComment(ctx context.Context, p auth.Principal, taskID, text string) (*task.Comment, error)
	ListComments(ctx context.Context, p auth.Principal, taskID string) ([]task.Comment, error)
	DeleteComment(ctx context.Context, p auth.Principal, taskID, commentID string) error
	AddAttachment(ctx context.Context, p auth.Principal, taskID string, up task.Upload) (*task.Attachment, error)
	ListAttachments(ctx context.Context, p auth.Principal, taskID string) ([]task.Attachment, error)
	OpenAttachment(ctx context.Context, p auth.Principal, taskID, attachmentID string) (*task.Attachment, io.ReadCloser, error)
	DeleteAttachment(ctx context.Context, p auth.Principal, taskID, attachmentID string) error
}

type commentResponse struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

type attachmentResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	UploadedBy  string `json:"uploaded_by"`
	UploadedAt  string `json:"uploaded_at"`
}

type taskResponse struct {
	ID          string               `json:"id"`
	TeamID      string               `json:"team_id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	CreatedBy   string               `json:"created_by"`
	AssignedTo  string               `json:"assigned_to"`
	Status      string               `json:"status"`
	Priority    string               `json:"priority"`
	DueDate     *string              `json:"due_date"`
	Comments    []commentResponse    `json:"comments"`
	Attachments []attachmentResponse `json:"attachments"`
	CreatedAt   string               `json:"created_at"`
	UpdatedAt   string               `json:"updated_at"`
}

func toCommentResponse(c *task.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID.Hex(),
		Text:      c.Text,
		CreatedBy: c.CreatedBy,
		CreatedAt: formatTime(c.CreatedAt),
	}
}

func toCommentResponses(cs []task.Comment) []commentResponse {
	out := make([]commentResponse, 0, len(cs))
	for i := range cs {
		out = append(out, toCommentResponse(&cs[i]))
	}
	return out
}

func toAttachmentResponse(a *task.Attachment) attachmentResponse {
	return attachmentResponse{
		ID:          a.ID.Hex(),
		Filename:    a.Filename,
		ContentType: a.ContentType,
		UploadedBy:  a.UploadedBy,
		UploadedAt:  formatTime(a.UploadedAt),
	}
}

func toAttachmentResponses(as []task.Attachment) []attachmentResponse {
	out := make([]attachmentResponse, 0, len(as))
	for i := range as {
		out = append(out, toAttachmentResponse(&as[i]))
	}
	return out
}

func toTaskResponse(t *task.Task) taskResponse {
	return taskResponse{
		ID:          t.ID.Hex(),
		TeamID:      t.TeamID,
		Title:       t.Title,
		Description: t.Description,
		CreatedBy:   t.CreatedBy,
		AssignedTo:  t.AssignedTo,
		Status:      t.Status,
		Priority:    string(t.Priority),
		DueDate:     formatTimePtr(t.DueDate),
		Comments:    toCommentResponses(t.Comments),
		Attachments: toAttachmentResponses(t.Attachments),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

func toTaskResponses(ts []task.Task) []taskResponse {
	out := make([]taskResponse, 0, len(ts))
	for i := range ts {
		out = append(out, toTaskResponse(&ts[i]))
	}
	return out
}

// TaskHandler handles task, comment and attachment endpoints.
type TaskHandler struct {
	svc    TaskService
	logger *zap.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger.Named("task-handler")}
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req validation.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.svc.Create(r.Context(), p, task.CreateInput{
		TeamID:      req.TeamID,
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Status:      req.Status,
		Priority:    task.Priority(req.Priority),
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.fail(w, requestID, err, "create task")
		return
	}

	response.Created(w, "/tasks/"+t.ID.Hex(), toTaskResponse(t), requestID)
}

// ListMine handles GET /tasks/me.
func (h *TaskHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}

	tasks, err := h.svc.ListMine(r.Context(), p, opts)
	if err != nil {
		h.fail(w, requestID, err, "list tasks")
		return
	}
	response.SuccessList(w, http.StatusOK, toTaskResponses(tasks), len(tasks), task.ListLimit, requestID)
}

// ListByTeam handles GET /tasks/team/{team_id}.
func (h *TaskHandler) ListByTeam(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}

	tasks, err := h.svc.ListByTeam(r.Context(), p, chi.URLParam(r, "team_id"), opts)
	if err != nil {
		h.fail(w, requestID, err, "list team tasks")
		return
	}
	response.SuccessList(w, http.StatusOK, toTaskResponses(tasks), len(tasks), task.ListLimit, requestID)
}

func listOptions(w http.ResponseWriter, r *http.Request) (task.ListOptions, bool) {
	q := r.URL.Query()
	opts := task.ListOptions{Status: q.Get("status")}

	if raw := q.Get("sort_by_due"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
				[]validation.FieldError{{Field: "sort_by_due", Message: "sort_by_due must be a boolean"}},
				middleware.GetRequestID(r.Context()))
			return opts, false
		}
		opts.SortByDue = v
	}
	return opts, true
}

// Get handles GET /tasks/{task_id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Get(r.Context(), p, chi.URLParam(r, "task_id"))
	if err != nil {
		h.fail(w, requestID, err, "get task")
		return
	}
	response.Success(w, http.StatusOK, toTaskResponse(t), requestID)
}

// Update handles PATCH /tasks/{task_id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req validation.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := task.Patch{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	}
	if req.Priority != nil {
		pr := task.Priority(*req.Priority)
		patch.Priority = &pr
	}

	t, err := h.svc.Update(r.Context(), p, chi.URLParam(r, "task_id"), patch)
	if err != nil {
		h.fail(w, requestID, err, "update task")
		return
	}
	response.Success(w, http.StatusOK, toTaskResponse(t), requestID)
}

// UpdateStatus handles PATCH /tasks/{task_id}/status.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req validation.StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.svc.UpdateStatus(r.Context(), p, chi.URLParam(r, "task_id"), req.Status)
	if err != nil {
		h.fail(w, requestID, err, "update task status")
		return
	}
	response.Success(w, http.StatusOK, toTaskResponse(t), requestID)
}

// Delete handles DELETE /tasks/{task_id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), p, chi.URLParam(r, "task_id")); err != nil {
		h.fail(w, requestID, err, "delete task")
		return
	}
	response.NoContent(w)
}

// AddComment handles POST /tasks/{task_id}/comments.
func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req validation.CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.svc.AddComment(r.Context(), p, chi.URLParam(r, "task_id"), req.Text)
	if err != nil {
		h.fail(w, requestID, err, "add comment")
		return
	}
	response.Success(w, http.StatusCreated, toCommentResponse(c), requestID)
}

// ListComments handles GET /tasks/{task_id}/comments.
func (h *TaskHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	comments, err := h.svc.ListComments(r.Context(), p, chi.URLParam(r, "task_id"))
	if err != nil {
		h.fail(w, requestID, err, "list comments")
		return
	}
	items := toCommentResponses(comments)
	response.SuccessList(w, http.StatusOK, items, len(items), len(items), requestID)
}

// DeleteComment handles DELETE /tasks/{task_id}/comments/{comment_id}.
func (h *TaskHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	err := h.svc.DeleteComment(r.Context(), p, chi.URLParam(r, "task_id"), chi.URLParam(r, "comment_id"))
	if err != nil {
		h.fail(w, requestID, err, "delete comment")
		return
	}
	response.NoContent(w)
}

// UploadAttachment handles POST /tasks/{task_id}/attachments. The file is
// read from the multipart field "file".
func (h *TaskHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(uploadMemoryCap); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_UPLOAD", "Request must be multipart/form-data within the size limit", requestID)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "file", Message: "file is required"}}, requestID)
		return
	}
	defer file.Close()

	a, err := h.svc.AddAttachment(r.Context(), p, chi.URLParam(r, "task_id"), task.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		h.fail(w, requestID, err, "upload attachment")
		return
	}
	response.Success(w, http.StatusCreated, toAttachmentResponse(a), requestID)
}

// ListAttachments handles GET /tasks/{task_id}/attachments.
func (h *TaskHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	attachments, err := h.svc.ListAttachments(r.Context(), p, chi.URLParam(r, "task_id"))
	if err != nil {
		h.fail(w, requestID, err, "list attachments")
		return
	}
	items := toAttachmentResponses(attachments)
	response.SuccessList(w, http.StatusOK, items, len(items), len(items), requestID)
}

// DownloadAttachment handles GET /tasks/{task_id}/attachments/{attachment_id}
// and streams the stored bytes.
func (h *TaskHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	a, rc, err := h.svc.OpenAttachment(r.Context(), p, chi.URLParam(r, "task_id"), chi.URLParam(r, "attachment_id"))
	if err != nil {
		h.fail(w, requestID, err, "download attachment")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("Attachment download interrupted", zap.String("attachment_id", a.ID.Hex()), zap.Error(err))
	}
}

// DeleteAttachment handles DELETE /tasks/{task_id}/attachments/{attachment_id}.
func (h *TaskHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	err := h.svc.DeleteAttachment(r.Context(), p, chi.URLParam(r, "task_id"), chi.URLParam(r, "attachment_id"))
	if err != nil {
		h.fail(w, requestID, err, "delete attachment")
		return
	}
	response.NoContent(w)
}

// CleanupTeam handles DELETE /tasks/internal/cleanup-team/{team_id}. It is
// mounted without authentication for the team service.
func (h *TaskHandler) CleanupTeam(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID := chi.URLParam(r, "team_id")
	if teamID == "" {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", team.ErrInvalidTeamID.Error(), requestID)
		return
	}

	n, err := h.svc.CleanupTeam(r.Context(), teamID)
	if err != nil {
		h.fail(w, requestID, err, "clean up team tasks")
		return
	}

	h.logger.Info("Cleanup requested", zap.String("team_id", teamID), zap.Int("deleted", n))
	response.NoContent(w)
}

func (h *TaskHandler) fail(w http.ResponseWriter, requestID string, err error, action string) {
	switch {
	case errors.Is(err, task.ErrInvalidID), errors.Is(err, team.ErrInvalidTeamID):
		response.Err(w, http.StatusBadRequest, "INVALID_ID", err.Error(), requestID)
	case errors.Is(err, team.ErrInaccessible):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", team.ErrInaccessible.Error(), requestID)
	case errors.Is(err, task.ErrNotTeamLeader), errors.Is(err, task.ErrNotAssignee),
		errors.Is(err, task.ErrCommentForbidden), errors.Is(err, task.ErrAttachmentForbidden):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", err.Error(), requestID)
	case errors.Is(err, task.ErrTaskNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Task not found", requestID)
	case errors.Is(err, task.ErrCommentNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Comment not found", requestID)
	case errors.Is(err, task.ErrAttachmentNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Attachment not found", requestID)
	case errors.Is(err, task.ErrAssigneeNotFound):
		response.Err(w, http.StatusNotFound, "ASSIGNEE_NOT_FOUND", err.Error(), requestID)
	case errors.Is(err, task.ErrAssigneeInactive), errors.Is(err, task.ErrEmptyPatch), errors.Is(err, task.ErrEmptyStatus):
		response.Err(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), requestID)
	case errors.Is(err, task.ErrFileGone):
		response.Err(w, http.StatusGone, "FILE_GONE", err.Error(), requestID)
	case errors.Is(err, task.ErrInvalidStoredPath):
		response.Err(w, http.StatusInternalServerError, "INVALID_PATH", err.Error(), requestID)
	case errors.Is(err, task.ErrWriteFailed):
		h.logger.Error("Store write failed", zap.String("action", action), zap.Error(err))
		response.Err(w, http.StatusInternalServerError, "WRITE_FAILED", "Failed to "+action, requestID)
	case errors.Is(err, peer.ErrUnreachable):
		h.logger.Warn("Peer service unreachable", zap.String("action", action), zap.Error(err))
		response.Err(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "A required service is unavailable", requestID)
	case errors.Is(err, task.ErrUpstream):
		h.logger.Error("Peer service failed", zap.String("action", action), zap.Error(err))
		response.Err(w, http.StatusInternalServerError, "UPSTREAM_ERROR", task.ErrUpstream.Error(), requestID)
	default:
		h.logger.Error("Failed to "+action, zap.Error(err))
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action, requestID)
	}
}
