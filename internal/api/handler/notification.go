package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/api/middleware"
	"github.com/daap14/taskhub/internal/api/response"
	"github.com/daap14/taskhub/internal/api/validation"
	"github.com/daap14/taskhub/internal/auth"
	"github.com/daap14/taskhub/internal/notification"
)

// NotificationService is the subset of notification.Service the handlers use.
type NotificationService interface {
	Create(ctx context.Context, n notification.Notification) (*notification.Notification, error)
	List(ctx context.Context, p auth.Principal) ([]notification.Notification, error)
	MarkRead(ctx context.Context, p auth.Principal, rawID string) error
	Clear(ctx context.Context, p auth.Principal) error
}

type notificationResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link"`
	Type      string `json:"type"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

func toNotificationResponse(n *notification.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID.Hex(),
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		CreatedAt: formatTime(n.CreatedAt),
	}
}

// NotificationHandler handles the caller's notification inbox.
type NotificationHandler struct {
	svc    NotificationService
	logger *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(svc NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger.Named("notification-handler")}
}

// List handles GET /tasks/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	notes, err := h.svc.List(r.Context(), p)
	if err != nil {
		h.logger.Error("Failed to list notifications", zap.String("user_id", p.Username), zap.Error(err))
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list notifications", requestID)
		return
	}

	items := make([]notificationResponse, 0, len(notes))
	for i := range notes {
		items = append(items, toNotificationResponse(&notes[i]))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), notification.ListLimit, requestID)
}

// MarkRead handles PATCH /tasks/notifications/{note_id}/read. Marking an ID
// that is not the caller's is silently ignored.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.svc.MarkRead(r.Context(), p, chi.URLParam(r, "note_id")); err != nil {
		if errors.Is(err, notification.ErrInvalidID) {
			response.Err(w, http.StatusBadRequest, "INVALID_ID", "Invalid ID", requestID)
			return
		}
		h.logger.Error("Failed to mark notification read", zap.Error(err))
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to mark notification read", requestID)
		return
	}
	response.NoContent(w)
}

// Clear handles DELETE /tasks/notifications.
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.svc.Clear(r.Context(), p); err != nil {
		h.logger.Error("Failed to clear notifications", zap.String("user_id", p.Username), zap.Error(err))
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to clear notifications", requestID)
		return
	}
	response.NoContent(w)
}

// CreateInternal handles POST /tasks/notifications/internal. It is mounted
// without authentication for other services.
func (h *NotificationHandler) CreateInternal(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.InternalNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.svc.Create(r.Context(), notification.Notification{
		UserID:  req.UserID,
		Title:   req.Title,
		Message: req.Message,
		Link:    req.Link,
		Type:    notification.Type(req.Type),
	})
	if err != nil {
		if errors.Is(err, notification.ErrInvalidType) {
			response.Err(w, http.StatusBadRequest, "INVALID_TYPE", "Invalid notification type", requestID)
			return
		}
		h.logger.Error("Failed to create notification", zap.String("user_id", req.UserID), zap.Error(err))
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create notification", requestID)
		return
	}
	response.Success(w, http.StatusCreated, toNotificationResponse(n), requestID)
}
