package notification

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/auth"
)

var (
	// ErrInvalidID is returned when a notification ID is not a valid ObjectID.
	ErrInvalidID = errors.New("invalid notification ID")
	// ErrInvalidType is returned for an unknown notification type.
	ErrInvalidType = errors.New("invalid notification type")
)

// Service reads and writes notifications on behalf of their recipient.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a notification Service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger.Named("notifications")}
}

// Notify writes n and only logs a failure. The mutation that triggered it has
// already been committed and is neither rolled back nor retried.
func (s *Service) Notify(ctx context.Context, n Notification) {
	if err := s.repo.Insert(ctx, &n); err != nil {
		s.logger.Error("Failed to write notification",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err))
	}
}

// Create appends a notification for any user. It backs the internal endpoint.
func (s *Service) Create(ctx context.Context, n Notification) (*Notification, error) {
	if !n.Type.Valid() {
		return nil, ErrInvalidType
	}
	n.IsRead = false
	if err := s.repo.Insert(ctx, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns the caller's most recent notifications, newest first.
func (s *Service) List(ctx context.Context, p auth.Principal) ([]Notification, error) {
	return s.repo.ListForUser(ctx, p.Username, ListLimit)
}

// MarkRead marks one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, p auth.Principal, rawID string) error {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return ErrInvalidID
	}
	return s.repo.MarkRead(ctx, id, p.Username)
}

// Clear deletes all of the caller's notifications.
func (s *Service) Clear(ctx context.Context, p auth.Principal) error {
	n, err := s.repo.DeleteAllForUser(ctx, p.Username)
	if err != nil {
		return err
	}
	s.logger.Debug("Notifications cleared", zap.String("user_id", p.Username), zap.Int64("count", n))
	return nil
}
