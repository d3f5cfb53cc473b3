package peer

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TaskClient calls the task service.
type TaskClient struct {
	client
}

// NewTaskClient creates a TaskClient for the service at baseURL.
func NewTaskClient(baseURL string, timeout time.Duration, logger *zap.Logger) *TaskClient {
	return &TaskClient{client: newClient(baseURL, timeout, logger.Named("task-client"))}
}

// CleanupTeam asks the task service to delete every task of teamID.
func (c *TaskClient) CleanupTeam(ctx context.Context, token, teamID string) error {
	return c.do(ctx, http.MethodDelete, token, nil, "tasks", "internal", "cleanup-team", teamID)
}
