package peer

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Team is the team service's view of a team.
type Team struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	LeaderID    string   `json:"leader_id"`
	MemberIDs   []string `json:"member_ids"`
}

// TeamClient calls the team service.
type TeamClient struct {
	client
}

// NewTeamClient creates a TeamClient for the service at baseURL.
func NewTeamClient(baseURL string, timeout time.Duration, logger *zap.Logger) *TeamClient {
	return &TeamClient{client: newClient(baseURL, timeout, logger.Named("team-client"))}
}

// GetTeam fetches a team, relaying token. The team service only answers for
// admins and members, so a 403 covers both an unknown team and a non-member.
func (c *TeamClient) GetTeam(ctx context.Context, token, teamID string) (*Team, error) {
	var t Team
	if err := c.do(ctx, http.MethodGet, token, &t, "teams", teamID); err != nil {
		return nil, err
	}
	return &t, nil
}
