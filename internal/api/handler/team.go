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
	"github.com/daap14/taskhub/internal/peer"
	"github.com/daap14/taskhub/internal/team"
)

// TeamService is the subset of team.Service the handlers use.
type TeamService interface {
	Create(ctx context.Context, p auth.Principal, in team.CreateInput) (*team.Team, error)
	List(ctx context.Context, p auth.Principal) ([]team.Team, error)
	Get(ctx context.Context, p auth.Principal, teamID string) (*team.Team, error)
	Update(ctx context.Context, p auth.Principal, teamID string, u team.Update) (*team.Team, error)
	Delete(ctx context.Context, p auth.Principal, teamID string) error
	AddMember(ctx context.Context, p auth.Principal, teamID, username string) (*team.Team, error)
	RemoveMember(ctx context.Context, p auth.Principal, teamID, username string) (*team.Team, error)
}

type teamResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	LeaderID    string   `json:"leader_id"`
	MemberIDs   []string `json:"member_ids"`
	CreatedAt   string   `json:"created_at"`
}

func toTeamResponse(t *team.Team) teamResponse {
	members := t.MemberIDs
	if members == nil {
		members = []string{}
	}
	return teamResponse{
		ID:          t.ID.Hex(),
		Name:        t.Name,
		Description: t.Description,
		LeaderID:    t.LeaderID,
		MemberIDs:   members,
		CreatedAt:   formatTime(t.CreatedAt),
	}
}

// TeamHandler handles team CRUD and membership endpoints.
type TeamHandler struct {
	svc    TeamService
	logger *zap.Logger
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(svc TeamService, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{svc: svc, logger: logger.Named("team-handler")}
}

// Create handles POST /teams.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req validation.CreateTeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.svc.Create(r.Context(), p, team.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		LeaderID:    req.LeaderID,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		h.fail(w, requestID, err, "create team")
		return
	}

	response.Created(w, "/teams/"+t.ID.Hex(), toTeamResponse(t), requestID)
}

// List handles GET /teams.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	teams, err := h.svc.List(r.Context(), p)
	if err != nil {
		h.fail(w, requestID, err, "list teams")
		return
	}

	items := make([]teamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, toTeamResponse(&teams[i]))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), len(items), requestID)
}

// Get handles GET /teams/{id}.
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, requestID, err, "get team")
		return
	}
	response.Success(w, http.StatusOK, toTeamResponse(t), requestID)
}

// Update handles PATCH /teams/{id}.
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req validation.UpdateTeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.svc.Update(r.Context(), p, chi.URLParam(r, "id"), team.Update{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, requestID, err, "update team")
		return
	}
	response.Success(w, http.StatusOK, toTeamResponse(t), requestID)
}

// Delete handles DELETE /teams/{id}.
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.fail(w, requestID, err, "delete team")
		return
	}
	response.NoContent(w)
}

// AddMember handles POST /teams/{id}/members.
func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req validation.AddMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.svc.AddMember(r.Context(), p, chi.URLParam(r, "id"), req.Username)
	if err != nil {
		h.fail(w, requestID, err, "add member")
		return
	}
	response.Success(w, http.StatusOK, toTeamResponse(t), requestID)
}

// RemoveMember handles DELETE /teams/{id}/members/{username}.
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	p, ok := principal(w, r)
	if !ok {
		return
	}

	t, err := h.svc.RemoveMember(r.Context(), p, chi.URLParam(r, "id"), chi.URLParam(r, "username"))
	if err != nil {
		h.fail(w, requestID, err, "remove member")
		return
	}
	response.Success(w, http.StatusOK, toTeamResponse(t), requestID)
}

func (h *TeamHandler) fail(w http.ResponseWriter, requestID string, err error, action string) {
	switch {
	case errors.Is(err, team.ErrInvalidTeamID):
		response.Err(w, http.StatusBadRequest, "INVALID_ID", team.ErrInvalidTeamID.Error(), requestID)
	case errors.Is(err, team.ErrInaccessible):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", team.ErrInaccessible.Error(), requestID)
	case errors.Is(err, team.ErrTeamNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Team not found", requestID)
	case errors.Is(err, team.ErrForbidden), errors.Is(err, team.ErrNotLeader), errors.Is(err, team.ErrAdminCannotManage):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", err.Error(), requestID)
	case errors.Is(err, team.ErrDuplicateTeamName):
		response.Err(w, http.StatusConflict, "DUPLICATE_NAME", "A team with this name already exists", requestID)
	case errors.Is(err, team.ErrUserNotFound):
		response.Err(w, http.StatusNotFound, "USER_NOT_FOUND", err.Error(), requestID)
	case errors.Is(err, team.ErrUserInactive):
		response.Err(w, http.StatusBadRequest, "USER_INACTIVE", err.Error(), requestID)
	case errors.Is(err, team.ErrLeaderRemoval), errors.Is(err, team.ErrEmptyUpdate):
		response.Err(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), requestID)
	case errors.Is(err, team.ErrNotMember):
		response.Err(w, http.StatusNotFound, "NOT_MEMBER", err.Error(), requestID)
	case errors.Is(err, peer.ErrUnreachable):
		h.logger.Warn("Peer service unreachable", zap.String("action", action), zap.Error(err))
		response.Err(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "A required service is unavailable", requestID)
	default:
		h.logger.Error("Failed to "+action, zap.Error(err))
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action, requestID)
	}
}
