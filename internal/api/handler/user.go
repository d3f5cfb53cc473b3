package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/api/middleware"
	"github.com/daap14/taskhub/internal/api/response"
	"github.com/daap14/taskhub/internal/api/validation"
	"github.com/daap14/taskhub/internal/auth"
	"github.com/daap14/taskhub/internal/user"
)

// UserService is the subset of user.Service the handlers use.
type UserService interface {
	Register(ctx context.Context, in user.RegisterInput) (*user.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Get(ctx context.Context, username string) (*user.User, error)
	List(ctx context.Context) ([]user.User, error)
	UpdateRole(ctx context.Context, username string, role auth.Role) (*user.User, error)
	SetActive(ctx context.Context, username string, active bool) (*user.User, error)
	Delete(ctx context.Context, username string) error
}

type userResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: formatTime(u.CreatedAt),
		UpdatedAt: formatTime(u.UpdatedAt),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserHandler handles registration, login and user administration.
type UserHandler struct {
	svc    UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger.Named("user-handler")}
}

// Register handles POST /auth/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.svc.Register(r.Context(), user.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateUser) {
			response.Err(w, http.StatusConflict, "DUPLICATE_USER", "Username or email already registered", requestID)
			return
		}
		h.logger.Error("Failed to register user", zap.String("username", req.Username), zap.Error(err))
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register user", requestID)
		return
	}

	response.Created(w, "/users/"+u.Username, toUserResponse(u), requestID)
}

// Login handles POST /auth/token. It accepts an OAuth2 password form or a
// JSON body.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_FORM", "Request body must be a valid form", requestID)
			return
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
		if fieldErrors := validation.Struct(req); len(fieldErrors) > 0 {
			response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
			return
		}
	} else if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidCredentials):
			w.Header().Set("WWW-Authenticate", "Bearer")
			response.Err(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect username or password", requestID)
		case errors.Is(err, user.ErrInactiveUser):
			response.Err(w, http.StatusBadRequest, "INACTIVE_USER", "Inactive user", requestID)
		default:
			h.logger.Error("Failed to log in", zap.String("username", req.Username), zap.Error(err))
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log in", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"}, requestID)
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	h.writeUser(w, r, p.Username)
}

// Get handles GET /users/{username}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeUser(w, r, chi.URLParam(r, "username"))
}

func (h *UserHandler) writeUser(w http.ResponseWriter, r *http.Request, username string) {
	requestID := middleware.GetRequestID(r.Context())

	u, err := h.svc.Get(r.Context(), username)
	if err != nil {
		h.fail(w, requestID, err, "get user")
		return
	}
	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	users, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, requestID, err, "list users")
		return
	}

	items := make([]userResponse, 0, len(users))
	for i := range users {
		items = append(items, toUserResponse(&users[i]))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), len(items), requestID)
}

// UpdateRole handles PATCH /users/{username}/role.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req validation.UpdateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.svc.UpdateRole(r.Context(), chi.URLParam(r, "username"), auth.Role(req.Role))
	if err != nil {
		h.fail(w, requestID, err, "update role")
		return
	}
	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// Activate handles PATCH /users/{username}/activate.
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Deactivate handles PATCH /users/{username}/deactivate.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *UserHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	requestID := middleware.GetRequestID(r.Context())

	u, err := h.svc.SetActive(r.Context(), chi.URLParam(r, "username"), active)
	if err != nil {
		h.fail(w, requestID, err, "change activation")
		return
	}
	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// Delete handles DELETE /users/{username}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "username")); err != nil {
		h.fail(w, requestID, err, "delete user")
		return
	}
	response.NoContent(w)
}

func (h *UserHandler) fail(w http.ResponseWriter, requestID string, err error, action string) {
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
	case errors.Is(err, user.ErrInvalidRole):
		response.Err(w, http.StatusBadRequest, "INVALID_ROLE", "Invalid role", requestID)
	default:
		h.logger.Error("Failed to "+action, zap.Error(err))
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action, requestID)
	}
}
