package api

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/daap14/taskhub/internal/api/handler"
	"github.com/daap14/taskhub/internal/api/middleware"
	"github.com/daap14/taskhub/internal/auth"
)

// UserRouterDeps holds the dependencies of the user service router.
type UserRouterDeps struct {
	Logger   *zap.Logger
	Version  string
	Tokens   middleware.TokenVerifier
	Users    handler.UserService
	Resolver middleware.UserResolver
	Health   map[string]handler.Pinger
}

// TeamRouterDeps holds the dependencies of the team service router.
type TeamRouterDeps struct {
	Logger  *zap.Logger
	Version string
	Tokens  middleware.TokenVerifier
	Teams   handler.TeamService
	Health  map[string]handler.Pinger
}

// TaskRouterDeps holds the dependencies of the task service router.
type TaskRouterDeps struct {
	Logger        *zap.Logger
	Version       string
	Tokens        middleware.TokenVerifier
	Tasks         handler.TaskService
	Notifications handler.NotificationService
	Health        map[string]handler.Pinger
}

func newBaseRouter(logger *zap.Logger, service, version string, health map[string]handler.Pinger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger.Named("http")))

	r.Get("/health", handler.NewHealthHandler(service, version, health).ServeHTTP)
	return r
}

// NewUserRouter creates the user service router.
func NewUserRouter(deps UserRouterDeps) *chi.Mux {
	r := newBaseRouter(deps.Logger, "user", deps.Version, deps.Health)
	h := handler.NewUserHandler(deps.Users, deps.Logger)

	r.Post("/auth/register", h.Register)
	r.Post("/auth/token", h.Login)

	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Tokens))
		r.Use(middleware.RequireActiveUser(deps.Resolver, deps.Logger))

		r.Get("/me", h.Me)
		r.Get("/{username}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			r.Get("/", h.List)
			r.Patch("/{username}/role", h.UpdateRole)
			r.Patch("/{username}/activate", h.Activate)
			r.Patch("/{username}/deactivate", h.Deactivate)
			r.Delete("/{username}", h.Delete)
		})
	})

	return r
}

// NewTeamRouter creates the team service router.
func NewTeamRouter(deps TeamRouterDeps) *chi.Mux {
	r := newBaseRouter(deps.Logger, "team", deps.Version, deps.Health)
	h := handler.NewTeamHandler(deps.Teams, deps.Logger)

	r.Route("/teams", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Tokens))

		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/members", h.AddMember)
		r.Delete("/{id}/members/{username}", h.RemoveMember)
	})

	return r
}

// NewTaskRouter creates the task service router. The internal endpoints are
// mounted without authentication.
func NewTaskRouter(deps TaskRouterDeps) *chi.Mux {
	r := newBaseRouter(deps.Logger, "task", deps.Version, deps.Health)
	tasks := handler.NewTaskHandler(deps.Tasks, deps.Logger)
	notes := handler.NewNotificationHandler(deps.Notifications, deps.Logger)

	r.Route("/tasks", func(r chi.Router) {
		r.Delete("/internal/cleanup-team/{team_id}", tasks.CleanupTeam)
		r.Post("/notifications/internal", notes.CreateInternal)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Tokens))

			r.Get("/notifications", notes.List)
			r.Patch("/notifications/{note_id}/read", notes.MarkRead)
			r.Delete("/notifications", notes.Clear)

			r.Post("/", tasks.Create)
			r.Get("/me", tasks.ListMine)
			r.Get("/team/{team_id}", tasks.ListByTeam)

			r.Route("/{task_id}", func(r chi.Router) {
				r.Get("/", tasks.Get)
				r.Patch("/", tasks.Update)
				r.Delete("/", tasks.Delete)
				r.Patch("/status", tasks.UpdateStatus)

				r.Post("/comments", tasks.AddComment)
				r.Get("/comments", tasks.ListComments)
				r.Delete("/comments/{comment_id}", tasks.DeleteComment)

				r.Post("/attachments", tasks.UploadAttachment)
				r.Get("/attachments", tasks.ListAttachments)
				r.Get("/attachments/{attachment_id}", tasks.DownloadAttachment)
				r.Delete("/attachments/{attachment_id}", tasks.DeleteAttachment)
			})
		})
	})

	return r
}
