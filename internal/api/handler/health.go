package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/daap14/taskhub/internal/api/middleware"
	"github.com/daap14/taskhub/internal/api/response"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	service string
	version string
	checks  map[string]Pinger
}

// NewHealthHandler creates a new HealthHandler for service. Each entry in
// checks is pinged on every request.
func NewHealthHandler(service, version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{service: service, version: version, checks: checks}
}

type dependencyStatus struct {
	Name      string  `json:"name"`
	Connected bool    `json:"connected"`
	Error     *string `json:"error"`
}

type healthData struct {
	Status       string             `json:"status"`
	Service      string             `json:"service"`
	Version      string             `json:"version"`
	Dependencies []dependencyStatus `json:"dependencies"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "healthy"
	deps := make([]dependencyStatus, 0, len(names))
	for _, name := range names {
		dep := dependencyStatus{Name: name, Connected: true}
		if err := h.checks[name].Ping(ctx); err != nil {
			msg := err.Error()
			dep.Connected = false
			dep.Error = &msg
			status = "degraded"
		}
		deps = append(deps, dep)
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	response.Success(w, code, healthData{
		Status:       status,
		Service:      h.service,
		Version:      h.version,
		Dependencies: deps,
	}, requestID)
}
