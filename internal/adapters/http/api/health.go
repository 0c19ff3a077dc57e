package api

import (
	"net/http"
	"time"
)

// BackendNamer names the store behind the service.
type BackendNamer interface {
	Backend() string
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps    BackendNamer
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps BackendNamer) *HealthHandler {
	return &HealthHandler{deps: deps, started: time.Now()}
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Uptime string `json:"uptime"`
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Store:  h.deps.Backend(),
		Uptime: time.Since(h.started).Round(time.Second).String(),
	})
}
