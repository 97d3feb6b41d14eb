package handlers

import (
	"net/http"

	api "polystat-gateway/internal/api/application"
)

// Health handles GET /health
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  application.HealthResponse
// @Router       /health [get]
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, api.HealthResponse{
		Status:  "healthy",
		Service: api.ServiceName,
		Version: api.ServiceVersion,
	})
}

// StaticSite serves the dashboard frontend when one is deployed.
type StaticSite interface {
	http.Handler
	Available() bool
}

// RootHandler answers GET / with the SPA when a frontend is deployed and with
// a short API description otherwise.
type RootHandler struct {
	spa StaticSite
}

// NewRootHandler creates a root handler over the SPA server
func NewRootHandler(spa StaticSite) *RootHandler {
	return &RootHandler{spa: spa}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.spa != nil && h.spa.Available() {
		h.spa.ServeHTTP(w, r)
		return
	}
	respondJSON(w, http.StatusOK, api.RootResponse{
		Message: "PolyStat Dashboard API",
		Version: api.ServiceVersion,
		Docs:    "/docs",
	})
}
