package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler responds with service health information.
type HealthHandler struct {
	// Checks are pinged on every call; any failure marks the service unavailable.
	Checks map[string]HealthChecker
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handle implements GET /healthz and GET /api/v1/healthcheck.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	payload := healthResponse{Status: "ok"}
	status := http.StatusOK
	if len(h.Checks) > 0 {
		payload.Checks = make(map[string]string, len(h.Checks))
	}
	for name, check := range h.Checks {
		if err := check.Ping(ctx); err != nil {
			payload.Checks[name] = err.Error()
			payload.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		payload.Checks[name] = "ok"
	}

	message := "everything is ok"
	if status != http.StatusOK {
		message = "a dependency is unavailable"
	}
	respond(r.Context(), w, status, payload, message)
}
