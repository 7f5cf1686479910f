package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Pinger is a dependency that can report whether it answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check names a dependency in the /healthz response.
type Check struct {
	Name   string
	Target Pinger
}

type HealthChecker struct {
	log    *slog.Logger
	checks []Check
}

func NewHealthChecker(log *slog.Logger, checks ...Check) *HealthChecker {
	return &HealthChecker{log: log, checks: checks}
}

func (h *HealthChecker) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	h.log.DebugContext(req.Context(), "Performing health checks...")

	var err error
	status := make(map[string]string, len(h.checks))
	overallStatus := http.StatusOK

	for _, check := range h.checks {
		if err = check.Target.Ping(req.Context()); err != nil {
			status[check.Name] = "unavailable"
			overallStatus = http.StatusServiceUnavailable
			h.log.WarnContext(req.Context(), "Health check failed", "check", check.Name, "error", err)
			continue
		}
		status[check.Name] = "ok"
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(overallStatus)
	if err = json.NewEncoder(writer).Encode(status); err != nil {
		h.log.ErrorContext(req.Context(), "Failed to write health check response", "error", err)
	}

	h.log.DebugContext(req.Context(), "Health checks completed", "status", overallStatus)
}
