package handlers

import (
	"context"
	"net/http"
	"time"

	httperrors "github.com/frankbauer/media-rest-api/internal/transport/http/errors"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck checks one dependency. A nil Check reports the dependency as
// not configured.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks []ReadinessCheck
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type readyResponse struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks"`
}

func NewHealthHandler(checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := readyResponse{Status: "ok", Checks: make(map[string]checkResult, len(h.checks))}
	for _, c := range h.checks {
		if c.Check == nil {
			resp.Checks[c.Name] = checkResult{Status: "fail", Message: "not configured"}
			resp.Status = "fail"
			continue
		}
		if err := c.Check(ctx); err != nil {
			resp.Checks[c.Name] = checkResult{Status: "fail", Message: err.Error()}
			resp.Status = "fail"
			continue
		}
		resp.Checks[c.Name] = checkResult{Status: "ok"}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httperrors.Write(w, status, resp)
}
