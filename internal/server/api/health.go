package api

import (
	"context"
	"net/http"
	"time"
)

const checkTimeout = 5 * time.Second

// Checker is a named readiness probe.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health serves /healthz and /readyz.
type Health struct {
	checkers []Checker
}

// NewHealth returns a Health that runs checkers on each /readyz request.
func NewHealth(checkers ...Checker) *Health {
	return &Health{checkers: append([]Checker(nil), checkers...)}
}

// Healthz always answers 200.
func (h *Health) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResult{Status: "ok"})
}

// Readyz answers 200 only when every checker passes.
func (h *Health) Readyz(w http.ResponseWriter, r *http.Request) {
	res := healthResult{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	status := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()
		if err != nil {
			res.Checks[c.Name] = "fail: " + err.Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
			continue
		}
		res.Checks[c.Name] = "ok"
	}
	writeJSON(w, status, res)
}
