package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/export"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes the request body into dst, rejecting bodies larger than limit.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return nil
}

// isTooLarge reports whether err came from an exceeded MaxBytesReader.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// confidenceDisplay is the on-screen rendering of a confidence score.
type confidenceDisplay struct {
	Percent string `json:"percent"`
	Tier    string `json:"tier"`
}

func displayConfidence(c float64) confidenceDisplay {
	return confidenceDisplay{Percent: export.Percent(c), Tier: export.Tier(c)}
}

// HealthChecker reports whether an optional dependency is reachable.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// HealthHandler handles the health check endpoint
type HealthHandler struct {
	events HealthChecker
}

// NewHealthHandler creates a health handler. events may be nil when event
// publishing is disabled.
func NewHealthHandler(events HealthChecker) *HealthHandler {
	return &HealthHandler{events: events}
}

// Get reports liveness. Optional dependencies never fail the check.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	events := "disabled"
	if h.events != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		events = "ok"
		if !h.events.Healthy(ctx) {
			events = "unavailable"
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"events": events,
	})
}
