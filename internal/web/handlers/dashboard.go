package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/session"
)

// DashboardHandler serves the admin overview
type DashboardHandler struct {
	state *session.State
	now   func() time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(state *session.State) *DashboardHandler {
	return &DashboardHandler{state: state, now: time.Now}
}

// Get returns today's statistics and the most recent check-ins
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.state.Dashboard(h.now()))
}

// Reload re-reads roster and log from the store
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.state.Load(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reload data")
		return
	}
	respondJSON(w, http.StatusOK, h.state.Dashboard(h.now()))
}
