package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/export"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// LogsHandler handles attendance log endpoints
type LogsHandler struct {
	state *session.State
	now   func() time.Time
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(state *session.State) *LogsHandler {
	return &LogsHandler{state: state, now: time.Now}
}

// LogEntry is a record with its on-screen confidence rendering
type LogEntry struct {
	database.AttendanceRecord
	Display confidenceDisplay `json:"display"`
}

// LogsResponse is the filtered log
type LogsResponse struct {
	Records []LogEntry `json:"records"`
	Count   int        `json:"count"`
	Total   int        `json:"total"`
}

func filterFromRequest(r *http.Request) session.LogFilter {
	q := r.URL.Query()
	return session.LogFilter{
		Query:   q.Get("q"),
		Date:    q.Get("date"),
		Subject: q.Get("subject"),
	}
}

// List returns the log filtered by the q, date and subject query parameters
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	records := h.state.FilterLogs(filterFromRequest(r))

	entries := make([]LogEntry, len(records))
	for i, rec := range records {
		entries[i] = LogEntry{AttendanceRecord: rec, Display: displayConfidence(rec.Confidence)}
	}

	respondJSON(w, http.StatusOK, LogsResponse{
		Records: entries,
		Count:   len(entries),
		Total:   len(h.state.Logs()),
	})
}

// Export downloads the filtered log as CSV
func (h *LogsHandler) Export(w http.ResponseWriter, r *http.Request) {
	records := h.state.FilterLogs(filterFromRequest(r))

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, records); err != nil {
		log.Printf("Error writing CSV export: %v", err)
	}
}
