package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// maxStudentBody leaves room for an inline reference image.
const maxStudentBody = 20 << 20

// StudentsHandler handles roster endpoints
type StudentsHandler struct {
	state *session.State
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(state *session.State) *StudentsHandler {
	return &StudentsHandler{state: state}
}

// List returns the roster snapshot
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.state.Students())
}

// Get returns a single student
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	student, ok := h.state.Student(id)
	if !ok {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	respondJSON(w, http.StatusOK, student)
}

// Create registers a student
func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req database.Student
	if err := decodeJSON(w, r, maxStudentBody, &req); err != nil {
		if isTooLarge(err) {
			respondError(w, http.StatusRequestEntityTooLarge, "reference image is too large")
			return
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	student, err := h.state.RegisterStudent(r.Context(), req)
	switch {
	case errors.Is(err, session.ErrInvalidStudent):
		respondError(w, http.StatusBadRequest, "Please fill in all required fields")
		return
	case errors.Is(err, session.ErrDuplicateStudent):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Printf("Error registering student %s: %v", sanitizeForLog(req.ID), err)
		respondError(w, http.StatusInternalServerError, "Failed to register student. Please check your connection.")
		return
	}

	respondJSON(w, http.StatusCreated, student)
}

// Delete removes every roster entry with the given ID
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "student ID is required")
		return
	}

	if err := h.state.DeleteStudent(r.Context(), id); err != nil {
		log.Printf("Error deleting student %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "Failed to delete student.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
