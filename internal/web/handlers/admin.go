package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

const errInvalidSecret = "Invalid secret key. Access denied."

// AdminHandler handles the admin gate. It runs behind RequireAuth.
type AdminHandler struct {
	config         *config.Config
	sessionManager *middleware.SessionManager
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(cfg *config.Config, sm *middleware.SessionManager) *AdminHandler {
	return &AdminHandler{
		config:         cfg,
		sessionManager: sm,
	}
}

type adminLoginRequest struct {
	secret string
}

func (a *adminLoginRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal admin login request: %w", err)
	}
	a.secret = raw["secret"]
	return nil
}

// Login elevates the current session when the secret matches
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req adminLoginRequest
	if err := decodeJSON(w, r, authBodyLimit, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if !credentialsMatch(req.secret, h.config.Auth.AdminSecret) {
		respondError(w, http.StatusUnauthorized, errInvalidSecret)
		return
	}

	if _, err := h.sessionManager.SetAdmin(session, true); err != nil {
		log.Printf("Error elevating session: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to update session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true, "admin": true})
}

// Logout leaves the admin area and keeps the user signed in
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if _, err := h.sessionManager.SetAdmin(session, false); err != nil {
		log.Printf("Error demoting session: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to update session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true, "admin": false})
}
