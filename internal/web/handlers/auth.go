package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

const (
	errInvalidCredentials = "Invalid email or password. Please try again."
	authBodyLimit         = 64 << 10
)

// AuthHandler handles the sign-in gate endpoints
type AuthHandler struct {
	config         *config.Config
	sessionManager *middleware.SessionManager
	onLogout       []func(sessionID string)
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{
		config:         cfg,
		sessionManager: sm,
	}
}

// OnLogout registers fn to run with the session ID of every logged out session.
func (h *AuthHandler) OnLogout(fn func(sessionID string)) {
	h.onLogout = append(h.onLogout, fn)
}

// loginRequest keeps the credentials out of any accidental %+v logging.
type loginRequest struct {
	email    string
	password string
}

func (l *loginRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal login request: %w", err)
	}
	l.email = strings.TrimSpace(raw["email"])
	l.password = raw["password"]
	return nil
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

func credentialsMatch(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// Login checks the configured credential pair and signs the browser in
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, authBodyLimit, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.email == "" || req.password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	emailOK := credentialsMatch(req.email, h.config.Auth.Email)
	passwordOK := credentialsMatch(req.password, h.config.Auth.Password)
	if !emailOK || !passwordOK {
		log.Printf("Rejected login for %s", sanitizeForLog(req.email))
		respondJSON(w, http.StatusUnauthorized, LoginResponse{
			Success: false,
			Error:   errInvalidCredentials,
		})
		return
	}

	h.signIn(w, r)
}

// Signup accepts any complete form and signs the browser in. No account is stored.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, authBodyLimit, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	h.signIn(w, r)
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionManager.CreateSession(false)
	if err != nil {
		log.Printf("Error creating session: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.sessionManager.SetSessionCookie(w, r, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session != nil {
		h.sessionManager.DeleteSession(session.ID)
		for _, fn := range h.onLogout {
			fn(session.ID)
		}
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Admin         bool   `json:"admin"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Status checks if the user is authenticated by validating the session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		Admin:         session.Admin,
		ExpiresAt:     session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
