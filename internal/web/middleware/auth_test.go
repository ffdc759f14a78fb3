package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type memorySessionRepo struct {
	mu      sync.Mutex
	stored  map[string]StoredSession
	saveErr error
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{stored: make(map[string]StoredSession)}
}

func (m *memorySessionRepo) Save(_ context.Context, id string, admin bool, createdAt, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stored[id] = StoredSession{ID: id, Admin: admin, CreatedAt: createdAt, ExpiresAt: expiresAt}
	return nil
}

func (m *memorySessionRepo) Get(_ context.Context, id string) (*StoredSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stored[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stored, id)
	return nil
}

func (m *memorySessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func TestNewSessionManager(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()
	if sm.sessions == nil {
		t.Error("sessions map is nil")
	}
	// Stop must be safe to call twice.
	sm.Stop()
}

func TestSessionManager_CreateSession(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()

	session, err := sm.CreateSession(false)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if session.ID == "" {
		t.Error("session ID is empty")
	}
	if session.Admin {
		t.Error("new session should not be admin")
	}
	if session.ExpiresAt.Before(time.Now()) {
		t.Error("session expires in the past")
	}

	other, _ := sm.CreateSession(false)
	if other.ID == session.ID {
		t.Error("session IDs should be unique")
	}
}

func TestSessionManager_GetSession(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()

	session, _ := sm.CreateSession(false)

	if retrieved := sm.GetSession(session.ID); retrieved == nil {
		t.Fatal("GetSession() returned nil for existing session")
	}
	if notFound := sm.GetSession("nonexistent-id"); notFound != nil {
		t.Error("GetSession() should return nil for non-existing session")
	}
}

func TestSessionManager_ExpiredSession(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()

	session, _ := sm.CreateSession(false)
	sm.mu.Lock()
	sm.sessions[session.ID].ExpiresAt = time.Now().Add(-time.Minute)
	sm.mu.Unlock()

	if sm.GetSession(session.ID) != nil {
		t.Error("GetSession() should return nil for expired session")
	}
	sm.mu.RLock()
	_, still := sm.sessions[session.ID]
	sm.mu.RUnlock()
	if still {
		t.Error("expired session should be removed")
	}
}

func TestSessionManager_DeleteSession(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()

	session, _ := sm.CreateSession(false)
	sm.DeleteSession(session.ID)

	if sm.GetSession(session.ID) != nil {
		t.Error("GetSession() should return nil after deletion")
	}
}

func TestSessionManager_SetAdmin(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()

	session, _ := sm.CreateSession(false)
	elevated, err := sm.SetAdmin(session, true)
	if err != nil {
		t.Fatalf("SetAdmin() error = %v", err)
	}
	if !elevated.Admin {
		t.Error("returned session should be admin")
	}
	if session.Admin {
		t.Error("original session value should be untouched")
	}
	if got := sm.GetSession(session.ID); got == nil || !got.Admin {
		t.Error("stored session should be admin")
	}
}

func TestSessionManager_Repository(t *testing.T) {
	repo := newMemorySessionRepo()
	sm := NewSessionManager("test-secret", repo)
	defer sm.Stop()

	session, err := sm.CreateSession(false)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := sm.SetAdmin(session, true); err != nil {
		t.Fatalf("SetAdmin() error = %v", err)
	}
	if !repo.stored[session.ID].Admin {
		t.Error("repository should hold the admin flag")
	}

	// A fresh manager over the same repository sees the session.
	restarted := NewSessionManager("test-secret", repo)
	defer restarted.Stop()
	got := restarted.GetSession(session.ID)
	if got == nil {
		t.Fatal("GetSession() should load the session from the repository")
	}
	if !got.Admin {
		t.Error("loaded session should be admin")
	}

	restarted.DeleteSession(session.ID)
	if _, ok := repo.stored[session.ID]; ok {
		t.Error("DeleteSession() should remove the stored session")
	}
}

func TestSessionManager_RepositoryFailure(t *testing.T) {
	repo := newMemorySessionRepo()
	repo.saveErr = errors.New("boom")
	sm := NewSessionManager("test-secret", repo)
	defer sm.Stop()

	if _, err := sm.CreateSession(false); err == nil {
		t.Error("CreateSession() should fail when the repository fails")
	}
}

func TestSessionManager_SetAndGetSessionCookie(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()
	session, _ := sm.CreateSession(false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	sm.SetSessionCookie(w, r, session)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
			break
		}
	}
	if sessionCookie == nil {
		t.Fatal("Session cookie not found")
	}
	if sessionCookie.Secure {
		t.Error("cookie should not be Secure over plain HTTP")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(sessionCookie)

	retrieved := sm.GetSessionFromRequest(req)
	if retrieved == nil {
		t.Fatal("GetSessionFromRequest() returned nil")
	}
	if retrieved.ID != session.ID {
		t.Errorf("Session ID = %s, want %s", retrieved.ID, session.ID)
	}
}

func TestSessionManager_SecureCookieBehindProxy(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()
	session, _ := sm.CreateSession(false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	sm.SetSessionCookie(w, r, session)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || !cookies[0].Secure {
		t.Errorf("expected one Secure cookie, got %+v", cookies)
	}
}

func TestSessionManager_InvalidCookie(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()
	session, _ := sm.CreateSession(false)

	tests := []struct {
		name  string
		value string
	}{
		{"bad signature", session.ID + ".invalid-signature"},
		{"no signature", session.ID},
		{"garbage", "invalid-session.invalid-signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.value})
			if sm.GetSessionFromRequest(req) != nil {
				t.Error("GetSessionFromRequest() should return nil")
			}
		})
	}
}

func TestSessionManager_BearerAuth(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()
	session, _ := sm.CreateSession(false)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)

	retrieved := sm.GetSessionFromRequest(req)
	if retrieved == nil {
		t.Fatal("GetSessionFromRequest() returned nil for Bearer auth")
	}
	if retrieved.ID != session.ID {
		t.Errorf("Session ID = %s, want %s", retrieved.ID, session.ID)
	}
}

func TestRequireAuth(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()
	session, _ := sm.CreateSession(false)

	handlerCalled := false
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if GetSessionFromContext(r.Context()) == nil {
			t.Error("Session not found in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	protectedHandler := RequireAuth(sm)(testHandler)

	t.Run("valid session", func(t *testing.T) {
		handlerCalled = false
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+session.ID)

		protectedHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if !handlerCalled {
			t.Error("Handler was not called")
		}
	})

	t.Run("no session", func(t *testing.T) {
		handlerCalled = false
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)

		protectedHandler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if handlerCalled {
			t.Error("Handler should not be called for unauthorized request")
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireAdmin(ok)

	tests := []struct {
		name    string
		session *Session
		want    int
	}{
		{"no session", nil, http.StatusUnauthorized},
		{"plain session", &Session{ID: "a"}, http.StatusForbidden},
		{"admin session", &Session{ID: "b", Admin: true}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.session != nil {
				req = req.WithContext(SetSessionInContext(req.Context(), tt.session))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("Status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestGetSessionFromContext(t *testing.T) {
	session := &Session{ID: "test123"}
	ctx := context.WithValue(context.Background(), sessionContextKey, session)

	retrieved := GetSessionFromContext(ctx)
	if retrieved == nil {
		t.Fatal("GetSessionFromContext() returned nil")
	}
	if retrieved.ID != "test123" {
		t.Errorf("Session ID = %s, want test123", retrieved.ID)
	}

	if GetSessionFromContext(context.Background()) != nil {
		t.Error("GetSessionFromContext() should return nil for empty context")
	}
}

func TestSessionManager_ClearSessionCookie(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()

	w := httptest.NewRecorder()
	sm.ClearSessionCookie(w)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
			break
		}
	}
	if sessionCookie == nil {
		t.Fatal("Session cookie not found")
	}
	if sessionCookie.MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1 (expired)", sessionCookie.MaxAge)
	}
}

func TestSession_ToJSON(t *testing.T) {
	session := &Session{
		ID:        "test123",
		Admin:     true,
		ExpiresAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data := session.ToJSON()
	if data.SessionID != "test123" || !data.Admin {
		t.Errorf("unexpected session data %+v", data)
	}
	if !strings.HasPrefix(data.ExpiresAt, "2025-01-02T03:04:05") {
		t.Errorf("ExpiresAt = %s", data.ExpiresAt)
	}
}

func TestCORS(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://attendance.example.edu")
	handler := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://attendance.example.edu", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1:8080", true},
		{"https://evil.example.com", false},
		{"http://localhost.evil.example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		got := w.Header().Get("Access-Control-Allow-Origin")
		if tt.allowed && got != tt.origin {
			t.Errorf("origin %q: Allow-Origin = %q", tt.origin, got)
		}
		if !tt.allowed && got != "" {
			t.Errorf("origin %q should not be allowed, got %q", tt.origin, got)
		}
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/api/capture/frame", nil)
	preflight.Header.Set("Origin", "https://attendance.example.edu")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, preflight)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight Status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Authorization, Content-Type" {
		t.Errorf("Allow-Headers = %q", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "Content-Disposition" {
		t.Errorf("Expose-Headers = %q", got)
	}

	get := httptest.NewRequest("GET", "/", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, get)
	if w.Code != http.StatusTeapot || w.Header().Get("Access-Control-Allow-Methods") != "" {
		t.Errorf("expected plain request to pass through without preflight headers, got %d", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	csp := w.Header().Get("Content-Security-Policy")
	for _, want := range []string{"media-src 'self' blob:", "img-src 'self' data: blob:", "frame-ancestors 'none'"} {
		if !strings.Contains(csp, want) {
			t.Errorf("CSP %q missing %q", csp, want)
		}
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected X-Frame-Options DENY")
	}
}
