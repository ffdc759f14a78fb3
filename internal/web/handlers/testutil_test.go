package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/kozaktomas/face-attendance/internal/verification"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			Email:       "teacher@example.edu",
			Password:    "correct-horse",
			AdminSecret: "FACE",
		},
		Gemini:      config.GeminiConfig{APIKey: "key", Model: "gemini-2.5-flash"},
		OpenAI:      config.OpenAIConfig{Model: "gpt-4.1-mini"},
		Recognition: config.RecognitionConfig{Provider: "gemini"},
	}
}

// newTestState loads a session state over a mock store
func newTestState(t *testing.T, store *mock.MockStore) *session.State {
	t.Helper()
	guarded := database.NewGuarded(store, store, database.DefaultStrictness())
	state := session.New(guarded, nil)
	if err := state.Load(context.Background()); err != nil {
		t.Fatalf("failed to load state: %v", err)
	}
	return state
}

// newTestSessionManager creates a session manager stopped at test end
func newTestSessionManager(t *testing.T) *middleware.SessionManager {
	t.Helper()
	sm := middleware.NewSessionManager("test-secret", nil)
	t.Cleanup(sm.Stop)
	return sm
}

// withSession puts a session in the request context
func withSession(r *http.Request, s *middleware.Session) *http.Request {
	return r.WithContext(middleware.SetSessionInContext(r.Context(), s))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// fakeVerifier returns a fixed outcome and remembers its inputs
type fakeVerifier struct {
	mu      sync.Mutex
	outcome verification.Outcome
	calls   int
	subject string
	image   []byte
}

func (f *fakeVerifier) Verify(_ context.Context, image []byte, subject string, _ []database.Student) verification.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.subject = subject
	f.image = image
	return f.outcome
}

func floatPtr(v float64) *float64 { return &v }

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
