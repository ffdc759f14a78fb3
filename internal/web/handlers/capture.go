package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/ai"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/verification"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// maxFrameSize bounds an uploaded still (multipart or data URL).
const maxFrameSize = 20 << 20

// CaptureHandler exposes one capture machine per browser session.
type CaptureHandler struct {
	verifier verification.Verifier
	app      capture.Attendance

	mu       sync.Mutex
	machines map[string]*capture.Machine
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(verifier verification.Verifier, app capture.Attendance) *CaptureHandler {
	return &CaptureHandler{
		verifier: verifier,
		app:      app,
		machines: make(map[string]*capture.Machine),
	}
}

// machine returns the session's machine, creating it on first use.
func (h *CaptureHandler) machine(r *http.Request) (*capture.Machine, bool) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		return nil, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.machines[session.ID]
	if !ok {
		m = capture.NewMachine(h.verifier, h.app)
		h.machines[session.ID] = m
	}
	return m, true
}

// Release drops the machine of a session that signed out.
func (h *CaptureHandler) Release(sessionID string) {
	h.mu.Lock()
	delete(h.machines, sessionID)
	h.mu.Unlock()
}

// CaptureResponse is the capture screen as seen by the browser
type CaptureResponse struct {
	State      capture.State         `json:"state"`
	Subject    string                `json:"subject"`
	Preview    string                `json:"preview,omitempty"` // data URL of the held still
	Result     *verification.Outcome `json:"result,omitempty"`
	Confidence *confidenceDisplay    `json:"confidence,omitempty"`
}

func newCaptureResponse(snap capture.Snapshot) CaptureResponse {
	resp := CaptureResponse{
		State:   snap.State,
		Subject: snap.Subject,
		Result:  snap.Result,
	}
	if len(snap.Image) > 0 {
		resp.Preview = ai.EncodeDataURL(snap.Image)
	}
	if snap.Result != nil && snap.Result.Confidence != nil {
		d := displayConfidence(*snap.Result.Confidence)
		resp.Confidence = &d
	}
	return resp
}

// FrameResponse reports whether a submitted frame was taken as the still.
type FrameResponse struct {
	CaptureResponse
	Captured bool `json:"captured"`
}

func respondTransitionError(w http.ResponseWriter, err error) {
	if errors.Is(err, capture.ErrInvalidTransition) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	log.Printf("Capture error: %v", err)
	respondError(w, http.StatusInternalServerError, "capture failed")
}

// Get returns the current capture state
func (h *CaptureHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondJSON(w, http.StatusOK, newCaptureResponse(m.Snapshot()))
}

// step wraps a machine operation that takes no input.
func (h *CaptureHandler) step(op func(*capture.Machine) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := h.machine(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := op(m); err != nil {
			respondTransitionError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, newCaptureResponse(m.Snapshot()))
	}
}

// Start opens the camera
func (h *CaptureHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.step((*capture.Machine).Start)(w, r)
}

// Cancel closes the camera
func (h *CaptureHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.step((*capture.Machine).Cancel)(w, r)
}

// Retake discards the preview
func (h *CaptureHandler) Retake(w http.ResponseWriter, r *http.Request) {
	h.step((*capture.Machine).Retake)(w, r)
}

// Reset starts over after a success
func (h *CaptureHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.step((*capture.Machine).Reset)(w, r)
}

// Retry reopens the camera after a failure
func (h *CaptureHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.step((*capture.Machine).Retry)(w, r)
}

type subjectRequest struct {
	Subject string `json:"subject"`
}

// SetSubject changes the class label
func (h *CaptureHandler) SetSubject(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req subjectRequest
	if err := decodeJSON(w, r, authBodyLimit, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := m.SetSubject(req.Subject); err != nil {
		respondTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newCaptureResponse(m.Snapshot()))
}

type frameRequest struct {
	Image string `json:"image"` // data URL or raw base64
}

// frameAcquirer reads the still from the request body. It is only invoked
// when the machine is Active; any read or decode error counts as a failed
// acquisition.
func frameAcquirer(w http.ResponseWriter, r *http.Request) capture.Acquirer {
	return capture.AcquirerFunc(func(context.Context) ([]byte, error) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFrameSize)

		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			if err := r.ParseMultipartForm(maxFrameSize); err != nil {
				return nil, fmt.Errorf("parse multipart form: %w", err)
			}
			file, _, err := r.FormFile("image")
			if err != nil {
				return nil, fmt.Errorf("read image field: %w", err)
			}
			defer file.Close()
			return io.ReadAll(file)
		}

		var req frameRequest
		if err := decodeJSON(w, r, maxFrameSize, &req); err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		return ai.DecodeImage(req.Image)
	})
}

// Frame submits a still from the camera
func (h *CaptureHandler) Frame(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	captured, err := m.Capture(r.Context(), frameAcquirer(w, r))
	if err != nil {
		respondTransitionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, FrameResponse{
		CaptureResponse: newCaptureResponse(m.Snapshot()),
		Captured:        captured,
	})
}

// Confirm verifies the held still and blocks until the verdict is known
func (h *CaptureHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if _, err := m.Confirm(r.Context()); err != nil {
		respondTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newCaptureResponse(m.Snapshot()))
}
