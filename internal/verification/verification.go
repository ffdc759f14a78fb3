// Package verification turns a captured still and a roster snapshot into a
// typed outcome by calling a recognition service, and reconciles successful
// outcomes into attendance records.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ai"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

const (
	// GenericFailureMessage is the only message shown for any failed call.
	GenericFailureMessage = "Failed to verify attendance. Please try again."
	// DefaultSubject is sent to the recognition service when no class label was given.
	DefaultSubject = "Unspecified Class"
	// DefaultTimeout bounds a single recognition call.
	DefaultTimeout = 60 * time.Second
)

// Outcome is the transient result of one verification attempt.
type Outcome struct {
	Status         database.AttendanceStatus `json:"status"`
	Message        string                    `json:"message"`
	Confidence     *float64                  `json:"confidence,omitempty"`
	Timestamp      string                    `json:"timestamp"`
	IdentifiedName string                    `json:"identifiedName,omitempty"`
}

// Present reports whether the outcome should produce an attendance record.
func (o Outcome) Present() bool {
	return o.Status == database.StatusPresent
}

// Verifier is the contract the capture flow depends on.
type Verifier interface {
	Verify(ctx context.Context, image []byte, subject string, roster []database.Student) Outcome
}

// Client calls a Recognizer with a bounded timeout and collapses every
// failure into a single generic error outcome.
type Client struct {
	recognizer ai.Recognizer
	timeout    time.Duration
	now        func() time.Time
}

// NewClient creates a verification client. A non-positive timeout uses DefaultTimeout.
func NewClient(recognizer ai.Recognizer, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		recognizer: recognizer,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Verify never returns an error; failures yield Status error with GenericFailureMessage.
func (c *Client) Verify(ctx context.Context, image []byte, subject string, roster []database.Student) Outcome {
	start := c.now()
	outcome := c.verify(ctx, image, subject, roster)
	metrics.ObserveVerification(c.recognizer.Name(), string(outcome.Status), c.now().Sub(start))
	return outcome
}

func (c *Client) verify(ctx context.Context, image []byte, subject string, roster []database.Student) Outcome {
	req, err := BuildRequest(image, subject, roster)
	if err != nil {
		log.Printf("Verification request error: %v", err)
		return c.failure()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.recognizer.Recognize(ctx, req)
	if err != nil {
		log.Printf("Recognition API error (%s): %v", c.recognizer.Name(), err)
		return c.failure()
	}
	metrics.ObserveTokens(c.recognizer.Name(), result.InputTokens, result.OutputTokens)

	status := database.AttendanceStatus(result.Status)
	if !status.Valid() {
		log.Printf("Recognition API returned unknown status %q", result.Status)
		return c.failure()
	}

	return Outcome{
		Status:         status,
		Message:        result.Message,
		Confidence:     result.Confidence,
		Timestamp:      c.stamp(),
		IdentifiedName: result.IdentifiedName,
	}
}

func (c *Client) failure() Outcome {
	return Outcome{
		Status:    database.StatusError,
		Message:   GenericFailureMessage,
		Timestamp: c.stamp(),
	}
}

func (c *Client) stamp() string {
	return c.now().Format(time.RFC3339)
}

// BuildRequest assembles a recognition request from a roster snapshot.
// Students without an avatar are passed as unreferenced context.
func BuildRequest(image []byte, subject string, roster []database.Student) (*ai.RecognitionRequest, error) {
	if len(image) == 0 {
		return nil, errors.New("no image to verify")
	}

	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultSubject
	}

	req := &ai.RecognitionRequest{Target: image, Subject: subject}
	for _, s := range roster {
		ref := ai.Reference{ID: s.ID, Name: s.Name}
		if !s.HasReference() {
			req.Unreferenced = append(req.Unreferenced, ref)
			continue
		}
		img, err := ai.DecodeImage(s.Avatar)
		if err != nil {
			return nil, fmt.Errorf("reference image for student %s: %w", s.ID, err)
		}
		ref.Image = img
		req.References = append(req.References, ref)
	}
	return req, nil
}
