package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Recognizer identifies the person in a target image against a set of
// reference images using a hosted vision model.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, req *RecognitionRequest) (*RecognitionResult, error)
}

// Reference is one registered student offered to the model for comparison.
// Image is nil for students without an enrolled photo.
type Reference struct {
	ID    string
	Name  string
	Image []byte
}

// RecognitionRequest holds everything needed to build one recognition call.
type RecognitionRequest struct {
	Target     []byte // decoded target image bytes
	Subject    string // class label quoted back in the greeting
	References []Reference
	// Unreferenced students are named in the prompt but have no comparison image.
	Unreferenced []Reference
}

// Empty reports whether the roster behind the request had no students at all.
func (r *RecognitionRequest) Empty() bool {
	return len(r.References) == 0 && len(r.Unreferenced) == 0
}

// Recognition statuses accepted from the model.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusError   = "error"
)

// RecognitionResult is the structured answer returned by the model.
type RecognitionResult struct {
	Status         string   `json:"status"`
	Message        string   `json:"message"`
	Confidence     *float64 `json:"confidence,omitempty"`
	IdentifiedName string   `json:"identifiedName,omitempty"`

	InputTokens  int `json:"-"`
	OutputTokens int `json:"-"`
}

var (
	errEmptyResponse = errors.New("empty response from recognition service")
	errNoTarget      = errors.New("target image is empty")
)

// parseRecognitionResult decodes and validates the model's JSON answer.
func parseRecognitionResult(content string) (*RecognitionResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errEmptyResponse
	}

	var result RecognitionResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse recognition JSON: %w (response: %s)", err, content)
	}

	switch result.Status {
	case StatusPresent, StatusAbsent, StatusError:
	default:
		return nil, fmt.Errorf("unknown recognition status %q", result.Status)
	}
	if result.Message == "" {
		return nil, errors.New("recognition response is missing a message")
	}
	return &result, nil
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens
type RequestPricing struct {
	Input  float64
	Output float64
}

// usageTracker accumulates usage across concurrent recognition calls.
type usageTracker struct {
	mu      sync.Mutex
	usage   Usage
	pricing RequestPricing
}

func (u *usageTracker) track(inputTokens, outputTokens int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage.InputTokens += inputTokens
	u.usage.OutputTokens += outputTokens
	u.usage.TotalCost += float64(inputTokens) / 1_000_000 * u.pricing.Input
	u.usage.TotalCost += float64(outputTokens) / 1_000_000 * u.pricing.Output
}

// GetUsage returns a copy of the accumulated usage.
func (u *usageTracker) GetUsage() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.usage
}

// ResetUsage clears the accumulated usage.
func (u *usageTracker) ResetUsage() {
	u.mu.Lock()
	u.usage = Usage{}
	u.mu.Unlock()
}
