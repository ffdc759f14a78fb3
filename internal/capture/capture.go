// Package capture drives a single attendance attempt from camera to verdict.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/verification"
)

// State is a step of the capture flow.
type State int

const (
	Idle State = iota
	Active
	Preview
	Processing
	Success
	Error
)

var stateNames = [...]string{"idle", "active", "preview", "processing", "success", "error"}

func (s State) String() string {
	if s < Idle || s > Error {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText lets State appear by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrInvalidTransition is returned when an operation is not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid capture transition")

// Acquirer yields a still image from the camera.
type Acquirer interface {
	Acquire(ctx context.Context) ([]byte, error)
}

// AcquirerFunc adapts a function to Acquirer.
type AcquirerFunc func(ctx context.Context) ([]byte, error)

func (f AcquirerFunc) Acquire(ctx context.Context) ([]byte, error) { return f(ctx) }

// StillImage is an Acquirer for an image that was already captured.
type StillImage []byte

func (s StillImage) Acquire(context.Context) ([]byte, error) { return s, nil }

// Attendance is the application state the machine reads and writes.
type Attendance interface {
	Students() []database.Student
	RecordAttendance(ctx context.Context, record database.AttendanceRecord) error
}

// Snapshot is a point-in-time copy of a machine.
type Snapshot struct {
	State   State                 `json:"state"`
	Subject string                `json:"subject"`
	Image   []byte                `json:"-"`
	Result  *verification.Outcome `json:"result,omitempty"`
}

// Machine is the capture state machine for one browser session.
// It is safe for concurrent use; while Processing every other
// operation fails with ErrInvalidTransition.
type Machine struct {
	mu       sync.Mutex
	state    State
	subject  string
	image    []byte
	result   *verification.Outcome
	attempt  uint64 // bumped every time the camera opens
	verifier verification.Verifier
	app      Attendance
	now      func() time.Time
}

// NewMachine returns a machine in the Idle state.
func NewMachine(verifier verification.Verifier, app Attendance) *Machine {
	return &Machine{
		verifier: verifier,
		app:      app,
		now:      time.Now,
	}
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{State: m.state, Subject: m.subject}
	if m.image != nil {
		snap.Image = append([]byte(nil), m.image...)
	}
	if m.result != nil {
		r := *m.result
		snap.Result = &r
	}
	return snap
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// transition runs fn while holding the lock if the machine is in one of from.
func (m *Machine) transition(op string, fn func(), from ...State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range from {
		if m.state == s {
			fn()
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, m.state)
}

// Start opens the camera. From Error it behaves like Retry.
func (m *Machine) Start() error {
	return m.transition("start", func() {
		m.state = Active
		m.attempt++
		m.image = nil
		m.result = nil
	}, Idle, Error)
}

// Cancel closes the camera without capturing.
func (m *Machine) Cancel() error {
	return m.transition("cancel", func() {
		m.state = Idle
		m.image = nil
	}, Active)
}

// Retake discards the previewed image and reopens the camera.
func (m *Machine) Retake() error {
	return m.transition("retake", func() {
		m.state = Active
		m.attempt++
		m.image = nil
	}, Preview)
}

// Retry discards the failed attempt and reopens the camera.
func (m *Machine) Retry() error {
	return m.transition("retry", func() {
		m.state = Active
		m.attempt++
		m.image = nil
		m.result = nil
	}, Error)
}

// Reset returns to Idle after a successful attempt, clearing image, subject and result.
func (m *Machine) Reset() error {
	return m.transition("reset", func() {
		m.state = Idle
		m.image = nil
		m.subject = ""
		m.result = nil
	}, Success)
}

// SetSubject changes the class label. The label is editable only before the
// camera opens or after a failed attempt.
func (m *Machine) SetSubject(subject string) error {
	return m.transition("set subject", func() {
		m.subject = subject
	}, Idle, Error)
}

// Capture asks acq for a still and moves to Preview when one is returned.
// Acquisition failures and empty images are ignored: the result is false
// and the machine stays Active. A still that arrives after the camera was
// closed or reopened is discarded the same way.
func (m *Machine) Capture(ctx context.Context, acq Acquirer) (bool, error) {
	var attempt uint64
	if err := m.transition("capture", func() { attempt = m.attempt }, Active); err != nil {
		return false, err
	}

	img, err := acq.Acquire(ctx)
	if err != nil || len(img) == 0 {
		return false, nil
	}

	captured := false
	err = m.transition("capture", func() {
		if m.attempt != attempt {
			return
		}
		m.state = Preview
		m.image = img
		captured = true
	}, Active)
	return captured, err
}

// Confirm sends the previewed image for verification and blocks until the
// verifier answers. A present outcome is recorded before the machine enters
// Success; a failed record write is logged and does not change the verdict.
// Any other outcome moves the machine to Error.
func (m *Machine) Confirm(ctx context.Context) (verification.Outcome, error) {
	var image []byte
	var subject string
	err := m.transition("confirm", func() {
		m.state = Processing
		image = m.image
		subject = m.subject
	}, Preview)
	if err != nil {
		return verification.Outcome{}, err
	}

	roster := m.app.Students()
	outcome := m.verifier.Verify(ctx, image, subject, roster)

	next := Error
	if outcome.Present() {
		record := verification.Reconcile(outcome, roster, subject, m.now())
		if err := m.app.RecordAttendance(ctx, record); err != nil {
			log.Printf("Warning: attendance for %s verified but not recorded: %v", record.Name, err)
		}
		next = Success
	}

	m.mu.Lock()
	m.state = next
	m.result = &outcome
	m.mu.Unlock()

	return outcome, nil
}
