package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// ErrPermissionDenied is returned by backends when the persistence layer
// rejects an operation for lack of privileges.
var ErrPermissionDenied = errors.New("permission denied")

// ErrNotPersisted wraps a write failure swallowed under a best-effort policy.
// Callers should treat it as success without keeping the change locally.
var ErrNotPersisted = errors.New("write not persisted")

// Policy decides what happens to a failed write.
type Policy int

const (
	// BestEffort logs and swallows write failures.
	BestEffort Policy = iota
	// Fatal returns write failures to the caller.
	Fatal
)

func (p Policy) String() string {
	if p == Fatal {
		return config.PolicyFatal
	}
	return config.PolicyBestEffort
}

// ParsePolicy maps a config value to a Policy. Unknown values are best-effort.
func ParsePolicy(s string) Policy {
	if s == config.PolicyFatal {
		return Fatal
	}
	return BestEffort
}

// Strictness holds the write policy per entity.
type Strictness struct {
	Events     Policy
	Identities Policy
}

// DefaultStrictness is attendance writes best-effort, roster writes fatal.
func DefaultStrictness() Strictness {
	return Strictness{Events: BestEffort, Identities: Fatal}
}

// StrictnessFromConfig converts the configured policy names.
func StrictnessFromConfig(c config.StrictnessConfig) Strictness {
	return Strictness{
		Events:     ParsePolicy(c.Events),
		Identities: ParsePolicy(c.Identities),
	}
}

const (
	entityStudents   = "students"
	entityAttendance = "attendance"
)

// Guarded wraps the two stores with the persistence policy. Permission-denied
// errors always degrade: listings become empty and writes become no-ops.
// A best-effort write that fails for another reason returns an error wrapping
// ErrNotPersisted. Any other write error is fatal.
type Guarded struct {
	students   StudentStore
	attendance AttendanceStore
	strictness Strictness
}

// NewGuarded creates a guarded store pair.
func NewGuarded(students StudentStore, attendance AttendanceStore, strictness Strictness) *Guarded {
	return &Guarded{
		students:   students,
		attendance: attendance,
		strictness: strictness,
	}
}

// Strictness returns the active write policy.
func (g *Guarded) Strictness() Strictness {
	return g.strictness
}

// ListStudents returns the roster ordered by name, or an empty roster on any failure.
func (g *Guarded) ListStudents(ctx context.Context) []Student {
	students, err := g.students.ListStudentsByName(ctx)
	if err != nil {
		g.readFailed(entityStudents, err)
		return []Student{}
	}
	metrics.ObserveStore(entityStudents, "list", metrics.ResultOK)
	if students == nil {
		students = []Student{}
	}
	return students
}

// InsertStudent stores a roster entry under the identities policy.
func (g *Guarded) InsertStudent(ctx context.Context, student Student) error {
	err := g.students.InsertStudent(ctx, student)
	return g.written(entityStudents, "insert", g.strictness.Identities, err)
}

// DeleteStudent removes every record with the given domain identifier under the identities policy.
func (g *Guarded) DeleteStudent(ctx context.Context, id string) error {
	n, err := g.students.DeleteStudentsByID(ctx, id)
	if err == nil {
		log.Printf("Deleted %d student record(s) with ID %s", n, id)
	}
	return g.written(entityStudents, "delete", g.strictness.Identities, err)
}

// ListAttendance returns the log newest first, or an empty log on any failure.
func (g *Guarded) ListAttendance(ctx context.Context) []AttendanceRecord {
	records, err := g.attendance.ListAttendanceNewestFirst(ctx)
	if err != nil {
		g.readFailed(entityAttendance, err)
		return []AttendanceRecord{}
	}
	metrics.ObserveStore(entityAttendance, "list", metrics.ResultOK)
	if records == nil {
		records = []AttendanceRecord{}
	}
	return records
}

// InsertAttendance appends a log record under the events policy.
func (g *Guarded) InsertAttendance(ctx context.Context, record AttendanceRecord) error {
	err := g.attendance.InsertAttendance(ctx, record)
	return g.written(entityAttendance, "insert", g.strictness.Events, err)
}

func (g *Guarded) readFailed(entity string, err error) {
	if errors.Is(err, ErrPermissionDenied) {
		log.Printf("Warning: permission denied listing %s, using empty list", entity)
		metrics.ObserveStore(entity, "list", metrics.ResultDenied)
		return
	}
	log.Printf("Error listing %s: %v", entity, err)
	metrics.ObserveStore(entity, "list", metrics.ResultFailed)
}

func (g *Guarded) written(entity, op string, policy Policy, err error) error {
	switch {
	case err == nil:
		metrics.ObserveStore(entity, op, metrics.ResultOK)
		return nil
	case errors.Is(err, ErrPermissionDenied):
		log.Printf("Warning: permission denied on %s %s, change kept locally only", entity, op)
		metrics.ObserveStore(entity, op, metrics.ResultDenied)
		return nil
	case policy == BestEffort:
		log.Printf("Error on %s %s (ignored): %v", entity, op, err)
		metrics.ObserveStore(entity, op, metrics.ResultSwallowed)
		return fmt.Errorf("%w: %s %s: %w", ErrNotPersisted, op, entity, err)
	default:
		log.Printf("Error on %s %s: %v", entity, op, err)
		metrics.ObserveStore(entity, op, metrics.ResultFailed)
		return fmt.Errorf("%s %s: %w", op, entity, err)
	}
}
