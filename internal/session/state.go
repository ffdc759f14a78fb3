// Package session holds the in-memory application state shared by every
// screen: the roster and attendance log snapshots and the only two call sites
// that write them.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"golang.org/x/sync/errgroup"
)

// Registration defaults applied when the form leaves a field blank.
const (
	DefaultDepartment = "General"
	DefaultYear       = "4th Year"
)

var (
	// ErrInvalidStudent is returned when a required registration field is missing.
	ErrInvalidStudent = errors.New("invalid student")
	// ErrDuplicateStudent is returned when the ID is already in the roster.
	ErrDuplicateStudent = errors.New("student ID already registered")
)

// Store is the guarded persistence the state writes through.
type Store interface {
	ListStudents(ctx context.Context) []database.Student
	ListAttendance(ctx context.Context) []database.AttendanceRecord
	InsertStudent(ctx context.Context, student database.Student) error
	DeleteStudent(ctx context.Context, id string) error
	InsertAttendance(ctx context.Context, record database.AttendanceRecord) error
}

// Notifier is told about every attendance record kept in the log.
type Notifier interface {
	Publish(ctx context.Context, record database.AttendanceRecord) error
}

// State is the single source of truth for roster and log snapshots.
type State struct {
	mu       sync.RWMutex
	students []database.Student
	logs     []database.AttendanceRecord
	store    Store
	notifier Notifier
	now      func() time.Time
}

// New creates an empty state. notifier may be nil.
func New(store Store, notifier Notifier) *State {
	return &State{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// Load reads the roster and the log concurrently and replaces both
// snapshots once both reads have finished.
func (s *State) Load(ctx context.Context) error {
	var students []database.Student
	var logs []database.AttendanceRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		students = s.store.ListStudents(gctx)
		return nil
	})
	g.Go(func() error {
		logs = s.store.ListAttendance(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	s.mu.Lock()
	s.students = students
	s.logs = logs
	s.mu.Unlock()

	log.Printf("Loaded %d students and %d attendance records", len(students), len(logs))
	return nil
}

// Students returns a copy of the roster snapshot.
func (s *State) Students() []database.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.students)
}

// Logs returns a copy of the log snapshot, newest first.
func (s *State) Logs() []database.AttendanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.logs)
}

// Student returns the first roster entry with the given ID.
func (s *State) Student(id string) (database.Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.students, func(st database.Student) bool { return st.ID == id })
	if i < 0 {
		return database.Student{}, false
	}
	return s.students[i], true
}

// NormalizeStudent trims fields, applies registration defaults and checks
// that id, name and email are present.
func NormalizeStudent(st database.Student, now time.Time) (database.Student, error) {
	st.ID = strings.TrimSpace(st.ID)
	st.Name = strings.TrimSpace(st.Name)
	st.Email = strings.TrimSpace(st.Email)
	st.Department = strings.TrimSpace(st.Department)
	st.Year = strings.TrimSpace(st.Year)

	var missing []string
	if st.ID == "" {
		missing = append(missing, "id")
	}
	if st.Name == "" {
		missing = append(missing, "name")
	}
	if st.Email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return st, fmt.Errorf("%w: missing %s", ErrInvalidStudent, strings.Join(missing, ", "))
	}

	if st.Department == "" {
		st.Department = DefaultDepartment
	}
	if st.Year == "" {
		st.Year = DefaultYear
	}
	if st.RegistrationDate == "" {
		st.RegistrationDate = now.Format(database.DateLayout)
	}
	return st, nil
}

// RegisterStudent validates and stores a student, then prepends it to the
// roster snapshot. A store failure leaves the snapshot unchanged; a swallowed
// one is not reported.
func (s *State) RegisterStudent(ctx context.Context, st database.Student) (database.Student, error) {
	st, err := NormalizeStudent(st, s.now())
	if err != nil {
		return st, err
	}
	if _, ok := s.Student(st.ID); ok {
		return st, fmt.Errorf("%w: %s", ErrDuplicateStudent, st.ID)
	}

	if err := s.store.InsertStudent(ctx, st); err != nil {
		if errors.Is(err, database.ErrNotPersisted) {
			return st, nil
		}
		return st, fmt.Errorf("registering student %s: %w", st.ID, err)
	}

	s.mu.Lock()
	s.students = append([]database.Student{st}, s.students...)
	s.mu.Unlock()
	return st, nil
}

// DeleteStudent removes every roster entry with the given ID. A store
// failure leaves the snapshot unchanged.
func (s *State) DeleteStudent(ctx context.Context, id string) error {
	if err := s.store.DeleteStudent(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotPersisted) {
			return nil
		}
		return fmt.Errorf("deleting student %s: %w", id, err)
	}

	s.mu.Lock()
	s.students = slices.DeleteFunc(slices.Clone(s.students), func(st database.Student) bool {
		return st.ID == id
	})
	s.mu.Unlock()
	return nil
}

// RecordAttendance writes a record and prepends it to the log snapshot.
// Only a written or permission-denied record reaches the snapshot and the
// notifier. An error is returned only when the events policy is fatal.
func (s *State) RecordAttendance(ctx context.Context, record database.AttendanceRecord) error {
	if err := s.store.InsertAttendance(ctx, record); err != nil {
		if errors.Is(err, database.ErrNotPersisted) {
			return nil
		}
		return fmt.Errorf("recording attendance %s: %w", record.ID, err)
	}

	s.mu.Lock()
	s.logs = append([]database.AttendanceRecord{record}, s.logs...)
	s.mu.Unlock()

	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, record); err != nil {
			log.Printf("Warning: failed to publish attendance %s: %v", record.ID, err)
		}
	}
	return nil
}
