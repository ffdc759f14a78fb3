// Package mock provides an in-memory implementation of the database interfaces
// for testing and for running the server without a database.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
)

type storedStudent struct {
	rowID   string
	student database.Student
}

type storedRecord struct {
	seq       int64
	createdAt time.Time
	record    database.AttendanceRecord
}

// MockStore is an in-memory database.Backend.
type MockStore struct {
	mu       sync.RWMutex
	students []storedStudent
	records  []storedRecord
	seq      int64
	now      func() time.Time

	// Error injection
	InsertStudentError    error
	DeleteStudentError    error
	ListStudentsError     error
	InsertAttendanceError error
	ListAttendanceError   error

	// Call counters
	InsertAttendanceCalls int
	InsertStudentCalls    int
	DeleteStudentCalls    int
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{now: time.Now}
}

// AddStudent adds a student directly, bypassing error injection
func (m *MockStore) AddStudent(s database.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students = append(m.students, storedStudent{rowID: uuid.NewString(), student: s})
}

// AddRecord adds an attendance record directly, bypassing error injection
func (m *MockStore) AddRecord(r database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendRecord(r)
}

func (m *MockStore) appendRecord(r database.AttendanceRecord) {
	m.seq++
	m.records = append(m.records, storedRecord{seq: m.seq, createdAt: m.now(), record: r})
}

// InsertStudent stores a student
func (m *MockStore) InsertStudent(ctx context.Context, s database.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertStudentCalls++
	if m.InsertStudentError != nil {
		return m.InsertStudentError
	}
	m.students = append(m.students, storedStudent{rowID: uuid.NewString(), student: s})
	return nil
}

// RowIDs returns the storage keys of every student with the given domain ID,
// in insertion order.
func (m *MockStore) RowIDs(id string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, s := range m.students {
		if s.student.ID == id {
			ids = append(ids, s.rowID)
		}
	}
	return ids
}

// DeleteStudentsByID removes all students with the given domain ID
func (m *MockStore) DeleteStudentsByID(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteStudentCalls++
	if m.DeleteStudentError != nil {
		return 0, m.DeleteStudentError
	}
	kept := m.students[:0]
	var removed int64
	for _, s := range m.students {
		if s.student.ID == id {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.students = kept
	return removed, nil
}

// ListStudentsByName returns students ordered by name
func (m *MockStore) ListStudentsByName(ctx context.Context) ([]database.Student, error) {
	if m.ListStudentsError != nil {
		return nil, m.ListStudentsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.Student, 0, len(m.students))
	for _, s := range m.students {
		result = append(result, s.student)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return strings.Compare(result[i].Name, result[j].Name) < 0
	})
	return result, nil
}

// InsertAttendance appends a record
func (m *MockStore) InsertAttendance(ctx context.Context, r database.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertAttendanceCalls++
	if m.InsertAttendanceError != nil {
		return m.InsertAttendanceError
	}
	m.appendRecord(r)
	return nil
}

// ListAttendanceNewestFirst returns records newest first by insertion time
func (m *MockStore) ListAttendanceNewestFirst(ctx context.Context) ([]database.AttendanceRecord, error) {
	if m.ListAttendanceError != nil {
		return nil, m.ListAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := make([]storedRecord, len(m.records))
	copy(stored, m.records)
	sort.SliceStable(stored, func(i, j int) bool {
		if !stored[i].createdAt.Equal(stored[j].createdAt) {
			return stored[i].createdAt.After(stored[j].createdAt)
		}
		return stored[i].seq > stored[j].seq
	})
	result := make([]database.AttendanceRecord, 0, len(stored))
	for _, s := range stored {
		result = append(result, s.record)
	}
	return result, nil
}

// StudentCount returns the number of stored student rows
func (m *MockStore) StudentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students)
}

// RecordCount returns the number of stored attendance rows
func (m *MockStore) RecordCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close is a no-op
func (m *MockStore) Close() error {
	return nil
}

var _ database.Backend = (*MockStore)(nil)
