package database

import (
	"context"
)

// StudentStore persists the roster.
type StudentStore interface {
	// InsertStudent stores a new roster entry
	InsertStudent(ctx context.Context, student Student) error
	// DeleteStudentsByID removes every record whose domain identifier equals id.
	// Zero or many matches are not errors; the number removed is returned.
	DeleteStudentsByID(ctx context.Context, id string) (int64, error)
	// ListStudentsByName returns the full roster ordered by name
	ListStudentsByName(ctx context.Context) ([]Student, error)
}

// AttendanceStore persists the attendance log.
type AttendanceStore interface {
	// InsertAttendance appends a record; the store stamps its own creation time
	InsertAttendance(ctx context.Context, record AttendanceRecord) error
	// ListAttendanceNewestFirst returns all records ordered by the store's
	// creation time, newest first. The creation time itself is not returned.
	ListAttendanceNewestFirst(ctx context.Context) ([]AttendanceRecord, error)
}

// Backend is a storage backend that serves both collections.
type Backend interface {
	StudentStore
	AttendanceStore
	Close() error
}
