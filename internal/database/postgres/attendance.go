package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance log storage
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// InsertAttendance appends a record; created_at is assigned by the database
func (r *AttendanceRepository) InsertAttendance(ctx context.Context, rec database.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_logs (id, student_id, name, date, time, subject, status, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.StudentID, rec.Name, rec.Date, rec.Time, rec.Subject, string(rec.Status), rec.Confidence,
	)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// ListAttendanceNewestFirst returns all records newest first.
// created_at drives the order but is not selected.
func (r *AttendanceRepository) ListAttendanceNewestFirst(ctx context.Context) ([]database.AttendanceRecord, error) {
	query := `
		SELECT id, student_id, name, date, time, subject, status, confidence
		FROM attendance_logs
		ORDER BY created_at DESC, row_id DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Name, &rec.Date, &rec.Time, &rec.Subject, &status, &rec.Confidence); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.Status = database.AttendanceStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", classify(err))
	}
	return records, nil
}
