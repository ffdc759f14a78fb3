package mariadb

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// InsertAttendance appends a record; created_at is assigned by the server.
func (b *Backend) InsertAttendance(ctx context.Context, rec database.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_logs (id, student_id, name, date, time, subject, status, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := b.pool.db.ExecContext(ctx, query,
		rec.ID, rec.StudentID, rec.Name, rec.Date, rec.Time, rec.Subject, string(rec.Status), rec.Confidence,
	)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", classify(err))
	}
	return nil
}

// ListAttendanceNewestFirst returns all records newest first.
func (b *Backend) ListAttendanceNewestFirst(ctx context.Context) ([]database.AttendanceRecord, error) {
	rows, err := b.pool.db.QueryContext(ctx, `
		SELECT id, student_id, name, date, time, subject, status, confidence
		FROM attendance_logs
		ORDER BY created_at DESC, row_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", classify(err))
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
