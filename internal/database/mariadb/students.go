package mariadb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// InsertStudent stores a student under a fresh internal row ID.
func (b *Backend) InsertStudent(ctx context.Context, s database.Student) error {
	query := `
		INSERT INTO students (id, student_id, name, email, department, year, avatar, registration_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var avatar sql.NullString
	if s.Avatar != "" {
		avatar = sql.NullString{String: s.Avatar, Valid: true}
	}

	_, err := b.pool.db.ExecContext(ctx, query,
		uuid.NewString(), s.ID, s.Name, s.Email, s.Department, s.Year, avatar, s.RegistrationDate,
	)
	if err != nil {
		return fmt.Errorf("insert student: %w", classify(err))
	}
	return nil
}

// DeleteStudentsByID removes all rows whose domain ID matches.
func (b *Backend) DeleteStudentsByID(ctx context.Context, id string) (int64, error) {
	result, err := b.pool.db.ExecContext(ctx, "DELETE FROM students WHERE student_id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("delete student: %w", classify(err))
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return count, nil
}

// ListStudentsByName returns the roster ordered by name.
func (b *Backend) ListStudentsByName(ctx context.Context) ([]database.Student, error) {
	rows, err := b.pool.db.QueryContext(ctx, `
		SELECT student_id, name, email, department, year, avatar, registration_date
		FROM students
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", classify(err))
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		var s database.Student
		var avatar sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Department, &s.Year, &avatar, &s.RegistrationDate); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		s.Avatar = avatar.String
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", classify(err))
	}
	return students, nil
}
