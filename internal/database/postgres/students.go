package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// StudentRepository provides PostgreSQL-backed roster storage
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// InsertStudent stores a student under a fresh internal row ID
func (r *StudentRepository) InsertStudent(ctx context.Context, s database.Student) error {
	query := `
		INSERT INTO students (id, student_id, name, email, department, year, avatar, registration_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var avatar sql.NullString
	if s.Avatar != "" {
		avatar = sql.NullString{String: s.Avatar, Valid: true}
	}

	_, err := r.pool.Exec(ctx, query,
		uuid.New(), s.ID, s.Name, s.Email, s.Department, s.Year, avatar, s.RegistrationDate,
	)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// DeleteStudentsByID removes all rows whose domain ID matches
func (r *StudentRepository) DeleteStudentsByID(ctx context.Context, id string) (int64, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM students WHERE student_id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("delete student: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return count, nil
}

// ListStudentsByName returns the roster ordered by name
func (r *StudentRepository) ListStudentsByName(ctx context.Context) ([]database.Student, error) {
	query := `
		SELECT student_id, name, email, department, year, avatar, registration_date
		FROM students
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
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
