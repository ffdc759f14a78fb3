package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// Scheme is the URL prefix selecting this backend.
const Scheme = "mysql"

// MySQL error numbers treated as a permission rejection.
const (
	errTableAccessDenied    = 1142
	errDBAccessDenied       = 1044
	errAccessDeniedForLogin = 1045
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// DSN converts a mysql:// URL into a driver DSN.
func DSN(url string) (string, error) {
	dsn := strings.TrimPrefix(url, Scheme+"://")
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// NewPool creates a new MariaDB connection pool.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	dsn, err := DSN(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", classify(err))
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// classify maps access-denied server errors to database.ErrPermissionDenied.
func classify(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errTableAccessDenied, errDBAccessDenied, errAccessDeniedForLogin:
			return fmt.Errorf("%w: %s", database.ErrPermissionDenied, myErr.Message)
		}
	}
	return err
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id                CHAR(36)     NOT NULL PRIMARY KEY,
		student_id        VARCHAR(255) NOT NULL,
		name              VARCHAR(255) NOT NULL,
		email             VARCHAR(255) NOT NULL,
		department        VARCHAR(255) NOT NULL DEFAULT 'General',
		year              VARCHAR(64)  NOT NULL DEFAULT '',
		avatar            LONGTEXT     NULL,
		registration_date VARCHAR(64)  NOT NULL DEFAULT '',
		created_at        DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX students_student_id_idx (student_id),
		INDEX students_name_idx (name)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_logs (
		row_id      BIGINT AUTO_INCREMENT PRIMARY KEY,
		id          VARCHAR(64)  NOT NULL,
		student_id  VARCHAR(255) NOT NULL,
		name        VARCHAR(255) NOT NULL,
		date        VARCHAR(64)  NOT NULL,
		time        VARCHAR(64)  NOT NULL,
		subject     VARCHAR(255) NOT NULL,
		status      VARCHAR(16)  NOT NULL,
		confidence  DOUBLE       NOT NULL DEFAULT 0,
		created_at  DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX attendance_logs_created_at_idx (created_at)
	)`,
}

// EnsureSchema creates the roster and attendance tables when missing.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", classify(err))
		}
	}
	return nil
}

// Backend serves both the roster and the attendance log from one pool.
type Backend struct {
	pool *Pool
}

// Close closes the underlying pool.
func (b *Backend) Close() error {
	return b.pool.Close()
}

// Open connects, creates tables and returns a backend.
// Its signature matches database.Opener.
func Open(cfg *config.DatabaseConfig) (database.Backend, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.EnsureSchema(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return &Backend{pool: pool}, nil
}
