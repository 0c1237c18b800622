// Package postgres implements the task record store on PostgreSQL. The
// reserved record keys map to columns; the type-specific fields land in a
// JSONB column. Schema management goes through goose with embedded
// migrations.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/nexusdata/nexusdata/internal/domain"
	"github.com/nexusdata/nexusdata/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresTaskStore is a store.TaskStore backed by a PostgreSQL table.
type PostgresTaskStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens a connection pool against url, verifies it and applies any
// pending migrations.
func New(ctx context.Context, url string, logger *slog.Logger) (*PostgresTaskStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("postgres task store ready")
	return &PostgresTaskStore{db: db, logger: logger}, nil
}

// NewWithDB wraps an existing connection without running migrations, used
// by tests.
func NewWithDB(db *sql.DB, logger *slog.Logger) *PostgresTaskStore {
	return &PostgresTaskStore{db: db, logger: logger}
}

// Close releases the connection pool.
func (s *PostgresTaskStore) Close() error {
	return s.db.Close()
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create persists a new record.
func (s *PostgresTaskStore) Create(ctx context.Context, rec *store.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode record fields: %w", err)
	}

	const q = `
		INSERT INTO task_records (task_id, task_type, status, handle, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (task_id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, q,
		rec.TaskID, string(rec.Type), string(rec.Status), rec.Handle, fields, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrDuplicate
	}
	return nil
}

// Get retrieves a record by task identifier.
func (s *PostgresTaskStore) Get(ctx context.Context, taskID string) (*store.Record, error) {
	const q = `
		SELECT task_id, task_type, status, handle, fields, created_at, updated_at
		FROM task_records WHERE task_id = $1`
	return scanRecord(s.db.QueryRowContext(ctx, q, taskID))
}

// Update applies a change set inside a transaction holding a row lock, so
// concurrent writers to the same key serialize at the database.
func (s *PostgresTaskStore) Update(ctx context.Context, taskID string, changes store.Fields) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const sel = `
		SELECT task_id, task_type, status, handle, fields, created_at, updated_at
		FROM task_records WHERE task_id = $1 FOR UPDATE`
	rec, err := scanRecord(tx.QueryRowContext(ctx, sel, taskID))
	if err != nil {
		return err
	}
	if err := rec.Apply(changes); err != nil {
		return err
	}

	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode record fields: %w", err)
	}
	const upd = `
		UPDATE task_records
		SET status = $2, handle = $3, fields = $4, updated_at = $5
		WHERE task_id = $1`
	if _, err := tx.ExecContext(ctx, upd,
		taskID, string(rec.Status), rec.Handle, fields, rec.UpdatedAt); err != nil {
		return fmt.Errorf("failed to update task record: %w", err)
	}
	return tx.Commit()
}

// Delete removes a record.
func (s *PostgresTaskStore) Delete(ctx context.Context, taskID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_records WHERE task_id = $1`, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteOlderThan purges records created before the cutoff.
func (s *PostgresTaskStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge task records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged records: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*store.Record, error) {
	var (
		rec       store.Record
		taskType  string
		status    string
		rawFields []byte
	)
	err := row.Scan(&rec.TaskID, &taskType, &status, &rec.Handle, &rawFields, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task record: %w", err)
	}

	rec.Type = domain.TaskType(taskType)
	rec.Status = domain.TaskStatus(status)
	if len(rawFields) > 0 {
		if err := json.Unmarshal(rawFields, &rec.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode record fields: %w", err)
		}
	}
	return &rec, nil
}
