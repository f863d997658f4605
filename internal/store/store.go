package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

// Store is the PostgreSQL run ledger.
type Store struct {
	db *sqlx.DB
}

// NewStore opens and pings the database.
func NewStore(connString string) (*Store, error) {
	db, err := sqlx.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if pingErr := db.Ping(); pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return &Store{db: db}, nil
}

// NewStoreFromDB constructs a Store from an existing *sql.DB. Useful for tests.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitDB creates the ledger schema if it does not exist.
func (s *Store) InitDB(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute init SQL: %w", err)
	}
	return nil
}

// CreateRun records the start of a run.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO pears.runs (run_id, kind, period, status, started_at, failed_modules)
         VALUES (:run_id, :kind, :period, :status, :started_at, :failed_modules)`, run)
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.RunID, err)
	}
	return nil
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	res, err := s.db.NamedExecContext(ctx,
		`UPDATE pears.runs
         SET status = :status, finished_at = :finished_at, corrections = :corrections,
             notifications_sent = :notifications_sent, failed_modules = :failed_modules, error = :error
         WHERE run_id = :run_id`, run)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.RunID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.RunID, err)
	}
	if n == 0 {
		return &RunNotFoundError{RunID: run.RunID}
	}
	return nil
}

// RecordSummary stores a run's summary rows in one transaction.
func (s *Store) RecordSummary(ctx context.Context, runID string, rows []SummaryRow) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, r := range rows {
		r.RunID, r.Position = runID, i
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO pears.run_summaries (run_id, position, module, update_id, entries, notification)
             VALUES (:run_id, :position, :module, :update_id, :entries, :notification)`, r); err != nil {
			return fmt.Errorf("failed to insert summary row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit summary: %w", err)
	}
	return nil
}

// RecordFailures stores a run's delivery failures in one transaction, in
// the order given.
func (s *Store) RecordFailures(ctx context.Context, runID string, failures []DeliveryFailure) error {
	if len(failures) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, f := range failures {
		f.RunID, f.Position = runID, i
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO pears.delivery_failures (run_id, position, recipient, email, subject, error, failed_at)
             VALUES (:run_id, :position, :recipient, :email, :subject, :error, :failed_at)`, f); err != nil {
			return fmt.Errorf("failed to insert delivery failure for %s: %w", f.Email, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delivery failures: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := s.db.SelectContext(ctx, &runs,
		`SELECT run_id::text, kind, period, status, started_at, finished_at, corrections,
                notifications_sent, failed_modules, error
         FROM pears.runs
         ORDER BY started_at DESC
         LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRunSummary returns a run's summary rows in their original order.
func (s *Store) GetRunSummary(ctx context.Context, runID string) ([]SummaryRow, error) {
	var rows []SummaryRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT run_id::text, position, module, update_id, entries, notification
         FROM pears.run_summaries
         WHERE run_id = $1
         ORDER BY position ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run summary: %w", err)
	}
	return rows, nil
}

// GetRunFailures returns a run's delivery failures in the order they
// happened.
func (s *Store) GetRunFailures(ctx context.Context, runID string) ([]DeliveryFailure, error) {
	var failures []DeliveryFailure
	err := s.db.SelectContext(ctx, &failures,
		`SELECT run_id::text, position, recipient, email, subject, error, failed_at
         FROM pears.delivery_failures
         WHERE run_id = $1
         ORDER BY position ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery failures: %w", err)
	}
	return failures, nil
}

// RunNotFoundError is returned when a run id is not in the ledger.
type RunNotFoundError struct {
	RunID string
}

func (e *RunNotFoundError) Error() string {
	return "run not found: " + e.RunID
}
