package datastore

import (
	"context"

	"pears-cleaning/internal/store"
)

// DataStore is the run ledger. It is implemented by the PostgreSQL store
// and by an in-memory store for runs without a database.
type DataStore interface {
	// Lifecycle
	Close() error
	InitDB(ctx context.Context) error

	// Run Operations
	CreateRun(ctx context.Context, run store.Run) error
	FinishRun(ctx context.Context, run store.Run) error
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)

	// Outcome Operations
	RecordSummary(ctx context.Context, runID string, rows []store.SummaryRow) error
	RecordFailures(ctx context.Context, runID string, failures []store.DeliveryFailure) error
	GetRunSummary(ctx context.Context, runID string) ([]store.SummaryRow, error)
	GetRunFailures(ctx context.Context, runID string) ([]store.DeliveryFailure, error)
}

// Type selects a DataStore implementation.
type Type string

const (
	// PostgreSQLStore keeps the ledger in PostgreSQL.
	PostgreSQLStore Type = "postgresql"
	// MemoryStore keeps the ledger for the life of the process.
	MemoryStore Type = "memory"
)

// Config holds the configuration for the data store.
type Config struct {
	Type             Type
	ConnectionString string
}

// NewDataStore creates a new data store based on the configuration.
func NewDataStore(config Config) (DataStore, error) {
	switch config.Type {
	case PostgreSQLStore:
		s, err := store.NewStore(config.ConnectionString)
		if err != nil {
			return nil, err
		}
		return s, nil
	case MemoryStore:
		return NewMemoryStore(), nil
	default:
		return nil, &UnsupportedStoreTypeError{Type: string(config.Type)}
	}
}

// UnsupportedStoreTypeError is returned for an unknown store type.
type UnsupportedStoreTypeError struct {
	Type string
}

func (e *UnsupportedStoreTypeError) Error() string {
	return "unsupported store type: " + e.Type
}
