package backend

import (
	"context"

	"pgexpense/internal/amqp"
	"pgexpense/internal/services"
	"pgexpense/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the wired service and the resources behind it.
// Cleanup closes the publisher and then the pool.
type BackendResult struct {
	Service    *services.ExpenseService
	Repository *storage.Repository
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the pool, migrates the schema and wires the service.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// PostgreSQL specific
	Postgres storage.PostgresConfig

	// SQLite specific
	SQLiteDBPath string

	ListingTiebreak string

	// Optional event publishing
	AMQPURL      string
	AMQPExchange string
}

// BackendType represents the type of backend
type BackendType string

const (
	PostgresBackend BackendType = "postgres"
	SQLiteBackend   BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case PostgresBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
