package backend

import (
	"context"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/gateway"
)

// Store is a gateway store that can also enumerate its owners.
type Store interface {
	gateway.Store
	Owners(ctx context.Context) ([]string, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds everything a process needs to serve expenses.
// AMQP is nil when change notifications are disabled.
type BackendResult struct {
	Store   Store
	Gateway *gateway.StoreGateway
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific
	DataDirectory string

	// AMQP; Queue is the queue this process consumes, empty for a private one
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Snapshot cache
	CacheSize int
	CacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
