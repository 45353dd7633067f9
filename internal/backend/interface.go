// Package backend builds the expense store a binary runs against from its
// configuration.
package backend

import (
	"context"
	"time"

	"kharcha/internal/ledger"
)

// Pinger reports whether the backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store, an optional readiness probe and an
// optional cleanup function.
type BackendResult struct {
	Store   ledger.Store
	Ready   Pinger
	Cleanup CleanupFunc
}

// Close runs Cleanup when there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// REST backend
	APIURL       string
	APIRateLimit int
	APITimeout   time.Duration
	CacheSize    int
	CacheTTL     time.Duration

	// SQLite backend
	SQLiteDBPath string

	// Event publishing for sqlite and memory backends; optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	RESTBackend   BackendType = "rest"
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
	case RESTBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
