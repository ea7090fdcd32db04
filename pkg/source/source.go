// Package source provides the relational connection providers consumed by
// the extraction engine. A Provider opens exclusive logical connections to a
// named source; the engine never sees driver details, only the Conn contract.
//
// Providers register themselves by name (see the postgres, mysql and
// snowflake files) and are selected by configuration, never by call-site
// branching. Two shapes exist: DSN-style providers fed a pre-configured
// connection string, and credential-style providers that assemble one from
// named parameters.
package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quarryhq/quarry/pkg/logger"
	"github.com/quarryhq/quarry/pkg/qerrors"
	"github.com/quarryhq/quarry/pkg/table"
)

// Params holds the named connection parameters a provider may consume.
// DSN-style providers only read DSN; credential-style providers build their
// connection string from the remaining fields.
type Params struct {
	// DSN is a pre-configured connection string. When set it takes
	// precedence over the individual credential fields.
	DSN string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	Schema   string

	// Snowflake-specific
	Account   string
	Warehouse string
	Role      string

	// Timeout bounds connection establishment. Zero means the driver
	// default.
	Timeout time.Duration
}

// Conn is one exclusive logical connection to a relational source. A Conn is
// owned by exactly one worker for its lifetime and is never shared.
type Conn interface {
	// Query executes sqlText and materializes the full row set.
	Query(ctx context.Context, sqlText string) (*table.Result, error)

	// Close releases the connection. It must be safe to call on an
	// already-broken connection: failures come back as a tolerant
	// Disconnect error, never a panic.
	Close() error
}

// Provider opens connections to one configured source.
type Provider interface {
	// Name returns the registered provider name.
	Name() string

	// Open establishes a new exclusive connection.
	Open(ctx context.Context) (Conn, error)
}

// Factory creates a provider instance from connection parameters.
type Factory func(params Params) (Provider, error)

// Registry manages provider registration and instantiation
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
	logger    *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger.Get().With(zap.String("component", "source_registry")),
	}
}

// Register registers a provider factory
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return qerrors.New(qerrors.ErrorTypeConfig, fmt.Sprintf("source provider %s already registered", name))
	}

	r.factories[name] = factory
	r.logger.Debug("source provider registered", zap.String("name", name))
	return nil
}

// New creates a provider instance by name
func (r *Registry) New(name string, params Params) (Provider, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, qerrors.New(qerrors.ErrorTypeConfig, fmt.Sprintf("source provider %s not found", name))
	}

	provider, err := factory(params)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeConfig, fmt.Sprintf("failed to create source provider %s", name))
	}

	return provider, nil
}

// List returns the registered provider names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Register registers a provider factory with the global registry
func Register(name string, factory Factory) error {
	return globalRegistry.Register(name, factory)
}

// New creates a provider instance from the global registry
func New(name string, params Params) (Provider, error) {
	return globalRegistry.New(name, params)
}

// List returns the provider names registered globally
func List() []string {
	return globalRegistry.List()
}
