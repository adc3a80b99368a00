// Package backends defines the storage contract every federation source
// implements, plus the concrete memory, file, and sqlite backends.
package backends

import (
	"context"

	"taskfed/internal/errors"
	"taskfed/internal/logging"
	"taskfed/internal/registry"
	"taskfed/internal/types"
)

// ListOptions narrows a summary listing
type ListOptions struct {
	// ProjectTag, when set, restricts the listing to one project
	ProjectTag string

	// ExcludeCompleted drops fully completed lists from the listing
	ExcludeCompleted bool
}

// Backend is the contract each storage source implements.
// Load returns (nil, nil) when the key does not exist.
// HealthCheck must not panic; a non-nil error means unhealthy.
type Backend interface {
	// Kind identifies the backend implementation
	Kind() registry.Kind

	// Initialize prepares the backend for use; called once at router startup
	Initialize(ctx context.Context) error

	// HealthCheck reports whether the backend can currently serve operations
	HealthCheck(ctx context.Context) error

	// Load retrieves a list by id; (nil, nil) when absent
	Load(ctx context.Context, key string) (*types.TaskList, error)

	// Save persists a list under its id
	Save(ctx context.Context, key string, list *types.TaskList) error

	// Delete removes a list; a non-permanent delete is recoverable
	// where the backend supports it
	Delete(ctx context.Context, key string, permanent bool) error

	// List returns light-weight summaries of the stored lists
	List(ctx context.Context, opts ListOptions) ([]types.ListSummary, error)

	// Shutdown releases backend resources; best-effort during teardown
	Shutdown(ctx context.Context) error
}

// New builds a backend for the given source configuration.
// The backend is not initialized; the router calls Initialize.
func New(cfg registry.SourceConfig, logger *logging.Logger) (Backend, error) {
	switch cfg.Kind {
	case registry.KindMemory:
		return NewMemoryBackend(), nil
	case registry.KindFile:
		return NewFileBackend(cfg.Options.Path, cfg.Options.Compress, logger), nil
	case registry.KindSQLite:
		return NewSQLiteBackend(cfg.Options.Path, logger), nil
	default:
		return nil, errors.Newf(errors.ConfigInvalid, "unknown backend kind %q for source %q", cfg.Kind, cfg.ID)
	}
}

// matchesListOptions applies ListOptions to a summary
func matchesListOptions(s types.ListSummary, opts ListOptions) bool {
	if opts.ProjectTag != "" && s.ProjectTag != opts.ProjectTag {
		return false
	}
	if opts.ExcludeCompleted && s.Progress == 100 {
		return false
	}
	return true
}
