// Package registry manages the static source registry stored in sources.toml.
// Each entry describes one storage source participating in the federation.
package registry

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"taskfed/internal/errors"
)

// Kind identifies a backend implementation
type Kind string

const (
	// KindMemory is the in-memory backend
	KindMemory Kind = "memory"
	// KindFile is the JSON-file backend
	KindFile Kind = "file"
	// KindSQLite is the SQLite backend
	KindSQLite Kind = "sqlite"
)

// Options carries backend-specific configuration for a source
type Options struct {
	// Path is the data directory (file backend) or database file (sqlite backend)
	Path string `toml:"path,omitempty"`

	// Compress enables gzip compression of stored documents (file backend)
	Compress bool `toml:"compress,omitempty"`
}

// SourceConfig describes one configured storage source.
// Immutable after construction; the Router works on its own sorted copy.
type SourceConfig struct {
	// ID is the unique source identifier
	ID string `toml:"id"`

	// Name is the human-friendly display name
	Name string `toml:"name,omitempty"`

	// Kind selects the backend implementation
	Kind Kind `toml:"kind"`

	// Priority ranks the source; higher = preferred
	Priority int `toml:"priority"`

	// ReadOnly excludes the source from write/delete candidates
	ReadOnly bool `toml:"readonly,omitempty"`

	// Enabled controls whether the source joins the pool
	Enabled bool `toml:"enabled"`

	// Tags are project hints used to narrow routing
	Tags []string `toml:"tags,omitempty"`

	// Options is backend-specific configuration
	Options Options `toml:"options,omitempty"`

	// AddedAt is when the source was registered
	AddedAt time.Time `toml:"added_at,omitempty"`
}

// HasTag reports whether the source carries the given tag
func (s *SourceConfig) HasTag(tag string) bool {
	for _, existing := range s.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// Validate checks a single source entry
func (s *SourceConfig) Validate() error {
	if s.ID == "" {
		return errors.Newf(errors.ConfigInvalid, "source id is required")
	}
	switch s.Kind {
	case KindMemory:
	case KindFile, KindSQLite:
		if s.Options.Path == "" {
			return errors.Newf(errors.ConfigInvalid, "source %q: %s backend requires options.path", s.ID, s.Kind)
		}
	default:
		return errors.Newf(errors.ConfigInvalid, "source %q: unknown backend kind %q", s.ID, s.Kind)
	}
	return nil
}

// Registry is the ordered set of configured sources
type Registry struct {
	// Sources is the full configured list, in file order
	Sources []SourceConfig `toml:"sources"`

	// UpdatedAt is when the registry was last modified
	UpdatedAt time.Time `toml:"updated_at,omitempty"`
}

// Validate checks every entry and rejects duplicate ids
func (r *Registry) Validate() error {
	seen := make(map[string]bool, len(r.Sources))
	for i := range r.Sources {
		if err := r.Sources[i].Validate(); err != nil {
			return err
		}
		if seen[r.Sources[i].ID] {
			return errors.Newf(errors.ConfigInvalid, "duplicate source id %q", r.Sources[i].ID)
		}
		seen[r.Sources[i].ID] = true
	}
	return nil
}

// Enabled returns the enabled sources sorted by priority descending.
// The result is a copy; callers may not mutate registry state through it.
func (r *Registry) Enabled() []SourceConfig {
	enabled := make([]SourceConfig, 0, len(r.Sources))
	for _, s := range r.Sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority > enabled[j].Priority
	})
	return enabled
}

// Get returns a source by id, or nil if not registered
func (r *Registry) Get(id string) *SourceConfig {
	for i := range r.Sources {
		if r.Sources[i].ID == id {
			return &r.Sources[i]
		}
	}
	return nil
}

// Load reads a registry from a sources.toml file
func Load(path string) (*Registry, error) {
	var reg Registry
	if _, err := toml.DecodeFile(path, &reg); err != nil {
		return nil, errors.New(errors.ConfigInvalid, fmt.Sprintf("failed to parse %s", path), err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Save writes the registry to a sources.toml file
func (r *Registry) Save(path string) error {
	r.UpdatedAt = time.Now().UTC()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create registry file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	return nil
}
