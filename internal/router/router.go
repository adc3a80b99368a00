// Package router directs single-entity operations across the configured
// storage sources, tracking per-source health and failing over by priority.
package router

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskfed/internal/aggregator"
	"taskfed/internal/backends"
	"taskfed/internal/config"
	"taskfed/internal/errors"
	"taskfed/internal/logging"
	"taskfed/internal/registry"
	"taskfed/internal/types"
)

// OperationKind identifies the type of a routed operation
type OperationKind string

const (
	// OpRead loads a single list by key
	OpRead OperationKind = "read"
	// OpWrite saves a single list under its key
	OpWrite OperationKind = "write"
	// OpDelete removes a single list by key
	OpDelete OperationKind = "delete"
)

// Operation is a request to the router
type Operation struct {
	// Kind selects read, write, or delete
	Kind OperationKind

	// Key is the logical list id
	Key string

	// List is the payload for write operations
	List *types.TaskList

	// Permanent makes a delete unrecoverable
	Permanent bool
}

// RouteContext carries routing hints for one operation
type RouteContext struct {
	// ProjectTag narrows candidates to sources tagged with it.
	// The hint is a preference: if it narrows to zero, the full
	// healthy set is used instead.
	ProjectTag string
}

// poolEntry is the router-owned bookkeeping for one configured source.
// Mutated only by the router; status queries return copies.
type poolEntry struct {
	source          registry.SourceConfig
	backend         backends.Backend
	healthy         bool
	lastHealthCheck time.Time
	failureCount    int
}

// SourceStatus is a point-in-time snapshot of one pooled source
type SourceStatus struct {
	ID              string        `json:"id"`
	Name            string        `json:"name,omitempty"`
	Kind            registry.Kind `json:"kind"`
	Priority        int           `json:"priority"`
	ReadOnly        bool          `json:"readOnly,omitempty"`
	Healthy         bool          `json:"healthy"`
	FailureCount    int           `json:"failureCount"`
	LastHealthCheck time.Time     `json:"lastHealthCheck"`
}

// Router owns the pool of live backend connections and routes
// single-entity operations across them with health-aware failover.
type Router struct {
	cfg    config.RouterConfig
	logger *logging.Logger

	mu    sync.RWMutex
	pool  map[string]*poolEntry
	order []string // source ids, priority descending

	shuttingDown  bool
	stop          chan struct{}
	wg            sync.WaitGroup
	recheckTimers map[string]*time.Timer
}

// NewRouter creates a router with an empty pool. Call Initialize to
// populate the pool and start health checking.
func NewRouter(cfg config.RouterConfig, logger *logging.Logger) *Router {
	return &Router{
		cfg:           cfg,
		logger:        logger.Named("router"),
		pool:          make(map[string]*poolEntry),
		stop:          make(chan struct{}),
		recheckTimers: make(map[string]*time.Timer),
	}
}

// Initialize builds a pool entry for every enabled source. Each source is
// initialized independently; a source whose construction or initialization
// fails still enters the pool as unhealthy with its failure count preset to
// the threshold, so status reporting stays complete and the source remains
// eligible for later recovery. Initialize itself never fails because of a
// bad source. The periodic health loop starts after the pool is populated.
func (r *Router) Initialize(ctx context.Context, sources []registry.SourceConfig) error {
	r.mu.Lock()
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		entry := &poolEntry{source: src}
		entry.backend, entry.healthy = r.buildBackend(ctx, src)
		entry.lastHealthCheck = time.Now().UTC()
		if !entry.healthy {
			entry.failureCount = r.maxFailures()
		}
		r.pool[src.ID] = entry
		r.order = append(r.order, src.ID)
	}
	sort.SliceStable(r.order, func(i, j int) bool {
		return r.pool[r.order[i]].source.Priority > r.pool[r.order[j]].source.Priority
	})
	r.mu.Unlock()

	r.logger.Info("Router initialized", map[string]interface{}{
		"sources": len(r.order),
	})

	r.wg.Add(1)
	go r.healthLoop()

	return nil
}

// newBackend indirection lets tests substitute controllable backends
var newBackend = backends.New

// buildBackend constructs, initializes, and health-checks one source's
// backend. Returns (nil, false) on construction failure and
// (backend, false) on initialization or health-check failure.
func (r *Router) buildBackend(ctx context.Context, src registry.SourceConfig) (backends.Backend, bool) {
	backend, err := newBackend(src, r.logger)
	if err != nil {
		r.logger.Error("Failed to construct backend", map[string]interface{}{
			"source": src.ID,
			"kind":   src.Kind,
			"error":  err.Error(),
		})
		return nil, false
	}
	if err := backend.Initialize(ctx); err != nil {
		r.logger.Error("Failed to initialize backend", map[string]interface{}{
			"source": src.ID,
			"kind":   src.Kind,
			"error":  err.Error(),
		})
		return backend, false
	}
	if err := safeHealthCheck(ctx, backend); err != nil {
		r.logger.Warn("Source unhealthy at startup", map[string]interface{}{
			"source": src.ID,
			"error":  err.Error(),
		})
		return backend, false
	}
	return backend, true
}

// Route executes a single-entity operation. Reads return the loaded list
// ((nil, nil) when no source holds the key); writes and deletes return
// (nil, nil) on success.
func (r *Router) Route(ctx context.Context, op Operation, rc RouteContext) (*types.TaskList, error) {
	r.mu.RLock()
	if r.shuttingDown {
		r.mu.RUnlock()
		return nil, errors.Newf(errors.RouterShuttingDown, "router is shutting down")
	}
	candidates := r.selectCandidates(op, rc)
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, errors.Newf(errors.NoAvailableSource, "no available source for %s operation", op.Kind)
	}

	switch op.Kind {
	case OpRead:
		return r.executeRead(ctx, op, candidates)
	case OpWrite, OpDelete:
		return nil, r.executeMutation(ctx, op, candidates)
	default:
		return nil, errors.Newf(errors.InternalError, "unknown operation kind %q", op.Kind)
	}
}

// selectCandidates picks eligible sources for an operation, in priority
// order. Caller holds at least a read lock.
//  1. all healthy entries
//  2. tag narrowing (preference only: empty narrowing falls back)
//  3. writable filter for write/delete
func (r *Router) selectCandidates(op Operation, rc RouteContext) []*poolEntry {
	healthy := make([]*poolEntry, 0, len(r.order))
	for _, id := range r.order {
		if entry := r.pool[id]; entry.healthy && entry.backend != nil {
			healthy = append(healthy, entry)
		}
	}

	candidates := healthy
	if rc.ProjectTag != "" {
		tagged := make([]*poolEntry, 0, len(healthy))
		for _, entry := range healthy {
			if entry.source.HasTag(rc.ProjectTag) {
				tagged = append(tagged, entry)
			}
		}
		if len(tagged) > 0 {
			candidates = tagged
		}
	}

	if op.Kind == OpWrite || op.Kind == OpDelete {
		writable := make([]*poolEntry, 0, len(candidates))
		for _, entry := range candidates {
			if !entry.source.ReadOnly {
				writable = append(writable, entry)
			}
		}
		candidates = writable
	}

	// r.order is already priority-descending, so candidates are too
	return candidates
}

// executeRead attempts candidates strictly in priority order, stopping at
// the first success. With fallback disabled only the first candidate is
// tried. Exhausting every candidate surfaces an aggregate error that
// summarizes each per-source failure.
func (r *Router) executeRead(ctx context.Context, op Operation, candidates []*poolEntry) (*types.TaskList, error) {
	failures := make(map[string]string, len(candidates))

	for _, entry := range candidates {
		list, err := r.attempt(ctx, entry, op)
		if err == nil {
			r.resetFailures(entry.source.ID)
			return list, nil
		}

		failures[entry.source.ID] = err.Error()
		r.recordFailure(entry.source.ID, err)

		if !r.cfg.EnableFallback {
			break
		}
	}

	return nil, errors.Newf(errors.ReadExhausted, "read of %q failed on every candidate source", op.Key).
		WithDetails(failures)
}

// executeMutation attempts the highest-priority writable candidate first.
// On failure, fallback candidates are tried in order, but if everything
// fails the primary's own error is surfaced: it is the most actionable
// diagnostic.
func (r *Router) executeMutation(ctx context.Context, op Operation, candidates []*poolEntry) error {
	primary := candidates[0]
	_, primaryErr := r.attempt(ctx, primary, op)
	if primaryErr == nil {
		r.resetFailures(primary.source.ID)
		return nil
	}
	r.recordFailure(primary.source.ID, primaryErr)

	if r.cfg.EnableFallback && len(candidates) > 1 {
		for _, entry := range candidates[1:] {
			_, err := r.attempt(ctx, entry, op)
			if err == nil {
				r.resetFailures(entry.source.ID)
				r.logger.Warn("Mutation succeeded via fallback source", map[string]interface{}{
					"operation": op.Kind,
					"key":       op.Key,
					"primary":   primary.source.ID,
					"fallback":  entry.source.ID,
				})
				return nil
			}
			r.recordFailure(entry.source.ID, err)
		}
	}

	return primaryErr
}

// attempt runs one backend call under the per-operation timeout. The
// timeout context is propagated into the backend call so cooperative
// backends are actually cancelled; the caller-side select is the safety
// net for backends that ignore cancellation.
func (r *Router) attempt(ctx context.Context, entry *poolEntry, op Operation) (*types.TaskList, error) {
	timeout := r.cfg.OperationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		list *types.TaskList
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		var out outcome
		switch op.Kind {
		case OpRead:
			out.list, out.err = entry.backend.Load(opCtx, op.Key)
		case OpWrite:
			out.err = entry.backend.Save(opCtx, op.Key, op.List)
		case OpDelete:
			out.err = entry.backend.Delete(opCtx, op.Key, op.Permanent)
		}
		done <- out
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, errors.New(errors.SourceOperationFailed,
				"source "+entry.source.ID+" failed "+string(op.Kind), out.err)
		}
		return out.list, nil
	case <-opCtx.Done():
		return nil, errors.Newf(errors.OperationTimeout,
			"source %s %s timed out after %s", entry.source.ID, op.Kind, timeout)
	}
}

// Status returns point-in-time snapshots of every pooled source,
// priority descending. The pool itself is never exposed.
func (r *Router) Status() []SourceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]SourceStatus, 0, len(r.order))
	for _, id := range r.order {
		entry := r.pool[id]
		statuses = append(statuses, SourceStatus{
			ID:              entry.source.ID,
			Name:            entry.source.Name,
			Kind:            entry.source.Kind,
			Priority:        entry.source.Priority,
			ReadOnly:        entry.source.ReadOnly,
			Healthy:         entry.healthy,
			FailureCount:    entry.failureCount,
			LastHealthCheck: entry.lastHealthCheck,
		})
	}
	return statuses
}

// HealthySources returns the healthy pool entries as aggregation sources,
// priority descending. This is the live source set callers pass to the
// aggregator.
func (r *Router) HealthySources() []aggregator.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]aggregator.Source, 0, len(r.order))
	for _, id := range r.order {
		entry := r.pool[id]
		if entry.healthy && entry.backend != nil {
			sources = append(sources, aggregator.Source{
				ID:       entry.source.ID,
				Name:     entry.source.Name,
				Priority: entry.source.Priority,
				Backend:  entry.backend,
			})
		}
	}
	return sources
}

// Shutdown stops the health loop, shuts each backend down best-effort,
// and clears the pool. Idempotent: re-entry is a no-op. Operations
// submitted after shutdown begins fail with RouterShuttingDown.
func (r *Router) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.shuttingDown {
		r.mu.Unlock()
		return nil
	}
	r.shuttingDown = true
	for id, timer := range r.recheckTimers {
		timer.Stop()
		delete(r.recheckTimers, id)
	}
	close(r.stop)
	entries := make([]*poolEntry, 0, len(r.pool))
	for _, entry := range r.pool {
		entries = append(entries, entry)
	}
	r.mu.Unlock()

	r.wg.Wait()

	for _, entry := range entries {
		if entry.backend == nil {
			continue
		}
		if err := entry.backend.Shutdown(ctx); err != nil {
			r.logger.Warn("Failed to shut down backend", map[string]interface{}{
				"source": entry.source.ID,
				"error":  err.Error(),
			})
		}
	}

	r.mu.Lock()
	r.pool = make(map[string]*poolEntry)
	r.order = nil
	r.mu.Unlock()

	r.logger.Info("Router shut down", nil)
	return nil
}

func (r *Router) maxFailures() int {
	if r.cfg.MaxFailures < 1 {
		return 3
	}
	return r.cfg.MaxFailures
}
