// Package aggregator fans multi-entity queries out across federation
// sources, reconciles divergent copies of the same logical record, and
// produces a single filtered, sorted, paginated result.
package aggregator

import (
	"context"
	"sync"
	"time"

	"taskfed/internal/backends"
	"taskfed/internal/errors"
	"taskfed/internal/logging"
	"taskfed/internal/types"
)

// Source is a live handle to one federation source for the duration of an
// aggregate call. It never aliases the router's pool bookkeeping.
type Source struct {
	// ID is the source identifier
	ID string

	// Name is the display name
	Name string

	// Priority ranks the source for conflict resolution
	Priority int

	// Backend is the live storage handle
	Backend backends.Backend
}

// Config controls aggregation behavior
type Config struct {
	// Parallel fans per-source fetches out concurrently
	Parallel bool

	// Strategy resolves divergent copies of one logical record
	Strategy Strategy

	// FetchTimeout bounds each per-source fetch
	FetchTimeout time.Duration
}

// Aggregator executes cross-source queries. It is stateless between calls:
// correctness is defined entirely by the sources and query at call time.
type Aggregator struct {
	parallel     bool
	strategy     Strategy
	fetchTimeout time.Duration
	logger       *logging.Logger
}

// New creates an aggregator with the given configuration
func New(cfg Config, logger *logging.Logger) *Aggregator {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Aggregator{
		parallel:     cfg.Parallel,
		strategy:     cfg.Strategy,
		fetchTimeout: timeout,
		logger:       logger.Named("aggregator"),
	}
}

type sourcedList = sourced[*types.TaskList]

// AggregateLists queries every source for its full lists, resolves
// divergent copies of each logical id via the configured strategy, and
// applies filter, sort, and pagination. Source failures are isolated: a
// failing source contributes zero records and the call itself succeeds.
// The only input error is an empty source set.
func (a *Aggregator) AggregateLists(ctx context.Context, sources []Source, q Query) (*SearchResult[*types.TaskList], error) {
	if len(sources) == 0 {
		return nil, errors.Newf(errors.NoAvailableSource, "no sources supplied to aggregate query")
	}

	fetched := fetchAll(ctx, a, sources, func(ctx context.Context, src Source) ([]*types.TaskList, error) {
		return a.fetchLists(ctx, src, q)
	})

	resolved := a.resolveLists(fetched)
	filtered := filterLists(resolved, q)
	sortLists(filtered, q)
	return paginate(filtered, q), nil
}

// AggregateSummaries is the light-weight variant: one List call per source.
// Summaries carry less fidelity than full records, so divergent copies are
// always resolved by source priority regardless of the configured strategy.
// That is a deliberate simplification, not an oversight.
func (a *Aggregator) AggregateSummaries(ctx context.Context, sources []Source, q Query) (*SearchResult[types.ListSummary], error) {
	if len(sources) == 0 {
		return nil, errors.Newf(errors.NoAvailableSource, "no sources supplied to aggregate query")
	}

	fetched := fetchAll(ctx, a, sources, func(ctx context.Context, src Source) ([]types.ListSummary, error) {
		return src.Backend.List(ctx, backends.ListOptions{ProjectTag: q.ProjectTag})
	})

	resolved := resolveSummaries(fetched)
	filtered := filterSummaries(resolved, q)
	sortSummaries(filtered, q)
	return paginate(filtered, q), nil
}

// fetchLists pulls a source's summaries and loads each full list by id.
// Per-item load failures are skipped and logged, never fatal to the source.
func (a *Aggregator) fetchLists(ctx context.Context, src Source, q Query) ([]*types.TaskList, error) {
	summaries, err := src.Backend.List(ctx, backends.ListOptions{ProjectTag: q.ProjectTag})
	if err != nil {
		return nil, err
	}

	lists := make([]*types.TaskList, 0, len(summaries))
	for _, summary := range summaries {
		list, err := src.Backend.Load(ctx, summary.ID)
		if err != nil {
			a.logger.Warn("Skipping unloadable list", map[string]interface{}{
				"source": src.ID,
				"id":     summary.ID,
				"error":  err.Error(),
			})
			continue
		}
		if list != nil {
			lists = append(lists, list)
		}
	}
	return lists, nil
}

// fetchAll runs the per-source fetch for every source, each under its own
// timeout, concurrently when parallel queries are enabled. Failures are
// isolated: a failing source contributes nothing. Results preserve the
// caller's source order so later encounter-order tie breaks are stable.
func fetchAll[T any](ctx context.Context, a *Aggregator, sources []Source, fetch func(context.Context, Source) ([]T, error)) []sourced[T] {
	perSource := make([][]sourced[T], len(sources))

	fetchOne := func(idx int, src Source) {
		fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
		defer cancel()

		items, err := fetch(fetchCtx, src)
		if err != nil {
			a.logger.Warn("Source fetch failed, contributing zero records", map[string]interface{}{
				"source": src.ID,
				"error":  err.Error(),
			})
			return
		}
		now := time.Now().UnixNano()
		wrapped := make([]sourced[T], 0, len(items))
		for _, item := range items {
			wrapped = append(wrapped, sourced[T]{
				item:      item,
				sourceID:  src.ID,
				priority:  src.Priority,
				fetchedAt: now,
			})
		}
		perSource[idx] = wrapped
	}

	if a.parallel {
		var wg sync.WaitGroup
		for i, src := range sources {
			wg.Add(1)
			go func(idx int, s Source) {
				defer wg.Done()
				fetchOne(idx, s)
			}(i, src)
		}
		wg.Wait()
	} else {
		for i, src := range sources {
			fetchOne(i, src)
		}
	}

	var all []sourced[T]
	for _, batch := range perSource {
		all = append(all, batch...)
	}
	return all
}

// resolveLists partitions fetched records by logical id and reduces each
// group to exactly one member. Singleton groups pass through unchanged.
// Metadata is stripped here: the output is plain domain records.
func (a *Aggregator) resolveLists(fetched []sourcedList) []*types.TaskList {
	groups := make(map[string][]sourcedList)
	order := make([]string, 0, len(fetched))
	for _, record := range fetched {
		id := record.item.ID
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], record)
	}

	resolved := make([]*types.TaskList, 0, len(order))
	for _, id := range order {
		group := groups[id]
		if len(group) == 1 {
			resolved = append(resolved, group[0].item)
			continue
		}
		winner := a.resolveGroup(group)
		a.logger.Debug("Resolved divergent copies", map[string]interface{}{
			"id":       id,
			"copies":   len(group),
			"strategy": a.strategy.String(),
			"winner":   winner.sourceID,
		})
		resolved = append(resolved, winner.item)
	}
	return resolved
}

// resolveSummaries reduces summary groups by source priority only
func resolveSummaries(fetched []sourced[types.ListSummary]) []types.ListSummary {
	groups := make(map[string][]sourced[types.ListSummary])
	order := make([]string, 0, len(fetched))
	for _, record := range fetched {
		id := record.item.ID
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], record)
	}

	resolved := make([]types.ListSummary, 0, len(order))
	for _, id := range order {
		resolved = append(resolved, resolveByPriority(groups[id]).item)
	}
	return resolved
}
