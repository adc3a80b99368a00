package aggregator

// Strategy selects the canonical physical copy when a logical entity has
// divergent versions across sources. It is a closed set: unrecognized
// configuration values parse to StrategyPriority.
type Strategy int

const (
	// StrategyPriority picks the copy from the highest-priority source
	StrategyPriority Strategy = iota

	// StrategyLatest picks the copy with the newest updatedAt timestamp
	StrategyLatest

	// StrategyManual is a named alias: manual resolution is not
	// independently implemented and delegates to StrategyPriority
	StrategyManual

	// StrategyMerge is a named alias: field-level merge is not
	// independently implemented and delegates to StrategyLatest
	StrategyMerge
)

// String returns the configuration name of the strategy
func (s Strategy) String() string {
	switch s {
	case StrategyLatest:
		return "latest"
	case StrategyManual:
		return "manual"
	case StrategyMerge:
		return "merge"
	default:
		return "priority"
	}
}

// ParseStrategy maps a configuration value to a Strategy.
// The second return is false for unrecognized values, which map to
// StrategyPriority; callers should log a warning in that case.
func ParseStrategy(name string) (Strategy, bool) {
	switch name {
	case "priority", "":
		return StrategyPriority, true
	case "latest":
		return StrategyLatest, true
	case "manual":
		return StrategyManual, true
	case "merge":
		return StrategyMerge, true
	default:
		return StrategyPriority, false
	}
}

// sourced carries a fetched record plus the transient source metadata used
// only during deduplication and conflict resolution. The metadata is
// stripped before results reach the caller and is never persisted.
type sourced[T any] struct {
	item      T
	sourceID  string
	priority  int
	fetchedAt int64 // unix nanos at fetch time
}

// resolveByPriority returns the group member from the highest-priority
// source. Ties break by encounter order (the earlier member wins).
func resolveByPriority[T any](group []sourced[T]) sourced[T] {
	best := group[0]
	for _, member := range group[1:] {
		if member.priority > best.priority {
			best = member
		}
	}
	return best
}

// resolveGroup applies the effective strategy to a multi-member group.
// The named aliases log their delegation so operators can see the
// effective strategy in debug output.
func (a *Aggregator) resolveGroup(group []sourcedList) sourcedList {
	switch a.strategy {
	case StrategyLatest:
		return resolveLatest(group)
	case StrategyPriority:
		return resolveByPriority(group)
	case StrategyManual:
		a.logger.Debug("Manual conflict resolution not implemented, using priority", map[string]interface{}{
			"id": group[0].item.ID,
		})
		return resolveByPriority(group)
	case StrategyMerge:
		a.logger.Debug("Merge conflict resolution not implemented, using latest", map[string]interface{}{
			"id": group[0].item.ID,
		})
		return resolveLatest(group)
	default:
		return resolveByPriority(group)
	}
}

// resolveLatest returns the member with the maximum updatedAt timestamp.
// Ties break by encounter order.
func resolveLatest(group []sourcedList) sourcedList {
	best := group[0]
	for _, member := range group[1:] {
		if member.item.UpdatedAt.After(best.item.UpdatedAt) {
			best = member
		}
	}
	return best
}
