package aggregator

import (
	"sort"
	"strings"
	"time"

	"taskfed/internal/types"
)

// SortField names a sortable attribute of the aggregated collection
type SortField string

const (
	// SortTitle sorts lexicographically by title
	SortTitle SortField = "title"
	// SortCreated sorts by creation time
	SortCreated SortField = "createdAt"
	// SortUpdated sorts by last-modified time
	SortUpdated SortField = "updatedAt"
	// SortCompleted sorts by completion time (incomplete lists sort first)
	SortCompleted SortField = "completedAt"
	// SortPriority sorts by the highest task priority within each list
	SortPriority SortField = "priority"
	// SortStatus sorts by progress, a proxy for derived status
	SortStatus SortField = "status"
)

// Status filter values for the derived list status
const (
	// StatusActive matches lists with progress below 100%
	StatusActive = "active"
	// StatusCompleted matches lists at 100% progress
	StatusCompleted = "completed"
)

// TaskFilter matches child tasks. All specified criteria must hold for a
// single task; a parent list passes if any of its tasks match.
type TaskFilter struct {
	// Status, when set, requires the task status to equal it
	Status types.TaskStatus

	// Priority, when set, requires the task priority to equal it
	Priority types.TaskPriority

	// Tags, when set, requires the task to carry every listed tag
	Tags []string

	// DueBefore, when set, requires a due date strictly before it
	DueBefore *time.Time

	// DueAfter, when set, requires a due date strictly after it
	DueAfter *time.Time
}

// matches reports whether one task satisfies every specified criterion
func (f *TaskFilter) matches(t *types.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	for _, tag := range f.Tags {
		if !t.HasTag(tag) {
			return false
		}
	}
	if f.DueBefore != nil && (t.DueDate == nil || !t.DueDate.Before(*f.DueBefore)) {
		return false
	}
	if f.DueAfter != nil && (t.DueDate == nil || !t.DueDate.After(*f.DueAfter)) {
		return false
	}
	return true
}

// Query describes one aggregate call
type Query struct {
	// Text is a case-insensitive substring match over title and description
	Text string

	// ProjectTag filters lists by exact project tag
	ProjectTag string

	// Status filters by derived list status: "active" or "completed"
	Status string

	// TaskFilter, when set, keeps lists with at least one matching task
	TaskFilter *TaskFilter

	// SortBy orders the filtered collection; unrecognized fields leave
	// the encounter order untouched
	SortBy SortField

	// Descending reverses the sort order
	Descending bool

	// Offset is the index of the first returned item
	Offset int

	// Limit caps the page size; zero or negative means no cap
	Limit int
}

// SearchResult is one page of an aggregated collection
type SearchResult[T any] struct {
	// Items is the page of resolved logical entities
	Items []T `json:"items"`

	// TotalCount is the filtered, pre-pagination size
	TotalCount int `json:"totalCount"`

	// HasMore reports whether items remain past this page
	HasMore bool `json:"hasMore"`

	// Offset echoes the pagination window used
	Offset int `json:"offset"`

	// Limit echoes the pagination window used
	Limit int `json:"limit"`
}

// filterLists applies, in order, text match, project tag, derived status,
// and the per-task filter.
func filterLists(lists []*types.TaskList, q Query) []*types.TaskList {
	out := make([]*types.TaskList, 0, len(lists))
	needle := strings.ToLower(q.Text)

	for _, list := range lists {
		if needle != "" &&
			!strings.Contains(strings.ToLower(list.Title), needle) &&
			!strings.Contains(strings.ToLower(list.Description), needle) {
			continue
		}
		if q.ProjectTag != "" && list.ProjectTag != q.ProjectTag {
			continue
		}
		if q.Status == StatusCompleted && !list.IsCompleted() {
			continue
		}
		if q.Status == StatusActive && list.IsCompleted() {
			continue
		}
		if q.TaskFilter != nil && !anyTaskMatches(list, q.TaskFilter) {
			continue
		}
		out = append(out, list)
	}
	return out
}

func anyTaskMatches(list *types.TaskList, f *TaskFilter) bool {
	for i := range list.Tasks {
		if f.matches(&list.Tasks[i]) {
			return true
		}
	}
	return false
}

// sortLists orders the collection stably by the requested field.
// Unrecognized fields leave the order untouched.
func sortLists(lists []*types.TaskList, q Query) {
	var less func(a, b *types.TaskList) bool

	switch q.SortBy {
	case SortTitle:
		less = func(a, b *types.TaskList) bool { return a.Title < b.Title }
	case SortCreated:
		less = func(a, b *types.TaskList) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortUpdated:
		less = func(a, b *types.TaskList) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case SortCompleted:
		less = func(a, b *types.TaskList) bool {
			// incomplete lists sort before any completed one
			switch {
			case a.CompletedAt == nil && b.CompletedAt == nil:
				return false
			case a.CompletedAt == nil:
				return true
			case b.CompletedAt == nil:
				return false
			default:
				return a.CompletedAt.Before(*b.CompletedAt)
			}
		}
	case SortPriority:
		less = func(a, b *types.TaskList) bool { return a.MaxTaskPriority() < b.MaxTaskPriority() }
	case SortStatus:
		less = func(a, b *types.TaskList) bool { return a.Progress() < b.Progress() }
	default:
		return
	}

	sort.SliceStable(lists, func(i, j int) bool {
		if q.Descending {
			return less(lists[j], lists[i])
		}
		return less(lists[i], lists[j])
	})
}

// filterSummaries applies the query criteria expressible on summaries:
// text over the title, project tag, and derived status. Per-task filters
// need full records and do not apply here.
func filterSummaries(summaries []types.ListSummary, q Query) []types.ListSummary {
	out := make([]types.ListSummary, 0, len(summaries))
	needle := strings.ToLower(q.Text)

	for _, s := range summaries {
		if needle != "" && !strings.Contains(strings.ToLower(s.Title), needle) {
			continue
		}
		if q.ProjectTag != "" && s.ProjectTag != q.ProjectTag {
			continue
		}
		if q.Status == StatusCompleted && s.Progress != 100 {
			continue
		}
		if q.Status == StatusActive && s.Progress == 100 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// sortSummaries orders summaries by the subset of fields they carry
func sortSummaries(summaries []types.ListSummary, q Query) {
	var less func(a, b *types.ListSummary) bool

	switch q.SortBy {
	case SortTitle:
		less = func(a, b *types.ListSummary) bool { return a.Title < b.Title }
	case SortUpdated:
		less = func(a, b *types.ListSummary) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case SortStatus:
		less = func(a, b *types.ListSummary) bool { return a.Progress < b.Progress }
	default:
		return
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if q.Descending {
			return less(&summaries[j], &summaries[i])
		}
		return less(&summaries[i], &summaries[j])
	})
}

// paginate slices [offset, offset+limit) over the filtered, sorted
// collection. TotalCount reflects the pre-pagination size.
func paginate[T any](items []T, q Query) *SearchResult[T] {
	total := len(items)

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}

	end := total
	if q.Limit > 0 && offset+q.Limit < total {
		end = offset + q.Limit
	}

	page := items[offset:end]
	return &SearchResult[T]{
		Items:      page,
		TotalCount: total,
		HasMore:    offset+len(page) < total,
		Offset:     q.Offset,
		Limit:      q.Limit,
	}
}
