package aggregator

import (
	"testing"
	"time"

	"taskfed/internal/types"
)

func taskWith(status types.TaskStatus, priority types.TaskPriority, tags ...string) types.Task {
	return types.Task{
		ID:       "t-" + string(status) + "-" + string(priority),
		Title:    "task",
		Status:   status,
		Priority: priority,
		Tags:     tags,
	}
}

func sampleLists() []*types.TaskList {
	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []*types.TaskList{
		{
			ID: "l1", Title: "Groceries", Description: "weekly shopping",
			ProjectTag: "home",
			Tasks: []types.Task{
				taskWith(types.StatusCompleted, types.PriorityLow),
				taskWith(types.StatusPending, types.PriorityHigh, "urgent-ish"),
			},
			CreatedAt: t1, UpdatedAt: t1.Add(2 * time.Hour),
		},
		{
			ID: "l2", Title: "Release checklist", Description: "ship the release",
			ProjectTag: "work",
			Tasks: []types.Task{
				taskWith(types.StatusCompleted, types.PriorityUrgent),
			},
			CreatedAt: t1.Add(time.Hour), UpdatedAt: t1.Add(3 * time.Hour),
		},
		{
			ID: "l3", Title: "Reading list",
			ProjectTag: "home",
			Tasks:      []types.Task{},
			CreatedAt:  t1.Add(2 * time.Hour), UpdatedAt: t1.Add(time.Hour),
		},
	}
}

func idsOf(lists []*types.TaskList) []string {
	ids := make([]string, 0, len(lists))
	for _, l := range lists {
		ids = append(ids, l.ID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterListsText(t *testing.T) {
	got := filterLists(sampleLists(), Query{Text: "SHOPPING"})
	if !equalIDs(idsOf(got), []string{"l1"}) {
		t.Errorf("text filter should match descriptions case-insensitively, got %v", idsOf(got))
	}

	got = filterLists(sampleLists(), Query{Text: "list"})
	if !equalIDs(idsOf(got), []string{"l2", "l3"}) {
		t.Errorf("text filter over titles, got %v", idsOf(got))
	}
}

func TestFilterListsProjectTag(t *testing.T) {
	got := filterLists(sampleLists(), Query{ProjectTag: "home"})
	if !equalIDs(idsOf(got), []string{"l1", "l3"}) {
		t.Errorf("project filter, got %v", idsOf(got))
	}
}

func TestFilterListsDerivedStatus(t *testing.T) {
	got := filterLists(sampleLists(), Query{Status: StatusCompleted})
	if !equalIDs(idsOf(got), []string{"l2"}) {
		t.Errorf("completed filter, got %v", idsOf(got))
	}

	// an empty list is 0% complete, so it counts as active
	got = filterLists(sampleLists(), Query{Status: StatusActive})
	if !equalIDs(idsOf(got), []string{"l1", "l3"}) {
		t.Errorf("active filter, got %v", idsOf(got))
	}
}

func TestFilterListsTaskFilter(t *testing.T) {
	got := filterLists(sampleLists(), Query{TaskFilter: &TaskFilter{Priority: types.PriorityHigh}})
	if !equalIDs(idsOf(got), []string{"l1"}) {
		t.Errorf("task priority filter, got %v", idsOf(got))
	}

	got = filterLists(sampleLists(), Query{TaskFilter: &TaskFilter{
		Status: types.StatusCompleted, Priority: types.PriorityUrgent,
	}})
	if !equalIDs(idsOf(got), []string{"l2"}) {
		t.Errorf("combined task filter must match a single task, got %v", idsOf(got))
	}

	got = filterLists(sampleLists(), Query{TaskFilter: &TaskFilter{Tags: []string{"urgent-ish"}}})
	if !equalIDs(idsOf(got), []string{"l1"}) {
		t.Errorf("task tag filter, got %v", idsOf(got))
	}
}

func TestTaskFilterDueWindow(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	task := taskWith(types.StatusPending, types.PriorityMedium)
	task.DueDate = &due

	before := due.Add(time.Hour)
	f := &TaskFilter{DueBefore: &before}
	if !f.matches(&task) {
		t.Error("task due before the cutoff should match")
	}

	after := due.Add(time.Hour)
	f = &TaskFilter{DueAfter: &after}
	if f.matches(&task) {
		t.Error("task due before DueAfter should not match")
	}

	// tasks without a due date never match a due window
	undated := taskWith(types.StatusPending, types.PriorityMedium)
	f = &TaskFilter{DueBefore: &before}
	if f.matches(&undated) {
		t.Error("undated task should not match a due window")
	}
}

func TestSortListsFields(t *testing.T) {
	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"title ascending", Query{SortBy: SortTitle}, []string{"l1", "l3", "l2"}},
		{"title descending", Query{SortBy: SortTitle, Descending: true}, []string{"l2", "l3", "l1"}},
		{"created", Query{SortBy: SortCreated}, []string{"l1", "l2", "l3"}},
		{"updated", Query{SortBy: SortUpdated}, []string{"l3", "l1", "l2"}},
		{"priority", Query{SortBy: SortPriority}, []string{"l3", "l1", "l2"}},
		{"status", Query{SortBy: SortStatus}, []string{"l3", "l1", "l2"}},
		{"unknown field keeps order", Query{SortBy: "bogus"}, []string{"l1", "l2", "l3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lists := sampleLists()
			sortLists(lists, tc.q)
			if !equalIDs(idsOf(lists), tc.want) {
				t.Errorf("got %v, want %v", idsOf(lists), tc.want)
			}
		})
	}
}

func TestSortListsStatusIsStable(t *testing.T) {
	// l1 (50%) and l3 (0%)... l3 sorts first; l1 and a second 50% list
	// keep their relative order
	lists := sampleLists()
	clone := *lists[0]
	clone.ID = "l4"
	lists = append(lists, &clone)

	sortLists(lists, Query{SortBy: SortStatus})
	ids := idsOf(lists)
	if ids[len(ids)-1] != "l2" {
		t.Errorf("completed list should sort last by status, got %v", ids)
	}
	for i, id := range ids {
		if id == "l4" {
			if i == 0 || ids[i-1] != "l1" {
				t.Errorf("stable sort should keep l1 before l4, got %v", ids)
			}
		}
	}
}

func TestSortListsCompletedAtNilsFirst(t *testing.T) {
	done := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	lists := sampleLists()
	lists[1].CompletedAt = &done

	sortLists(lists, Query{SortBy: SortCompleted})
	if idsOf(lists)[2] != "l2" {
		t.Errorf("lists without a completion time sort first, got %v", idsOf(lists))
	}
}

func TestFilterAndSortSummaries(t *testing.T) {
	summaries := []types.ListSummary{
		{ID: "s1", Title: "Groceries", ProjectTag: "home", Progress: 50, UpdatedAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)},
		{ID: "s2", Title: "Release checklist", ProjectTag: "work", Progress: 100, UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{ID: "s3", Title: "Reading list", ProjectTag: "home", Progress: 0, UpdatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
	}

	got := filterSummaries(summaries, Query{ProjectTag: "home", Status: StatusActive})
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}

	sortSummaries(got, Query{SortBy: SortUpdated, Descending: true})
	if got[0].ID != "s1" || got[1].ID != "s3" {
		t.Errorf("descending update order, got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestPaginateOffsetClamp(t *testing.T) {
	items := []int{1, 2, 3}

	result := paginate(items, Query{Offset: -5, Limit: 2})
	if len(result.Items) != 2 || result.Items[0] != 1 {
		t.Errorf("negative offset should clamp to 0, got %v", result.Items)
	}
	if !result.HasMore {
		t.Error("expected more items past the first page")
	}

	result = paginate(items, Query{Offset: 99})
	if len(result.Items) != 0 || result.TotalCount != 3 || result.HasMore {
		t.Errorf("offset past end yields an empty page, got %+v", result)
	}
}
