// Package types defines the task list domain model shared by all
// storage backends and the federation layer.
package types

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a single task
type TaskStatus string

const (
	// StatusPending means the task has not been started
	StatusPending TaskStatus = "pending"
	// StatusInProgress means the task is being worked on
	StatusInProgress TaskStatus = "in_progress"
	// StatusCompleted means the task is done
	StatusCompleted TaskStatus = "completed"
	// StatusCancelled means the task was abandoned
	StatusCancelled TaskStatus = "cancelled"
)

// TaskPriority ranks tasks within a list
type TaskPriority string

const (
	// PriorityLow is the lowest priority
	PriorityLow TaskPriority = "low"
	// PriorityMedium is the default priority
	PriorityMedium TaskPriority = "medium"
	// PriorityHigh marks important tasks
	PriorityHigh TaskPriority = "high"
	// PriorityUrgent marks tasks that block everything else
	PriorityUrgent TaskPriority = "urgent"
)

var priorityRank = map[TaskPriority]int{
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

// Rank returns the numeric rank of a priority (higher = more urgent).
// Unknown priorities rank below low.
func (p TaskPriority) Rank() int {
	return priorityRank[p]
}

// Task is a single unit of work inside a TaskList
type Task struct {
	// ID uniquely identifies the task within its list
	ID string `json:"id" yaml:"id"`

	// Title is the short human-readable name
	Title string `json:"title" yaml:"title"`

	// Description holds free-form detail
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Status is the lifecycle state
	Status TaskStatus `json:"status" yaml:"status"`

	// Priority ranks the task
	Priority TaskPriority `json:"priority" yaml:"priority"`

	// Tags are free-form labels
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// DueDate is the optional deadline
	DueDate *time.Time `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`

	// CreatedAt is when the task was created
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`

	// UpdatedAt is when the task was last modified
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`

	// CompletedAt is when the task reached StatusCompleted
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
}

// HasTag reports whether the task carries the given tag
func (t *Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// TaskList is the logical entity the federation stores and serves.
// The same list id may have divergent physical copies on different sources.
type TaskList struct {
	// ID is the stable logical identity of the list
	ID string `json:"id" yaml:"id"`

	// Title is the short human-readable name
	Title string `json:"title" yaml:"title"`

	// Description holds free-form detail
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// ProjectTag associates the list with a project
	ProjectTag string `json:"projectTag,omitempty" yaml:"projectTag,omitempty"`

	// Tasks are the child records
	Tasks []Task `json:"tasks" yaml:"tasks"`

	// CreatedAt is when the list was created
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`

	// UpdatedAt is when the list or any of its tasks was last modified
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`

	// CompletedAt is when every task reached a terminal state
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
}

// NewTaskList creates an empty list with a fresh id and timestamps
func NewTaskList(title string) *TaskList {
	now := time.Now().UTC()
	return &TaskList{
		ID:        uuid.NewString(),
		Title:     title,
		Tasks:     []Task{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTask creates a pending medium-priority task with a fresh id
func NewTask(title string) Task {
	now := time.Now().UTC()
	return Task{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    StatusPending,
		Priority:  PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Progress returns the percentage of completed tasks, 0-100.
// An empty list counts as 0% complete.
func (l *TaskList) Progress() int {
	if len(l.Tasks) == 0 {
		return 0
	}
	completed := 0
	for i := range l.Tasks {
		if l.Tasks[i].Status == StatusCompleted {
			completed++
		}
	}
	return completed * 100 / len(l.Tasks)
}

// IsCompleted reports whether the list's derived status is completed
// (every task done, non-empty list).
func (l *TaskList) IsCompleted() bool {
	return l.Progress() == 100
}

// MaxTaskPriority returns the highest priority rank across child tasks.
// Returns 0 for a list with no tasks.
func (l *TaskList) MaxTaskPriority() int {
	max := 0
	for i := range l.Tasks {
		if r := l.Tasks[i].Priority.Rank(); r > max {
			max = r
		}
	}
	return max
}

// Clone returns a deep copy of the list. Backends return clones so callers
// can never alias store-owned memory.
func (l *TaskList) Clone() *TaskList {
	if l == nil {
		return nil
	}
	out := *l
	out.Tasks = make([]Task, len(l.Tasks))
	copy(out.Tasks, l.Tasks)
	for i := range out.Tasks {
		if l.Tasks[i].Tags != nil {
			out.Tasks[i].Tags = append([]string(nil), l.Tasks[i].Tags...)
		}
		if l.Tasks[i].DueDate != nil {
			due := *l.Tasks[i].DueDate
			out.Tasks[i].DueDate = &due
		}
		if l.Tasks[i].CompletedAt != nil {
			done := *l.Tasks[i].CompletedAt
			out.Tasks[i].CompletedAt = &done
		}
	}
	if l.CompletedAt != nil {
		done := *l.CompletedAt
		out.CompletedAt = &done
	}
	return &out
}

// ListSummary is the light-weight record served by Backend.List.
// It carries less fidelity than the full list.
type ListSummary struct {
	// ID is the logical identity of the summarized list
	ID string `json:"id" yaml:"id"`

	// Title is the list title
	Title string `json:"title" yaml:"title"`

	// ProjectTag associates the list with a project
	ProjectTag string `json:"projectTag,omitempty" yaml:"projectTag,omitempty"`

	// TaskCount is the number of child tasks
	TaskCount int `json:"taskCount" yaml:"taskCount"`

	// CompletedCount is the number of completed child tasks
	CompletedCount int `json:"completedCount" yaml:"completedCount"`

	// Progress is the derived completion percentage
	Progress int `json:"progress" yaml:"progress"`

	// UpdatedAt is when the list was last modified
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Summary derives the light-weight record from a full list
func (l *TaskList) Summary() ListSummary {
	completed := 0
	for i := range l.Tasks {
		if l.Tasks[i].Status == StatusCompleted {
			completed++
		}
	}
	return ListSummary{
		ID:             l.ID,
		Title:          l.Title,
		ProjectTag:     l.ProjectTag,
		TaskCount:      len(l.Tasks),
		CompletedCount: completed,
		Progress:       l.Progress(),
		UpdatedAt:      l.UpdatedAt,
	}
}
