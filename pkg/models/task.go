// Package models defines the shared data types exchanged between the
// Todoist client, the AI generation layer, and the scheduler.
package models

import "time"

// Priority is a Todoist task priority. Todoist uses 1 (normal) through
// 4 (urgent); the REST API rejects anything outside that range.
type Priority int

const (
	// PriorityNormal is the default priority for new tasks.
	PriorityNormal Priority = 1
	// PriorityMedium marks a task as somewhat important.
	PriorityMedium Priority = 2
	// PriorityHigh marks a task as important.
	PriorityHigh Priority = 3
	// PriorityUrgent is the highest priority.
	PriorityUrgent Priority = 4
)

// Valid returns true if the priority is in the accepted 1-4 range.
func (p Priority) Valid() bool {
	return p >= PriorityNormal && p <= PriorityUrgent
}

// Due describes when a task is due. Todoist returns either a plain date,
// a full datetime, or a human-readable string; any subset may be present.
type Due struct {
	// Date is the due date in YYYY-MM-DD form.
	Date string `json:"date,omitempty"`
	// Datetime is the due instant in RFC 3339 form, if the task has a time.
	Datetime string `json:"datetime,omitempty"`
	// String is the human-readable due phrase ("every friday").
	String string `json:"string,omitempty"`
	// Timezone is the IANA zone name the datetime is anchored to.
	Timezone string `json:"timezone,omitempty"`
}

// Task is a Todoist task as returned by the REST API.
type Task struct {
	// ID is the Todoist task identifier.
	ID string `json:"id"`
	// ProjectID is the identifier of the project containing this task.
	ProjectID string `json:"project_id"`
	// ParentID is the identifier of the parent task, if this is a subtask.
	ParentID string `json:"parent_id,omitempty"`
	// Content is the task title.
	Content string `json:"content"`
	// Description is the optional long-form description.
	Description string `json:"description,omitempty"`
	// Priority is the Todoist priority (1-4, 4 highest).
	Priority Priority `json:"priority"`
	// Due is the due date, if any.
	Due *Due `json:"due,omitempty"`
	// Labels lists the label names attached to the task.
	Labels []string `json:"labels,omitempty"`
	// Order is the task's position within its project.
	Order int `json:"order,omitempty"`
	// IsCompleted reports whether the task has been checked off.
	IsCompleted bool `json:"is_completed"`
	// CommentCount is the number of comments on the task.
	CommentCount int `json:"comment_count,omitempty"`
	// URL is the permalink to the task in the Todoist web app.
	URL string `json:"url,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at,omitempty"`
	// CreatorID is the identifier of the user who created the task.
	CreatorID string `json:"creator_id,omitempty"`
}

// DueDate returns the plain YYYY-MM-DD due date, or "" if the task has none.
func (t *Task) DueDate() string {
	if t.Due == nil {
		return ""
	}
	if len(t.Due.Date) >= 10 {
		return t.Due.Date[:10]
	}
	return t.Due.Date
}

// Project is a Todoist project.
type Project struct {
	// ID is the project identifier.
	ID string `json:"id"`
	// Name is the project name.
	Name string `json:"name"`
	// Color is the Todoist color key for the project.
	Color string `json:"color,omitempty"`
	// IsInboxProject reports whether this is the user's inbox.
	IsInboxProject bool `json:"is_inbox_project,omitempty"`
	// IsFavorite reports whether the project is marked as a favorite.
	IsFavorite bool `json:"is_favorite,omitempty"`
	// IsShared reports whether the project is shared with other users.
	IsShared bool `json:"is_shared,omitempty"`
	// Order is the project's position in the project list.
	Order int `json:"order,omitempty"`
	// URL is the permalink to the project.
	URL string `json:"url,omitempty"`
}

// Label is a Todoist label.
type Label struct {
	// ID is the label identifier.
	ID string `json:"id"`
	// Name is the label name.
	Name string `json:"name"`
	// Color is the Todoist color key for the label.
	Color string `json:"color,omitempty"`
	// Order is the label's position in the label list.
	Order int `json:"order,omitempty"`
	// IsFavorite reports whether the label is marked as a favorite.
	IsFavorite bool `json:"is_favorite,omitempty"`
}

// CreateTaskRequest is the payload for creating a task.
type CreateTaskRequest struct {
	// Content is the task title. Required.
	Content string `json:"content"`
	// Description is the optional long-form description.
	Description string `json:"description,omitempty"`
	// ProjectID places the task in a specific project.
	ProjectID string `json:"project_id,omitempty"`
	// ParentID makes the task a subtask of another task.
	ParentID string `json:"parent_id,omitempty"`
	// DueDate is the due date in YYYY-MM-DD form.
	DueDate string `json:"due_date,omitempty"`
	// DueDatetime is the due instant in RFC 3339 form.
	DueDatetime string `json:"due_datetime,omitempty"`
	// Priority is the Todoist priority (1-4).
	Priority Priority `json:"priority,omitempty"`
	// Labels lists label names to attach.
	Labels []string `json:"labels,omitempty"`
}

// UpdateTaskRequest is the payload for updating a task.
type UpdateTaskRequest struct {
	// Content replaces the task title when non-empty.
	Content string `json:"content,omitempty"`
	// Description replaces the description when non-empty.
	Description string `json:"description,omitempty"`
	// DueDate replaces the due date when non-empty.
	DueDate string `json:"due_date,omitempty"`
	// Priority replaces the priority when non-zero.
	Priority Priority `json:"priority,omitempty"`
	// Labels replaces the label set when non-nil.
	Labels []string `json:"labels,omitempty"`
}
