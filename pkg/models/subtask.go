package models

// GenerationRequest describes one request to break a task into subtasks.
type GenerationRequest struct {
	// TaskContent is the parent task title.
	TaskContent string `json:"task_content"`
	// TaskDescription is the parent task description, if any.
	TaskDescription string `json:"task_description,omitempty"`
	// DueDate is the parent task due date in YYYY-MM-DD form, if any.
	DueDate string `json:"due_date,omitempty"`
	// MaxSubtasks caps how many subtasks the model should return.
	MaxSubtasks int `json:"max_subtasks,omitempty"`
	// AdditionalContext is free-form text the user supplied alongside the
	// task, scanned for duration hints ("15 gün", "2 hafta").
	AdditionalContext string `json:"additional_context,omitempty"`
}

// Subtask is one subtask proposed by the model.
type Subtask struct {
	// Content is the subtask text. Required.
	Content string `json:"content"`
	// Due is an optional due date in YYYY-MM-DD form.
	Due string `json:"due,omitempty"`
	// Priority is an optional Todoist priority (1-4).
	Priority Priority `json:"priority,omitempty"`
}

// GenerationResponse is the validated result of one model call.
type GenerationResponse struct {
	// Subtasks lists the proposed subtasks in execution order.
	Subtasks []Subtask `json:"subtasks"`
	// EstimatedDuration is the model's free-text total duration estimate
	// ("2 saat", "1 gün").
	EstimatedDuration string `json:"estimatedDuration"`
}

// CreatedSubtask records the outcome of creating one subtask in Todoist.
type CreatedSubtask struct {
	// Content is the subtask text.
	Content string `json:"content"`
	// Due is the due date the subtask was created with, if any.
	Due string `json:"due,omitempty"`
	// Priority is the priority the subtask was created with, if any.
	Priority Priority `json:"priority,omitempty"`
	// TodoistID is the identifier Todoist assigned, empty if creation failed.
	TodoistID string `json:"todoist_id,omitempty"`
	// Error holds the creation failure for this item, empty on success.
	Error string `json:"error,omitempty"`
}

// CreationResult summarizes one full generation-and-creation run.
type CreationResult struct {
	// TaskID is the parent task the subtasks were attached to.
	TaskID string `json:"task_id"`
	// SubtasksCreated is the number of subtasks successfully created.
	SubtasksCreated int `json:"subtasks_created"`
	// Subtasks lists the per-item outcomes in order.
	Subtasks []CreatedSubtask `json:"subtasks"`
	// Errors collects the per-item failure messages.
	Errors []string `json:"errors,omitempty"`
	// EstimatedDuration is the model's total duration estimate.
	EstimatedDuration string `json:"estimated_duration"`
}
