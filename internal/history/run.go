package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the status of a generation run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run represents one subtask generation run for a parent task.
type Run struct {
	ID           string     `json:"id"`
	TaskID       string     `json:"task_id"`
	TaskContent  string     `json:"task_content"`
	Model        string     `json:"model"`
	Status       RunStatus  `json:"status"`
	SubtaskCount int        `json:"subtask_count"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Subtask represents a subtask created by a run.
type Subtask struct {
	RunID     string    `json:"run_id"`
	TodoistID string    `json:"todoist_id,omitempty"`
	Content   string    `json:"content"`
	DueDate   string    `json:"due_date,omitempty"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// StartRun records a new run and returns its generated ID.
func (db *DB) StartRun(taskID, taskContent, model string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO runs (id, task_id, task_content, model, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, taskID, taskContent, model, string(RunRunning), formatTime(time.Now()))
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run as completed or failed.
// The error message is stored only for failed runs.
func (db *DB) FinishRun(id string, status RunStatus, subtaskCount int, runErr error) error {
	var errMsg sql.NullString
	if runErr != nil {
		errMsg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	_, err := db.Exec(`
		UPDATE runs SET status = ?, subtask_count = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, string(status), subtaskCount, errMsg, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// AddSubtask records a subtask created during a run.
func (db *DB) AddSubtask(s *Subtask) error {
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO subtasks (run_id, todoist_id, content, due_date, priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.RunID, s.TodoistID, s.Content, s.DueDate, s.Priority, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("add subtask: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil if no run exists.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, task_id, task_content, model, status, subtask_count, error, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	r, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, task_id, task_content, model, status, subtask_count, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunsForTask returns all runs recorded for a parent task, newest first.
func (db *DB) RunsForTask(taskID string) ([]*Run, error) {
	rows, err := db.Query(`
		SELECT id, task_id, task_content, model, status, subtask_count, error, started_at, finished_at
		FROM runs WHERE task_id = ? ORDER BY started_at DESC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("runs for task: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunSubtasks returns the subtasks recorded for a run, in insertion order.
func (db *DB) RunSubtasks(runID string) ([]*Subtask, error) {
	rows, err := db.Query(`
		SELECT run_id, todoist_id, content, due_date, priority, created_at
		FROM subtasks WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []*Subtask
	for rows.Next() {
		var s Subtask
		var todoistID, dueDate sql.NullString
		var createdAt string
		if err := rows.Scan(&s.RunID, &todoistID, &s.Content, &dueDate, &s.Priority, &createdAt); err != nil {
			return nil, fmt.Errorf("scan subtask: %w", err)
		}
		s.TodoistID = todoistID.String
		s.DueDate = dueDate.String
		s.CreatedAt, _ = parseTime(createdAt)
		subtasks = append(subtasks, &s)
	}
	return subtasks, rows.Err()
}

func scanRun(scan func(...any) error) (*Run, error) {
	var r Run
	var errMsg sql.NullString
	var startedAt string
	var finishedAt sql.NullString
	err := scan(&r.ID, &r.TaskID, &r.TaskContent, &r.Model, &r.Status,
		&r.SubtaskCount, &errMsg, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	r.Error = errMsg.String
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}
