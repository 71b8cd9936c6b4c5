package todoist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cenktekin/todoist-subtask-generator/internal/schedule"
	"github.com/cenktekin/todoist-subtask-generator/pkg/models"
)

// TaskSummary is a task enriched for display: project and label names
// resolved, overdue and subtask state precomputed.
type TaskSummary struct {
	ID          string          `json:"id"`
	Content     string          `json:"content"`
	Description string          `json:"description,omitempty"`
	Priority    models.Priority `json:"priority"`
	Due         string          `json:"due,omitempty"`
	Project     string          `json:"project,omitempty"`
	Labels      []string        `json:"labels"`
	HasSubtasks bool            `json:"hasSubtasks"`
	IsCompleted bool            `json:"isCompleted"`
	IsOverdue   bool            `json:"isOverdue"`
}

// Filter narrows TasksWithFilters client-side.
type Filter struct {
	// ProjectID keeps only tasks in one project.
	ProjectID string
	// Label keeps only tasks carrying the label name.
	Label string
	// Priority keeps only tasks with an exact priority.
	Priority models.Priority
	// DueFrom keeps tasks due on or after this YYYY-MM-DD date.
	DueFrom string
	// DueTo keeps tasks due on or before this YYYY-MM-DD date.
	DueTo string
	// Status is "active", "completed" or "all". Empty means all.
	Status string
	// SearchQuery keeps tasks whose content or description contains
	// the query, case-insensitively.
	SearchQuery string
}

// TaskDetails is one task with its full context.
type TaskDetails struct {
	Task     models.Task
	Project  *models.Project
	Labels   []models.Label
	Subtasks []models.Task
}

// Statistics summarizes the task list for the stats command.
type Statistics struct {
	TotalTasks        int                       `json:"totalTasks"`
	CompletedTasks    int                       `json:"completedTasks"`
	OverdueTasks      int                       `json:"overdueTasks"`
	TodayTasks        int                       `json:"todayTasks"`
	HighPriorityTasks int                       `json:"highPriorityTasks"`
	TasksByPriority   map[models.Priority]int   `json:"tasksByPriority"`
	TasksByProject    map[string]int            `json:"tasksByProject"`
}

// Gate admits one outbound API call through the shared rate limiter.
// Read operations pass through it the same as writes; a nil Gate runs
// calls directly.
type Gate interface {
	Execute(ctx context.Context, priority int, op func(context.Context) error) error
}

// readPriority queues read operations below any subtask creation.
const readPriority = 0

// gatedFetch runs fetch under the gate and unwraps its result.
func gatedFetch[T any](ctx context.Context, gate Gate, fetch func(context.Context) (T, error)) (T, error) {
	if gate == nil {
		return fetch(ctx)
	}
	var out T
	err := gate.Execute(ctx, readPriority, func(ctx context.Context) error {
		var err error
		out, err = fetch(ctx)
		return err
	})
	return out, err
}

// TaskService layers filtering, enrichment and candidate selection on
// the raw client. Every call it makes to the Todoist API goes through
// the gate.
type TaskService struct {
	client *Client
	gate   Gate
	log    zerolog.Logger
	now    func() time.Time
}

// NewTaskService builds a TaskService.
func NewTaskService(client *Client, gate Gate, log zerolog.Logger) *TaskService {
	return &TaskService{client: client, gate: gate, log: log, now: time.Now}
}

func (s *TaskService) allTasks(ctx context.Context) ([]models.Task, error) {
	return gatedFetch(ctx, s.gate, func(ctx context.Context) ([]models.Task, error) {
		return s.client.GetTasks(ctx, FilterOptions{})
	})
}

// TasksWithFilters lists tasks matching the filter, enriched and sorted
// by priority then due date.
func (s *TaskService) TasksWithFilters(ctx context.Context, f Filter) ([]TaskSummary, error) {
	tasks, err := s.allTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve tasks: %w", err)
	}

	tasks = applyFilter(tasks, f)

	projects, err := gatedFetch(ctx, s.gate, s.client.GetProjects)
	if err != nil {
		return nil, fmt.Errorf("retrieve projects: %w", err)
	}

	summaries := s.summarize(tasks, allParentIDs(tasks), projects)
	sortSummaries(summaries)
	return summaries, nil
}

func applyFilter(tasks []models.Task, f Filter) []models.Task {
	kept := tasks[:0]
	for _, t := range tasks {
		if f.ProjectID != "" && t.ProjectID != f.ProjectID {
			continue
		}
		if f.Label != "" && !hasLabel(t, f.Label) {
			continue
		}
		if f.Priority != 0 && t.Priority != f.Priority {
			continue
		}
		if f.DueFrom != "" && (t.DueDate() == "" || t.DueDate() < f.DueFrom) {
			continue
		}
		if f.DueTo != "" && (t.DueDate() == "" || t.DueDate() > f.DueTo) {
			continue
		}
		switch f.Status {
		case "active":
			if t.IsCompleted {
				continue
			}
		case "completed":
			if !t.IsCompleted {
				continue
			}
		}
		if f.SearchQuery != "" {
			q := strings.ToLower(f.SearchQuery)
			if !strings.Contains(strings.ToLower(t.Content), q) &&
				!strings.Contains(strings.ToLower(t.Description), q) {
				continue
			}
		}
		kept = append(kept, t)
	}
	return kept
}

func hasLabel(t models.Task, label string) bool {
	for _, l := range t.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// allParentIDs collects the ids of tasks that have at least one child.
func allParentIDs(tasks []models.Task) map[string]bool {
	parents := make(map[string]bool)
	for _, t := range tasks {
		if t.ParentID != "" {
			parents[t.ParentID] = true
		}
	}
	return parents
}

func (s *TaskService) summarize(tasks []models.Task, parents map[string]bool, projects []models.Project) []TaskSummary {
	projectNames := make(map[string]string, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
	}

	today := s.now()
	summaries := make([]TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, TaskSummary{
			ID:          t.ID,
			Content:     t.Content,
			Description: t.Description,
			Priority:    t.Priority,
			Due:         t.DueDate(),
			Project:     projectNames[t.ProjectID],
			Labels:      t.Labels,
			HasSubtasks: parents[t.ID],
			IsCompleted: t.IsCompleted,
			IsOverdue:   isOverdue(t, today),
		})
	}
	return summaries
}

func isOverdue(t models.Task, today time.Time) bool {
	if t.IsCompleted || t.DueDate() == "" {
		return false
	}
	due, err := time.Parse("2006-01-02", t.DueDate())
	if err != nil {
		return false
	}
	return schedule.IsOverdue(due, today)
}

// sortSummaries orders by priority (highest first), then due date
// (earliest first), then completion state, then content.
func sortSummaries(summaries []TaskSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Due != "" && b.Due != "" && a.Due != b.Due {
			return a.Due < b.Due
		}
		if a.IsCompleted != b.IsCompleted {
			return !a.IsCompleted
		}
		return a.Content < b.Content
	})
}

const minCandidateContentLen = 10

// CandidatesForGeneration lists active tasks worth decomposing: no
// existing subtasks, not trivially short, at least medium priority.
func (s *TaskService) CandidatesForGeneration(ctx context.Context) ([]TaskSummary, error) {
	summaries, err := s.TasksWithFilters(ctx, Filter{Status: "active"})
	if err != nil {
		return nil, err
	}

	candidates := summaries[:0]
	for _, t := range summaries {
		if t.HasSubtasks {
			continue
		}
		if len([]rune(t.Content)) < minCandidateContentLen {
			continue
		}
		if t.Priority < models.PriorityMedium {
			continue
		}
		candidates = append(candidates, t)
	}
	return candidates, nil
}

// TaskDetails fetches one task with its project, labels and subtasks.
func (s *TaskService) TaskDetails(ctx context.Context, taskID string) (*TaskDetails, error) {
	task, err := gatedFetch(ctx, s.gate, func(ctx context.Context) (*models.Task, error) {
		return s.client.GetTask(ctx, taskID)
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve task %s: %w", taskID, err)
	}
	projects, err := gatedFetch(ctx, s.gate, s.client.GetProjects)
	if err != nil {
		return nil, fmt.Errorf("retrieve projects: %w", err)
	}
	labels, err := gatedFetch(ctx, s.gate, s.client.GetLabels)
	if err != nil {
		return nil, fmt.Errorf("retrieve labels: %w", err)
	}

	details := &TaskDetails{Task: *task}
	for i := range projects {
		if projects[i].ID == task.ProjectID {
			details.Project = &projects[i]
			break
		}
	}
	for _, l := range labels {
		if hasLabel(*task, l.Name) {
			details.Labels = append(details.Labels, l)
		}
	}

	children, err := s.allTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve subtasks: %w", err)
	}
	for _, child := range children {
		if child.ParentID == task.ID {
			details.Subtasks = append(details.Subtasks, child)
		}
	}
	return details, nil
}

// Statistics summarizes all tasks.
func (s *TaskService) Statistics(ctx context.Context) (*Statistics, error) {
	tasks, err := s.allTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve tasks: %w", err)
	}
	projects, err := gatedFetch(ctx, s.gate, s.client.GetProjects)
	if err != nil {
		return nil, fmt.Errorf("retrieve projects: %w", err)
	}

	projectNames := make(map[string]string, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
	}

	today := s.now()
	todayStr := today.Format("2006-01-02")
	stats := &Statistics{
		TotalTasks:      len(tasks),
		TasksByPriority: make(map[models.Priority]int),
		TasksByProject:  make(map[string]int),
	}
	for _, t := range tasks {
		if t.IsCompleted {
			stats.CompletedTasks++
		}
		if isOverdue(t, today) {
			stats.OverdueTasks++
		}
		if t.DueDate() == todayStr && !t.IsCompleted {
			stats.TodayTasks++
		}
		if t.Priority >= models.PriorityHigh {
			stats.HighPriorityTasks++
		}
		stats.TasksByPriority[t.Priority]++
		name := projectNames[t.ProjectID]
		if name == "" {
			name = t.ProjectID
		}
		stats.TasksByProject[name]++
	}
	return stats, nil
}

// OverdueTasks lists active tasks past their due date.
func (s *TaskService) OverdueTasks(ctx context.Context) ([]TaskSummary, error) {
	summaries, err := s.TasksWithFilters(ctx, Filter{Status: "active"})
	if err != nil {
		return nil, err
	}
	overdue := summaries[:0]
	for _, t := range summaries {
		if t.IsOverdue {
			overdue = append(overdue, t)
		}
	}
	return overdue, nil
}

// TodayTasks lists active tasks due today.
func (s *TaskService) TodayTasks(ctx context.Context) ([]TaskSummary, error) {
	today := s.now().Format("2006-01-02")
	return s.TasksWithFilters(ctx, Filter{Status: "active", DueFrom: today, DueTo: today})
}

// HighPriorityTasks lists active tasks at priority 3 or 4.
func (s *TaskService) HighPriorityTasks(ctx context.Context) ([]TaskSummary, error) {
	summaries, err := s.TasksWithFilters(ctx, Filter{Status: "active"})
	if err != nil {
		return nil, err
	}
	high := summaries[:0]
	for _, t := range summaries {
		if t.Priority >= models.PriorityHigh {
			high = append(high, t)
		}
	}
	return high, nil
}
