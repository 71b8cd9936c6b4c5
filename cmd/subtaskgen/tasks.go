package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cenktekin/todoist-subtask-generator/internal/todoist"
	"github.com/cenktekin/todoist-subtask-generator/pkg/models"
)

var (
	tasksProjectID  string
	tasksLabel      string
	tasksPriority   int
	tasksStatus     string
	tasksSearch     string
	tasksDueFrom    string
	tasksDueTo      string
	tasksCandidates bool
	tasksOverdue    bool
	tasksToday      bool
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List Todoist tasks",
	Long: `List tasks with optional filters.

Examples:
  subtaskgen tasks                      # all active tasks
  subtaskgen tasks --priority 4         # urgent tasks only
  subtaskgen tasks --label is           # tasks carrying a label
  subtaskgen tasks --search rapor       # text search
  subtaskgen tasks --candidates         # tasks worth decomposing
  subtaskgen tasks --overdue            # tasks past their due date`,
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().StringVar(&tasksProjectID, "project-id", "", "Filter by project ID")
	tasksCmd.Flags().StringVar(&tasksLabel, "label", "", "Filter by label name")
	tasksCmd.Flags().IntVar(&tasksPriority, "priority", 0, "Filter by exact priority (1-4)")
	tasksCmd.Flags().StringVar(&tasksStatus, "status", "active", "Task status: active, completed or all")
	tasksCmd.Flags().StringVar(&tasksSearch, "search", "", "Filter by content text")
	tasksCmd.Flags().StringVar(&tasksDueFrom, "due-from", "", "Keep tasks due on or after this date (YYYY-MM-DD)")
	tasksCmd.Flags().StringVar(&tasksDueTo, "due-to", "", "Keep tasks due on or before this date (YYYY-MM-DD)")
	tasksCmd.Flags().BoolVar(&tasksCandidates, "candidates", false, "Show only subtask-generation candidates")
	tasksCmd.Flags().BoolVar(&tasksOverdue, "overdue", false, "Show only overdue tasks")
	tasksCmd.Flags().BoolVar(&tasksToday, "today", false, "Show only tasks due today")
}

func runTasks(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	var summaries []todoist.TaskSummary
	switch {
	case tasksCandidates:
		summaries, err = a.tasks.CandidatesForGeneration(ctx)
	case tasksOverdue:
		summaries, err = a.tasks.OverdueTasks(ctx)
	case tasksToday:
		summaries, err = a.tasks.TodayTasks(ctx)
	default:
		summaries, err = a.tasks.TasksWithFilters(ctx, todoist.Filter{
			ProjectID:   tasksProjectID,
			Label:       tasksLabel,
			Priority:    models.Priority(tasksPriority),
			DueFrom:     tasksDueFrom,
			DueTo:       tasksDueTo,
			Status:      tasksStatus,
			SearchQuery: tasksSearch,
		})
	}
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	for _, s := range summaries {
		printTaskSummary(s)
	}
	fmt.Printf("\n%d task(s)\n", len(summaries))
	return nil
}

func printTaskSummary(s todoist.TaskSummary) {
	marker := " "
	if s.IsCompleted {
		marker = color.GreenString("✓")
	}

	due := ""
	if s.Due != "" {
		if s.IsOverdue {
			due = color.RedString(" due %s (overdue)", s.Due)
		} else {
			due = fmt.Sprintf(" due %s", s.Due)
		}
	}

	extras := ""
	if s.Project != "" {
		extras += " #" + s.Project
	}
	if len(s.Labels) > 0 {
		extras += " @" + strings.Join(s.Labels, " @")
	}
	if s.HasSubtasks {
		extras += " [has subtasks]"
	}

	fmt.Printf("%s %s %s %s%s%s\n", marker, priorityTag(s.Priority), s.ID, s.Content, due, extras)
}

func priorityTag(p models.Priority) string {
	tag := fmt.Sprintf("p%d", p)
	switch p {
	case models.PriorityUrgent:
		return color.RedString(tag)
	case models.PriorityHigh:
		return color.YellowString(tag)
	default:
		return tag
	}
}
