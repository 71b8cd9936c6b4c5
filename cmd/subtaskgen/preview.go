package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cenktekin/todoist-subtask-generator/internal/schedule"
	"github.com/cenktekin/todoist-subtask-generator/internal/subtask"
)

var (
	previewStrategy string
	previewPriority int
	previewContext  string
	previewSchedule bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <task-id>",
	Short: "Generate subtasks without creating them",
	Long: `Run the generation pipeline for one task and print the proposed
subtasks without touching Todoist.

With --schedule, also prints a backward work plan: subtask durations
are estimated from their wording and placed into working hours counting
back from the parent task's due date.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	addGenerationFlags(previewCmd, &previewStrategy, &previewPriority, &previewContext)
	previewCmd.Flags().BoolVar(&previewSchedule, "schedule", false, "Print a backward work plan against the due date")
}

func runPreview(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	taskID := args[0]

	opts := generationOptions(previewStrategy, previewPriority, previewContext)
	preview, err := a.subtasks.GeneratePreview(ctx, taskID, opts)
	if err != nil {
		return err
	}

	fmt.Printf("%d proposed subtask(s)", len(preview.Subtasks))
	if preview.EstimatedDuration != "" && preview.EstimatedDuration != "Unknown" {
		fmt.Printf(", estimated duration %s", preview.EstimatedDuration)
	}
	fmt.Println()

	for i, st := range preview.Subtasks {
		due := ""
		if st.Due != "" {
			due = " due " + st.Due
		}
		fmt.Printf("  %2d. %s %s%s\n", i+1, priorityTag(st.Priority), st.Content, due)
	}

	if previewSchedule {
		return printWorkPlan(ctx, a, taskID, preview)
	}
	return nil
}

// printWorkPlan places the proposed subtasks backward from the parent
// task's due date and prints the resulting slots.
func printWorkPlan(ctx context.Context, a *app, taskID string, preview *subtask.Preview) error {
	details, err := a.tasks.TaskDetails(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	dueStr := details.Task.DueDate()
	if dueStr == "" {
		fmt.Println("\nNo due date on the parent task; skipping the work plan.")
		return nil
	}
	due, err := time.ParseInLocation("2006-01-02", dueStr, time.Local)
	if err != nil {
		return fmt.Errorf("parse due date %q: %w", dueStr, err)
	}

	sched, err := schedule.NewScheduler(schedule.Options{
		WorkDayStart:    a.cfg.Scheduling.WorkDayStart,
		WorkDayEnd:      a.cfg.Scheduling.WorkDayEnd,
		IncludeWeekends: a.cfg.Scheduling.IncludeWeekends,
		DailyWorkHours:  a.cfg.Scheduling.DailyWorkHours,
		BufferHours:     a.cfg.Scheduling.BufferHours,
		Timezone:        a.cfg.Scheduling.Timezone,
	})
	if err != nil {
		return err
	}

	inputs := make([]schedule.SubtaskInput, len(preview.Subtasks))
	for i, st := range preview.Subtasks {
		inputs[i] = schedule.SubtaskInput{Content: st.Content}
	}

	plan := sched.Calculate(details.Task.Content, due, inputs)

	fmt.Printf("\nWork plan (%.1fh total, start %s):\n",
		plan.TotalHours, plan.StartDate.Format("Mon 2006-01-02"))
	for _, st := range plan.Subtasks {
		fmt.Printf("  %s  %s\n", formatSlot(st), st.Content)
	}
	return nil
}

func formatSlot(st schedule.ScheduledSubtask) string {
	start := st.DueDate.Add(-time.Duration(st.Hours * float64(time.Hour)))
	return fmt.Sprintf("%s %s-%s (%.1fh)",
		st.DueDate.Format("Mon 2006-01-02"),
		start.Format("15:04"),
		st.DueDate.Format("15:04"),
		st.Hours)
}
