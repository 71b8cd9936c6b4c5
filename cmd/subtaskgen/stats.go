package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cenktekin/todoist-subtask-generator/internal/history"
	"github.com/cenktekin/todoist-subtask-generator/pkg/models"
)

var statsRuns int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task statistics and recent generation runs",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsRuns, "runs", 5, "Number of recent generation runs to show")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.tasks.Statistics(context.Background())
	if err != nil {
		return fmt.Errorf("load statistics: %w", err)
	}

	fmt.Printf("Tasks:          %d total, %d completed\n", stats.TotalTasks, stats.CompletedTasks)
	fmt.Printf("Overdue:        %d\n", stats.OverdueTasks)
	fmt.Printf("Due today:      %d\n", stats.TodayTasks)
	fmt.Printf("High priority:  %d\n", stats.HighPriorityTasks)

	fmt.Println("\nBy priority:")
	for p := models.PriorityUrgent; p >= models.PriorityNormal; p-- {
		if n := stats.TasksByPriority[p]; n > 0 {
			fmt.Printf("  p%d: %d\n", p, n)
		}
	}

	if len(stats.TasksByProject) > 0 {
		fmt.Println("\nBy project:")
		names := make([]string, 0, len(stats.TasksByProject))
		for name := range stats.TasksByProject {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %d\n", name, stats.TasksByProject[name])
		}
	}

	if a.store != nil && statsRuns > 0 {
		if err := printRecentRuns(a.store, statsRuns); err != nil {
			return err
		}
	}
	return nil
}

func printRecentRuns(store *history.DB, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("list generation runs: %w", err)
	}
	if len(runs) == 0 {
		return nil
	}

	fmt.Println("\nRecent generation runs:")
	for _, r := range runs {
		line := fmt.Sprintf("  %s  %s  %s  %d subtask(s)",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.Status, r.TaskContent, r.SubtaskCount)
		if r.Status == history.RunFailed && r.Error != "" {
			line += "  (" + r.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}
