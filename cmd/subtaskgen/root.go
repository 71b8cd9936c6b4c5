package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "subtaskgen",
	Short: "AI-powered subtask generation for Todoist",
	Long: `Subtaskgen breaks Todoist tasks into actionable subtasks using an
AI model, applies a priority strategy, and creates the subtasks under
the parent task - all behind a rate limiter tuned to the Todoist API.

Typical workflow:
  subtaskgen tasks --candidates   # find tasks worth decomposing
  subtaskgen preview <task-id>    # see what would be generated
  subtaskgen generate <task-id>   # create the subtasks in Todoist`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
