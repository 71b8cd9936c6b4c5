package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cenktekin/todoist-subtask-generator/internal/subtask"
	"github.com/cenktekin/todoist-subtask-generator/pkg/models"
)

var (
	generateStrategy string
	generatePriority int
	generateContext  string
)

var generateCmd = &cobra.Command{
	Use:   "generate <task-id>",
	Short: "Generate subtasks for a task and create them in Todoist",
	Long: `Generate subtasks for one parent task with the configured AI model
and create them under the task in Todoist.

Priority strategies:
  inherit     every subtask gets the parent's priority (default)
  distribute  priorities spread around the parent's, earlier = lower
  constant    every subtask gets one fixed priority (--priority)

Examples:
  subtaskgen generate 7654321
  subtaskgen generate 7654321 --strategy constant --priority 3
  subtaskgen generate 7654321 --context "2 hafta içinde bitmeli"`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	addGenerationFlags(generateCmd, &generateStrategy, &generatePriority, &generateContext)
}

func addGenerationFlags(cmd *cobra.Command, strategy *string, priority *int, extraContext *string) {
	cmd.Flags().StringVar(strategy, "strategy", "inherit", "Priority strategy: inherit, distribute or constant")
	cmd.Flags().IntVar(priority, "priority", 0, "Priority for the constant strategy (1-4)")
	cmd.Flags().StringVar(extraContext, "context", "", "Additional context passed to the model")
}

func generationOptions(strategy string, priority int, extraContext string) subtask.Options {
	return subtask.Options{
		PriorityStrategy:  subtask.PriorityStrategy(strategy),
		ConstantPriority:  models.Priority(priority),
		AdditionalContext: extraContext,
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	opts := generationOptions(generateStrategy, generatePriority, generateContext)
	result, err := a.subtasks.CreateFromTask(context.Background(), args[0], opts)
	if err != nil {
		return err
	}

	printCreationResult(result)
	return nil
}

func printCreationResult(result *models.CreationResult) {
	fmt.Printf("Task %s: %d subtask(s) created", result.TaskID, result.SubtasksCreated)
	if result.EstimatedDuration != "" && result.EstimatedDuration != "Unknown" {
		fmt.Printf(", estimated duration %s", result.EstimatedDuration)
	}
	fmt.Println()

	for _, st := range result.Subtasks {
		if st.Error != "" {
			fmt.Printf("  %s %s: %s\n", color.RedString("✗"), st.Content, st.Error)
			continue
		}
		due := ""
		if st.Due != "" {
			due = " due " + st.Due
		}
		fmt.Printf("  %s %s %s%s\n", color.GreenString("✓"), priorityTag(st.Priority), st.Content, due)
	}
}
