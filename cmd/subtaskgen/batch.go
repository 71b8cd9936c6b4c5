package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	batchStrategy   string
	batchPriority   int
	batchContext    string
	batchCandidates bool
	batchLimit      int
)

var batchCmd = &cobra.Command{
	Use:   "batch [task-id...]",
	Short: "Generate subtasks for multiple tasks",
	Long: `Run generation across several parent tasks. Task IDs are given as
arguments, or selected automatically with --candidates. A failing task
is reported and the batch continues with the next one.

Examples:
  subtaskgen batch 7654321 7654322
  subtaskgen batch --candidates --limit 5`,
	RunE: runBatch,
}

func init() {
	addGenerationFlags(batchCmd, &batchStrategy, &batchPriority, &batchContext)
	batchCmd.Flags().BoolVar(&batchCandidates, "candidates", false, "Process subtask-generation candidates instead of explicit IDs")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 5, "Maximum candidates to process with --candidates")
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	taskIDs := args
	if batchCandidates {
		candidates, err := a.subtasks.Candidates(ctx)
		if err != nil {
			return fmt.Errorf("list candidates: %w", err)
		}
		if batchLimit > 0 && len(candidates) > batchLimit {
			candidates = candidates[:batchLimit]
		}
		taskIDs = make([]string, len(candidates))
		for i, c := range candidates {
			taskIDs[i] = c.ID
		}
	}
	if len(taskIDs) == 0 {
		return fmt.Errorf("no tasks to process: pass task IDs or use --candidates")
	}

	opts := generationOptions(batchStrategy, batchPriority, batchContext)
	results := a.subtasks.CreateForTasks(ctx, taskIDs, opts)

	created, failed := 0, 0
	for _, r := range results {
		if r.SubtasksCreated == 0 && len(r.Errors) > 0 {
			failed++
			fmt.Printf("%s task %s: %s\n", color.RedString("✗"), r.TaskID, r.Errors[0])
			continue
		}
		created += r.SubtasksCreated
		fmt.Printf("%s task %s: %d subtask(s) created\n", color.GreenString("✓"), r.TaskID, r.SubtasksCreated)
	}

	fmt.Printf("\n%d task(s) processed, %d subtask(s) created, %d failed\n",
		len(results), created, failed)
	return nil
}
