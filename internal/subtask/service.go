// Package subtask orchestrates the full generation pipeline: estimate
// how many subtasks a parent task needs, ask the model, validate the
// output, apply a priority strategy, and create the subtasks in Todoist
// behind the rate limiter.
package subtask

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cenktekin/todoist-subtask-generator/internal/estimate"
	"github.com/cenktekin/todoist-subtask-generator/internal/history"
	"github.com/cenktekin/todoist-subtask-generator/internal/ratelimit"
	"github.com/cenktekin/todoist-subtask-generator/internal/todoist"
	"github.com/cenktekin/todoist-subtask-generator/pkg/models"
)

// PriorityStrategy decides what priority created subtasks get.
type PriorityStrategy string

const (
	// StrategyInherit copies the parent task's priority to every subtask.
	StrategyInherit PriorityStrategy = "inherit"
	// StrategyDistribute spreads priorities around the parent's, earlier
	// subtasks getting the lower end of the range.
	StrategyDistribute PriorityStrategy = "distribute"
	// StrategyConstant assigns one fixed priority to every subtask.
	StrategyConstant PriorityStrategy = "constant"
)

// Options adjusts one generation run.
type Options struct {
	// PriorityStrategy selects how subtask priorities are assigned.
	// Defaults to StrategyInherit.
	PriorityStrategy PriorityStrategy
	// ConstantPriority is the priority used with StrategyConstant.
	// Defaults to PriorityMedium.
	ConstantPriority models.Priority
	// AdditionalContext is free-form user text passed to the model and
	// scanned for duration hints.
	AdditionalContext string
}

// Generator produces validated subtasks for a parent task.
type Generator interface {
	GenerateSubtasks(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error)
}

// TaskSource provides parent task context.
type TaskSource interface {
	TaskDetails(ctx context.Context, taskID string) (*todoist.TaskDetails, error)
	CandidatesForGeneration(ctx context.Context) ([]todoist.TaskSummary, error)
}

// TaskCreator creates tasks in Todoist.
type TaskCreator interface {
	CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error)
}

// ServiceConfig holds the orchestration knobs.
type ServiceConfig struct {
	// MaxSubtasks caps the estimator's suggestion.
	MaxSubtasks int
	// MinContentLength rejects subtasks with shorter content.
	MinContentLength int
	// MaxContentLength truncates longer subtask content.
	MaxContentLength int
	// Model is the model name recorded with each history run.
	Model string
	// CreationDelay is the pause between subtask creations.
	CreationDelay time.Duration
	// BatchDelay is the pause between parent tasks in batch mode.
	BatchDelay time.Duration
}

// DefaultServiceConfig returns the standard orchestration settings.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxSubtasks:      10,
		MinContentLength: 5,
		MaxContentLength: 100,
		CreationDelay:    200 * time.Millisecond,
		BatchDelay:       500 * time.Millisecond,
	}
}

// Service runs the generation pipeline.
type Service struct {
	tasks     TaskSource
	creator   TaskCreator
	gen       Generator
	estimator *estimate.Estimator
	limiter   *ratelimit.Limiter
	store     *history.DB
	cfg       ServiceConfig
	log       zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewService builds the orchestrator. The estimator, limiter and store
// are optional: a nil estimator falls back to the configured maximum
// subtask count, a nil limiter creates without gating, and a nil store
// skips history recording.
func NewService(tasks TaskSource, creator TaskCreator, gen Generator,
	estimator *estimate.Estimator, limiter *ratelimit.Limiter,
	store *history.DB, cfg ServiceConfig, log zerolog.Logger) *Service {
	if cfg.MaxSubtasks <= 0 {
		cfg.MaxSubtasks = 10
	}
	return &Service{
		tasks:     tasks,
		creator:   creator,
		gen:       gen,
		estimator: estimator,
		limiter:   limiter,
		store:     store,
		cfg:       cfg,
		log:       log,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Preview holds generated subtasks that have not been created yet.
type Preview struct {
	// Subtasks lists the proposed subtasks with priorities applied.
	Subtasks []models.Subtask `json:"subtasks"`
	// EstimatedDuration is the model's total duration estimate.
	EstimatedDuration string `json:"estimated_duration"`
}

// CreateFromTask generates subtasks for one parent task and creates
// them in Todoist. Per-item creation failures are collected in the
// result, never aborting the remaining items.
func (s *Service) CreateFromTask(ctx context.Context, taskID string, opts Options) (*models.CreationResult, error) {
	details, resp, err := s.generate(ctx, taskID, opts)
	if err != nil {
		return nil, err
	}

	runID := s.startRun(details.Task)
	result := &models.CreationResult{
		TaskID:            taskID,
		EstimatedDuration: resp.EstimatedDuration,
	}

	subtasks := applyPriorityStrategy(resp.Subtasks, details.Task.Priority, opts)
	for i, st := range subtasks {
		if i > 0 {
			if err := s.sleep(ctx, s.cfg.CreationDelay); err != nil {
				return result, err
			}
		}
		created := s.createOne(ctx, taskID, st)
		result.Subtasks = append(result.Subtasks, created)
		if created.Error != "" {
			result.Errors = append(result.Errors, created.Error)
			continue
		}
		result.SubtasksCreated++
		s.recordSubtask(runID, created)
	}

	s.finishRun(runID, result)
	s.log.Info().Str("task_id", taskID).
		Int("created", result.SubtasksCreated).
		Int("failed", len(result.Errors)).
		Msg("subtask creation finished")
	return result, nil
}

// GeneratePreview generates subtasks without creating them.
func (s *Service) GeneratePreview(ctx context.Context, taskID string, opts Options) (*Preview, error) {
	details, resp, err := s.generate(ctx, taskID, opts)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Subtasks:          applyPriorityStrategy(resp.Subtasks, details.Task.Priority, opts),
		EstimatedDuration: resp.EstimatedDuration,
	}, nil
}

// CreateForTasks runs CreateFromTask across multiple parent tasks.
// A failing task produces a result carrying its error; the batch
// continues with the next task.
func (s *Service) CreateForTasks(ctx context.Context, taskIDs []string, opts Options) []models.CreationResult {
	results := make([]models.CreationResult, 0, len(taskIDs))
	for i, taskID := range taskIDs {
		if i > 0 {
			if err := s.sleep(ctx, s.cfg.BatchDelay); err != nil {
				results = append(results, failedResult(taskID, err))
				return results
			}
		}
		result, err := s.CreateFromTask(ctx, taskID, opts)
		if err != nil {
			s.log.Error().Err(err).Str("task_id", taskID).Msg("batch item failed")
			results = append(results, failedResult(taskID, err))
			continue
		}
		results = append(results, *result)
	}
	return results
}

// Candidates returns tasks worth decomposing into subtasks.
func (s *Service) Candidates(ctx context.Context) ([]todoist.TaskSummary, error) {
	return s.tasks.CandidatesForGeneration(ctx)
}

// SuggestedCount returns the estimator's subtask count for a task.
func (s *Service) SuggestedCount(task models.Task, additionalContext string) int {
	if s.estimator == nil {
		return s.cfg.MaxSubtasks
	}
	return s.estimator.Suggest(task.Content, task.Description, task.DueDate(), additionalContext)
}

func (s *Service) generate(ctx context.Context, taskID string, opts Options) (*todoist.TaskDetails, *models.GenerationResponse, error) {
	details, err := s.tasks.TaskDetails(ctx, taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("load task %s: %w", taskID, err)
	}

	req := models.GenerationRequest{
		TaskContent:       details.Task.Content,
		TaskDescription:   details.Task.Description,
		DueDate:           details.Task.DueDate(),
		MaxSubtasks:       s.SuggestedCount(details.Task, opts.AdditionalContext),
		AdditionalContext: opts.AdditionalContext,
	}

	resp, err := s.gen.GenerateSubtasks(ctx, req)
	if err != nil {
		s.recordFailure(details.Task, err)
		return nil, nil, fmt.Errorf("generate subtasks for %s: %w", taskID, err)
	}
	return details, resp, nil
}

// createOne creates a single subtask behind the rate limiter. Content
// outside the configured length bounds is rejected or truncated before
// the request is made.
func (s *Service) createOne(ctx context.Context, parentID string, st models.Subtask) models.CreatedSubtask {
	out := models.CreatedSubtask{Content: st.Content, Due: st.Due, Priority: st.Priority}

	if s.cfg.MinContentLength > 0 && len([]rune(st.Content)) < s.cfg.MinContentLength {
		out.Error = fmt.Sprintf("subtask content shorter than %d characters", s.cfg.MinContentLength)
		return out
	}
	if s.cfg.MaxContentLength > 0 {
		if r := []rune(st.Content); len(r) > s.cfg.MaxContentLength {
			out.Content = string(r[:s.cfg.MaxContentLength])
		}
	}

	req := models.CreateTaskRequest{
		Content:  out.Content,
		ParentID: parentID,
		DueDate:  st.Due,
		Priority: st.Priority,
	}

	create := func(ctx context.Context) error {
		task, err := s.creator.CreateTask(ctx, req)
		if err != nil {
			return err
		}
		out.TodoistID = task.ID
		return nil
	}

	var err error
	if s.limiter != nil {
		err = s.limiter.Execute(ctx, int(st.Priority), create)
	} else {
		err = create(ctx)
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// applyPriorityStrategy reassigns subtask priorities per the options.
func applyPriorityStrategy(subtasks []models.Subtask, parent models.Priority, opts Options) []models.Subtask {
	strategy := opts.PriorityStrategy
	if strategy == "" {
		strategy = StrategyInherit
	}

	out := make([]models.Subtask, len(subtasks))
	copy(out, subtasks)

	switch strategy {
	case StrategyInherit:
		for i := range out {
			out[i].Priority = parent
		}
	case StrategyDistribute:
		lo := parent - 1
		if lo < models.PriorityNormal {
			lo = models.PriorityNormal
		}
		hi := parent + 1
		if hi > models.PriorityUrgent {
			hi = models.PriorityUrgent
		}
		for i := range out {
			out[i].Priority = lo + models.Priority(i*int(hi-lo)/len(out))
		}
	case StrategyConstant:
		p := opts.ConstantPriority
		if !p.Valid() {
			p = models.PriorityMedium
		}
		for i := range out {
			out[i].Priority = p
		}
	}
	return out
}

func failedResult(taskID string, err error) models.CreationResult {
	return models.CreationResult{
		TaskID:            taskID,
		Errors:            []string{err.Error()},
		EstimatedDuration: "Unknown",
	}
}

// History recording is best-effort: a broken local database must not
// stop subtask creation.

func (s *Service) startRun(task models.Task) string {
	if s.store == nil {
		return ""
	}
	id, err := s.store.StartRun(task.ID, task.Content, s.cfg.Model)
	if err != nil {
		s.log.Warn().Err(err).Msg("history: start run failed")
		return ""
	}
	return id
}

func (s *Service) recordSubtask(runID string, created models.CreatedSubtask) {
	if s.store == nil || runID == "" {
		return
	}
	err := s.store.AddSubtask(&history.Subtask{
		RunID:     runID,
		TodoistID: created.TodoistID,
		Content:   created.Content,
		DueDate:   created.Due,
		Priority:  int(created.Priority),
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("history: record subtask failed")
	}
}

func (s *Service) finishRun(runID string, result *models.CreationResult) {
	if s.store == nil || runID == "" {
		return
	}
	status := history.RunCompleted
	var runErr error
	if result.SubtasksCreated == 0 && len(result.Errors) > 0 {
		status = history.RunFailed
		runErr = fmt.Errorf("%s", result.Errors[0])
	}
	if err := s.store.FinishRun(runID, status, result.SubtasksCreated, runErr); err != nil {
		s.log.Warn().Err(err).Msg("history: finish run failed")
	}
}

func (s *Service) recordFailure(task models.Task, genErr error) {
	if s.store == nil {
		return
	}
	id, err := s.store.StartRun(task.ID, task.Content, s.cfg.Model)
	if err != nil {
		return
	}
	_ = s.store.FinishRun(id, history.RunFailed, 0, genErr)
}
