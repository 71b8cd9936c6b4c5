package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cenktekin/todoist-subtask-generator/internal/jsonrepair"
	"github.com/cenktekin/todoist-subtask-generator/pkg/models"
)

// Gate admits one outbound model call through the shared rate limiter.
// A nil Gate runs calls directly.
type Gate interface {
	Execute(ctx context.Context, priority int, op func(context.Context) error) error
}

// completionPriority queues model calls above plain reads but below
// subtask creation.
const completionPriority = 1

// GeneratorConfig configures the subtask generator.
type GeneratorConfig struct {
	// Gate wraps every provider call. Nil means ungated.
	Gate Gate
	// DefaultModel is tried first for every completion.
	DefaultModel string
	// FallbackModel is tried when the default model fails for any
	// reason other than auth or an explicit rate-limit signal.
	FallbackModel string
	// MaxSubtasks caps how many subtasks the model is asked for.
	MaxSubtasks int
	// MaxAttempts bounds regeneration retries after malformed or
	// invalid output. Zero means the default of 2.
	MaxAttempts int
}

// Generator turns a task into validated subtasks through a model call,
// JSON repair, and strict response validation.
type Generator struct {
	provider Provider
	cfg      GeneratorConfig
	log      zerolog.Logger
	now      func() time.Time
}

// NewGenerator builds a Generator on the given provider.
func NewGenerator(provider Provider, cfg GeneratorConfig, log zerolog.Logger) *Generator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.MaxSubtasks <= 0 {
		cfg.MaxSubtasks = 10
	}
	return &Generator{provider: provider, cfg: cfg, log: log, now: time.Now}
}

// GenerateSubtasks asks the model for a subtask breakdown. Malformed
// output goes through JSON repair; if repair or validation fails the
// whole attempt, generation is retried with a prompt amended to demand
// strict JSON, up to the configured attempt bound.
func (g *Generator) GenerateSubtasks(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	max := req.MaxSubtasks
	if max <= 0 {
		max = g.cfg.MaxSubtasks
	}
	system := systemPrompt(max)
	user := userPrompt(req, g.now())

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		raw, err := g.complete(ctx, CompletionRequest{System: system, User: user, JSONOnly: true})
		if err != nil {
			return nil, err
		}

		var resp models.GenerationResponse
		if err := jsonrepair.SafeParse(raw, &resp); err != nil {
			lastErr = fmt.Errorf("unparseable model output: %w (got: %s)", err, preview(raw))
			g.log.Warn().Int("attempt", attempt).Err(err).Msg("model output unparseable, regenerating")
			user = userPrompt(req, g.now()) + strictJSONReminder
			continue
		}
		if err := ValidateResponse(&resp); err != nil {
			lastErr = fmt.Errorf("invalid model output: %w", err)
			g.log.Warn().Int("attempt", attempt).Err(err).Msg("model output invalid, regenerating")
			user = userPrompt(req, g.now()) + strictJSONReminder
			continue
		}

		if resp.EstimatedDuration == "" {
			resp.EstimatedDuration = "Unknown"
		}
		return &resp, nil
	}
	return nil, fmt.Errorf("subtask generation failed after %d attempts: %w", g.cfg.MaxAttempts, lastErr)
}

// complete runs one completion on the default model, falling back to
// the fallback model unless the failure is auth or rate-limit. Each
// provider call passes through the gate separately, so the fallback
// attempt is charged as its own request.
func (g *Generator) complete(ctx context.Context, req CompletionRequest) (string, error) {
	req.Model = g.cfg.DefaultModel
	raw, err := g.callProvider(ctx, req)
	if err == nil {
		return raw, nil
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrRateLimited) {
		return "", err
	}
	if g.cfg.FallbackModel == "" {
		return "", err
	}

	g.log.Warn().
		Str("model", g.cfg.DefaultModel).
		Str("fallback", g.cfg.FallbackModel).
		Err(err).
		Msg("default model failed, trying fallback")

	req.Model = g.cfg.FallbackModel
	raw, ferr := g.callProvider(ctx, req)
	if ferr != nil {
		return "", fmt.Errorf("default and fallback models failed: %w", ferr)
	}
	return raw, nil
}

func (g *Generator) callProvider(ctx context.Context, req CompletionRequest) (string, error) {
	if g.cfg.Gate == nil {
		return g.provider.Complete(ctx, req)
	}
	var raw string
	err := g.cfg.Gate.Execute(ctx, completionPriority, func(ctx context.Context) error {
		var err error
		raw, err = g.provider.Complete(ctx, req)
		return err
	})
	return raw, err
}

// EstimateDuration asks the model for a human-readable total-duration
// estimate. Best effort: any failure yields "Unknown".
func (g *Generator) EstimateDuration(ctx context.Context, taskContent, taskDescription string) string {
	raw, err := g.complete(ctx, CompletionRequest{
		System: durationSystemPrompt,
		User:   durationPrompt(taskContent, taskDescription),
	})
	if err != nil {
		g.log.Warn().Err(err).Msg("duration estimation failed")
		return "Unknown"
	}
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		return trimmed
	}
	return "Unknown"
}

// CategorizeTask asks the model for up to three category labels. Best
// effort: any failure yields an empty list.
func (g *Generator) CategorizeTask(ctx context.Context, taskContent, taskDescription string) []string {
	raw, err := g.complete(ctx, CompletionRequest{
		System:   categorizeSystemPrompt,
		User:     categorizePrompt(taskContent, taskDescription),
		JSONOnly: true,
	})
	if err != nil {
		g.log.Warn().Err(err).Msg("task categorization failed")
		return nil
	}

	var categories []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &categories); err != nil {
		return nil
	}
	if len(categories) > 3 {
		categories = categories[:3]
	}
	return categories
}

// TestConnection verifies the provider responds at all.
func (g *Generator) TestConnection(ctx context.Context) bool {
	_, err := g.complete(ctx, CompletionRequest{
		System: "Sen yardımcı bir asistansın. Türkçe yanıt ver.",
		User:   `Lütfen "Bağlantı başarılı" şeklinde yanıt ver`,
	})
	return err == nil
}
