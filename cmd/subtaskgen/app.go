package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cenktekin/todoist-subtask-generator/internal/ai"
	"github.com/cenktekin/todoist-subtask-generator/internal/config"
	"github.com/cenktekin/todoist-subtask-generator/internal/estimate"
	"github.com/cenktekin/todoist-subtask-generator/internal/history"
	"github.com/cenktekin/todoist-subtask-generator/internal/logging"
	"github.com/cenktekin/todoist-subtask-generator/internal/ratelimit"
	"github.com/cenktekin/todoist-subtask-generator/internal/subtask"
	"github.com/cenktekin/todoist-subtask-generator/internal/todoist"
)

// app holds the wired services every command works with.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	client    *todoist.Client
	tasks     *todoist.TaskService
	limiter   *ratelimit.Limiter
	store     *history.DB
	estimator *estimate.Estimator
	keywords  *estimate.KeywordWatcher
	generator *ai.Generator
	subtasks  *subtask.Service
}

// newApp loads the configuration and wires the full pipeline.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.New(cfg.Logging)

	client, err := todoist.NewClient(todoist.ClientConfig{APIToken: cfg.Todoist.APIToken}, log)
	if err != nil {
		return nil, err
	}

	// One limiter gates every outbound call: task reads, subtask
	// creation and model completions all share its windows.
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.Todoist.RequestsPerMinute,
		RequestsPerHour:   cfg.Todoist.RequestsPerHour,
		RequestsPerDay:    cfg.Todoist.RequestsPerDay,
		QuotaPerHour:      cfg.Quota.MaxRequestsPerHour,
		MaxConcurrent:     cfg.Quota.MaxConcurrentRequests,
		QueueSize:         cfg.Quota.QueueSize,
	}, log)

	tasks := todoist.NewTaskService(client, limiter, log)

	provider, defaultModel, fallbackModel, err := newProvider(cfg, log)
	if err != nil {
		limiter.Close()
		return nil, err
	}

	generator := ai.NewGenerator(provider, ai.GeneratorConfig{
		Gate:          limiter,
		DefaultModel:  defaultModel,
		FallbackModel: fallbackModel,
		MaxSubtasks:   cfg.Subtasks.MaxSubtasks,
	}, log)

	estimator := estimate.New(estimate.DefaultKeywords(), cfg.Subtasks.MaxSubtasks)
	var keywords *estimate.KeywordWatcher
	if cfg.Subtasks.KeywordsFile != "" {
		keywords, err = estimate.WatchKeywords(cfg.Subtasks.KeywordsFile, estimator)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Subtasks.KeywordsFile).
				Msg("keyword file unavailable, using built-in tables")
		}
	}

	// A broken history database degrades to no recording.
	store, err := history.Open(cfg.Database.Path)
	if err != nil {
		log.Warn().Err(err).Msg("history database unavailable")
		store = nil
	} else if err := store.Migrate(); err != nil {
		log.Warn().Err(err).Msg("history migration failed")
		store.Close()
		store = nil
	}

	svcCfg := subtask.DefaultServiceConfig()
	svcCfg.MaxSubtasks = cfg.Subtasks.MaxSubtasks
	svcCfg.MinContentLength = cfg.Subtasks.MinContentLength
	svcCfg.MaxContentLength = cfg.Subtasks.MaxContentLength
	svcCfg.Model = defaultModel
	if cfg.Processing.CreationDelay > 0 {
		svcCfg.CreationDelay = cfg.Processing.CreationDelay
	}

	subtasks := subtask.NewService(tasks, client, generator, estimator, limiter, store, svcCfg, log)

	return &app{
		cfg:       cfg,
		log:       log,
		client:    client,
		tasks:     tasks,
		limiter:   limiter,
		store:     store,
		estimator: estimator,
		keywords:  keywords,
		generator: generator,
		subtasks:  subtasks,
	}, nil
}

// newProvider selects the AI backend from the config.
func newProvider(cfg *config.Config, log zerolog.Logger) (ai.Provider, string, string, error) {
	if cfg.Anthropic.Enabled {
		p, err := ai.NewAnthropic(ai.AnthropicConfig{
			APIKey:        cfg.Anthropic.APIKey,
			MaxTokens:     cfg.OpenRouter.MaxTokens,
			Temperature:   cfg.OpenRouter.Temperature,
			UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		}, log)
		if err != nil {
			return nil, "", "", err
		}
		return p, cfg.Anthropic.Model, cfg.Anthropic.Model, nil
	}

	p, err := ai.NewOpenRouter(ai.OpenRouterConfig{
		APIKey:      cfg.OpenRouter.APIKey,
		MaxTokens:   cfg.OpenRouter.MaxTokens,
		Temperature: cfg.OpenRouter.Temperature,
	}, log)
	if err != nil {
		return nil, "", "", err
	}
	return p, cfg.OpenRouter.DefaultModel, cfg.OpenRouter.FallbackModel, nil
}

// Close releases the app's background resources.
func (a *app) Close() {
	if a.keywords != nil {
		a.keywords.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	a.limiter.Close()
}
