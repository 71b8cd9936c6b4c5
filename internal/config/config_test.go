package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromPath_Defaults(t *testing.T) {
	path := writeConfig(t, "todoist:\n  api_token: tok\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Todoist.RequestsPerMinute != 60 {
		t.Errorf("RequestsPerMinute = %d, want 60", cfg.Todoist.RequestsPerMinute)
	}
	if cfg.Quota.MaxConcurrentRequests != 10 {
		t.Errorf("MaxConcurrentRequests = %d, want 10", cfg.Quota.MaxConcurrentRequests)
	}
	if cfg.Subtasks.MaxSubtasks != 10 {
		t.Errorf("MaxSubtasks = %d, want 10", cfg.Subtasks.MaxSubtasks)
	}
	if cfg.Scheduling.WorkDayStart != "09:00" || cfg.Scheduling.WorkDayEnd != "17:00" {
		t.Errorf("work day = %s-%s, want 09:00-17:00", cfg.Scheduling.WorkDayStart, cfg.Scheduling.WorkDayEnd)
	}
	if cfg.Scheduling.Timezone != "Europe/Istanbul" {
		t.Errorf("Timezone = %q", cfg.Scheduling.Timezone)
	}
	if cfg.OpenRouter.DefaultModel != "openai/gpt-oss-20b:free" {
		t.Errorf("DefaultModel = %q", cfg.OpenRouter.DefaultModel)
	}
	if cfg.Processing.RetryDelay != time.Second {
		t.Errorf("RetryDelay = %v, want 1s", cfg.Processing.RetryDelay)
	}
}

func TestLoadFromPath_Overrides(t *testing.T) {
	path := writeConfig(t, `
todoist:
  api_token: tok
  requests_per_minute: 30
openrouter:
  api_key: key
  default_model: openai/gpt-4o-mini
quota:
  max_concurrent_requests: 2
  queue_size: 5
scheduling:
  include_weekends: true
  work_day_end: "18:30"
subtasks:
  max_subtasks: 6
  keywords_file: /etc/subtaskgen/keywords.yaml
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Todoist.RequestsPerMinute != 30 {
		t.Errorf("RequestsPerMinute = %d, want 30", cfg.Todoist.RequestsPerMinute)
	}
	if cfg.OpenRouter.DefaultModel != "openai/gpt-4o-mini" {
		t.Errorf("DefaultModel = %q", cfg.OpenRouter.DefaultModel)
	}
	if cfg.Quota.MaxConcurrentRequests != 2 || cfg.Quota.QueueSize != 5 {
		t.Errorf("quota = %+v", cfg.Quota)
	}
	if !cfg.Scheduling.IncludeWeekends || cfg.Scheduling.WorkDayEnd != "18:30" {
		t.Errorf("scheduling = %+v", cfg.Scheduling)
	}
	if cfg.Subtasks.MaxSubtasks != 6 {
		t.Errorf("MaxSubtasks = %d, want 6", cfg.Subtasks.MaxSubtasks)
	}
	if cfg.Subtasks.KeywordsFile != "/etc/subtaskgen/keywords.yaml" {
		t.Errorf("KeywordsFile = %q", cfg.Subtasks.KeywordsFile)
	}
}

func TestLoadFromPath_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEST_TODOIST_TOKEN", "secret-token")
	path := writeConfig(t, "todoist:\n  api_token: ${TEST_TODOIST_TOKEN}\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Todoist.APIToken != "secret-token" {
		t.Errorf("APIToken = %q, want expanded value", cfg.Todoist.APIToken)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error with no credentials")
	}

	cfg.Todoist.APIToken = "tok"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error with no model API key")
	}

	cfg.OpenRouter.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestValidate_AnthropicProvider(t *testing.T) {
	cfg := Default()
	cfg.Todoist.APIToken = "tok"
	cfg.Anthropic.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Error("expected error with Anthropic enabled and no key")
	}

	cfg.Anthropic.UseAWSBedrock = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed with Bedrock: %v", err)
	}
}
