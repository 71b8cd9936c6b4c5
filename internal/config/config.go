// Package config handles configuration loading for the subtask
// generator. It supports XDG config paths, project-level overrides,
// and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the subtask generator.
type Config struct {
	Todoist    TodoistConfig    `mapstructure:"todoist"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Quota      QuotaConfig      `mapstructure:"quota"`
	Subtasks   SubtasksConfig   `mapstructure:"subtasks"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// TodoistConfig holds Todoist API settings.
type TodoistConfig struct {
	// APIToken authenticates against the Todoist REST API.
	APIToken string `mapstructure:"api_token"`
	// RequestsPerMinute caps outbound calls per wall-clock minute.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	// RequestsPerHour caps outbound calls per wall-clock hour.
	RequestsPerHour int `mapstructure:"requests_per_hour"`
	// RequestsPerDay caps outbound calls per wall-clock day.
	RequestsPerDay int `mapstructure:"requests_per_day"`
}

// OpenRouterConfig holds OpenRouter API settings.
type OpenRouterConfig struct {
	APIKey        string  `mapstructure:"api_key"`
	DefaultModel  string  `mapstructure:"default_model"`
	FallbackModel string  `mapstructure:"fallback_model"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	Temperature   float64 `mapstructure:"temperature"`
}

// AnthropicConfig holds settings for the optional Anthropic provider.
type AnthropicConfig struct {
	// Enabled switches generation from OpenRouter to Anthropic.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the Anthropic API key.
	APIKey string `mapstructure:"api_key"`
	// Model is the Claude model identifier.
	Model string `mapstructure:"model"`
	// UseAWSBedrock routes calls through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name.
	AWSProfile string `mapstructure:"aws_profile"`
}

// QuotaConfig holds the rolling-quota and concurrency ceilings.
type QuotaConfig struct {
	MaxRequestsPerHour    int `mapstructure:"max_requests_per_hour"`
	MaxConcurrentRequests int `mapstructure:"max_concurrent_requests"`
	QueueSize             int `mapstructure:"queue_size"`
}

// SubtasksConfig holds generation limits.
type SubtasksConfig struct {
	// MaxSubtasks caps how many subtasks one task may be split into.
	MaxSubtasks int `mapstructure:"max_subtasks"`
	// MinContentLength is the minimum acceptable subtask text length.
	MinContentLength int `mapstructure:"min_content_length"`
	// MaxContentLength is the maximum acceptable subtask text length.
	MaxContentLength int `mapstructure:"max_content_length"`
	// KeywordsFile optionally points at a YAML keyword table for the
	// complexity estimator, hot-reloaded on change.
	KeywordsFile string `mapstructure:"keywords_file"`
}

// SchedulingConfig holds the work calendar.
type SchedulingConfig struct {
	WorkDayStart    string  `mapstructure:"work_day_start"`
	WorkDayEnd      string  `mapstructure:"work_day_end"`
	IncludeWeekends bool    `mapstructure:"include_weekends"`
	DailyWorkHours  float64 `mapstructure:"daily_work_hours"`
	BufferHours     float64 `mapstructure:"buffer_hours"`
	Timezone        string  `mapstructure:"timezone"`
}

// ProcessingConfig holds batch and retry settings.
type ProcessingConfig struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	BatchSize     int           `mapstructure:"batch_size"`
	CreationDelay time.Duration `mapstructure:"creation_delay"`
}

// DatabaseConfig holds the local SQLite settings.
type DatabaseConfig struct {
	// Path is the SQLite database file for the generation history.
	Path string `mapstructure:"path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is the zerolog level name (debug, info, warn, error).
	Level string `mapstructure:"level"`
	// Pretty switches from JSON to human-readable console output.
	Pretty bool `mapstructure:"pretty"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (TODOIST_API_TOKEN, OPENROUTER_API_KEY, ...)
// 2. Project config (.subtaskgen.yaml in current directory or parent)
// 3. User config (~/.config/subtaskgen/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("todoist.api_token", "TODOIST_API_TOKEN")
	v.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	v.BindEnv("openrouter.default_model", "OPENROUTER_DEFAULT_MODEL")
	v.BindEnv("openrouter.fallback_model", "OPENROUTER_FALLBACK_MODEL")
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("database.path", "DB_PATH")
	v.BindEnv("logging.level", "LOG_LEVEL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandCredentials(cfg)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandCredentials(cfg)
	return cfg, nil
}

// expandCredentials expands ${VAR} references in credential fields.
func expandCredentials(cfg *Config) {
	cfg.Todoist.APIToken = os.ExpandEnv(cfg.Todoist.APIToken)
	cfg.OpenRouter.APIKey = os.ExpandEnv(cfg.OpenRouter.APIKey)
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
}

// Validate checks that the required credentials are present.
func (c *Config) Validate() error {
	var missing []string
	if c.Todoist.APIToken == "" {
		missing = append(missing, "TODOIST_API_TOKEN")
	}
	if c.Anthropic.Enabled {
		if c.Anthropic.APIKey == "" && !c.Anthropic.UseAWSBedrock {
			missing = append(missing, "ANTHROPIC_API_KEY")
		}
	} else if c.OpenRouter.APIKey == "" {
		missing = append(missing, "OPENROUTER_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("configuration validation failed: %s required", strings.Join(missing, ", "))
	}
	return nil
}

// Save writes the current configuration to the user config file.
// Credentials are written as ${VAR} references, never literal values.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("todoist.api_token", "${TODOIST_API_TOKEN}")
	v.Set("todoist.requests_per_minute", cfg.Todoist.RequestsPerMinute)
	v.Set("todoist.requests_per_hour", cfg.Todoist.RequestsPerHour)
	v.Set("todoist.requests_per_day", cfg.Todoist.RequestsPerDay)
	v.Set("openrouter.api_key", "${OPENROUTER_API_KEY}")
	v.Set("openrouter.default_model", cfg.OpenRouter.DefaultModel)
	v.Set("openrouter.fallback_model", cfg.OpenRouter.FallbackModel)
	v.Set("openrouter.max_tokens", cfg.OpenRouter.MaxTokens)
	v.Set("openrouter.temperature", cfg.OpenRouter.Temperature)
	v.Set("quota.max_requests_per_hour", cfg.Quota.MaxRequestsPerHour)
	v.Set("quota.max_concurrent_requests", cfg.Quota.MaxConcurrentRequests)
	v.Set("quota.queue_size", cfg.Quota.QueueSize)
	v.Set("subtasks.max_subtasks", cfg.Subtasks.MaxSubtasks)
	v.Set("subtasks.min_content_length", cfg.Subtasks.MinContentLength)
	v.Set("subtasks.max_content_length", cfg.Subtasks.MaxContentLength)
	v.Set("scheduling.work_day_start", cfg.Scheduling.WorkDayStart)
	v.Set("scheduling.work_day_end", cfg.Scheduling.WorkDayEnd)
	v.Set("scheduling.include_weekends", cfg.Scheduling.IncludeWeekends)
	v.Set("scheduling.daily_work_hours", cfg.Scheduling.DailyWorkHours)
	v.Set("scheduling.timezone", cfg.Scheduling.Timezone)
	v.Set("processing.max_retries", cfg.Processing.MaxRetries)
	v.Set("processing.batch_size", cfg.Processing.BatchSize)
	v.Set("database.path", cfg.Database.Path)
	v.Set("logging.level", cfg.Logging.Level)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the project config file path if one
// exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("todoist.api_token", "")
	v.SetDefault("todoist.requests_per_minute", 60)
	v.SetDefault("todoist.requests_per_hour", 1000)
	v.SetDefault("todoist.requests_per_day", 10000)

	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.default_model", "openai/gpt-oss-20b:free")
	v.SetDefault("openrouter.fallback_model", "google/gemini-2.5-flash-lite")
	v.SetDefault("openrouter.max_tokens", 1000)
	v.SetDefault("openrouter.temperature", 0.7)

	v.SetDefault("anthropic.enabled", false)
	v.SetDefault("anthropic.model", "claude-3-5-haiku-20241022")

	v.SetDefault("quota.max_requests_per_hour", 1000)
	v.SetDefault("quota.max_concurrent_requests", 10)
	v.SetDefault("quota.queue_size", 100)

	v.SetDefault("subtasks.max_subtasks", 10)
	v.SetDefault("subtasks.min_content_length", 5)
	v.SetDefault("subtasks.max_content_length", 100)

	v.SetDefault("scheduling.work_day_start", "09:00")
	v.SetDefault("scheduling.work_day_end", "17:00")
	v.SetDefault("scheduling.include_weekends", false)
	v.SetDefault("scheduling.daily_work_hours", 8.0)
	v.SetDefault("scheduling.buffer_hours", 1.0)
	v.SetDefault("scheduling.timezone", "Europe/Istanbul")

	v.SetDefault("processing.max_retries", 3)
	v.SetDefault("processing.retry_delay", "1s")
	v.SetDefault("processing.batch_size", 10)
	v.SetDefault("processing.creation_delay", "100ms")

	v.SetDefault("database.path", "./data/todoist.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)
}

// getUserConfigDir returns the XDG config directory.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "subtaskgen")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "subtaskgen")
	}
	return filepath.Join(home, ".config", "subtaskgen")
}

// findProjectConfig searches for .subtaskgen.yaml in the current
// directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".subtaskgen.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Todoist: TodoistConfig{
			RequestsPerMinute: 60,
			RequestsPerHour:   1000,
			RequestsPerDay:    10000,
		},
		OpenRouter: OpenRouterConfig{
			DefaultModel:  "openai/gpt-oss-20b:free",
			FallbackModel: "google/gemini-2.5-flash-lite",
			MaxTokens:     1000,
			Temperature:   0.7,
		},
		Anthropic: AnthropicConfig{
			Model: "claude-3-5-haiku-20241022",
		},
		Quota: QuotaConfig{
			MaxRequestsPerHour:    1000,
			MaxConcurrentRequests: 10,
			QueueSize:             100,
		},
		Subtasks: SubtasksConfig{
			MaxSubtasks:      10,
			MinContentLength: 5,
			MaxContentLength: 100,
		},
		Scheduling: SchedulingConfig{
			WorkDayStart:    "09:00",
			WorkDayEnd:      "17:00",
			IncludeWeekends: false,
			DailyWorkHours:  8,
			BufferHours:     1,
			Timezone:        "Europe/Istanbul",
		},
		Processing: ProcessingConfig{
			MaxRetries:    3,
			RetryDelay:    time.Second,
			BatchSize:     10,
			CreationDelay: 100 * time.Millisecond,
		},
		Database: DatabaseConfig{
			Path: "./data/todoist.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}
