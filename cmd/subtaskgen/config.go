package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cenktekin/todoist-subtask-generator/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify subtaskgen configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/subtaskgen/config.yaml
Project-specific overrides can be placed in .subtaskgen.yaml
Credentials are stored as ${ENV_VAR} references, never literal values.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("todoist.api_token: %s\n", maskSecret(cfg.Todoist.APIToken))
	fmt.Printf("todoist.requests_per_minute: %d\n", cfg.Todoist.RequestsPerMinute)
	fmt.Printf("openrouter.api_key: %s\n", maskSecret(cfg.OpenRouter.APIKey))
	fmt.Printf("openrouter.default_model: %s\n", cfg.OpenRouter.DefaultModel)
	fmt.Printf("openrouter.fallback_model: %s\n", cfg.OpenRouter.FallbackModel)
	fmt.Printf("openrouter.max_tokens: %d\n", cfg.OpenRouter.MaxTokens)
	fmt.Printf("anthropic.enabled: %t\n", cfg.Anthropic.Enabled)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("subtasks.max_subtasks: %d\n", cfg.Subtasks.MaxSubtasks)
	fmt.Printf("subtasks.keywords_file: %s\n", cfg.Subtasks.KeywordsFile)
	fmt.Printf("scheduling.work_day_start: %s\n", cfg.Scheduling.WorkDayStart)
	fmt.Printf("scheduling.work_day_end: %s\n", cfg.Scheduling.WorkDayEnd)
	fmt.Printf("scheduling.include_weekends: %t\n", cfg.Scheduling.IncludeWeekends)
	fmt.Printf("scheduling.timezone: %s\n", cfg.Scheduling.Timezone)
	fmt.Printf("database.path: %s\n", cfg.Database.Path)
	fmt.Printf("logging.level: %s\n", cfg.Logging.Level)
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "****"
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "todoist.api_token":
		return maskSecret(cfg.Todoist.APIToken), nil
	case "todoist.requests_per_minute":
		return strconv.Itoa(cfg.Todoist.RequestsPerMinute), nil
	case "openrouter.api_key":
		return maskSecret(cfg.OpenRouter.APIKey), nil
	case "openrouter.default_model":
		return cfg.OpenRouter.DefaultModel, nil
	case "openrouter.fallback_model":
		return cfg.OpenRouter.FallbackModel, nil
	case "openrouter.max_tokens":
		return strconv.Itoa(cfg.OpenRouter.MaxTokens), nil
	case "anthropic.enabled":
		return strconv.FormatBool(cfg.Anthropic.Enabled), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "subtasks.max_subtasks":
		return strconv.Itoa(cfg.Subtasks.MaxSubtasks), nil
	case "subtasks.keywords_file":
		return cfg.Subtasks.KeywordsFile, nil
	case "scheduling.work_day_start":
		return cfg.Scheduling.WorkDayStart, nil
	case "scheduling.work_day_end":
		return cfg.Scheduling.WorkDayEnd, nil
	case "scheduling.include_weekends":
		return strconv.FormatBool(cfg.Scheduling.IncludeWeekends), nil
	case "scheduling.timezone":
		return cfg.Scheduling.Timezone, nil
	case "database.path":
		return cfg.Database.Path, nil
	case "logging.level":
		return cfg.Logging.Level, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "openrouter.default_model":
		cfg.OpenRouter.DefaultModel = value
	case "openrouter.fallback_model":
		cfg.OpenRouter.FallbackModel = value
	case "openrouter.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		cfg.OpenRouter.MaxTokens = n
	case "todoist.requests_per_minute":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		cfg.Todoist.RequestsPerMinute = n
	case "anthropic.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Anthropic.Enabled = b
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "subtasks.max_subtasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		cfg.Subtasks.MaxSubtasks = n
	case "subtasks.keywords_file":
		cfg.Subtasks.KeywordsFile = value
	case "scheduling.work_day_start":
		cfg.Scheduling.WorkDayStart = value
	case "scheduling.work_day_end":
		cfg.Scheduling.WorkDayEnd = value
	case "scheduling.include_weekends":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Scheduling.IncludeWeekends = b
	case "scheduling.timezone":
		cfg.Scheduling.Timezone = value
	case "database.path":
		cfg.Database.Path = value
	case "logging.level":
		cfg.Logging.Level = value
	case "todoist.api_token", "openrouter.api_key", "anthropic.api_key":
		return fmt.Errorf("credentials are read from the environment; export the variable instead of storing it")
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
