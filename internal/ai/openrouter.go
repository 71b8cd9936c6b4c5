package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultOpenRouterBaseURL is the OpenRouter API root.
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	openRouterTimeout = 60 * time.Second
)

// OpenRouterConfig configures an OpenRouter-backed provider.
type OpenRouterConfig struct {
	// APIKey is the OpenRouter API key. Required.
	APIKey string
	// BaseURL overrides the API root, mainly for tests.
	BaseURL string
	// MaxTokens caps the completion length.
	MaxTokens int
	// Temperature is the sampling temperature.
	Temperature float64
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// OpenRouter calls any OpenAI-compatible chat-completion endpoint
// through OpenRouter's API.
type OpenRouter struct {
	cfg  OpenRouterConfig
	http *http.Client
	log  zerolog.Logger
}

// NewOpenRouter builds an OpenRouter provider.
func NewOpenRouter(cfg OpenRouterConfig, log zerolog.Logger) (*OpenRouter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai: OpenRouter API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openRouterTimeout}
	}
	return &OpenRouter{cfg: cfg, http: client, log: log}, nil
}

// Name implements Provider.
func (o *OpenRouter) Name() string { return "openrouter" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements Provider.
func (o *OpenRouter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}
	if req.JSONOnly {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("ai: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", "https://github.com/cenktekin/todoist-subtask-generator")
	httpReq.Header.Set("X-Title", "Todoist Subtask Generator")

	start := time.Now()
	resp, err := o.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ai: call model %s: %w", req.Model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ai: read response: %w", err)
	}

	o.log.Debug().
		Str("model", req.Model).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("chat completion")

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("ai: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("ai: model %s returned no choices", req.Model)
	}
	return parsed.Choices[0].Message.Content, nil
}

type modelListResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListModels returns the OpenRouter model identifiers from the openai/
// and google/ families.
func (o *OpenRouter) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("ai: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai: list models: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, string(raw))
	}

	var parsed modelListResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("ai: decode model list: %w", err)
	}

	var models []string
	for _, m := range parsed.Data {
		if strings.Contains(m.ID, "openai/") || strings.Contains(m.ID, "google/") {
			models = append(models, m.ID)
		}
	}
	return models, nil
}
