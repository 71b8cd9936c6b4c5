// Package todoist wraps the Todoist REST API: request construction,
// response-shape normalization, and typed errors. Rate limiting is the
// caller's job; this package only reports the server's limit headers.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cenktekin/todoist-subtask-generator/pkg/models"
)

const (
	// DefaultBaseURL is the Todoist REST API root.
	DefaultBaseURL = "https://api.todoist.com/rest/v2"

	requestTimeout = 30 * time.Second
)

// APIError is a non-2xx response from the Todoist API.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Message is the server's error text, truncated.
	Message string
	// RetryAfter is the server-suggested wait on 429 responses.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("todoist: status %d: %s", e.Status, e.Message)
}

// RateLimited reports whether the server rejected the call with 429.
func (e *APIError) RateLimited() bool { return e.Status == http.StatusTooManyRequests }

// Unauthorized reports whether the API token was rejected.
func (e *APIError) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

// RateLimitState mirrors the server's X-RateLimit headers from the most
// recent response.
type RateLimitState struct {
	Remaining int
	Reset     time.Time
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// APIToken is the Todoist API token. Required.
	APIToken string
	// BaseURL overrides the API root, mainly for tests.
	BaseURL string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client is a Todoist REST API client.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  zerolog.Logger

	mu    sync.Mutex
	state RateLimitState
}

// NewClient builds a Client.
func NewClient(cfg ClientConfig, log zerolog.Logger) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("todoist: API token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		cfg:   cfg,
		http:  httpClient,
		log:   log,
		state: RateLimitState{Remaining: 60},
	}, nil
}

// RateLimitState returns the limit headers from the last response.
func (c *Client) RateLimitState() RateLimitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("todoist: encode request: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return fmt.Errorf("todoist: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("todoist: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.captureHeaders(resp)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("todoist: read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("todoist: decode response: %w", err)
	}
	return nil
}

func (c *Client) captureHeaders(resp *http.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v := resp.Header.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.state.Remaining = n
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.state.Reset = time.Unix(n, 0)
		}
	}
}

func (c *Client) apiError(resp *http.Response, raw []byte) error {
	msg := string(raw)
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		msg = parsed.Error
	}
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: msg}
	if resp.StatusCode == http.StatusTooManyRequests {
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
	}
	return apiErr
}

// FilterOptions narrows GetTasks server-side.
type FilterOptions struct {
	// ProjectID limits results to one project.
	ProjectID string
	// Label limits results to tasks carrying a label name.
	Label string
	// Filter is a Todoist filter query string.
	Filter string
}

// GetTasks lists active tasks, following pagination cursors until the
// server stops returning them.
func (c *Client) GetTasks(ctx context.Context, opts FilterOptions) ([]models.Task, error) {
	query := url.Values{"lang": {"tr"}}
	if opts.ProjectID != "" {
		query.Set("project_id", opts.ProjectID)
	}
	if opts.Label != "" {
		query.Set("label", opts.Label)
	}
	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}

	var all []models.Task
	for {
		var raw json.RawMessage
		if err := c.do(ctx, http.MethodGet, "/tasks", query, nil, &raw); err != nil {
			return nil, err
		}
		page, cursor, err := NormalizeList[models.Task](raw)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if cursor == "" {
			return all, nil
		}
		query.Set("cursor", cursor)
	}
}

// GetTask fetches one task by id.
func (c *Client) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID, nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask updates a task in place.
func (c *Client) UpdateTask(ctx context.Context, taskID string, req models.UpdateTaskRequest) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodPost, "/tasks/"+taskID, nil, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task permanently.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+taskID, nil, nil, nil)
}

// CloseTask marks a task complete.
func (c *Client) CloseTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodPost, "/tasks/"+taskID+"/close", nil, nil, nil)
}

// ReopenTask reopens a completed task.
func (c *Client) ReopenTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodPost, "/tasks/"+taskID+"/reopen", nil, nil, nil)
}

// GetProjects lists all projects.
func (c *Client) GetProjects(ctx context.Context) ([]models.Project, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/projects", nil, nil, &raw); err != nil {
		return nil, err
	}
	projects, _, err := NormalizeList[models.Project](raw)
	return projects, err
}

// GetLabels lists all personal labels.
func (c *Client) GetLabels(ctx context.Context) ([]models.Label, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/labels", nil, nil, &raw); err != nil {
		return nil, err
	}
	labels, _, err := NormalizeList[models.Label](raw)
	return labels, err
}
