// Package ai generates subtask breakdowns with a chat-completion model,
// repairing and validating the model's JSON output before anything
// downstream sees it.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnauthorized signals a 401 from the model API. Never retried on
// the fallback model; a bad key fails the same way everywhere.
var ErrUnauthorized = errors.New("ai: unauthorized")

// ErrRateLimited signals a 429 from the model API. Never retried on
// the fallback model; the caller's rate limiter owns backoff.
var ErrRateLimited = errors.New("ai: rate limited")

// CompletionRequest is one chat-completion call.
type CompletionRequest struct {
	// Model is the provider-specific model identifier.
	Model string
	// System is the system prompt.
	System string
	// User is the user prompt.
	User string
	// JSONOnly asks the provider to constrain output to a JSON object
	// where the provider supports it.
	JSONOnly bool
}

// Provider is a chat-completion backend.
type Provider interface {
	// Complete runs one completion and returns the assistant text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Name identifies the provider in logs.
	Name() string
}

// statusError maps an HTTP status to the typed sentinel errors the
// generator's fallback logic branches on.
func statusError(status int, body string) error {
	switch status {
	case 401:
		return fmt.Errorf("%w: %s", ErrUnauthorized, preview(body))
	case 429:
		return fmt.Errorf("%w: %s", ErrRateLimited, preview(body))
	default:
		return fmt.Errorf("ai: unexpected status %d: %s", status, preview(body))
	}
}

const previewLen = 200

// preview truncates diagnostic text so failures never dump a full
// model payload into logs or error chains.
func preview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	return s[:previewLen] + "..."
}
