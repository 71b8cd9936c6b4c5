package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func newTestOpenRouter(t *testing.T, handler http.HandlerFunc) *OpenRouter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := NewOpenRouter(OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOpenRouter failed: %v", err)
	}
	return o
}

func TestOpenRouter_Complete(t *testing.T) {
	var gotReq chatRequest
	o := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello"}},
			},
		})
	})

	got, err := o.Complete(context.Background(), CompletionRequest{
		Model:    "openai/gpt-oss-20b:free",
		System:   "sys",
		User:     "user",
		JSONOnly: true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("Complete = %q, want hello", got)
	}

	if gotReq.Model != "openai/gpt-oss-20b:free" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object", gotReq.ResponseFormat)
	}
}

func TestOpenRouter_TypedStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		o := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "denied", tt.status)
		})
		_, err := o.Complete(context.Background(), CompletionRequest{Model: "m"})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: error = %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestOpenRouter_NoChoices(t *testing.T) {
	o := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	if _, err := o.Complete(context.Background(), CompletionRequest{Model: "m"}); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestOpenRouter_ListModels(t *testing.T) {
	o := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q, want /models", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "openai/gpt-oss-20b:free"},
				{"id": "anthropic/claude-sonnet-4"},
				{"id": "google/gemini-2.5-flash-lite"},
			},
		})
	})

	got, err := o.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	want := []string{"openai/gpt-oss-20b:free", "google/gemini-2.5-flash-lite"}
	if len(got) != len(want) {
		t.Fatalf("ListModels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListModels[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewOpenRouter_RequiresKey(t *testing.T) {
	if _, err := NewOpenRouter(OpenRouterConfig{}, zerolog.Nop()); err == nil {
		t.Error("expected error for missing API key")
	}
}
