package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cenktekin/todoist-subtask-generator/pkg/models"
)

// fakeProvider replays canned completions and records every request.
type fakeProvider struct {
	responses []string
	errs      []error
	calls     []CompletionRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.calls = append(f.calls, req)
	i := len(f.calls) - 1
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func newTestGenerator(p Provider, cfg GeneratorConfig) *Generator {
	g := NewGenerator(p, cfg, zerolog.Nop())
	g.now = func() time.Time { return time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC) }
	return g
}

var genReq = models.GenerationRequest{
	TaskContent: "Web sitesini yenile",
	DueDate:     "2025-10-01",
	MaxSubtasks: 5,
}

const validJSON = `{"subtasks":[{"content":"Tasarımı gözden geçir","due":"2025-09-25","priority":2}],"estimatedDuration":"2 gün"}`

func TestGenerateSubtasks_Success(t *testing.T) {
	p := &fakeProvider{responses: []string{validJSON}}
	g := newTestGenerator(p, GeneratorConfig{DefaultModel: "m/default", FallbackModel: "m/fallback"})

	resp, err := g.GenerateSubtasks(context.Background(), genReq)
	if err != nil {
		t.Fatalf("GenerateSubtasks failed: %v", err)
	}
	if len(resp.Subtasks) != 1 || resp.Subtasks[0].Content != "Tasarımı gözden geçir" {
		t.Errorf("unexpected subtasks: %+v", resp.Subtasks)
	}
	if resp.EstimatedDuration != "2 gün" {
		t.Errorf("EstimatedDuration = %q, want %q", resp.EstimatedDuration, "2 gün")
	}

	if len(p.calls) != 1 {
		t.Fatalf("made %d calls, want 1", len(p.calls))
	}
	call := p.calls[0]
	if call.Model != "m/default" {
		t.Errorf("Model = %q, want default", call.Model)
	}
	if !call.JSONOnly {
		t.Error("JSONOnly not set on generation call")
	}
	if !strings.Contains(call.User, "Web sitesini yenile") {
		t.Error("user prompt missing task content")
	}
	if !strings.Contains(call.User, "2025-09-20") {
		t.Error("user prompt missing today's date")
	}
}

// countingGate admits every call and counts how many came through.
type countingGate struct{ calls int }

func (g *countingGate) Execute(ctx context.Context, priority int, op func(context.Context) error) error {
	g.calls++
	return op(ctx)
}

func TestGenerateSubtasks_CompletionsPassThroughGate(t *testing.T) {
	gate := &countingGate{}
	p := &fakeProvider{responses: []string{validJSON}}
	g := newTestGenerator(p, GeneratorConfig{Gate: gate, DefaultModel: "m/default"})

	if _, err := g.GenerateSubtasks(context.Background(), genReq); err != nil {
		t.Fatalf("GenerateSubtasks failed: %v", err)
	}
	if gate.calls != 1 {
		t.Errorf("gate admitted %d calls, want 1", gate.calls)
	}
}

func TestGenerateSubtasks_FallbackChargedSeparately(t *testing.T) {
	gate := &countingGate{}
	p := &fakeProvider{
		responses: []string{"", validJSON},
		errs:      []error{errors.New("model unavailable"), nil},
	}
	g := newTestGenerator(p, GeneratorConfig{Gate: gate, DefaultModel: "m/default", FallbackModel: "m/fallback"})

	if _, err := g.GenerateSubtasks(context.Background(), genReq); err != nil {
		t.Fatalf("GenerateSubtasks failed: %v", err)
	}
	if gate.calls != 2 {
		t.Errorf("gate admitted %d calls, want 2 (default and fallback)", gate.calls)
	}
}

func TestGenerateSubtasks_FallbackModel(t *testing.T) {
	p := &fakeProvider{
		responses: []string{"", validJSON},
		errs:      []error{errors.New("model unavailable"), nil},
	}
	g := newTestGenerator(p, GeneratorConfig{DefaultModel: "m/default", FallbackModel: "m/fallback"})

	if _, err := g.GenerateSubtasks(context.Background(), genReq); err != nil {
		t.Fatalf("GenerateSubtasks failed: %v", err)
	}
	if len(p.calls) != 2 {
		t.Fatalf("made %d calls, want 2", len(p.calls))
	}
	if p.calls[1].Model != "m/fallback" {
		t.Errorf("second call model = %q, want fallback", p.calls[1].Model)
	}
}

func TestGenerateSubtasks_NoFallbackOnAuthOrRateLimit(t *testing.T) {
	for _, sentinel := range []error{ErrUnauthorized, ErrRateLimited} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			p := &fakeProvider{errs: []error{sentinel}}
			g := newTestGenerator(p, GeneratorConfig{DefaultModel: "m/default", FallbackModel: "m/fallback"})

			_, err := g.GenerateSubtasks(context.Background(), genReq)
			if !errors.Is(err, sentinel) {
				t.Errorf("error = %v, want %v", err, sentinel)
			}
			if len(p.calls) != 1 {
				t.Errorf("made %d calls, want 1 (no fallback)", len(p.calls))
			}
		})
	}
}

func TestGenerateSubtasks_RegeneratesOnInvalidOutput(t *testing.T) {
	// First response parses but fails validation; second is good.
	p := &fakeProvider{responses: []string{
		`{"subtasks":[{"content":"x","priority":5}]}`,
		validJSON,
	}}
	g := newTestGenerator(p, GeneratorConfig{DefaultModel: "m/default"})

	resp, err := g.GenerateSubtasks(context.Background(), genReq)
	if err != nil {
		t.Fatalf("GenerateSubtasks failed: %v", err)
	}
	if len(resp.Subtasks) != 1 {
		t.Errorf("got %d subtasks, want 1", len(resp.Subtasks))
	}
	if len(p.calls) != 2 {
		t.Fatalf("made %d calls, want 2", len(p.calls))
	}
	if !strings.Contains(p.calls[1].User, "SADECE geçerli JSON") {
		t.Error("regeneration prompt missing strict-JSON reminder")
	}
}

func TestGenerateSubtasks_RepairsMalformedJSON(t *testing.T) {
	fenced := "```json\n" + `{"subtasks":[{"content":"Z",}],"estimatedDuration":"3h",}` + "\n```"
	p := &fakeProvider{responses: []string{fenced}}
	g := newTestGenerator(p, GeneratorConfig{DefaultModel: "m/default"})

	resp, err := g.GenerateSubtasks(context.Background(), genReq)
	if err != nil {
		t.Fatalf("GenerateSubtasks failed: %v", err)
	}
	if resp.Subtasks[0].Content != "Z" {
		t.Errorf("Content = %q, want Z", resp.Subtasks[0].Content)
	}
	if len(p.calls) != 1 {
		t.Errorf("made %d calls, want 1 (repair, not regeneration)", len(p.calls))
	}
}

func TestGenerateSubtasks_FailsAfterMaxAttempts(t *testing.T) {
	garbage := "no json here at all " + strings.Repeat("x", 500)
	p := &fakeProvider{responses: []string{garbage, garbage}}
	g := newTestGenerator(p, GeneratorConfig{DefaultModel: "m/default", MaxAttempts: 2})

	_, err := g.GenerateSubtasks(context.Background(), genReq)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if len(p.calls) != 2 {
		t.Errorf("made %d calls, want 2", len(p.calls))
	}
	// Diagnostics carry a preview, never the full payload.
	if strings.Contains(err.Error(), garbage) {
		t.Error("error contains the full model payload")
	}
}

func TestGenerateSubtasks_DefaultsEstimatedDuration(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"subtasks":[{"content":"x"}]}`}}
	g := newTestGenerator(p, GeneratorConfig{DefaultModel: "m/default"})

	resp, err := g.GenerateSubtasks(context.Background(), genReq)
	if err != nil {
		t.Fatalf("GenerateSubtasks failed: %v", err)
	}
	if resp.EstimatedDuration != "Unknown" {
		t.Errorf("EstimatedDuration = %q, want Unknown", resp.EstimatedDuration)
	}
}

func TestEstimateDuration(t *testing.T) {
	p := &fakeProvider{responses: []string{"  2 saat\n"}}
	g := newTestGenerator(p, GeneratorConfig{DefaultModel: "m/default"})

	if got := g.EstimateDuration(context.Background(), "Rapor yaz", ""); got != "2 saat" {
		t.Errorf("EstimateDuration = %q, want %q", got, "2 saat")
	}

	p = &fakeProvider{errs: []error{errors.New("down")}}
	g = newTestGenerator(p, GeneratorConfig{DefaultModel: "m/default"})
	if got := g.EstimateDuration(context.Background(), "Rapor yaz", ""); got != "Unknown" {
		t.Errorf("EstimateDuration on failure = %q, want Unknown", got)
	}
}

func TestCategorizeTask(t *testing.T) {
	p := &fakeProvider{responses: []string{`["Geliştirme","Test","Planlama","Tasarım"]`}}
	g := newTestGenerator(p, GeneratorConfig{DefaultModel: "m/default"})

	got := g.CategorizeTask(context.Background(), "API testlerini yaz", "")
	if len(got) != 3 {
		t.Fatalf("got %d categories, want 3 (capped)", len(got))
	}
	if got[0] != "Geliştirme" {
		t.Errorf("first category = %q, want Geliştirme", got[0])
	}

	p = &fakeProvider{responses: []string{"not json"}}
	g = newTestGenerator(p, GeneratorConfig{DefaultModel: "m/default"})
	if got := g.CategorizeTask(context.Background(), "x", ""); got != nil {
		t.Errorf("CategorizeTask on bad output = %v, want nil", got)
	}
}
