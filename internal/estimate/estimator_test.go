package estimate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestEstimator(max int) *Estimator {
	e := New(DefaultKeywords(), max)
	// Pin "today" so due-date arithmetic is stable.
	e.now = func() time.Time {
		return time.Date(2025, time.January, 6, 10, 30, 0, 0, time.UTC)
	}
	return e
}

func TestComplexityScore_KeywordTiers(t *testing.T) {
	e := newTestEstimator(10)

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one high keyword", "proje", 3},
		{"one medium keyword", "hazırla", 2},
		{"one low keyword", "gönder", 1},
		{"high and medium accumulate", "proje hazırla", 5},
		{"distinct hits all count", "proje sistem hazırla", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.ComplexityScore(tt.text); got != tt.want {
				t.Errorf("ComplexityScore(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestComplexityScore_WordCountBonus(t *testing.T) {
	e := newTestEstimator(10)

	word := "kelime "
	if got := e.ComplexityScore(strings.Repeat(word, 11)); got != 1 {
		t.Errorf("11 words: score = %d, want 1", got)
	}
	if got := e.ComplexityScore(strings.Repeat(word, 21)); got != 2 {
		t.Errorf("21 words: score = %d, want 2", got)
	}
	if got := e.ComplexityScore(strings.Repeat(word, 51)); got != 3 {
		t.Errorf("51 words: score = %d, want 3", got)
	}
}

func TestSuggest_MonotonicInWordCount(t *testing.T) {
	e := newTestEstimator(50)

	prev := 0
	for _, words := range []int{5, 11, 21, 51, 80} {
		text := strings.Repeat("kelime ", words)
		got := e.Suggest(text, "", "", "")
		if got < prev {
			t.Errorf("Suggest with %d words = %d, less than previous %d", words, got, prev)
		}
		prev = got
	}
}

func TestSuggest_NeverExceedsMax(t *testing.T) {
	e := newTestEstimator(10)

	extreme := strings.Repeat("proje sistem geliştir oluştur tasarla analiz araştır ", 20)
	if got := e.Suggest(extreme, extreme, "2025-06-01", "6 ay"); got > 10 {
		t.Errorf("Suggest = %d, want <= 10", got)
	}
}

func TestSuggest_ComplexityBuckets(t *testing.T) {
	e := newTestEstimator(20)

	tests := []struct {
		name string
		text string
		want int
	}{
		{"no signal", "x", 3},
		{"score 1", "gönder", 4},
		{"score 3", "proje", 6},
		{"score 5", "proje hazırla", 10},
		{"score 8", "proje sistem hazırla", 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Suggest(tt.text, "", "", ""); got != tt.want {
				t.Errorf("Suggest(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestSuggest_TimeBasedFromDueDate(t *testing.T) {
	e := newTestEstimator(100)

	// 10 days out, research task: 10 days * 1 subtask/day = 10, which
	// beats the complexity bucket of 6.
	got := e.Suggest("araştır", "", "2025-01-16", "")
	if got != 10 {
		t.Errorf("Suggest = %d, want 10 (10 days * 1/day)", got)
	}

	// Same task with a learning keyword is denser: 10 days * 2/day = 20.
	got = e.Suggest("kurs", "", "2025-01-16", "")
	if got != 20 {
		t.Errorf("Suggest = %d, want 20 (10 days * 2/day)", got)
	}
}

func TestSuggest_TimeBasedFromContextText(t *testing.T) {
	e := newTestEstimator(100)

	// No due date; "2 hafta" in the context supplies 14 days.
	// Simple task (score 0 -> density 3): 14 * 3 = 42.
	got := e.Suggest("x", "", "", "bu iş 2 hafta sürer")
	if got != 42 {
		t.Errorf("Suggest = %d, want 42 (14 days * 3/day)", got)
	}
}

func TestSuggest_PicksLargerCandidate(t *testing.T) {
	e := newTestEstimator(100)

	// Complex text (bucket 15) with only 2 days available: time-based
	// candidate is small, so the complexity bucket wins.
	got := e.Suggest("proje sistem hazırla", "", "2025-01-08", "")
	if got != 15 {
		t.Errorf("Suggest = %d, want 15 (complexity bucket beats time-based)", got)
	}
}

func TestDaysFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"days", "15 gün içinde", 15},
		{"weeks", "2 hafta sürer", 14},
		{"months", "1 ay", 30},
		{"case insensitive", "3 GÜN", 3},
		{"no space", "5gün", 5},
		{"days win over weeks", "10 gün yani 2 hafta", 10},
		{"nothing", "yarın bitir", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysFromText(tt.text); got != tt.want {
				t.Errorf("DaysFromText(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestLoadKeywords_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	content := "high:\n  - build\n  - design\nlow:\n  - email\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	kw, err := LoadKeywords(path)
	if err != nil {
		t.Fatalf("LoadKeywords failed: %v", err)
	}

	if len(kw.High) != 2 || kw.High[0] != "build" {
		t.Errorf("High = %v, want [build design]", kw.High)
	}
	if len(kw.Low) != 1 || kw.Low[0] != "email" {
		t.Errorf("Low = %v, want [email]", kw.Low)
	}
	// Unspecified tiers keep defaults.
	if len(kw.Medium) == 0 {
		t.Error("Medium should fall back to defaults")
	}
	if len(kw.Research) == 0 {
		t.Error("Research should fall back to defaults")
	}
}

func TestLoadKeywords_MissingFile(t *testing.T) {
	_, err := LoadKeywords(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSetKeywords_SwapsTables(t *testing.T) {
	e := newTestEstimator(10)

	if got := e.ComplexityScore("deploy"); got != 0 {
		t.Fatalf("score before swap = %d, want 0", got)
	}

	e.SetKeywords(Keywords{High: []string{"deploy"}})
	if got := e.ComplexityScore("deploy"); got != 3 {
		t.Errorf("score after swap = %d, want 3", got)
	}
}
