// Package estimate suggests how many subtasks a model should produce for
// a task, balancing a keyword-derived complexity score against the time
// available before the deadline.
package estimate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Duration phrases recognized in task text and user-supplied context.
var (
	dayRe   = regexp.MustCompile(`(?i)(\d+)\s*gün`)
	weekRe  = regexp.MustCompile(`(?i)(\d+)\s*hafta`)
	monthRe = regexp.MustCompile(`(?i)(\d+)\s*ay`)
)

// Estimator scores task text and derives a bounded subtask-count
// suggestion. Safe for concurrent use; keyword tables can be swapped at
// runtime via SetKeywords.
type Estimator struct {
	mu          sync.RWMutex
	keywords    Keywords
	maxSubtasks int

	now func() time.Time
}

// New creates an Estimator with the given keyword tables and upper bound.
// A maxSubtasks of zero or less disables clamping.
func New(keywords Keywords, maxSubtasks int) *Estimator {
	return &Estimator{
		keywords:    keywords,
		maxSubtasks: maxSubtasks,
		now:         time.Now,
	}
}

// SetKeywords replaces the keyword tables.
func (e *Estimator) SetKeywords(kw Keywords) {
	e.mu.Lock()
	e.keywords = kw
	e.mu.Unlock()
}

// ComplexityScore scans the lowercased text for keyword hits (high tier
// +3, medium +2, low +1, cumulative) and adds a word-count bonus
// (>50 words +3, >20 +2, >10 +1).
func (e *Estimator) ComplexityScore(text string) int {
	e.mu.RLock()
	kw := e.keywords
	e.mu.RUnlock()

	lower := strings.ToLower(text)

	score := 0
	for _, k := range kw.High {
		if strings.Contains(lower, k) {
			score += 3
		}
	}
	for _, k := range kw.Medium {
		if strings.Contains(lower, k) {
			score += 2
		}
	}
	for _, k := range kw.Low {
		if strings.Contains(lower, k) {
			score += 1
		}
	}

	words := len(strings.Fields(lower))
	switch {
	case words > 50:
		score += 3
	case words > 20:
		score += 2
	case words > 10:
		score += 1
	}

	return score
}

// complexityCount maps a combined complexity score to a discrete subtask
// count bucket.
func complexityCount(score int) int {
	switch {
	case score >= 8:
		return 15
	case score >= 5:
		return 10
	case score >= 3:
		return 6
	case score >= 1:
		return 4
	default:
		return 3
	}
}

// DaysFromText extracts an explicit duration phrase ("15 gün", "2 hafta",
// "1 ay") from text and converts it to whole days. Returns 0 when no
// phrase is found.
func DaysFromText(text string) int {
	if m := dayRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := weekRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 7
	}
	if m := monthRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 30
	}
	return 0
}

// subtasksPerDay picks a density by task category: learning tasks pack
// more subtasks per day, research and planning fewer, and everything else
// scales inversely with the complexity score.
func (e *Estimator) subtasksPerDay(lower string, complexityScore int) float64 {
	e.mu.RLock()
	kw := e.keywords
	e.mu.RUnlock()

	containsAny := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny(kw.Learning):
		return 2
	case containsAny(kw.Project):
		return 2.5
	case containsAny(kw.Research):
		return 1
	case complexityScore >= 6:
		return 1.5
	case complexityScore <= 2:
		return 3
	default:
		return 1.5
	}
}

// Suggest returns the suggested subtask count for a task. dueDate is a
// YYYY-MM-DD string or empty; extraContext is free text scanned for
// duration hints when the due date is absent or within one day. The
// result is the larger of the time-based and complexity-based candidates,
// clamped to the configured maximum.
func (e *Estimator) Suggest(content, description, dueDate, extraContext string) int {
	text := strings.ToLower(content + " " + description)
	complexityScore := e.ComplexityScore(text)
	complexityBased := complexityCount(complexityScore)

	totalDays := 0
	if dueDate != "" {
		if due, err := time.Parse("2006-01-02", dueDate); err == nil {
			n := e.now()
			today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
			days := int(math.Ceil(due.Sub(today).Hours() / 24))
			if days < 1 {
				days = 1
			}
			totalDays = days
		}
	}

	if totalDays <= 1 {
		combined := content + " " + description + " " + extraContext
		if d := DaysFromText(combined); d > 0 {
			totalDays = d
		}
	}

	final := complexityBased
	if totalDays > 1 {
		timeBased := int(math.Ceil(float64(totalDays) * e.subtasksPerDay(text, complexityScore)))
		if timeBased > final {
			final = timeBased
		}
	}

	if e.maxSubtasks > 0 && final > e.maxSubtasks {
		final = e.maxSubtasks
	}
	return final
}
