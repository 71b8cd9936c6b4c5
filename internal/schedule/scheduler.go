// Package schedule places variable-duration subtasks into working-hour
// slots counting backward from a deadline, so the last subtask finishes
// at the deadline and earlier ones fill whatever work time remains.
package schedule

import (
	"strings"
	"time"
)

// SubtaskInput is one subtask to place, with an optional explicit
// duration estimate. A zero EstimatedHours falls back to the word-count
// heuristic.
type SubtaskInput struct {
	Content        string
	EstimatedHours float64
}

// ScheduledSubtask is one placed subtask.
type ScheduledSubtask struct {
	// Content is the subtask text.
	Content string
	// DueDate is when the subtask should be finished.
	DueDate time.Time
	// Hours is the duration assigned to the subtask.
	Hours float64
}

// Schedule is the result of placing all subtasks of one task.
type Schedule struct {
	// TaskContent is the parent task title.
	TaskContent string
	// StartDate is where the backward fill ended up.
	StartDate time.Time
	// EndDate is the parent task's due date.
	EndDate time.Time
	// Subtasks lists placements in original (chronological) order.
	Subtasks []ScheduledSubtask
	// TotalHours is the sum of all assigned durations.
	TotalHours float64
}

// Scheduler fills a work calendar backward from a deadline.
type Scheduler struct {
	opts      Options
	workStart clock
	workEnd   clock
}

// NewScheduler validates the calendar options and returns a Scheduler.
func NewScheduler(opts Options) (*Scheduler, error) {
	start, err := parseClock(opts.WorkDayStart)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(opts.WorkDayEnd)
	if err != nil {
		return nil, err
	}
	return &Scheduler{opts: opts, workStart: start, workEnd: end}, nil
}

// Options returns the calendar options the scheduler was built with.
func (s *Scheduler) Options() Options {
	return s.opts
}

// Calculate places subtasks backward from dueDate. Subtasks are processed
// in reverse so the last one hugs the deadline; each is placed as late in
// its day as possible. A subtask longer than one day's working span is
// placed at work-start and allowed to spill past work-end rather than
// being split across days.
func (s *Scheduler) Calculate(taskContent string, dueDate time.Time, subtasks []SubtaskInput) Schedule {
	total := 0.0
	for _, st := range subtasks {
		total += s.hoursFor(st)
	}

	cursor := midnight(dueDate).AddDate(0, 0, -1)
	placed := make([]ScheduledSubtask, 0, len(subtasks))
	remaining := total

	for idx := len(subtasks) - 1; idx >= 0 && remaining > 0; {
		st := subtasks[idx]
		hours := s.hoursFor(st)

		if !s.IsWorkDay(cursor) {
			cursor = s.PreviousWorkDay(cursor)
			continue
		}

		start := s.placementStart(cursor, hours)
		end := start.Add(durationHours(hours))

		placed = append([]ScheduledSubtask{{
			Content: st.Content,
			DueDate: end,
			Hours:   hours,
		}}, placed...)

		remaining -= hours
		cursor = start
		idx--
	}

	return Schedule{
		TaskContent: taskContent,
		StartDate:   cursor,
		EndDate:     dueDate,
		Subtasks:    placed,
		TotalHours:  total,
	}
}

// placementStart picks the start instant for a subtask on the given day:
// as late as possible (work-end minus duration) when it fits, work-start
// when the computed start would precede it or the duration exceeds the
// day's span.
func (s *Scheduler) placementStart(day time.Time, hours float64) time.Time {
	d := midnight(day)
	dayStart := d.Add(durationHours(s.workStart.hours()))
	if hours > s.availableHours() {
		return dayStart
	}
	latest := d.Add(durationHours(s.workEnd.hours() - hours))
	if latest.Before(dayStart) {
		return dayStart
	}
	return latest
}

// availableHours is the clock-time span between work start and end.
func (s *Scheduler) availableHours() float64 {
	h := s.workEnd.hours() - s.workStart.hours()
	if h < 0 {
		return 0
	}
	return h
}

// hoursFor returns the explicit estimate or the word-count fallback.
func (s *Scheduler) hoursFor(st SubtaskInput) float64 {
	if st.EstimatedHours > 0 {
		return st.EstimatedHours
	}
	return EstimateHours(st.Content)
}

// IsWorkDay reports whether t falls on a day eligible for scheduling.
func (s *Scheduler) IsWorkDay(t time.Time) bool {
	if s.opts.IncludeWeekends {
		return true
	}
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// PreviousWorkDay steps back one day at a time until it lands on a work
// day.
func (s *Scheduler) PreviousWorkDay(t time.Time) time.Time {
	prev := midnight(t).AddDate(0, 0, -1)
	for !s.IsWorkDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// AddBusinessDays advances t by n work days.
func (s *Scheduler) AddBusinessDays(t time.Time, n int) time.Time {
	result := t
	for added := 0; added < n; {
		result = result.AddDate(0, 0, 1)
		if s.IsWorkDay(result) {
			added++
		}
	}
	return result
}

// WorkDaysBetween counts work days from start through end, inclusive.
func (s *Scheduler) WorkDaysBetween(start, end time.Time) int {
	count := 0
	for cur := midnight(start); !cur.After(midnight(end)); cur = cur.AddDate(0, 0, 1) {
		if s.IsWorkDay(cur) {
			count++
		}
	}
	return count
}

// ProjectDueDate walks forward from start, consuming up to one day's
// available hours per work day, and returns the day the duration is
// exhausted.
func (s *Scheduler) ProjectDueDate(start time.Time, hours float64) time.Time {
	remaining := hours
	day := start
	for remaining > 0 {
		if s.IsWorkDay(day) {
			today := s.availableHours()
			if today > remaining {
				today = remaining
			}
			remaining -= today
			if remaining > 0 {
				day = day.AddDate(0, 0, 1)
			}
		} else {
			day = day.AddDate(0, 0, 1)
		}
	}
	return day
}

// EstimateHours estimates a subtask's duration from its word count:
// up to 5 words half an hour, up to 10 one hour, up to 20 two, up to 50
// four, anything longer a full day. Also used standalone for duration
// display.
func EstimateHours(content string) float64 {
	words := len(strings.Fields(content))
	switch {
	case words <= 5:
		return 0.5
	case words <= 10:
		return 1
	case words <= 20:
		return 2
	case words <= 50:
		return 4
	default:
		return 8
	}
}

// FormatDate renders a date for the Todoist API.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// IsOverdue reports whether the date (ignoring time of day) is before
// today.
func IsOverdue(t, today time.Time) bool {
	return midnight(t).Before(midnight(today))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func durationHours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
