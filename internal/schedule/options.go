package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// Options controls the work calendar the scheduler places subtasks into.
type Options struct {
	// WorkDayStart is the start of the working day in HH:MM form.
	WorkDayStart string
	// WorkDayEnd is the end of the working day in HH:MM form.
	WorkDayEnd string
	// IncludeWeekends treats Saturday and Sunday as work days.
	IncludeWeekends bool
	// DailyWorkHours is the nominal work-hour budget per day.
	DailyWorkHours float64
	// BufferHours is the advisory gap between consecutive subtasks. It is
	// carried in the options but not yet applied to placement.
	BufferHours float64
	// Timezone is the IANA zone label used for display formatting only;
	// all scheduling arithmetic is local wall-clock.
	Timezone string
}

// DefaultOptions returns the standard 09:00-17:00 weekday calendar.
func DefaultOptions() Options {
	return Options{
		WorkDayStart:    "09:00",
		WorkDayEnd:      "17:00",
		IncludeWeekends: false,
		DailyWorkHours:  8,
		BufferHours:     1,
		Timezone:        "Europe/Istanbul",
	}
}

// clock is a time of day.
type clock struct {
	hour   int
	minute int
}

// hours returns the clock as fractional hours since midnight.
func (c clock) hours() float64 {
	return float64(c.hour) + float64(c.minute)/60
}

// parseClock parses an HH:MM string.
func parseClock(s string) (clock, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return clock{}, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return clock{}, fmt.Errorf("invalid hour in clock time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return clock{}, fmt.Errorf("invalid minute in clock time %q", s)
	}
	return clock{hour: h, minute: m}, nil
}
