package config

import (
	"fmt"
	"time"
)

// TimeOfDay is a minute-resolution local time of day (minutes since midnight).
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// At anchors the time of day onto a calendar date in loc.
func (t TimeOfDay) At(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, loc)
}

// Window is a half-open [Start,End) local time-of-day interval.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether ts falls inside the window in loc. Windows that
// cross midnight (End <= Start) wrap around.
func (w Window) Contains(ts time.Time, loc *time.Location) bool {
	t := ts.In(loc)
	m := TimeOfDay(t.Hour()*60 + t.Minute())
	if w.Start < w.End {
		return m >= w.Start && m < w.End
	}
	return m >= w.Start || m < w.End
}

// CrossesMidnight reports whether the window wraps past 00:00.
func (w Window) CrossesMidnight() bool { return w.End <= w.Start }
