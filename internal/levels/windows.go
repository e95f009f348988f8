package levels

import (
	"time"

	"sbwatch/internal/config"
)

// Bounds anchors a session window onto a calendar day as a half-open
// [start,end) interval in loc. A window that crosses midnight (such as an
// Asia session 20:00-00:00) starts on the previous day.
func Bounds(day time.Time, w config.Window, loc *time.Location) (start, end time.Time) {
	start = w.Start.At(day, loc)
	end = w.End.At(day, loc)
	if w.CrossesMidnight() {
		start = start.AddDate(0, 0, -1)
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

// PriorTradingDay steps back from day to the previous weekday. Exchange
// holidays are handled upstream by the calendar that schedules the build.
func PriorTradingDay(day time.Time) time.Time {
	prior := day.AddDate(0, 0, -1)
	for prior.Weekday() == time.Saturday || prior.Weekday() == time.Sunday {
		prior = prior.AddDate(0, 0, -1)
	}
	return prior
}

// RegularSession is the prior-day window PDH/PDL are computed from.
var RegularSession = config.Window{
	Start: mustTOD("09:30"),
	End:   mustTOD("16:00"),
}

func mustTOD(s string) config.TimeOfDay {
	t, err := config.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}
