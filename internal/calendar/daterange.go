package calendar

import (
	"time"

	"github.com/Alijeyrad/carevisit_backend/pkg/constants"
)

type ViewMode string

const (
	ViewMonth ViewMode = "month"
	ViewWeek  ViewMode = "week"
	ViewDay   ViewMode = "day"
	ViewList  ViewMode = "list"
)

// ParseViewMode accepts any string; unknown modes behave like a single-day view.
func ParseViewMode(s string) ViewMode {
	if s == "" {
		return ViewWeek
	}
	return ViewMode(s)
}

// Window is an inclusive range of civil dates, each held at UTC midnight.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) StartString() string { return w.Start.Format(constants.DateLayout) }
func (w Window) EndString() string   { return w.End.Format(constants.DateLayout) }

// Key is the range key used to decide whether a fetch is needed.
func (w Window) Key() string {
	return w.StartString() + "_" + w.EndString()
}

// Contains reports whether the civil date of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days lists every date of the window in order.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DateOf returns the civil date of t (in t's own location) at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(constants.DateLayout, s)
}

// FormatDate renders the civil date of t.
func FormatDate(t time.Time) string {
	return DateOf(t).Format(constants.DateLayout)
}

// Resolve maps a reference date and view mode to the window of dates to load.
func Resolve(ref time.Time, mode ViewMode) Window {
	day := DateOf(ref)

	switch mode {
	case ViewMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		return Window{
			Start: mondayOnOrBefore(first).AddDate(0, 0, -7),
			End:   sundayOnOrAfter(last).AddDate(0, 0, 7),
		}
	case ViewWeek:
		return Window{Start: mondayOnOrBefore(day), End: sundayOnOrAfter(day)}
	default:
		return Window{Start: day, End: day}
	}
}

func mondayOnOrBefore(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func sundayOnOrAfter(d time.Time) time.Time {
	offset := (7 - int(d.Weekday())) % 7
	return d.AddDate(0, 0, offset)
}
