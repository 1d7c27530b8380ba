package calendar

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

// EntryView is one visit as the views render it.
type EntryView struct {
	ID        string
	Start     time.Time
	Span      string // "09:00-10:30"
	Client    string
	Staff     string
	Service   string
	Color     string
	Recurring bool
}

// DayView groups the visits of one date.
type DayView struct {
	Date    time.Time
	InFocus bool // inside the displayed month (always true outside month view)
	IsToday bool
	Entries []EntryView
}

// DisplayRange is the part of the window a view draws. Month view shows whole
// weeks around the month without the extra prefetched week on each side.
func DisplayRange(ref time.Time, mode ViewMode) Window {
	if mode != ViewMonth {
		return Resolve(ref, mode)
	}
	day := DateOf(ref)
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{
		Start: mondayOnOrBefore(first),
		End:   sundayOnOrAfter(first.AddDate(0, 1, -1)),
	}
}

// BuildDays lays the entries out over the display range of the snapshot. Entry
// times are shown in loc.
func BuildDays(s Snapshot, loc *time.Location, now time.Time) []DayView {
	if loc == nil {
		loc = time.Local
	}
	display := DisplayRange(s.ReferenceDate, s.View)
	today := DateOf(now.In(loc))

	byDay := lo.GroupBy(s.Entries, func(e model.Schedule) string {
		return FormatDate(e.StartTime.In(loc))
	})

	days := make([]DayView, 0, 42)
	for _, d := range display.Days() {
		entries := byDay[FormatDate(d)]
		slices.SortStableFunc(entries, func(a, b model.Schedule) int {
			return a.StartTime.Compare(b.StartTime)
		})

		days = append(days, DayView{
			Date:    d,
			InFocus: s.View != ViewMonth || d.Month() == s.ReferenceDate.Month(),
			IsToday: d.Equal(today),
			Entries: lo.Map(entries, func(e model.Schedule, _ int) EntryView {
				return toEntryView(e, loc)
			}),
		})
	}
	return days
}

func toEntryView(e model.Schedule, loc *time.Location) EntryView {
	v := EntryView{
		ID:        e.ID,
		Start:     e.StartTime.In(loc),
		Span:      e.StartTime.In(loc).Format("15:04") + "-" + e.EndTime.In(loc).Format("15:04"),
		Client:    lo.Ternary(e.ClientName != "", e.ClientName, e.ClientID),
		Staff:     lo.Ternary(e.StaffName != "", e.StaffName, e.StaffID),
		Recurring: e.IsRecurring(),
	}
	if e.ServiceType != nil {
		v.Service = e.ServiceType.Name
		v.Color = e.ServiceType.Color
	}
	return v
}
