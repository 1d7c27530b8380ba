package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

func TestDisplayRange(t *testing.T) {
	w := DisplayRange(mustDate(t, "2026-02-10"), ViewMonth)
	assert.Equal(t, "2026-01-26_2026-03-01", w.Key())

	w = DisplayRange(mustDate(t, "2026-02-10"), ViewWeek)
	assert.Equal(t, Resolve(mustDate(t, "2026-02-10"), ViewWeek), w)
}

func TestBuildDays_WeekGroupsAndSorts(t *testing.T) {
	loc := time.UTC
	at := func(day string, hour int) time.Time {
		return mustDate(t, day).Add(time.Duration(hour) * time.Hour)
	}
	rid := "series-1"
	snap := Snapshot{
		ReferenceDate: mustDate(t, "2026-01-14"),
		View:          ViewWeek,
		Entries: []model.Schedule{
			{ID: "late", StartTime: at("2026-01-14", 15), EndTime: at("2026-01-14", 16), ClientName: "Ada", StaffID: "staff-1"},
			{ID: "early", StartTime: at("2026-01-14", 9), EndTime: at("2026-01-14", 10), ClientID: "client-2", StaffName: "Ben",
				RecurrenceID: &rid, ServiceType: &model.ServiceType{Name: "Wound care", Color: "#ff0000"}},
			{ID: "mon", StartTime: at("2026-01-12", 8), EndTime: at("2026-01-12", 9)},
		},
	}

	days := BuildDays(snap, loc, at("2026-01-14", 12))
	require.Len(t, days, 7)

	assert.Equal(t, "2026-01-12", FormatDate(days[0].Date))
	require.Len(t, days[0].Entries, 1)
	assert.Equal(t, "mon", days[0].Entries[0].ID)

	wed := days[2]
	assert.True(t, wed.IsToday)
	assert.True(t, wed.InFocus)
	require.Len(t, wed.Entries, 2)

	early := wed.Entries[0]
	assert.Equal(t, "early", early.ID)
	assert.Equal(t, "09:00-10:00", early.Span)
	assert.Equal(t, "client-2", early.Client)
	assert.Equal(t, "Ben", early.Staff)
	assert.Equal(t, "Wound care", early.Service)
	assert.Equal(t, "#ff0000", early.Color)
	assert.True(t, early.Recurring)

	late := wed.Entries[1]
	assert.Equal(t, "Ada", late.Client)
	assert.Equal(t, "staff-1", late.Staff)
	assert.False(t, late.Recurring)

	for _, d := range []DayView{days[1], days[3], days[6]} {
		assert.Empty(t, d.Entries)
		assert.False(t, d.IsToday)
	}
}

func TestBuildDays_MonthMarksFocus(t *testing.T) {
	snap := Snapshot{ReferenceDate: mustDate(t, "2026-02-10"), View: ViewMonth}
	days := BuildDays(snap, time.UTC, mustDate(t, "2030-01-01"))

	require.Len(t, days, 35)
	assert.False(t, days[0].InFocus)  // 2026-01-26
	assert.True(t, days[6].InFocus)   // 2026-02-01
	assert.False(t, days[34].InFocus) // 2026-03-01
}

func TestBuildDays_UsesDisplayLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 20:00 UTC on the 13th is the morning of the 14th in Tokyo
	start := time.Date(2026, 1, 13, 20, 0, 0, 0, time.UTC)
	snap := Snapshot{
		ReferenceDate: mustDate(t, "2026-01-14"),
		View:          ViewDay,
		Entries:       []model.Schedule{{ID: "x", StartTime: start, EndTime: start.Add(time.Hour)}},
	}

	days := BuildDays(snap, tokyo, start)
	require.Len(t, days, 1)
	require.Len(t, days[0].Entries, 1)
	assert.Equal(t, "05:00-06:00", days[0].Entries[0].Span)
	assert.True(t, days[0].IsToday)
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Contains(t, UserMessage(ErrNoFacility), "not linked to a facility")
	assert.Contains(t, UserMessage(ErrScheduleNotFound), "no longer exists")
	assert.Contains(t, UserMessage(assert.AnError), assert.AnError.Error())
}
