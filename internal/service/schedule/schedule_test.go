package schedule

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/carevisit_backend/internal/calendar"
	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
)

var (
	scope   = model.Scope{FacilityID: "fac-1", StaffID: "staff-1"}
	fixedAt = time.Date(2026, 1, 14, 8, 0, 0, 0, time.UTC)
)

func newTestService(store *fakeStore, cache RangeCache, n Notifier) Service {
	return New(store, Options{Cache: cache, Notifier: n, Now: func() time.Time { return fixedAt }})
}

func validInput() model.ScheduleInput {
	return model.ScheduleInput{
		ClientID:  "client-1",
		StaffID:   "staff-1",
		StartTime: time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestListRange_FacilityDayBounds(t *testing.T) {
	store := newFakeStore()
	store.tz = "Asia/Tokyo"
	svc := newTestService(store, nil, nil)

	entries, err := svc.ListRange(context.Background(), scope, "2026-01-12", "2026-01-18")
	require.NoError(t, err)
	assert.NotNil(t, entries)

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	require.Len(t, store.ranges, 1)
	assert.True(t, store.ranges[0].from.Equal(time.Date(2026, 1, 12, 0, 0, 0, 0, tokyo)))
	assert.True(t, store.ranges[0].to.Equal(time.Date(2026, 1, 19, 0, 0, 0, 0, tokyo)))
}

func TestListRange_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	store := newFakeStore()
	store.tz = "Mars/Olympus"
	svc := newTestService(store, nil, nil)

	_, err := svc.ListRange(context.Background(), scope, "2026-01-12", "2026-01-12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), store.ranges[0].from)
}

func TestListRange_Validation(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)

	tests := []struct {
		name       string
		start, end string
		want       error
	}{
		{"bad start", "2026/01/12", "2026-01-18", ErrInvalidDate},
		{"bad end", "2026-01-12", "tomorrow", ErrInvalidDate},
		{"reversed", "2026-01-18", "2026-01-12", ErrInvalidRange},
		{"too large", "2020-01-01", "2026-01-01", ErrRangeTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListRange(context.Background(), scope, tt.start, tt.end)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestListRange_CacheHitAndInvalidation(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.entries = []model.Schedule{{ID: "a"}}
	cache := newMemCache()
	svc := newTestService(store, cache, nil)

	_, err := svc.ListRange(ctx, scope, "2026-01-12", "2026-01-18")
	require.NoError(t, err)
	got, err := svc.ListRange(ctx, scope, "2026-01-12", "2026-01-18")
	require.NoError(t, err)
	assert.Equal(t, "a", got[0].ID)
	assert.Len(t, store.ranges, 1, "second read is served from cache")

	require.NoError(t, svc.Delete(ctx, scope, "a"))
	_, err = svc.ListRange(ctx, scope, "2026-01-12", "2026-01-18")
	require.NoError(t, err)
	assert.Len(t, store.ranges, 2, "a mutation orphans cached ranges")
}

func TestCalendar_ResolvesWindow(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)

	view, err := svc.Calendar(context.Background(), scope, "2026-02-01", "month")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-19", view.Start)
	assert.Equal(t, "2026-03-08", view.End)
	assert.Equal(t, "2026-01-19_2026-03-08", view.Key)
	assert.Equal(t, calendar.ViewMonth, view.View)

	// empty date means today in the facility zone
	view, err = svc.Calendar(context.Background(), scope, "", "day")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-14_2026-01-14", view.Key)

	_, err = svc.Calendar(context.Background(), scope, "14.01.2026", "week")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestCreate_Single(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)

	typeID := "type-1"
	in := validInput()
	in.ServiceTypeID = &typeID

	created, err := svc.Create(context.Background(), scope, in)
	require.NoError(t, err)
	require.Len(t, store.inserted, 1)
	require.Len(t, store.inserted[0], 1)

	row := store.inserted[0][0]
	assert.Equal(t, created.ID, row.ID)
	assert.Equal(t, "fac-1", row.FacilityID)
	assert.Nil(t, row.RecurrenceID)
	assert.Equal(t, "type-1", row.ServiceType.ID)
	assert.Equal(t, fixedAt, row.CreatedAt)
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)

	mismatch := validInput()
	mismatch.FacilityID = "fac-2"
	noClient := validInput()
	noClient.ClientID = ""
	reversed := validInput()
	reversed.EndTime = reversed.StartTime.Add(-time.Hour)

	tests := []struct {
		name string
		in   model.ScheduleInput
		want error
	}{
		{"other facility", mismatch, ErrFacilityMismatch},
		{"missing client", noClient, model.ErrMissingClient},
		{"reversed times", reversed, model.ErrInvalidTimeRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), scope, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreate_SeriesSharesRecurrenceID(t *testing.T) {
	store := newFakeStore()
	cache := newMemCache()
	svc := newTestService(store, cache, nil)

	in := validInput()
	in.Recurrence = &model.Recurrence{Frequency: model.FrequencyWeekly, Count: 4}

	created, err := svc.Create(context.Background(), scope, in)
	require.NoError(t, err)

	rows := store.inserted[0]
	require.Len(t, rows, 4)
	assert.Equal(t, created.ID, rows[0].ID)
	for i, r := range rows {
		require.NotNil(t, r.RecurrenceID)
		assert.Equal(t, *rows[0].RecurrenceID, *r.RecurrenceID)
		assert.Equal(t, in.StartTime.AddDate(0, 0, 7*i), r.StartTime)
		assert.Equal(t, 90*time.Minute, r.EndTime.Sub(r.StartTime))
	}
	assert.Equal(t, int64(1), cache.gens["facility:fac-1"])
}

func TestCreate_InvalidReference(t *testing.T) {
	store := newFakeStore()
	store.insErr = repo.ErrInvalidReference
	svc := newTestService(store, nil, nil)

	_, err := svc.Create(context.Background(), scope, validInput())
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestUpdate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)

	in := validInput()
	in.DetachRecurrence = true
	require.NoError(t, svc.Update(context.Background(), scope, "s1", in))
	assert.True(t, store.updates["s1"].DetachRecurrence)
	assert.Equal(t, fixedAt, store.updates["s1"].UpdatedAt)

	err := svc.Update(context.Background(), scope, "missing", validInput())
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestDelete_NotFound(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, nil)
	assert.ErrorIs(t, svc.Delete(context.Background(), scope, "missing"), ErrScheduleNotFound)
}

func TestSeries(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.series["r1"] = []model.Schedule{{ID: "a"}, {ID: "b"}}
	svc := newTestService(store, nil, nil)

	got, err := svc.ListSeries(ctx, scope, "r1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.ListSeries(ctx, scope, "none")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	n, err := svc.DeleteSeries(ctx, scope, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = svc.DeleteSeries(ctx, scope, "r1")
	assert.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestGet(t *testing.T) {
	store := newFakeStore()
	store.entries = []model.Schedule{{ID: "a"}}
	svc := newTestService(store, nil, nil)

	got, err := svc.Get(context.Background(), scope, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	_, err = svc.Get(context.Background(), scope, "b")
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestNotify(t *testing.T) {
	n := &fakeNotifier{}
	svc := newTestService(newFakeStore(), nil, n)

	require.NoError(t, svc.Notify(context.Background(), scope, "abc123", model.ActionCreate))
	require.Len(t, n.calls, 1)
	assert.Equal(t, model.Signal{ID: "abc123", Action: model.ActionCreate, FacilityID: "fac-1", StaffID: "staff-1"}, n.calls[0])

	err := svc.Notify(context.Background(), scope, "abc123", model.Action("archive"))
	assert.ErrorIs(t, err, model.ErrUnknownAction)

	// without a notifier, notifying is a no-op
	assert.NoError(t, newTestService(newFakeStore(), nil, nil).Notify(context.Background(), scope, "x", model.ActionDelete))
}

func TestExportICS(t *testing.T) {
	rid := "r1"
	store := newFakeStore()
	store.entries = []model.Schedule{{
		ID:           "a",
		RecurrenceID: &rid,
		StartTime:    time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC),
		ClientName:   "Ada",
		StaffName:    "Bea",
		ServiceType:  &model.ServiceType{Name: "Bathing", Category: "personal", Color: "#3366ff"},
		Notes:        "ring twice",
	}}
	svc := newTestService(store, nil, nil)

	out, err := svc.ExportICS(context.Background(), scope, "2026-01-12", "2026-01-18")
	require.NoError(t, err)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"UID:a@carevisit",
		"DTSTART:20260114T090000Z",
		"SUMMARY:Bathing Ada with Bea",
		"RELATED-TO:r1",
		"CATEGORIES:personal",
	} {
		assert.True(t, strings.Contains(out, want), "missing %q in\n%s", want, out)
	}
}
