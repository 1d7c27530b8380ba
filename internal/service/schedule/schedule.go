package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Alijeyrad/carevisit_backend/internal/calendar"
	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
	"github.com/Alijeyrad/carevisit_backend/pkg/observability"
)

// MaxRangeDays bounds a single range read.
const MaxRangeDays = 400

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

// Store is the persistence the service needs; *repo.Store satisfies it.
type Store interface {
	ListByRange(ctx context.Context, facilityID string, from, to time.Time) ([]model.Schedule, error)
	ListByRecurrence(ctx context.Context, facilityID, recurrenceID string) ([]model.Schedule, error)
	GetSchedule(ctx context.Context, facilityID, id string) (model.Schedule, error)
	InsertSchedules(ctx context.Context, rows []model.Schedule) error
	UpdateSchedule(ctx context.Context, facilityID, id string, u repo.ScheduleUpdate) error
	DeleteSchedule(ctx context.Context, facilityID, id string) error
	DeleteSeries(ctx context.Context, facilityID, recurrenceID string) (int64, error)
	FacilityTimezone(ctx context.Context, facilityID string) (string, error)
	ListServiceTypes(ctx context.Context, facilityID string) ([]model.ServiceType, error)
}

// RangeCache holds range reads per facility; *redis.JSONCache satisfies it.
type RangeCache interface {
	Key(namespace string, generation int64, parts ...string) string
	Generation(ctx context.Context, namespace string) (int64, error)
	Bump(ctx context.Context, namespace string) (int64, error)
	Get(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Notifier publishes refetch signals to peer sessions.
type Notifier interface {
	Notify(ctx context.Context, scope model.Scope, scheduleID string, action model.Action) error
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// CalendarView is a resolved window with its entries.
type CalendarView struct {
	Date    string            `json:"date"`
	View    calendar.ViewMode `json:"view"`
	Start   string            `json:"start"`
	End     string            `json:"end"`
	Key     string            `json:"key"`
	Entries []model.Schedule  `json:"entries"`
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Reads
	ListRange(ctx context.Context, scope model.Scope, start, end string) ([]model.Schedule, error)
	Get(ctx context.Context, scope model.Scope, id string) (model.Schedule, error)
	ListSeries(ctx context.Context, scope model.Scope, recurrenceID string) ([]model.Schedule, error)
	Calendar(ctx context.Context, scope model.Scope, date, view string) (CalendarView, error)
	ExportICS(ctx context.Context, scope model.Scope, start, end string) (string, error)
	ServiceTypes(ctx context.Context, scope model.Scope) ([]model.ServiceType, error)

	// Mutations
	Create(ctx context.Context, scope model.Scope, in model.ScheduleInput) (model.Created, error)
	Update(ctx context.Context, scope model.Scope, id string, in model.ScheduleInput) error
	Delete(ctx context.Context, scope model.Scope, id string) error
	DeleteSeries(ctx context.Context, scope model.Scope, recurrenceID string) (int64, error)

	// Notify tells peer sessions of the facility to refetch.
	Notify(ctx context.Context, scope model.Scope, scheduleID string, action model.Action) error

	// Invalidate drops every cached range of a facility.
	Invalidate(ctx context.Context, facilityID string) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type Options struct {
	// Cache is optional; without it every read goes to the store.
	Cache    RangeCache
	CacheTTL time.Duration
	Notifier Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

type scheduleService struct {
	store    Store
	cache    RangeCache
	ttl      time.Duration
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func New(store Store, opts Options) Service {
	s := &scheduleService{
		store:    store,
		cache:    opts.Cache,
		ttl:      opts.CacheTTL,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.ttl <= 0 {
		s.ttl = 5 * time.Minute
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func facilityAttr(scope model.Scope) attribute.KeyValue {
	return attribute.String("facility.id", scope.FacilityID)
}

func cacheNamespace(facilityID string) string {
	return "facility:" + facilityID
}

func mapStoreError(err error, notFound error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return notFound
	case errors.Is(err, repo.ErrInvalidReference):
		return ErrInvalidReference
	}
	return err
}

// location is the zone the facility plans its days in.
func (s *scheduleService) location(ctx context.Context, facilityID string) *time.Location {
	tz, err := s.store.FacilityTimezone(ctx, facilityID)
	if err != nil {
		s.logger.WarnContext(ctx, "facility timezone lookup failed, using UTC", "facility_id", facilityID, "error", err)
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.logger.WarnContext(ctx, "unknown facility timezone, using UTC", "facility_id", facilityID, "timezone", tz)
		return time.UTC
	}
	return loc
}

// parseRange validates YYYY-MM-DD bounds.
func parseRange(start, end string) (calendar.Window, error) {
	from, err := calendar.ParseDate(start)
	if err != nil {
		return calendar.Window{}, ErrInvalidDate
	}
	to, err := calendar.ParseDate(end)
	if err != nil {
		return calendar.Window{}, ErrInvalidDate
	}
	if to.Before(from) {
		return calendar.Window{}, ErrInvalidRange
	}
	if to.Sub(from) > MaxRangeDays*24*time.Hour {
		return calendar.Window{}, ErrRangeTooLarge
	}
	return calendar.Window{Start: from, End: to}, nil
}

// bounds turns an inclusive window of civil dates into the half-open instant
// range [start 00:00, end+1 00:00) in loc.
func bounds(w calendar.Window, loc *time.Location) (time.Time, time.Time) {
	from := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), 0, 0, 0, 0, loc)
	next := w.End.AddDate(0, 0, 1)
	to := time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, loc)
	return from, to
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (s *scheduleService) ListRange(ctx context.Context, scope model.Scope, start, end string) (_ []model.Schedule, err error) {
	ctx, span := observability.Start(ctx, "schedule.ListRange", facilityAttr(scope),
		attribute.String("range.start", start), attribute.String("range.end", end))
	defer func() { observability.End(span, err) }()

	w, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	return s.listWindow(ctx, scope.FacilityID, w)
}

func (s *scheduleService) listWindow(ctx context.Context, facilityID string, w calendar.Window) ([]model.Schedule, error) {
	var key string
	if s.cache != nil {
		ns := cacheNamespace(facilityID)
		gen, err := s.cache.Generation(ctx, ns)
		if err == nil {
			key = s.cache.Key(ns, gen, w.Key())
			var cached []model.Schedule
			hit, err := s.cache.Get(ctx, key, &cached)
			if err == nil && hit {
				if cached == nil {
					cached = []model.Schedule{}
				}
				return cached, nil
			}
			if err != nil {
				s.logger.WarnContext(ctx, "range cache read failed", "key", key, "error", err)
			}
		} else {
			s.logger.WarnContext(ctx, "range cache unavailable", "facility_id", facilityID, "error", err)
		}
	}

	from, to := bounds(w, s.location(ctx, facilityID))
	entries, err := s.store.ListByRange(ctx, facilityID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	if entries == nil {
		entries = []model.Schedule{}
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, entries, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "range cache write failed", "key", key, "error", err)
		}
	}
	return entries, nil
}

func (s *scheduleService) Get(ctx context.Context, scope model.Scope, id string) (model.Schedule, error) {
	sc, err := s.store.GetSchedule(ctx, scope.FacilityID, id)
	if err != nil {
		return model.Schedule{}, mapStoreError(err, ErrScheduleNotFound)
	}
	return sc, nil
}

// ListSeries returns the entries sharing recurrenceID, empty when there are none.
func (s *scheduleService) ListSeries(ctx context.Context, scope model.Scope, recurrenceID string) ([]model.Schedule, error) {
	entries, err := s.store.ListByRecurrence(ctx, scope.FacilityID, recurrenceID)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	if entries == nil {
		entries = []model.Schedule{}
	}
	return entries, nil
}

// Calendar resolves the window for date and view and loads it. An empty date
// means today in the facility zone.
func (s *scheduleService) Calendar(ctx context.Context, scope model.Scope, date, view string) (_ CalendarView, err error) {
	ctx, span := observability.Start(ctx, "schedule.Calendar", facilityAttr(scope),
		attribute.String("calendar.view", view))
	defer func() { observability.End(span, err) }()

	var ref time.Time
	if date == "" {
		ref = calendar.DateOf(s.now().In(s.location(ctx, scope.FacilityID)))
	} else if ref, err = calendar.ParseDate(date); err != nil {
		return CalendarView{}, ErrInvalidDate
	}

	mode := calendar.ParseViewMode(view)
	w := calendar.Resolve(ref, mode)
	entries, err := s.listWindow(ctx, scope.FacilityID, w)
	if err != nil {
		return CalendarView{}, err
	}
	return CalendarView{
		Date:    calendar.FormatDate(ref),
		View:    mode,
		Start:   w.StartString(),
		End:     w.EndString(),
		Key:     w.Key(),
		Entries: entries,
	}, nil
}

func (s *scheduleService) ExportICS(ctx context.Context, scope model.Scope, start, end string) (_ string, err error) {
	ctx, span := observability.Start(ctx, "schedule.ExportICS", facilityAttr(scope))
	defer func() { observability.End(span, err) }()

	entries, err := s.ListRange(ctx, scope, start, end)
	if err != nil {
		return "", err
	}
	return renderICS("Care visits "+start+" to "+end, entries), nil
}

func (s *scheduleService) ServiceTypes(ctx context.Context, scope model.Scope) ([]model.ServiceType, error) {
	types, err := s.store.ListServiceTypes(ctx, scope.FacilityID)
	if err != nil {
		return nil, fmt.Errorf("list service types: %w", err)
	}
	return types, nil
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// scopedInput pins the input to the scope facility.
func scopedInput(scope model.Scope, in model.ScheduleInput) (model.ScheduleInput, error) {
	if in.FacilityID != "" && in.FacilityID != scope.FacilityID {
		return in, ErrFacilityMismatch
	}
	in.FacilityID = scope.FacilityID
	return in, in.Validate()
}

// Create stores one entry, or a whole series when in.Recurrence is set. The
// returned id is the first entry of the series.
func (s *scheduleService) Create(ctx context.Context, scope model.Scope, in model.ScheduleInput) (_ model.Created, err error) {
	ctx, span := observability.Start(ctx, "schedule.Create", facilityAttr(scope))
	defer func() { observability.End(span, err) }()

	in, err = scopedInput(scope, in)
	if err != nil {
		return model.Created{}, err
	}

	slots := []occurrence{{start: in.StartTime, end: in.EndTime}}
	var recurrenceID *string
	if in.Recurrence != nil {
		slots, err = expand(*in.Recurrence, in.StartTime, in.EndTime, s.location(ctx, scope.FacilityID))
		if err != nil {
			return model.Created{}, err
		}
		rid, err := newID()
		if err != nil {
			return model.Created{}, err
		}
		recurrenceID = &rid
		span.SetAttributes(attribute.Int("schedule.occurrences", len(slots)))
	}

	now := s.now().UTC()
	rows := make([]model.Schedule, 0, len(slots))
	for _, sl := range slots {
		id, err := newID()
		if err != nil {
			return model.Created{}, err
		}
		row := model.Schedule{
			ID:           id,
			FacilityID:   scope.FacilityID,
			RecurrenceID: recurrenceID,
			StartTime:    sl.start.UTC(),
			EndTime:      sl.end.UTC(),
			ClientID:     in.ClientID,
			StaffID:      in.StaffID,
			Notes:        in.Notes,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if in.ServiceTypeID != nil && *in.ServiceTypeID != "" {
			row.ServiceType = &model.ServiceType{ID: *in.ServiceTypeID}
		}
		rows = append(rows, row)
	}

	if err := s.store.InsertSchedules(ctx, rows); err != nil {
		return model.Created{}, mapStoreError(err, ErrScheduleNotFound)
	}
	s.invalidate(ctx, scope.FacilityID)

	s.logger.InfoContext(ctx, "schedule created",
		"facility_id", scope.FacilityID, "staff_id", scope.StaffID, "schedule_id", rows[0].ID, "occurrences", len(rows))
	return model.Created{ID: rows[0].ID}, nil
}

func (s *scheduleService) Update(ctx context.Context, scope model.Scope, id string, in model.ScheduleInput) (err error) {
	ctx, span := observability.Start(ctx, "schedule.Update", facilityAttr(scope), attribute.String("schedule.id", id))
	defer func() { observability.End(span, err) }()

	in, err = scopedInput(scope, in)
	if err != nil {
		return err
	}
	err = s.store.UpdateSchedule(ctx, scope.FacilityID, id, repo.ScheduleUpdate{
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		ClientID:         in.ClientID,
		StaffID:          in.StaffID,
		ServiceTypeID:    in.ServiceTypeID,
		Notes:            in.Notes,
		DetachRecurrence: in.DetachRecurrence,
		UpdatedAt:        s.now(),
	})
	if err != nil {
		return mapStoreError(err, ErrScheduleNotFound)
	}
	s.invalidate(ctx, scope.FacilityID)
	return nil
}

func (s *scheduleService) Delete(ctx context.Context, scope model.Scope, id string) (err error) {
	ctx, span := observability.Start(ctx, "schedule.Delete", facilityAttr(scope), attribute.String("schedule.id", id))
	defer func() { observability.End(span, err) }()

	if err := s.store.DeleteSchedule(ctx, scope.FacilityID, id); err != nil {
		return mapStoreError(err, ErrScheduleNotFound)
	}
	s.invalidate(ctx, scope.FacilityID)
	return nil
}

func (s *scheduleService) DeleteSeries(ctx context.Context, scope model.Scope, recurrenceID string) (_ int64, err error) {
	ctx, span := observability.Start(ctx, "schedule.DeleteSeries", facilityAttr(scope),
		attribute.String("schedule.recurrence_id", recurrenceID))
	defer func() { observability.End(span, err) }()

	n, err := s.store.DeleteSeries(ctx, scope.FacilityID, recurrenceID)
	if err != nil {
		return 0, mapStoreError(err, ErrSeriesNotFound)
	}
	if n == 0 {
		return 0, ErrSeriesNotFound
	}
	s.invalidate(ctx, scope.FacilityID)
	return n, nil
}

func (s *scheduleService) Notify(ctx context.Context, scope model.Scope, scheduleID string, action model.Action) error {
	if !action.Valid() {
		return fmt.Errorf("notify: %w", model.ErrUnknownAction)
	}
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Notify(ctx, scope, scheduleID, action)
}

func (s *scheduleService) Invalidate(ctx context.Context, facilityID string) error {
	if s.cache == nil {
		return nil
	}
	_, err := s.cache.Bump(ctx, cacheNamespace(facilityID))
	return err
}

// invalidate bumps the cache generation. A failure only delays visibility
// until the entries expire, so it is logged and not returned.
func (s *scheduleService) invalidate(ctx context.Context, facilityID string) {
	if err := s.Invalidate(ctx, facilityID); err != nil {
		s.logger.WarnContext(ctx, "range cache invalidation failed", "facility_id", facilityID, "error", err)
	}
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}
