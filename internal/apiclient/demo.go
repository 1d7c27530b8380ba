package apiclient

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"

	"github.com/Alijeyrad/carevisit_backend/internal/calendar"
	"github.com/Alijeyrad/carevisit_backend/internal/fixtures"
	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
	"github.com/Alijeyrad/carevisit_backend/internal/service/schedule"
)

// Demo serves the built-in demo facility from memory. Nothing is persisted and
// no realtime signal is sent.
type Demo struct {
	svc   schedule.Service
	store *repo.Memory
	scope model.Scope
}

var _ calendar.Handlers = (*Demo)(nil)

// NewDemo builds the demo facility around the week of now, acting as its first
// admin.
func NewDemo(now time.Time) (*Demo, error) {
	data, err := fixtures.Load(now, "")
	if err != nil {
		return nil, err
	}
	admin, ok := lo.Find(data.Staff, func(s model.Staff) bool { return s.Role == model.RoleAdmin })
	if !ok {
		return nil, errors.New("apiclient: demo fixtures have no admin")
	}

	store := repo.NewMemory(data)
	return &Demo{
		svc:   schedule.New(store, schedule.Options{Now: time.Now}),
		store: store,
		scope: model.Scope{FacilityID: data.Facility.ID, StaffID: admin.ID, Role: admin.Role},
	}, nil
}

func (d *Demo) Scope() model.Scope { return d.scope }

func (d *Demo) FetchSchedulesByRange(ctx context.Context, facilityID, start, end string) ([]model.Schedule, error) {
	if facilityID != d.scope.FacilityID {
		return nil, calendar.ErrNoFacility
	}
	return d.svc.ListRange(ctx, d.scope, start, end)
}

func (d *Demo) CreateSchedule(ctx context.Context, in model.ScheduleInput) (model.Created, error) {
	return d.svc.Create(ctx, d.scope, in)
}

func (d *Demo) UpdateSchedule(ctx context.Context, id string, in model.ScheduleInput) error {
	return d.svc.Update(ctx, d.scope, id, in)
}

func (d *Demo) DeleteSchedule(ctx context.Context, id string) error {
	return d.svc.Delete(ctx, d.scope, id)
}

func (d *Demo) GetSchedulesByRecurrenceID(ctx context.Context, recurrenceID string) ([]model.Schedule, error) {
	return d.svc.ListSeries(ctx, d.scope, recurrenceID)
}

// NotifyUpdate does nothing; demo sessions have no peers.
func (d *Demo) NotifyUpdate(context.Context, string, model.Action) error {
	return nil
}

// Reset rebuilds the facility around the week of now.
func (d *Demo) Reset(ctx context.Context, now time.Time) error {
	data, err := fixtures.Load(now, d.scope.FacilityID)
	if err != nil {
		return err
	}
	return d.store.ReplaceFacility(ctx, data)
}
