package calendar

import (
	"context"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

// RangeFetcher loads every schedule of a facility whose start falls within [start, end].
// Dates are YYYY-MM-DD.
type RangeFetcher interface {
	FetchSchedulesByRange(ctx context.Context, facilityID, start, end string) ([]model.Schedule, error)
}

// Handlers is the operation set the views call. Live and demo sessions provide
// different implementations with the same shape.
type Handlers interface {
	RangeFetcher

	CreateSchedule(ctx context.Context, in model.ScheduleInput) (model.Created, error)
	UpdateSchedule(ctx context.Context, id string, in model.ScheduleInput) error
	DeleteSchedule(ctx context.Context, id string) error
	GetSchedulesByRecurrenceID(ctx context.Context, recurrenceID string) ([]model.Schedule, error)
	NotifyUpdate(ctx context.Context, scheduleID string, action model.Action) error
}

// Subscriber delivers peer change signals for a facility, skipping those sent by staffID.
type Subscriber interface {
	Subscribe(facilityID, staffID string, onUpdate func(model.Signal)) (unsubscribe func(), err error)
}
