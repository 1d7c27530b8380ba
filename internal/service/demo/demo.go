package demo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Alijeyrad/carevisit_backend/internal/fixtures"
	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
	"github.com/Alijeyrad/carevisit_backend/pkg/authorize"
)

// Store is the part of *repo.Store a reset writes through.
type Store interface {
	ReplaceFacility(ctx context.Context, data repo.FacilityData) error
}

// Invalidator drops cached ranges of a facility.
type Invalidator interface {
	Invalidate(ctx context.Context, facilityID string) error
}

type Notifier interface {
	Notify(ctx context.Context, scope model.Scope, scheduleID string, action model.Action) error
}

type Service interface {
	// Reset replaces the demo facility with freshly dated fixtures.
	Reset(ctx context.Context) error
}

type Options struct {
	// FacilityID overrides the fixture facility id.
	FacilityID string
	// Auth, Cache and Notifier are optional.
	Auth     authorize.IAuthorization
	Cache    Invalidator
	Notifier Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

type demoService struct {
	store Store
	opts  Options
}

func New(store Store, opts Options) Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &demoService{store: store, opts: opts}
}

func (s *demoService) Reset(ctx context.Context) error {
	start := time.Now()
	data, err := fixtures.Load(s.opts.Now(), s.opts.FacilityID)
	if err != nil {
		return err
	}
	fid := data.Facility.ID

	if err := s.store.ReplaceFacility(ctx, data); err != nil {
		return fmt.Errorf("demo reset: %w", err)
	}

	if s.opts.Auth != nil {
		for _, st := range data.Staff {
			if err := authorize.SyncFacilityRole(ctx, s.opts.Auth, st.ID, fid, st.Role); err != nil {
				return fmt.Errorf("demo reset: sync role of %s: %w", st.ID, err)
			}
		}
	}

	if s.opts.Cache != nil {
		if err := s.opts.Cache.Invalidate(ctx, fid); err != nil {
			s.opts.Logger.WarnContext(ctx, "demo reset: cache invalidation failed", "facility_id", fid, "error", err)
		}
	}

	// open sessions refetch; no staff member sent this so nobody is skipped
	if s.opts.Notifier != nil {
		if err := s.opts.Notifier.Notify(ctx, model.Scope{FacilityID: fid}, "", model.ActionUpdate); err != nil {
			s.opts.Logger.WarnContext(ctx, "demo reset: notify failed", "facility_id", fid, "error", err)
		}
	}

	s.opts.Logger.InfoContext(ctx, "demo facility reset",
		"facility_id", fid,
		"schedules", len(data.Schedules),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
