package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

type ControllerConfig struct {
	Handlers Handlers
	// Subscriber is optional; sessions without realtime leave it nil.
	Subscriber    Subscriber
	ReferenceDate time.Time
	View          ViewMode
	Logger        *slog.Logger
}

// Controller is the page-level owner of a calendar session: it binds the facility
// scope, routes mutations through the handlers, and refetches after each one.
type Controller struct {
	handlers   Handlers
	subscriber Subscriber
	coord      *Coordinator
	logger     *slog.Logger

	mu    sync.Mutex
	scope model.Scope
	unsub func()
}

func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ref := cfg.ReferenceDate
	if ref.IsZero() {
		ref = time.Now()
	}
	return &Controller{
		handlers:   cfg.Handlers,
		subscriber: cfg.Subscriber,
		coord:      NewCoordinator(cfg.Handlers, ref, ParseViewMode(string(cfg.View)), logger),
		logger:     logger,
	}
}

func (c *Controller) Coordinator() *Coordinator { return c.coord }

func (c *Controller) Scope() model.Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// Bind establishes the facility scope and subscribes to peer signals. Signals
// go to onSignal when given; otherwise each one triggers a forced refetch.
func (c *Controller) Bind(scope model.Scope, onSignal func(model.Signal)) error {
	if !scope.Bound() {
		return ErrNoFacility
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	c.scope = scope
	c.coord.BindFacility(scope.FacilityID)

	if c.subscriber == nil {
		return nil
	}

	handle := onSignal
	if handle == nil {
		handle = func(sig model.Signal) {
			if err := c.Refresh(context.Background()); err != nil {
				c.logger.Warn("calendar: refetch after signal failed", "schedule_id", sig.ID, "error", err)
			}
		}
	}

	unsub, err := c.subscriber.Subscribe(scope.FacilityID, scope.StaffID, handle)
	if err != nil {
		// Realtime is best effort; the session still works with manual refresh.
		c.logger.Warn("calendar: realtime subscribe failed", "facility_id", scope.FacilityID, "error", err)
		return nil
	}
	c.unsub = unsub
	return nil
}

// Navigate applies a reported date and view. It reports whether either changed.
func (c *Controller) Navigate(ref time.Time, mode ViewMode) bool {
	dateChanged := c.coord.SetReferenceDate(ref)
	viewChanged := c.coord.SetViewMode(mode)
	return dateChanged || viewChanged
}

// Load fetches the current window if its range key changed.
func (c *Controller) Load(ctx context.Context) error {
	_, err := c.coord.FetchIfNeeded(ctx, false)
	return err
}

// Refresh always refetches the current window.
func (c *Controller) Refresh(ctx context.Context) error {
	_, err := c.coord.FetchIfNeeded(ctx, true)
	return err
}

func (c *Controller) Snapshot() Snapshot { return c.coord.Snapshot() }

func (c *Controller) Create(ctx context.Context, in model.ScheduleInput) (model.Created, error) {
	scope, err := c.boundScope()
	if err != nil {
		return model.Created{}, err
	}
	if in.FacilityID == "" {
		in.FacilityID = scope.FacilityID
	}

	created, err := c.handlers.CreateSchedule(ctx, in)
	if err != nil {
		return model.Created{}, fmt.Errorf("create schedule: %w", err)
	}
	c.afterMutation(ctx, created.ID, model.ActionCreate)
	return created, nil
}

func (c *Controller) Update(ctx context.Context, id string, in model.ScheduleInput) error {
	scope, err := c.boundScope()
	if err != nil {
		return err
	}
	if in.FacilityID == "" {
		in.FacilityID = scope.FacilityID
	}

	if err := c.handlers.UpdateSchedule(ctx, id, in); err != nil {
		return fmt.Errorf("update schedule %s: %w", id, err)
	}
	c.afterMutation(ctx, id, model.ActionUpdate)
	return nil
}

func (c *Controller) Delete(ctx context.Context, id string) error {
	if _, err := c.boundScope(); err != nil {
		return err
	}
	if err := c.handlers.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	c.afterMutation(ctx, id, model.ActionDelete)
	return nil
}

// Series returns every entry sharing a recurrence id.
func (c *Controller) Series(ctx context.Context, recurrenceID string) ([]model.Schedule, error) {
	if _, err := c.boundScope(); err != nil {
		return nil, err
	}
	return c.handlers.GetSchedulesByRecurrenceID(ctx, recurrenceID)
}

// Close unsubscribes and drops any result still in flight.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	c.mu.Unlock()
	c.coord.Close()
}

func (c *Controller) boundScope() (model.Scope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.scope.Bound() {
		return model.Scope{}, ErrNoFacility
	}
	return c.scope, nil
}

// afterMutation refetches the window and tells peers. The collection is never
// edited locally; the refetch is the only way a mutation becomes visible.
func (c *Controller) afterMutation(ctx context.Context, id string, action model.Action) {
	if _, err := c.coord.FetchIfNeeded(ctx, true); err != nil {
		c.logger.Warn("calendar: refetch after mutation failed", "schedule_id", id, "action", action, "error", err)
	}
	if err := c.handlers.NotifyUpdate(ctx, id, action); err != nil {
		c.logger.Warn("calendar: notify failed", "schedule_id", id, "action", action, "error", err)
	}
}
