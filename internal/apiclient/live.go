// Package apiclient provides the calendar.Handlers implementations: Live talks
// to the REST API, Demo runs against an in-memory facility.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3/client"

	"github.com/Alijeyrad/carevisit_backend/internal/calendar"
	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/pkg/constants"
)

const apiPrefix = "/api/v1"

// Notifier publishes refetch signals directly, bypassing the REST API.
type Notifier interface {
	Notify(ctx context.Context, scope model.Scope, scheduleID string, action model.Action) error
}

type LiveConfig struct {
	BaseURL string
	StaffID string
	Timeout time.Duration
	// Notifier is optional; without it NotifyUpdate goes through
	// POST /schedules/:id/notify.
	Notifier Notifier
	Logger   *slog.Logger
}

// Live is the calendar.Handlers of an authenticated session.
type Live struct {
	http     *client.Client
	notifier Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	scope model.Scope
}

var _ calendar.Handlers = (*Live)(nil)

func NewLive(cfg LiveConfig) (*Live, error) {
	if cfg.StaffID == "" {
		return nil, errors.New("apiclient: staff id is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("apiclient: base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := client.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")+apiPrefix).
		SetTimeout(cfg.Timeout).
		SetHeader(constants.HeaderStaffID, cfg.StaffID).
		SetHeader("Accept", "application/json")

	return &Live{
		http:     c,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		scope:    model.Scope{StaffID: cfg.StaffID},
	}, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// do sends one request and decodes the data member of the answer into out.
func (l *Live) do(ctx context.Context, method, path string, cfg client.Config, out any) error {
	cfg.Ctx = ctx

	var (
		resp *client.Response
		err  error
	)
	switch method {
	case "GET":
		resp, err = l.http.Get(path, cfg)
	case "POST":
		resp, err = l.http.Post(path, cfg)
	case "PATCH":
		resp, err = l.http.Patch(path, cfg)
	case "DELETE":
		resp, err = l.http.Delete(path, cfg)
	default:
		return fmt.Errorf("apiclient: unsupported method %s", method)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Close()

	status := resp.StatusCode()
	var env envelope
	if body := resp.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil && status < 300 {
			return fmt.Errorf("%s %s: decode: %w", method, path, err)
		}
	}

	switch {
	case status == 404:
		return calendar.ErrScheduleNotFound
	case status >= 300:
		return &APIError{Status: status, Message: env.Error}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w", method, path, err)
	}
	return nil
}

// ResolveScope asks the API which facility the configured staff member
// belongs to. A staff member the API does not know has no facility.
func (l *Live) ResolveScope(ctx context.Context) (model.Scope, error) {
	var me struct {
		StaffID    string `json:"staff_id"`
		FacilityID string `json:"facility_id"`
		Role       string `json:"role"`
	}
	err := l.do(ctx, "GET", "/me", client.Config{}, &me)
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403):
		return model.Scope{}, fmt.Errorf("%w: %s", calendar.ErrNoFacility, apiErr.Message)
	case errors.Is(err, calendar.ErrScheduleNotFound):
		return model.Scope{}, calendar.ErrNoFacility
	case err != nil:
		return model.Scope{}, err
	case me.FacilityID == "":
		return model.Scope{}, calendar.ErrNoFacility
	}

	scope := model.Scope{FacilityID: me.FacilityID, StaffID: me.StaffID, Role: me.Role}
	l.mu.Lock()
	l.scope = scope
	l.mu.Unlock()
	return scope, nil
}

// FetchSchedulesByRange loads the entries of the session facility. The API
// scopes by staff member, so facilityID only has to match the resolved scope.
func (l *Live) FetchSchedulesByRange(ctx context.Context, facilityID, start, end string) ([]model.Schedule, error) {
	if bound := l.boundFacility(); bound != "" && facilityID != bound {
		return nil, calendar.ErrNoFacility
	}
	out := []model.Schedule{}
	err := l.do(ctx, "GET", "/schedules", client.Config{
		Param: map[string]string{"start": start, "end": end},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Live) CreateSchedule(ctx context.Context, in model.ScheduleInput) (model.Created, error) {
	var created model.Created
	if err := l.do(ctx, "POST", "/schedules", client.Config{Body: in}, &created); err != nil {
		return model.Created{}, err
	}
	return created, nil
}

func (l *Live) UpdateSchedule(ctx context.Context, id string, in model.ScheduleInput) error {
	return l.do(ctx, "PATCH", "/schedules/:id", client.Config{
		PathParam: map[string]string{"id": id},
		Body:      in,
	}, nil)
}

func (l *Live) DeleteSchedule(ctx context.Context, id string) error {
	return l.do(ctx, "DELETE", "/schedules/:id", client.Config{
		PathParam: map[string]string{"id": id},
	}, nil)
}

func (l *Live) GetSchedulesByRecurrenceID(ctx context.Context, recurrenceID string) ([]model.Schedule, error) {
	out := []model.Schedule{}
	err := l.do(ctx, "GET", "/schedules/recurrence/:rid", client.Config{
		PathParam: map[string]string{"rid": recurrenceID},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NotifyUpdate tells the other sessions of the facility to refetch.
func (l *Live) NotifyUpdate(ctx context.Context, scheduleID string, action model.Action) error {
	if l.notifier != nil {
		scope := l.Scope()
		if !scope.Bound() {
			var err error
			if scope, err = l.ResolveScope(ctx); err != nil {
				return err
			}
		}
		return l.notifier.Notify(ctx, scope, scheduleID, action)
	}

	return l.do(ctx, "POST", "/schedules/:id/notify", client.Config{
		PathParam: map[string]string{"id": scheduleID},
		Body:      map[string]string{"action": string(action)},
	}, nil)
}

func (l *Live) Scope() model.Scope {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scope
}

func (l *Live) boundFacility() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scope.FacilityID
}
