package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	casbin "github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/internal/api/http/handler"
	"github.com/Alijeyrad/carevisit_backend/internal/calendar"
	"github.com/Alijeyrad/carevisit_backend/internal/fixtures"
	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
	"github.com/Alijeyrad/carevisit_backend/internal/service/schedule"
	"github.com/Alijeyrad/carevisit_backend/pkg/authorize"
)

const (
	staffAdmin     = "0b8e3c1a-6f2d-4e59-8a7b-2d4c6e8f0a13"
	staffCaregiver = "1c9f4d2b-7a3e-4f6a-9b8c-3e5d7f9a1b24"
	staffViewer    = "3eb16f4d-9c5a-4b8c-9dae-5a7f9b1c3d46"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Signal
}

func (n *recordingNotifier) Notify(_ context.Context, scope model.Scope, id string, action model.Action) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, model.Signal{
		Kind: model.KindSchedule, ID: id, Action: action, FacilityID: scope.FacilityID, StaffID: scope.StaffID,
	})
	return nil
}

type testEnv struct {
	app      *fiber.App
	data     repo.FacilityData
	notifier *recordingNotifier
	now      time.Time
}

func newTestAuth(t *testing.T) authorize.IAuthorization {
	t.Helper()

	policyPath := filepath.Join(t.TempDir(), "policy.csv")
	require.NoError(t, os.WriteFile(policyPath, []byte(""), 0o644))

	m, err := authorize.LoadModel("")
	require.NoError(t, err)
	e, err := casbin.NewDistributedEnforcer(m, fileadapter.NewAdapter(policyPath))
	require.NoError(t, err)
	e.EnableAutoSave(false)

	auth, err := authorize.NewAuthorization(e)
	require.NoError(t, err)
	require.NoError(t, authorize.SeedDefaultPolicies(context.Background(), auth))
	return auth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith lets a test add rows to the fixture before the store is built.
func newTestEnvWith(t *testing.T, extend func(*repo.FacilityData)) *testEnv {
	t.Helper()

	now := time.Now()
	fac, err := fixtures.Facility()
	require.NoError(t, err)
	data, err := fixtures.Load(now, fac.ID)
	require.NoError(t, err)
	if extend != nil {
		extend(&data)
	}

	store := repo.NewMemory(data)
	notifier := &recordingNotifier{}
	svc := schedule.New(store, schedule.Options{Notifier: notifier, Now: func() time.Time { return now }})

	r := NewRouter(Params{
		Cfg:         &config.Config{},
		Auth:        newTestAuth(t),
		Staff:       store,
		ScheduleSvc: svc,
	})
	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler})
	r.Register(app)

	return &testEnv{app: app, data: data, notifier: notifier, now: now}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, staffID string, body any) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if staffID != "" {
		req.Header.Set("X-Staff-ID", staffID)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var env envelope
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func (e *testEnv) monthQuery() string {
	w := calendar.Resolve(e.now, calendar.ViewMonth)
	return "start=" + w.StartString() + "&end=" + w.EndString()
}

func TestRouter_SystemRoutes(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/livez", "/startupz"} {
		resp, _ := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestRouter_Scope(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		staffID string
		want    int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"unknown staff", "2f1f0000-0000-4000-8000-000000000000", http.StatusForbidden},
		{"known staff", staffViewer, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodGet, "/api/v1/me", tt.staffID, nil)
			assert.Equal(t, tt.want, resp.StatusCode)
			if tt.want != http.StatusOK {
				assert.NotEmpty(t, body.Error)
			}
		})
	}

	_, body := env.do(t, http.MethodGet, "/api/v1/me", staffCaregiver, nil)
	var me map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &me))
	assert.Equal(t, env.data.Facility.ID, me["facility_id"])
	assert.Equal(t, staffCaregiver, me["staff_id"])
	assert.Equal(t, model.RoleCaregiver, me["role"])
}

func TestRouter_ListRange(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/schedules?"+env.monthQuery(), staffViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []model.Schedule
	require.NoError(t, json.Unmarshal(body.Data, &entries))
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].StartTime.Before(entries[i-1].StartTime))
	}
	for _, e := range entries {
		assert.Equal(t, env.data.Facility.ID, e.FacilityID)
		assert.NotEmpty(t, e.ClientName)
	}

	tests := []struct {
		name  string
		query string
	}{
		{"missing end", "start=2024-03-01"},
		{"bad format", "start=03/01/2024&end=2024-03-31"},
		{"reversed", "start=2024-03-31&end=2024-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodGet, "/api/v1/schedules?"+tt.query, staffViewer, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRouter_MutationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	client := env.data.Clients[0].ID
	start := env.now.Add(48 * time.Hour).Truncate(time.Hour)

	in := model.ScheduleInput{
		ClientID:  client,
		StaffID:   staffCaregiver,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Notes:     "first visit",
	}

	resp, _ := env.do(t, http.MethodPost, "/api/v1/schedules", staffViewer, in)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "viewers cannot create")

	resp, body := env.do(t, http.MethodPost, "/api/v1/schedules", staffCaregiver, in)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created model.Created
	require.NoError(t, json.Unmarshal(body.Data, &created))
	require.NotEmpty(t, created.ID)

	resp, body = env.do(t, http.MethodGet, "/api/v1/schedules/"+created.ID, staffViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.Schedule
	require.NoError(t, json.Unmarshal(body.Data, &got))
	assert.Equal(t, "first visit", got.Notes)
	assert.True(t, got.StartTime.Equal(start))

	in.Notes = "moved"
	in.StartTime = start.Add(time.Hour)
	in.EndTime = start.Add(2 * time.Hour)
	resp, _ = env.do(t, http.MethodPatch, "/api/v1/schedules/"+created.ID, staffCaregiver, in)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/schedules/"+created.ID+"/notify", staffCaregiver,
		map[string]string{"action": "update"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, env.notifier.sent, 1)
	assert.Equal(t, model.ActionUpdate, env.notifier.sent[0].Action)
	assert.Equal(t, staffCaregiver, env.notifier.sent[0].StaffID)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/schedules/"+created.ID+"/notify", staffCaregiver,
		map[string]string{"action": "archive"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/schedules/"+created.ID, staffCaregiver, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = env.do(t, http.MethodDelete, "/api/v1/schedules/"+created.ID, staffCaregiver, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body.Error)

	resp, _ = env.do(t, http.MethodPatch, "/api/v1/schedules/"+created.ID, staffCaregiver, in)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	start := env.now.Add(24 * time.Hour)

	tests := []struct {
		name string
		in   model.ScheduleInput
		want int
	}{
		{
			name: "missing client",
			in:   model.ScheduleInput{StaffID: staffCaregiver, StartTime: start, EndTime: start.Add(time.Hour)},
			want: http.StatusBadRequest,
		},
		{
			name: "end before start",
			in: model.ScheduleInput{
				ClientID: env.data.Clients[0].ID, StaffID: staffCaregiver, StartTime: start, EndTime: start.Add(-time.Hour),
			},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown client",
			in: model.ScheduleInput{
				ClientID: "00000000-0000-4000-8000-000000000001", StaffID: staffCaregiver, StartTime: start, EndTime: start.Add(time.Hour),
			},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "other facility",
			in: model.ScheduleInput{
				FacilityID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
				ClientID:   env.data.Clients[0].ID, StaffID: staffCaregiver, StartTime: start, EndTime: start.Add(time.Hour),
			},
			want: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/v1/schedules", staffCaregiver, tt.in)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRouter_ForeignFacilityClient(t *testing.T) {
	const (
		otherFacility = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
		otherClient   = "7d1e2f3a-4b5c-4d6e-8f70-8192a3b4c5d6"
	)
	env := newTestEnvWith(t, func(d *repo.FacilityData) {
		d.Clients = append(d.Clients, model.Client{ID: otherClient, FacilityID: otherFacility, Name: "Elsewhere"})
	})
	start := env.now.Add(24 * time.Hour)

	resp, body := env.do(t, http.MethodPost, "/api/v1/schedules", staffCaregiver, model.ScheduleInput{
		ClientID: otherClient, StaffID: staffCaregiver, StartTime: start, EndTime: start.Add(time.Hour),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.NotEmpty(t, body.Error)

	_, list := env.do(t, http.MethodGet, "/api/v1/schedules?"+env.monthQuery(), staffCaregiver, nil)
	assert.NotContains(t, string(list.Data), otherClient)
	assert.Empty(t, env.notifier.sent)
}

func TestRouter_Series(t *testing.T) {
	env := newTestEnv(t)

	var rid string
	for _, s := range env.data.Schedules {
		if s.IsRecurring() {
			rid = *s.RecurrenceID
			break
		}
	}
	require.NotEmpty(t, rid)

	resp, body := env.do(t, http.MethodGet, "/api/v1/schedules/recurrence/"+rid, staffViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var series []model.Schedule
	require.NoError(t, json.Unmarshal(body.Data, &series))
	require.NotEmpty(t, series)
	for _, s := range series {
		assert.Equal(t, rid, *s.RecurrenceID)
	}

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/schedules/recurrence/"+rid, staffCaregiver, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "caregivers cannot drop a series")

	resp, body = env.do(t, http.MethodDelete, "/api/v1/schedules/recurrence/"+rid, staffAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deleted map[string]int64
	require.NoError(t, json.Unmarshal(body.Data, &deleted))
	assert.Equal(t, int64(len(series)), deleted["deleted"])

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/schedules/recurrence/"+rid, staffAdmin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_CalendarAndExport(t *testing.T) {
	env := newTestEnv(t)
	date := calendar.FormatDate(env.now)

	resp, body := env.do(t, http.MethodGet, "/api/v1/calendar?date="+date+"&view=month", staffViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view schedule.CalendarView
	require.NoError(t, json.Unmarshal(body.Data, &view))
	w := calendar.Resolve(env.now, calendar.ViewMonth)
	assert.Equal(t, w.Key(), view.Key)
	assert.Equal(t, w.StartString(), view.Start)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedules/export.ics?"+env.monthQuery(), nil)
	req.Header.Set("X-Staff-ID", staffViewer)
	raw, err := env.app.Test(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	require.Equal(t, http.StatusOK, raw.StatusCode)
	assert.True(t, strings.HasPrefix(raw.Header.Get("Content-Type"), "text/calendar"))
	assert.Contains(t, raw.Header.Get("Content-Disposition"), ".ics")
	ics, err := io.ReadAll(raw.Body)
	require.NoError(t, err)
	assert.Contains(t, string(ics), "BEGIN:VCALENDAR")
	assert.Contains(t, string(ics), "BEGIN:VEVENT")

	resp, body = env.do(t, http.MethodGet, "/api/v1/service-types", staffViewer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var types []model.ServiceType
	require.NoError(t, json.Unmarshal(body.Data, &types))
	assert.Len(t, types, len(env.data.ServiceTypes))
}
