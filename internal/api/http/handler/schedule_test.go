package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/carevisit_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/service/schedule"
)

// stubService fails every call with err.
type stubService struct {
	schedule.Service
	err error
}

func (s stubService) Get(context.Context, model.Scope, string) (model.Schedule, error) {
	return model.Schedule{}, s.err
}

func (s stubService) Delete(context.Context, model.Scope, string) error { return s.err }

func (s stubService) ListRange(context.Context, model.Scope, string, string) ([]model.Schedule, error) {
	return nil, s.err
}

func newHandlerApp(svc schedule.Service, scoped bool) *fiber.App {
	h := NewScheduleHandler(svc)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	if scoped {
		app.Use(func(c fiber.Ctx) error {
			c.Locals(middleware.LocalsFacilityID, "fac-1")
			c.Locals(middleware.LocalsStaffID, "staff-1")
			c.Locals(middleware.LocalsStaffRole, model.RoleAdmin)
			return c.Next()
		})
	}
	app.Get("/schedules", h.List)
	app.Get("/schedules/:id", h.Get)
	app.Delete("/schedules/:id", h.Delete)
	app.Get("/me", h.Me)
	return app
}

func TestMapScheduleError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{schedule.ErrScheduleNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", schedule.ErrSeriesNotFound), http.StatusNotFound},
		{schedule.ErrFacilityMismatch, http.StatusForbidden},
		{schedule.ErrInvalidReference, http.StatusUnprocessableEntity},
		{schedule.ErrTooManyOccurrences, http.StatusUnprocessableEntity},
		{schedule.ErrInvalidDate, http.StatusBadRequest},
		{schedule.ErrRangeTooLarge, http.StatusBadRequest},
		{schedule.ErrInvalidRecurrence, http.StatusBadRequest},
		{model.ErrInvalidTimeRange, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			app := newHandlerApp(stubService{err: tt.err}, true)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/schedules/x", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)

			resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/schedules/x", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestScheduleHandler_RequiresScope(t *testing.T) {
	app := newHandlerApp(stubService{}, false)

	for _, path := range []string{"/me", "/schedules/x", "/schedules?start=2024-01-01&end=2024-01-02"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestScheduleHandler_ListNeedsBounds(t *testing.T) {
	app := newHandlerApp(stubService{}, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/schedules?start=2024-01-01", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/teapot", func(c fiber.Ctx) error { return fiber.NewError(http.StatusTeapot, "short and stout") })
	app.Get("/boom", func(c fiber.Ctx) error { return errors.New("secret detail") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))
}
