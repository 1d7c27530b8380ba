package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/carevisit_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/service/schedule"
	"github.com/Alijeyrad/carevisit_backend/pkg/reqctx"
)

type ScheduleHandler struct {
	svc schedule.Service
}

func NewScheduleHandler(svc schedule.Service) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

func mapScheduleError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, schedule.ErrScheduleNotFound),
		errors.Is(err, schedule.ErrSeriesNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, schedule.ErrFacilityMismatch):
		return forbidden(c, err.Error())
	case errors.Is(err, schedule.ErrInvalidReference),
		errors.Is(err, schedule.ErrTooManyOccurrences):
		return unprocessable(c, err.Error())
	case errors.Is(err, schedule.ErrInvalidDate),
		errors.Is(err, schedule.ErrInvalidRange),
		errors.Is(err, schedule.ErrRangeTooLarge),
		errors.Is(err, schedule.ErrInvalidRecurrence),
		errors.Is(err, model.ErrMissingFacility),
		errors.Is(err, model.ErrMissingClient),
		errors.Is(err, model.ErrMissingStaff),
		errors.Is(err, model.ErrMissingTimes),
		errors.Is(err, model.ErrInvalidTimeRange),
		errors.Is(err, model.ErrUnknownAction):
		return badRequest(c, err.Error())
	default:
		slog.ErrorContext(c.Context(), "schedule request failed",
			append(reqctx.LogAttrs(c.Context()), "path", c.Path(), "error", err)...)
		return internalError(c)
	}
}

// ---------------------------------------------------------------------------
// Scope
// ---------------------------------------------------------------------------

// GET /me
func (h *ScheduleHandler) Me(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}
	return ok(c, fiber.Map{
		"staff_id":    scope.StaffID,
		"facility_id": scope.FacilityID,
		"role":        scope.Role,
	})
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// GET /schedules?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *ScheduleHandler) List(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}
	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		return badRequest(c, "start and end are required")
	}

	entries, err := h.svc.ListRange(c.Context(), scope, start, end)
	if err != nil {
		return mapScheduleError(c, err)
	}
	return ok(c, entries)
}

// GET /schedules/:id
func (h *ScheduleHandler) Get(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	entry, err := h.svc.Get(c.Context(), scope, c.Params("id"))
	if err != nil {
		return mapScheduleError(c, err)
	}
	return ok(c, entry)
}

// GET /schedules/recurrence/:rid
func (h *ScheduleHandler) Series(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	entries, err := h.svc.ListSeries(c.Context(), scope, c.Params("rid"))
	if err != nil {
		return mapScheduleError(c, err)
	}
	return ok(c, entries)
}

// GET /calendar?date=YYYY-MM-DD&view=month|week|day|list
func (h *ScheduleHandler) Calendar(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	view, err := h.svc.Calendar(c.Context(), scope, c.Query("date"), c.Query("view", "week"))
	if err != nil {
		return mapScheduleError(c, err)
	}
	return ok(c, view)
}

// GET /schedules/export.ics?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *ScheduleHandler) ExportICS(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}
	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		return badRequest(c, "start and end are required")
	}

	body, err := h.svc.ExportICS(c.Context(), scope, start, end)
	if err != nil {
		return mapScheduleError(c, err)
	}
	c.Attachment("carevisit-" + start + "-" + end + ".ics")
	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	return c.SendString(body)
}

// GET /service-types
func (h *ScheduleHandler) ServiceTypes(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	types, err := h.svc.ServiceTypes(c.Context(), scope)
	if err != nil {
		return mapScheduleError(c, err)
	}
	return ok(c, types)
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// POST /schedules
func (h *ScheduleHandler) Create(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	var body model.ScheduleInput
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.svc.Create(c.Context(), scope, body)
	if err != nil {
		return mapScheduleError(c, err)
	}
	return created(c, res)
}

// PATCH /schedules/:id
func (h *ScheduleHandler) Update(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	var body model.ScheduleInput
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.svc.Update(c.Context(), scope, c.Params("id"), body); err != nil {
		return mapScheduleError(c, err)
	}
	return noContent(c)
}

// DELETE /schedules/:id
func (h *ScheduleHandler) Delete(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	if err := h.svc.Delete(c.Context(), scope, c.Params("id")); err != nil {
		return mapScheduleError(c, err)
	}
	return noContent(c)
}

// DELETE /schedules/recurrence/:rid
func (h *ScheduleHandler) DeleteSeries(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	n, err := h.svc.DeleteSeries(c.Context(), scope, c.Params("rid"))
	if err != nil {
		return mapScheduleError(c, err)
	}
	return ok(c, fiber.Map{"deleted": n})
}

// POST /schedules/:id/notify
func (h *ScheduleHandler) Notify(c fiber.Ctx) error {
	scope, valid := middleware.ScopeFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		Action string `json:"action"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	action, err := model.ParseAction(body.Action)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.svc.Notify(c.Context(), scope, c.Params("id"), action); err != nil {
		return mapScheduleError(c, err)
	}
	return accepted(c, fiber.Map{"id": c.Params("id"), "action": action})
}
