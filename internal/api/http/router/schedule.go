package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/carevisit_backend/internal/api/http/handler"
	"github.com/Alijeyrad/carevisit_backend/pkg/authorize"
)

func (r *Router) registerScheduleRoutes(
	api fiber.Router,
	sh *handler.ScheduleHandler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
) {
	api.Get("/me", sh.Me)

	api.Get("/calendar", requirePerm(authorize.ResourceCalendar, authorize.ActionRead), sh.Calendar)
	api.Get("/service-types", requirePerm(authorize.ResourceServiceType, authorize.ActionList), sh.ServiceTypes)

	schedules := api.Group("/schedules")

	schedules.Get("/", requirePerm(authorize.ResourceSchedule, authorize.ActionList), sh.List)
	schedules.Post("/", requirePerm(authorize.ResourceSchedule, authorize.ActionCreate), sh.Create)

	// static segments before /:id
	schedules.Get("/export.ics", requirePerm(authorize.ResourceCalendar, authorize.ActionExport), sh.ExportICS)
	schedules.Get("/recurrence/:rid", requirePerm(authorize.ResourceScheduleSeries, authorize.ActionRead), sh.Series)
	schedules.Delete("/recurrence/:rid", requirePerm(authorize.ResourceScheduleSeries, authorize.ActionDelete), sh.DeleteSeries)

	schedules.Get("/:id", requirePerm(authorize.ResourceSchedule, authorize.ActionRead), sh.Get)
	schedules.Patch("/:id", requirePerm(authorize.ResourceSchedule, authorize.ActionUpdate), sh.Update)
	schedules.Delete("/:id", requirePerm(authorize.ResourceSchedule, authorize.ActionDelete), sh.Delete)
	schedules.Post("/:id/notify", requirePerm(authorize.ResourceSchedule, authorize.ActionNotify), sh.Notify)
}
