package schedule

import (
	"strings"

	ics "github.com/arran4/golang-ical"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

const icalProductID = "carevisit"

// renderICS serialises entries as an iCalendar feed.
func renderICS(name string, entries []model.Schedule) string {
	cal := ics.NewCalendarFor(icalProductID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(name)

	for _, e := range entries {
		ev := cal.AddEvent(e.ID + "@" + icalProductID)
		ev.SetStartAt(e.StartTime)
		ev.SetEndAt(e.EndTime)
		ev.SetDtStampTime(e.UpdatedAt)
		ev.SetCreatedTime(e.CreatedAt)
		ev.SetModifiedAt(e.UpdatedAt)
		ev.SetSummary(summary(e))
		if e.Notes != "" {
			ev.SetDescription(e.Notes)
		}
		if e.ServiceType != nil {
			if e.ServiceType.Category != "" {
				ev.AddCategory(e.ServiceType.Category)
			}
			if e.ServiceType.Color != "" {
				ev.SetColor(e.ServiceType.Color)
			}
		}
		if e.IsRecurring() {
			ev.AddProperty(ics.ComponentPropertyRelatedTo, *e.RecurrenceID)
		}
	}
	return cal.Serialize()
}

func summary(e model.Schedule) string {
	parts := make([]string, 0, 3)
	if e.ServiceType != nil && e.ServiceType.Name != "" {
		parts = append(parts, e.ServiceType.Name)
	}
	client := e.ClientName
	if client == "" {
		client = e.ClientID
	}
	parts = append(parts, client)
	if e.StaffName != "" {
		parts = append(parts, "with "+e.StaffName)
	}
	return strings.Join(parts, " ")
}
