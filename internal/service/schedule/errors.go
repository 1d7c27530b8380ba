package schedule

import (
	"errors"

	"github.com/Alijeyrad/carevisit_backend/internal/calendar"
)

var (
	ErrScheduleNotFound   = calendar.ErrScheduleNotFound
	ErrSeriesNotFound     = errors.New("recurrence series not found")
	ErrInvalidDate        = errors.New("dates must be formatted YYYY-MM-DD")
	ErrInvalidRange       = errors.New("end date must not be before start date")
	ErrRangeTooLarge      = errors.New("date range is too large")
	ErrInvalidReference   = errors.New("client, staff or service type does not exist")
	ErrFacilityMismatch   = errors.New("facility_id does not match the acting staff facility")
	ErrInvalidRecurrence  = errors.New("recurrence needs a frequency and a count or until bound")
	ErrTooManyOccurrences = errors.New("recurrence expands to too many occurrences")
)
