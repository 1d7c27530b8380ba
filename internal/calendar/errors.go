package calendar

import "errors"

var (
	ErrNoFacility       = errors.New("no facility is bound to this session")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrClosed           = errors.New("calendar session is closed")
)

// UserMessage turns an error from a backend call into text fit for display.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoFacility):
		return "Your account is not linked to a facility. Ask an administrator to assign one."
	case errors.Is(err, ErrScheduleNotFound):
		return "That visit no longer exists. It may have been removed by someone else."
	default:
		return "Could not reach the schedule service: " + err.Error()
	}
}
