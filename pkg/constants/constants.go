package constants

const (
	ConfigName   = "config"
	ConfigFormat = "yaml"
	EnvPrefix    = "CAREVISIT"

	ServiceName = "carevisit_backend"

	// DateLayout is the wire format for calendar dates (range bounds, range keys).
	DateLayout = "2006-01-02"

	// SubjectScheduleChanged is suffixed with the facility id.
	SubjectScheduleChanged = "carevisit.schedule.changed"

	HeaderStaffID = "X-Staff-ID"
)
