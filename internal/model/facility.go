package model

// Facility is the care facility all other records are scoped to.
type Facility struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Timezone string `json:"timezone" yaml:"timezone"`
}

// Staff roles, in decreasing order of access.
const (
	RoleAdmin     = "admin"
	RoleCaregiver = "caregiver"
	RoleViewer    = "viewer"
)

type Staff struct {
	ID         string `json:"id" yaml:"id"`
	FacilityID string `json:"facility_id" yaml:"-"`
	Name       string `json:"name" yaml:"name"`
	Role       string `json:"role" yaml:"role"`
	Active     bool   `json:"active" yaml:"active"`
}

// Client is the person receiving care.
type Client struct {
	ID         string `json:"id" yaml:"id"`
	FacilityID string `json:"facility_id" yaml:"-"`
	Name       string `json:"name" yaml:"name"`
}
