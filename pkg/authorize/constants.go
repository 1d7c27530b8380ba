package authorize

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

type Action string
type Resource string
type Role string
type Domain string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	ActionManage Action = "manage" // CRUD + list
	ActionNotify Action = "notify" // publish change signals to peers
	ActionExport Action = "export"

	ActionGrant  Action = "grant"
	ActionRevoke Action = "revoke"
)

const WildcardAction Action = "*"

var KnownActions = map[Action]struct{}{
	ActionCreate: {}, ActionRead: {}, ActionUpdate: {}, ActionDelete: {}, ActionList: {},
	ActionManage: {}, ActionNotify: {}, ActionExport: {},
	ActionGrant: {}, ActionRevoke: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	WildcardResource Resource = "*"

	ResourceFacility       Resource = "facility"
	ResourceStaff          Resource = "staff"
	ResourceSchedule       Resource = "schedule"
	ResourceScheduleSeries Resource = "schedule_series"
	ResourceServiceType    Resource = "service_type"
	ResourceCalendar       Resource = "calendar"

	ResourceSystem Resource = "system"
	ResourceRBAC   Resource = "rbac"
)

var KnownResources = map[Resource]struct{}{
	ResourceFacility: {}, ResourceStaff: {},
	ResourceSchedule: {}, ResourceScheduleSeries: {}, ResourceServiceType: {}, ResourceCalendar: {},
	ResourceSystem: {}, ResourceRBAC: {},
}

// ----------------------------
// Roles
// ----------------------------
//
// Policy subjects assigned to staff via grouping policies.

const (
	WildcardRole Role = "*"

	// domain = sys
	RolePlatformSuperAdmin Role = "role:platform:superadmin"

	// domain = facility:<uuid>
	RoleFacilityAdmin     Role = "role:facility:admin"
	RoleFacilityCaregiver Role = "role:facility:caregiver"
	RoleFacilityViewer    Role = "role:facility:viewer"
)

var KnownRoles = map[Role]struct{}{
	RolePlatformSuperAdmin: {},
	RoleFacilityAdmin:      {},
	RoleFacilityCaregiver:  {},
	RoleFacilityViewer:     {},
}

// StaffRoleToRBACRole maps staff.role column values to Casbin roles.
var StaffRoleToRBACRole = map[string]Role{
	model.RoleAdmin:     RoleFacilityAdmin,
	model.RoleCaregiver: RoleFacilityCaregiver,
	model.RoleViewer:    RoleFacilityViewer,
}

// ----------------------------
// Domains
// ----------------------------

const (
	DomainSys            Domain = "sys"
	DomainPrefixFacility Domain = "facility:"
	WildcardDomain       Domain = "*"
)

func FacilityDomain(facilityID string) Domain {
	return DomainPrefixFacility + Domain(facilityID)
}

// IsValidDomain checks whether d is a recognised domain string.
func IsValidDomain(d Domain) bool {
	if d == DomainSys || d == WildcardDomain {
		return true
	}
	id, ok := strings.CutPrefix(string(d), string(DomainPrefixFacility))
	if !ok {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// ----------------------------
// Casbin tuple helpers
// ----------------------------

type PolicyEffect string

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// GroupSubject is the g.sub in Casbin: a staff id.
type GroupSubject string

// Grouping rows: g, staff_id, role, domain
type GroupingPolicy struct {
	Subject GroupSubject
	Role    Role
	Domain  Domain
}

// Permission rows: p, role, domain, resource, action, eft
type PermissionPolicy struct {
	Subject Role
	Domain  Domain
	Object  Resource
	Action  Action
	Effect  PolicyEffect
}
