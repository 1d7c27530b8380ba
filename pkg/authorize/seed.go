package authorize

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultPolicies grant facility roles across every facility domain.
var DefaultPolicies = []PermissionPolicy{
	{RolePlatformSuperAdmin, DomainSys, WildcardResource, WildcardAction, EffectAllow},

	{RoleFacilityAdmin, WildcardDomain, ResourceSchedule, ActionManage, EffectAllow},
	{RoleFacilityAdmin, WildcardDomain, ResourceScheduleSeries, ActionManage, EffectAllow},
	{RoleFacilityAdmin, WildcardDomain, ResourceSchedule, ActionNotify, EffectAllow},
	{RoleFacilityAdmin, WildcardDomain, ResourceCalendar, WildcardAction, EffectAllow},
	{RoleFacilityAdmin, WildcardDomain, ResourceServiceType, ActionManage, EffectAllow},
	{RoleFacilityAdmin, WildcardDomain, ResourceStaff, ActionManage, EffectAllow},

	{RoleFacilityCaregiver, WildcardDomain, ResourceSchedule, ActionManage, EffectAllow},
	{RoleFacilityCaregiver, WildcardDomain, ResourceSchedule, ActionNotify, EffectAllow},
	{RoleFacilityCaregiver, WildcardDomain, ResourceScheduleSeries, ActionRead, EffectAllow},
	{RoleFacilityCaregiver, WildcardDomain, ResourceCalendar, WildcardAction, EffectAllow},
	{RoleFacilityCaregiver, WildcardDomain, ResourceServiceType, ActionList, EffectAllow},

	{RoleFacilityViewer, WildcardDomain, ResourceSchedule, ActionRead, EffectAllow},
	{RoleFacilityViewer, WildcardDomain, ResourceSchedule, ActionList, EffectAllow},
	{RoleFacilityViewer, WildcardDomain, ResourceScheduleSeries, ActionRead, EffectAllow},
	{RoleFacilityViewer, WildcardDomain, ResourceCalendar, ActionRead, EffectAllow},
	{RoleFacilityViewer, WildcardDomain, ResourceCalendar, ActionExport, EffectAllow},
	{RoleFacilityViewer, WildcardDomain, ResourceServiceType, ActionList, EffectAllow},
}

// SeedDefaultPolicies writes DefaultPolicies; existing rows are left alone.
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization) error {
	for _, p := range DefaultPolicies {
		added, err := auth.AddPermission(ctx, p.Subject, p.Domain, p.Object, p.Action, p.Effect)
		if err != nil {
			return fmt.Errorf("seed policy %s %s %s: %w", p.Subject, p.Object, p.Action, err)
		}
		if added {
			slog.DebugContext(ctx, "added policy", "role", p.Subject, "domain", p.Domain, "resource", p.Object, "action", p.Action)
		}
	}
	slog.InfoContext(ctx, "seeded default RBAC policies", "count", len(DefaultPolicies))
	return nil
}

// SyncFacilityRole makes role the only facility role staffID holds in the
// facility. staffRole is the staff.role column value.
func SyncFacilityRole(ctx context.Context, auth IAuthorization, staffID, facilityID, staffRole string) error {
	want, ok := StaffRoleToRBACRole[staffRole]
	if !ok {
		return fmt.Errorf("%w: unknown staff role %q", ErrInvalidArgs, staffRole)
	}
	subject := GroupSubject(staffID)
	domain := FacilityDomain(facilityID)

	current, err := auth.GetRolesForUserInDomain(ctx, subject, domain)
	if err != nil {
		return err
	}

	has := false
	for _, r := range current {
		if r == want {
			has = true
			continue
		}
		if _, err := auth.RemoveRoleForUserInDomain(ctx, subject, r, domain); err != nil {
			return err
		}
	}
	if has {
		return nil
	}
	_, err = auth.AddRoleForUserInDomain(ctx, subject, want, domain)
	return err
}
