package authorize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	casbin "github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	facilityA = "550e8400-e29b-41d4-a716-446655440000"
	facilityB = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
)

// createTestEnforcer creates a file-backed Casbin enforcer over the built-in model
func createTestEnforcer(t *testing.T) *casbin.DistributedEnforcer {
	t.Helper()

	policyPath := filepath.Join(t.TempDir(), "policy.csv")
	require.NoError(t, os.WriteFile(policyPath, []byte(""), 0o644))

	m, err := LoadModel("")
	require.NoError(t, err)

	e, err := casbin.NewDistributedEnforcer(m, fileadapter.NewAdapter(policyPath))
	require.NoError(t, err)

	e.EnableAutoSave(false)
	e.EnableEnforce(true)
	return e
}

func newSeededAuth(t *testing.T) IAuthorization {
	t.Helper()
	auth, err := NewAuthorization(createTestEnforcer(t))
	require.NoError(t, err)
	require.NoError(t, SeedDefaultPolicies(context.Background(), auth))
	return auth
}

func TestNewAuthorization_NilEnforcer(t *testing.T) {
	_, err := NewAuthorization(nil)
	assert.ErrorIs(t, err, ErrInvalidArgs)
}

func TestLoadModel_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.conf")
	require.NoError(t, os.WriteFile(path, []byte(ModelText), 0o644))

	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestEnforce_FacilityRoles(t *testing.T) {
	ctx := context.Background()
	auth := newSeededAuth(t)

	_, err := auth.AddRoleForUserInDomain(ctx, "admin-1", RoleFacilityAdmin, FacilityDomain(facilityA))
	require.NoError(t, err)
	_, err = auth.AddRoleForUserInDomain(ctx, "care-1", RoleFacilityCaregiver, FacilityDomain(facilityA))
	require.NoError(t, err)
	_, err = auth.AddRoleForUserInDomain(ctx, "view-1", RoleFacilityViewer, FacilityDomain(facilityA))
	require.NoError(t, err)

	tests := []struct {
		name     string
		subject  GroupSubject
		facility string
		object   Resource
		action   Action
		want     bool
	}{
		{"admin deletes series", "admin-1", facilityA, ResourceScheduleSeries, ActionDelete, true},
		{"admin manages staff", "admin-1", facilityA, ResourceStaff, ActionUpdate, true},
		{"caregiver creates visit", "care-1", facilityA, ResourceSchedule, ActionCreate, true},
		{"caregiver notifies", "care-1", facilityA, ResourceSchedule, ActionNotify, true},
		{"caregiver reads series", "care-1", facilityA, ResourceScheduleSeries, ActionRead, true},
		{"caregiver cannot delete series", "care-1", facilityA, ResourceScheduleSeries, ActionDelete, false},
		{"caregiver cannot manage staff", "care-1", facilityA, ResourceStaff, ActionUpdate, false},
		{"viewer lists visits", "view-1", facilityA, ResourceSchedule, ActionList, true},
		{"viewer exports calendar", "view-1", facilityA, ResourceCalendar, ActionExport, true},
		{"viewer cannot create", "view-1", facilityA, ResourceSchedule, ActionCreate, false},
		{"viewer cannot notify", "view-1", facilityA, ResourceSchedule, ActionNotify, false},
		{"admin of A has nothing in B", "admin-1", facilityB, ResourceSchedule, ActionRead, false},
		{"unknown staff", "nobody", facilityA, ResourceSchedule, ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.Enforce(ctx, tt.subject, FacilityDomain(tt.facility), tt.object, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnforce_SuperAdmin(t *testing.T) {
	ctx := context.Background()
	auth := newSeededAuth(t)

	_, err := auth.AddRoleForUserInDomain(ctx, "root", RolePlatformSuperAdmin, DomainSys)
	require.NoError(t, err)

	ok, err := auth.Enforce(ctx, "root", FacilityDomain(facilityB), ResourceScheduleSeries, ActionDelete)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnforce_InvalidArgs(t *testing.T) {
	ctx := context.Background()
	auth := newSeededAuth(t)

	tests := []struct {
		name    string
		subject GroupSubject
		domain  Domain
		object  Resource
		action  Action
	}{
		{"empty subject", "", FacilityDomain(facilityA), ResourceSchedule, ActionRead},
		{"bad domain", "s", Domain("facility:nope"), ResourceSchedule, ActionRead},
		{"unknown resource", "s", FacilityDomain(facilityA), Resource("invoice"), ActionRead},
		{"unknown action", "s", FacilityDomain(facilityA), ResourceSchedule, Action("approve")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Enforce(ctx, tt.subject, tt.domain, tt.object, tt.action)
			assert.ErrorIs(t, err, ErrInvalidArgs)
		})
	}
}

func TestMustEnforce(t *testing.T) {
	ctx := context.Background()
	auth := newSeededAuth(t)
	_, err := auth.AddRoleForUserInDomain(ctx, "view-1", RoleFacilityViewer, FacilityDomain(facilityA))
	require.NoError(t, err)

	assert.NoError(t, auth.MustEnforce(ctx, "view-1", FacilityDomain(facilityA), ResourceSchedule, ActionRead))
	assert.ErrorIs(t, auth.MustEnforce(ctx, "view-1", FacilityDomain(facilityA), ResourceSchedule, ActionDelete), ErrForbidden)
}

func TestAddPermission_Validation(t *testing.T) {
	ctx := context.Background()
	auth := newSeededAuth(t)

	_, err := auth.AddPermission(ctx, Role("role:unknown"), WildcardDomain, ResourceSchedule, ActionRead, EffectAllow)
	assert.ErrorIs(t, err, ErrInvalidArgs)

	_, err = auth.AddPermission(ctx, RoleFacilityViewer, WildcardDomain, ResourceSchedule, ActionRead, PolicyEffect("maybe"))
	assert.ErrorIs(t, err, ErrInvalidArgs)
}

func TestDenyOverridesAllow(t *testing.T) {
	ctx := context.Background()
	auth := newSeededAuth(t)
	dom := FacilityDomain(facilityA)

	_, err := auth.AddRoleForUserInDomain(ctx, "care-1", RoleFacilityCaregiver, dom)
	require.NoError(t, err)
	_, err = auth.AddPermission(ctx, RoleFacilityCaregiver, dom, ResourceSchedule, ActionDelete, EffectDeny)
	require.NoError(t, err)

	ok, err := auth.Enforce(ctx, "care-1", dom, ResourceSchedule, ActionDelete)
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := auth.RemovePermission(ctx, RoleFacilityCaregiver, dom, ResourceSchedule, ActionDelete, EffectDeny)
	require.NoError(t, err)
	assert.True(t, removed)

	ok, err = auth.Enforce(ctx, "care-1", dom, ResourceSchedule, ActionDelete)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSyncFacilityRole(t *testing.T) {
	ctx := context.Background()
	auth := newSeededAuth(t)
	dom := FacilityDomain(facilityA)

	require.NoError(t, SyncFacilityRole(ctx, auth, "s1", facilityA, "viewer"))
	roles, err := auth.GetRolesForUserInDomain(ctx, "s1", dom)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleFacilityViewer}, roles)

	// promotion replaces the old role
	require.NoError(t, SyncFacilityRole(ctx, auth, "s1", facilityA, "caregiver"))
	roles, err = auth.GetRolesForUserInDomain(ctx, "s1", dom)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleFacilityCaregiver}, roles)

	// idempotent
	require.NoError(t, SyncFacilityRole(ctx, auth, "s1", facilityA, "caregiver"))
	roles, err = auth.GetRolesForUserInDomain(ctx, "s1", dom)
	require.NoError(t, err)
	assert.Len(t, roles, 1)

	err = SyncFacilityRole(ctx, auth, "s1", facilityA, "janitor")
	assert.ErrorIs(t, err, ErrInvalidArgs)
}
