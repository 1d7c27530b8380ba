package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/repo"
	"github.com/Alijeyrad/carevisit_backend/pkg/authorize"
	"github.com/Alijeyrad/carevisit_backend/pkg/constants"
	"github.com/Alijeyrad/carevisit_backend/pkg/reqctx"
)

const (
	LocalsFacilityID = "facility_id"
	LocalsStaffID    = "staff_id"
	LocalsStaffRole  = "staff_role"
)

// StaffLookup resolves the staff member behind a request; *repo.Store and
// *repo.Memory satisfy it.
type StaffLookup interface {
	StaffByID(ctx context.Context, id string) (model.Staff, error)
}

// FacilityScope reads the acting staff member from the X-Staff-ID header and
// binds their facility to the request. Requests from unknown or inactive staff
// are rejected before any schedule data is touched.
//
// The header is not verified here: whoever sends it acts as that staff member.
// Deploy the server behind an authenticating proxy that strips any
// client-supplied X-Staff-ID and sets it from the authenticated session. Never
// expose it to clients directly. Query parameters and cookies are never read
// as identity.
//
// auth is optional. When set, the staff member's facility role is synced into
// Casbin so RequirePermission sees the current staff.role value.
func FacilityScope(staff StaffLookup, auth authorize.IAuthorization) fiber.Handler {
	return func(c fiber.Ctx) error {
		staffID := c.Get(constants.HeaderStaffID)
		if staffID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, constants.HeaderStaffID+" header is required")
		}

		st, err := staff.StaffByID(c.Context(), staffID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return fiber.NewError(fiber.StatusForbidden, "staff member has no facility")
			}
			return err
		}
		if !st.Active || st.FacilityID == "" {
			return fiber.NewError(fiber.StatusForbidden, "staff member has no facility")
		}

		if auth != nil {
			if err := authorize.SyncFacilityRole(c.Context(), auth, st.ID, st.FacilityID, st.Role); err != nil {
				slog.WarnContext(c.Context(), "rbac role sync failed",
					"staff_id", st.ID, "facility_id", st.FacilityID, "error", err)
			}
		}

		c.Locals(LocalsFacilityID, st.FacilityID)
		c.Locals(LocalsStaffID, st.ID)
		c.Locals(LocalsStaffRole, st.Role)

		scope := model.Scope{FacilityID: st.FacilityID, StaffID: st.ID, Role: st.Role}
		c.SetContext(reqctx.WithScope(c.Context(), scope))

		return c.Next()
	}
}

// ScopeFromFiber returns the scope FacilityScope bound to the request.
func ScopeFromFiber(c fiber.Ctx) (model.Scope, bool) {
	fid, _ := c.Locals(LocalsFacilityID).(string)
	sid, _ := c.Locals(LocalsStaffID).(string)
	role, _ := c.Locals(LocalsStaffRole).(string)
	if fid == "" || sid == "" {
		return model.Scope{}, false
	}
	return model.Scope{FacilityID: fid, StaffID: sid, Role: role}, true
}
