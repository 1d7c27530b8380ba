package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/carevisit_backend/pkg/authorize"
)

// RequirePermission checks the scoped staff member against the facility
// domain set by FacilityScope.
func RequirePermission(auth authorize.IAuthorization, resource authorize.Resource, action authorize.Action) fiber.Handler {
	return func(c fiber.Ctx) error {
		scope, ok := ScopeFromFiber(c)
		if !ok {
			return fiber.ErrUnauthorized
		}

		subject, domain, err := authorize.ScopeTarget(scope)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		if err := auth.MustEnforce(c.Context(), subject, domain, resource, action); err != nil {
			if errors.Is(err, authorize.ErrForbidden) {
				return fiber.ErrForbidden
			}
			return err
		}

		return c.Next()
	}
}
