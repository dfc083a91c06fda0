package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/agricompass/internal/identity"
)

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: route(..., RequireRoles("officer", "admin"))
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, err := identity.From(c)
			if err != nil {
				return err
			}
			if err := caller.Require("access denied", roles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}
