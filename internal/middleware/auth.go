// Package middleware provides the echo middleware shared by all routes.
package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/agricompass/internal/identity"
)

// Resolver maps an Authorization header value to a caller.
type Resolver interface {
	Resolve(ctx context.Context, header string) (identity.Caller, error)
}

// TokenAuth rejects requests without a resolvable bearer token and stores
// the caller on the context.
func TokenAuth(r Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, err := r.Resolve(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}
			identity.Set(c, caller)
			return next(c)
		}
	}
}
