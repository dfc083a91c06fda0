// Package identity carries the authenticated caller through a request.
package identity

import (
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/agricompass/internal/apperr"
)

const (
	RoleFarmer  = "farmer"
	RoleBuyer   = "buyer"
	RoleOfficer = "officer"
	RoleAdmin   = "admin"
)

// Roles lists every assignable role.
var Roles = []string{RoleFarmer, RoleBuyer, RoleOfficer, RoleAdmin}

func ValidRole(role string) bool { return slices.Contains(Roles, role) }

// Caller is the identity resolved from a bearer token.
type Caller struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Name string `json:"name"`
}

func (c Caller) HasRole(roles ...string) bool { return slices.Contains(roles, c.Role) }

// Require returns a forbidden error carrying msg unless the caller holds one
// of roles.
func (c Caller) Require(msg string, roles ...string) error {
	if !c.HasRole(roles...) {
		return apperr.Forbidden("%s", msg)
	}
	return nil
}

const callerKey = "caller"

// Set stores the caller on the echo context. user_id and role are kept as
// separate keys for handlers that only need those.
func Set(c echo.Context, caller Caller) {
	c.Set(callerKey, caller)
	c.Set("user_id", caller.ID)
	c.Set("role", caller.Role)
}

// From returns the caller stored by the auth middleware.
func From(c echo.Context) (Caller, error) {
	caller, ok := c.Get(callerKey).(Caller)
	if !ok || caller.ID == "" {
		return Caller{}, apperr.Unauthorized("Unauthorized")
	}
	return caller, nil
}
