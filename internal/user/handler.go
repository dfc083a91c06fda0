package user

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/agricompass/internal/apperr"
	"github.com/sudo-init-do/agricompass/internal/identity"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// GET /users/:id/profile
func (h *Handler) GetPublicProfile(c echo.Context) error {
	u, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u.Profile())
}

type verifyRequest struct {
	Verified *bool `json:"verified"`
}

// PATCH /users/:id/verify
func (h *Handler) Verify(c echo.Context) error {
	caller, err := identity.From(c)
	if err != nil {
		return err
	}
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	verified := true
	if req.Verified != nil {
		verified = *req.Verified
	}

	p, err := h.svc.SetVerified(c.Request().Context(), caller, c.Param("id"), verified)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"id": p.ID, "verified": p.Verified})
}
