package auth

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

// ===== Signup =====
func (h *Handler) Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	sess, err := h.svc.Signup(c.Request().Context(), *req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	sess, err := h.svc.Login(c.Request().Context(), *req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

// Me returns the currently authenticated caller.
func (h *Handler) Me(c echo.Context) error {
	caller, err := identity.From(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, caller)
}

func (h *Handler) Logout(c echo.Context) error {
	caller, err := identity.From(c)
	if err != nil {
		return err
	}
	if err := h.svc.Logout(c.Request().Context(), caller); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
