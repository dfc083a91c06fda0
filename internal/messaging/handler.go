package messaging

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

// SendMessage - any authenticated user sends a message to another user
func (h *Handler) SendMessage(c echo.Context) error {
	caller, err := identity.From(c)
	if err != nil {
		return err
	}
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	m, err := h.svc.Send(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": m.ID})
}

// GetInbox - messages addressed to the caller
func (h *Handler) GetInbox(c echo.Context) error {
	caller, err := identity.From(c)
	if err != nil {
		return err
	}
	msgs, err := h.svc.Inbox(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msgs)
}
