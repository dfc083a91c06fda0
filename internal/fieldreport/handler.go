package fieldreport

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

// POST /field-reports
func (h *Handler) Create(c echo.Context) error {
	caller, err := identity.From(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	r, err := h.svc.Create(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": r.ID})
}

// GET /field-reports?farmer_id=
func (h *Handler) List(c echo.Context) error {
	caller, err := identity.From(c)
	if err != nil {
		return err
	}
	reports, err := h.svc.List(c.Request().Context(), caller, c.QueryParam("farmer_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reports)
}
