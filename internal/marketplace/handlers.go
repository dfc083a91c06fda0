package marketplace

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/agricompass/internal/apperr"
	"github.com/sudo-init-do/agricompass/internal/identity"
)

type Handler struct {
	listings *ListingService
	orders   *OrderService
}

func NewHandler(listings *ListingService, orders *OrderService) *Handler {
	return &Handler{listings: listings, orders: orders}
}

// CreateListing allows a farmer to list produce on the marketplace
func (h *Handler) CreateListing(c echo.Context) error {
	caller, err := identity.From(c)
	if err != nil {
		return err
	}
	var req CreateListingRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	l, err := h.listings.Create(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": l.ID})
}

// GetListings returns active listings, optionally filtered
func (h *Handler) GetListings(c echo.Context) error {
	q := ListingQuery{
		Category: c.QueryParam("category"),
		Region:   c.QueryParam("region"),
		Q:        c.QueryParam("q"),
	}
	var err error
	if q.MinPrice, err = floatParam(c, "min_price"); err != nil {
		return err
	}
	if q.MaxPrice, err = floatParam(c, "max_price"); err != nil {
		return err
	}
	if l := c.QueryParam("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil {
			return apperr.BadRequest("limit must be an integer")
		}
		q.Limit = &v
	}

	listings, err := h.listings.Query(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listings)
}

func floatParam(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperr.BadRequest("%s must be a number", name)
	}
	return &v, nil
}

// GetListing returns a single listing by id
func (h *Handler) GetListing(c echo.Context) error {
	l, err := h.listings.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

// UpdateListingStatus lets an officer or admin moderate a listing
func (h *Handler) UpdateListingStatus(c echo.Context) error {
	caller, err := identity.From(c)
	if err != nil {
		return err
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	res, err := h.listings.UpdateStatus(c.Request().Context(), caller, c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// CreateOrder places an order for one or more listings
func (h *Handler) CreateOrder(c echo.Context) error {
	caller, err := identity.From(c)
	if err != nil {
		return err
	}
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request")
	}
	placed, err := h.orders.Create(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, placed)
}

// GetMyOrders lists the caller's orders
func (h *Handler) GetMyOrders(c echo.Context) error {
	caller, err := identity.From(c)
	if err != nil {
		return err
	}
	orders, err := h.orders.ListMine(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}
