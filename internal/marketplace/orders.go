package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/agricompass/internal/apperr"
	"github.com/sudo-init-do/agricompass/internal/identity"
	"github.com/sudo-init-do/agricompass/internal/metrics"
	"github.com/sudo-init-do/agricompass/internal/store"
)

type OrderItemRequest struct {
	ListingID string  `json:"listing_id"`
	Quantity  float64 `json:"quantity"`
}

type CreateOrderRequest struct {
	Items         []OrderItemRequest `json:"items"`
	DeliveryTerms *string            `json:"delivery_terms"`
	PaymentMethod *string            `json:"payment_method"`
}

// OrderPlaced is returned by Create.
type OrderPlaced struct {
	ID     string  `json:"id"`
	Total  float64 `json:"total"`
	Status string  `json:"status"`
}

type OrderService struct {
	store store.Store
	log   logrus.FieldLogger
}

func NewOrderService(st store.Store, log logrus.FieldLogger) *OrderService {
	return &OrderService{store: st, log: log}
}

// Create prices the requested items against the current listings and stores
// a pending order. Every item is checked before anything is written, so a
// rejected request leaves no order behind. Listing quantities are not
// decremented.
func (s *OrderService) Create(ctx context.Context, caller identity.Caller, req CreateOrderRequest) (OrderPlaced, error) {
	if err := caller.Require("Only buyers can place orders", identity.RoleBuyer, identity.RoleAdmin); err != nil {
		return OrderPlaced{}, err
	}
	if len(req.Items) == 0 {
		return OrderPlaced{}, apperr.BadRequest("No items provided")
	}

	items := make([]OrderItem, 0, len(req.Items))
	for _, in := range req.Items {
		item, err := s.snapshot(ctx, in)
		if err != nil {
			return OrderPlaced{}, err
		}
		items = append(items, item)
	}

	o := Order{
		BuyerID:       caller.ID,
		Items:         items,
		TotalAmount:   orderTotal(items),
		Status:        OrderPending,
		DeliveryTerms: req.DeliveryTerms,
		PaymentMethod: req.PaymentMethod,
	}
	rec, err := s.store.Create(ctx, store.Orders, o)
	if err != nil {
		return OrderPlaced{}, fmt.Errorf("create order: %w", err)
	}

	metrics.RecordOrder(o.TotalAmount)
	s.log.WithFields(logrus.Fields{
		"order_id": rec.ID,
		"buyer_id": caller.ID,
		"items":    len(items),
		"total":    o.TotalAmount,
	}).Info("order placed")
	return OrderPlaced{ID: rec.ID, Total: o.TotalAmount, Status: o.Status}, nil
}

func (s *OrderService) snapshot(ctx context.Context, in OrderItemRequest) (OrderItem, error) {
	id, err := store.ParseID(in.ListingID)
	if err != nil {
		return OrderItem{}, apperr.BadRequest("Invalid id format")
	}
	rec, err := s.store.FindOne(ctx, store.Listings, store.Where(store.ByID(id)))
	if errors.Is(err, store.ErrNotFound) {
		return OrderItem{}, apperr.NotFound("Listing not found: %s", in.ListingID)
	}
	if err != nil {
		return OrderItem{}, fmt.Errorf("find listing: %w", err)
	}
	var l Listing
	if err := rec.Decode(&l); err != nil {
		return OrderItem{}, err
	}
	if l.Status != StatusActive {
		return OrderItem{}, apperr.BadRequest("Listing not active: %s", in.ListingID)
	}
	if in.Quantity <= 0 {
		return OrderItem{}, apperr.BadRequest("Quantity must be > 0")
	}

	title := l.Title
	if title == "" {
		title = "Produce"
	}
	return OrderItem{
		ListingID: id,
		Quantity:  in.Quantity,
		UnitPrice: l.UnitPrice,
		Title:     title,
	}, nil
}

// ListMine returns the caller's own orders, newest first. Admins see only
// the orders they placed themselves.
func (s *OrderService) ListMine(ctx context.Context, caller identity.Caller) ([]Order, error) {
	if err := caller.Require("Only buyers can view their orders", identity.RoleBuyer, identity.RoleAdmin); err != nil {
		return nil, err
	}
	recs, err := s.store.FindMany(ctx, store.Orders, store.Where(store.Eq("buyer_id", caller.ID)), store.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]Order, 0, len(recs))
	for _, rec := range recs {
		var o Order
		if err := rec.Decode(&o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
