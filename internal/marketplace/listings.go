// Package marketplace implements produce listings and order placement.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/agricompass/internal/apperr"
	"github.com/sudo-init-do/agricompass/internal/identity"
	"github.com/sudo-init-do/agricompass/internal/metrics"
	"github.com/sudo-init-do/agricompass/internal/store"
	"github.com/sudo-init-do/agricompass/internal/validation"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type CreateListingRequest struct {
	Title             string   `json:"title" validate:"required"`
	Category          string   `json:"category" validate:"oneof=grains vegetables fruits legumes roots other"`
	Description       string   `json:"description"`
	Unit              string   `json:"unit" validate:"oneof=kg ton bag crate unit"`
	QuantityAvailable *float64 `json:"quantity_available" validate:"required,gte=0"`
	UnitPrice         *float64 `json:"unit_price" validate:"required,gte=0"`
	Region            string   `json:"region"`
	QualityGrade      *string  `json:"quality_grade" validate:"omitempty,oneof=A B C"`
}

// ListingQuery filters the public catalog. Nil fields are not applied.
type ListingQuery struct {
	Category string
	Region   string
	Q        string
	MinPrice *float64
	MaxPrice *float64
	Limit    *int
}

type ListingStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ListingService struct {
	store store.Store
	log   logrus.FieldLogger
}

func NewListingService(st store.Store, log logrus.FieldLogger) *ListingService {
	return &ListingService{store: st, log: log}
}

// Create lists new produce for the calling farmer. The listing starts active.
func (s *ListingService) Create(ctx context.Context, caller identity.Caller, req CreateListingRequest) (Listing, error) {
	if err := caller.Require("Only farmers can create listings", identity.RoleFarmer, identity.RoleAdmin); err != nil {
		return Listing{}, err
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Category == "" {
		req.Category = "other"
	}
	if req.Unit == "" {
		req.Unit = "kg"
	}
	if req.QualityGrade != nil && *req.QualityGrade == "" {
		req.QualityGrade = nil
	}
	if err := validation.Struct(req); err != nil {
		return Listing{}, err
	}

	l := Listing{
		FarmerID:          caller.ID,
		Title:             req.Title,
		Category:          req.Category,
		Description:       req.Description,
		Unit:              req.Unit,
		QuantityAvailable: *req.QuantityAvailable,
		UnitPrice:         *req.UnitPrice,
		Region:            req.Region,
		QualityGrade:      req.QualityGrade,
		Status:            StatusActive,
	}
	rec, err := s.store.Create(ctx, store.Listings, l)
	if err != nil {
		return Listing{}, fmt.Errorf("create listing: %w", err)
	}
	l.ID, l.CreatedAt = rec.ID, rec.CreatedAt

	s.log.WithFields(logrus.Fields{
		"listing_id": l.ID,
		"farmer_id":  l.FarmerID,
		"unit_price": l.UnitPrice,
	}).Info("listing created")
	return l, nil
}

// Query returns active listings matching q, newest first.
func (s *ListingService) Query(ctx context.Context, q ListingQuery) ([]Listing, error) {
	limit := DefaultLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, apperr.BadRequest("limit must be between 1 and %d", MaxLimit)
	}

	f := store.Where(store.Eq("status", StatusActive))
	if q.Category != "" {
		f = append(f, store.Eq("category", q.Category))
	}
	if q.Region != "" {
		f = append(f, store.Eq("region", q.Region))
	}
	if q.MinPrice != nil {
		if err := checkPriceBound("min_price", *q.MinPrice); err != nil {
			return nil, err
		}
		f = append(f, store.Gte("unit_price", *q.MinPrice))
	}
	if q.MaxPrice != nil {
		if err := checkPriceBound("max_price", *q.MaxPrice); err != nil {
			return nil, err
		}
		f = append(f, store.Lte("unit_price", *q.MaxPrice))
	}
	if q.Q != "" {
		f = append(f, store.ContainsFold("title", q.Q))
	}

	recs, err := s.store.FindMany(ctx, store.Listings, f, store.FindOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	out := make([]Listing, 0, len(recs))
	for _, rec := range recs {
		var l Listing
		if err := rec.Decode(&l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func checkPriceBound(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperr.BadRequest("%s must be a finite number", name)
	}
	if v < 0 {
		return apperr.BadRequest("%s must be >= 0", name)
	}
	return nil
}

// Get returns a single listing regardless of its status.
func (s *ListingService) Get(ctx context.Context, id string) (Listing, error) {
	id, err := store.ParseID(id)
	if err != nil {
		return Listing{}, apperr.BadRequest("Invalid id format")
	}
	rec, err := s.store.FindOne(ctx, store.Listings, store.Where(store.ByID(id)))
	if errors.Is(err, store.ErrNotFound) {
		return Listing{}, apperr.NotFound("Listing not found")
	}
	if err != nil {
		return Listing{}, fmt.Errorf("find listing: %w", err)
	}
	var l Listing
	if err := rec.Decode(&l); err != nil {
		return Listing{}, err
	}
	return l, nil
}

// UpdateStatus overwrites a listing's moderation status.
func (s *ListingService) UpdateStatus(ctx context.Context, caller identity.Caller, id, status string) (ListingStatus, error) {
	if err := caller.Require("Only officers/admin can update status", identity.RoleOfficer, identity.RoleAdmin); err != nil {
		return ListingStatus{}, err
	}
	switch status {
	case StatusActive, StatusInactive, StatusSold:
	default:
		return ListingStatus{}, apperr.BadRequest("status must be one of [active inactive sold]")
	}
	id, err := store.ParseID(id)
	if err != nil {
		return ListingStatus{}, apperr.BadRequest("Invalid id format")
	}

	ok, err := s.store.UpdateOne(ctx, store.Listings, store.Where(store.ByID(id)), map[string]any{"status": status})
	if err != nil {
		return ListingStatus{}, fmt.Errorf("update listing: %w", err)
	}
	if !ok {
		return ListingStatus{}, apperr.NotFound("Listing not found")
	}

	metrics.RecordListingStatus(status)
	s.log.WithFields(logrus.Fields{
		"listing_id": id,
		"status":     status,
		"by":         caller.ID,
	}).Info("listing status updated")
	return ListingStatus{ID: id, Status: status}, nil
}
