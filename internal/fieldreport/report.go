// Package fieldreport records field officers' farm visits.
package fieldreport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/agricompass/internal/apperr"
	"github.com/sudo-init-do/agricompass/internal/identity"
	"github.com/sudo-init-do/agricompass/internal/store"
	"github.com/sudo-init-do/agricompass/internal/validation"
)

type Report struct {
	ID           string    `json:"id"`
	OfficerID    string    `json:"officer_id"`
	FarmerID     string    `json:"farmer_id"`
	ListingID    *string   `json:"listing_id"`
	Notes        string    `json:"notes"`
	QualityGrade *string   `json:"quality_grade"`
	HarvestReady *bool     `json:"harvest_ready"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateRequest struct {
	FarmerID     string  `json:"farmer_id" validate:"required"`
	ListingID    *string `json:"listing_id"`
	Notes        string  `json:"notes" validate:"required"`
	QualityGrade *string `json:"quality_grade" validate:"omitempty,oneof=A B C"`
	HarvestReady *bool   `json:"harvest_ready"`
}

const forbidden = "Only officers/admin can manage field reports"

type Service struct {
	store store.Store
	log   logrus.FieldLogger
}

func NewService(st store.Store, log logrus.FieldLogger) *Service {
	return &Service{store: st, log: log}
}

// Create files a report for a farmer on behalf of the calling officer.
func (s *Service) Create(ctx context.Context, caller identity.Caller, req CreateRequest) (Report, error) {
	if err := caller.Require(forbidden, identity.RoleOfficer, identity.RoleAdmin); err != nil {
		return Report{}, err
	}
	req.FarmerID = strings.TrimSpace(req.FarmerID)
	req.Notes = strings.TrimSpace(req.Notes)
	if req.QualityGrade != nil && *req.QualityGrade == "" {
		req.QualityGrade = nil
	}
	if err := validation.Struct(req); err != nil {
		return Report{}, err
	}
	if req.ListingID != nil {
		if _, err := store.ParseID(*req.ListingID); err != nil {
			return Report{}, apperr.BadRequest("Invalid id format")
		}
	}

	r := Report{
		OfficerID:    caller.ID,
		FarmerID:     req.FarmerID,
		ListingID:    req.ListingID,
		Notes:        req.Notes,
		QualityGrade: req.QualityGrade,
		HarvestReady: req.HarvestReady,
	}
	rec, err := s.store.Create(ctx, store.FieldReports, r)
	if err != nil {
		return Report{}, fmt.Errorf("create field report: %w", err)
	}
	r.ID, r.CreatedAt = rec.ID, rec.CreatedAt

	s.log.WithFields(logrus.Fields{
		"report_id":  r.ID,
		"officer_id": r.OfficerID,
		"farmer_id":  r.FarmerID,
	}).Info("field report filed")
	return r, nil
}

// List returns reports newest first, optionally for one farmer.
func (s *Service) List(ctx context.Context, caller identity.Caller, farmerID string) ([]Report, error) {
	if err := caller.Require(forbidden, identity.RoleOfficer, identity.RoleAdmin); err != nil {
		return nil, err
	}
	var f store.Filter
	if farmerID != "" {
		f = store.Where(store.Eq("farmer_id", farmerID))
	}
	recs, err := s.store.FindMany(ctx, store.FieldReports, f, store.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("list field reports: %w", err)
	}
	out := make([]Report, 0, len(recs))
	for _, rec := range recs {
		var r Report
		if err := rec.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
