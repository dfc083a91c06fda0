package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/agricompass/internal/apperr"
	"github.com/sudo-init-do/agricompass/internal/identity"
	"github.com/sudo-init-do/agricompass/internal/store"
)

// Service reads profiles and records officer verification.
type Service struct {
	store store.Store
	log   logrus.FieldLogger
}

func NewService(st store.Store, log logrus.FieldLogger) *Service {
	return &Service{store: st, log: log}
}

// Get loads a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	id, err := store.ParseID(id)
	if err != nil {
		return User{}, apperr.BadRequest("Invalid id format")
	}
	rec, err := s.store.FindOne(ctx, store.Users, store.Where(store.ByID(id)))
	if errors.Is(err, store.ErrNotFound) {
		return User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	var u User
	if err := rec.Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}

// SetVerified marks a user's profile as verified (or not) by a field officer.
func (s *Service) SetVerified(ctx context.Context, caller identity.Caller, id string, verified bool) (Profile, error) {
	if err := caller.Require("Only officers/admin can verify users", identity.RoleOfficer, identity.RoleAdmin); err != nil {
		return Profile{}, err
	}
	id, err := store.ParseID(id)
	if err != nil {
		return Profile{}, apperr.BadRequest("Invalid id format")
	}

	ok, err := s.store.UpdateOne(ctx, store.Users, store.Where(store.ByID(id)), map[string]any{"verified": verified})
	if err != nil {
		return Profile{}, fmt.Errorf("update user: %w", err)
	}
	if !ok {
		return Profile{}, apperr.NotFound("User not found")
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  id,
		"verified": verified,
		"by":       caller.ID,
	}).Info("user verification updated")

	u, err := s.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return u.Profile(), nil
}
