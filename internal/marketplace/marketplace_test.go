package marketplace

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/agricompass/internal/apperr"
	"github.com/sudo-init-do/agricompass/internal/identity"
	"github.com/sudo-init-do/agricompass/internal/store"
)

var (
	farmer  = identity.Caller{ID: "farmer-1", Role: identity.RoleFarmer, Name: "Amara"}
	buyer   = identity.Caller{ID: "buyer-1", Role: identity.RoleBuyer, Name: "Bola"}
	officer = identity.Caller{ID: "officer-1", Role: identity.RoleOfficer, Name: "Chidi"}
	admin   = identity.Caller{ID: "admin-1", Role: identity.RoleAdmin, Name: "Dayo"}
)

type fixture struct {
	store    *store.Memory
	listings *ListingService
	orders   *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := store.NewMemory()
	return &fixture{
		store:    st,
		listings: NewListingService(st, log),
		orders:   NewOrderService(st, log),
	}
}

func f64(v float64) *float64 { return &v }
func str(s string) *string   { return &s }
func intp(v int) *int        { return &v }

func (f *fixture) list(t *testing.T, title string, qty, price float64) Listing {
	t.Helper()
	l, err := f.listings.Create(context.Background(), farmer, CreateListingRequest{
		Title:             title,
		QuantityAvailable: f64(qty),
		UnitPrice:         f64(price),
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	recs, err := f.store.FindMany(context.Background(), store.Orders, nil, store.FindOptions{})
	require.NoError(t, err)
	return len(recs)
}

// requireAppErr asserts err is an *apperr.Error of the given kind and message.
func requireAppErr(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae), "expected *apperr.Error, got %v", err)
	assert.Equal(t, kind, ae.Kind)
	assert.Equal(t, msg, ae.Message)
}
