package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/agricompass/internal/db"
)

func TestBuildWhere(t *testing.T) {
	id := newID()
	where, args, err := buildWhere(Listings, Where(
		ByID(id),
		Eq("status", "active"),
		Gte("unit_price", 1.5),
		Lte("unit_price", 3),
		ContainsFold("title", "50%_off"),
		Empty("token"),
	))
	require.NoError(t, err)

	assert.Equal(t,
		`collection = $1 AND id = $2::uuid AND data @> $3::jsonb AND (data->>'unit_price')::numeric >= $4 AND (data->>'unit_price')::numeric <= $5 AND data->>'title' ILIKE $6 ESCAPE '\' AND COALESCE(data->>'token', '') = ''`,
		where)
	assert.Equal(t, []any{"listing", id, `{"status":"active"}`, 1.5, 3.0, `%50\%\_off%`}, args)
}

func TestBuildWhereRejectsBadInput(t *testing.T) {
	_, _, err := buildWhere(Listings, Where(ByID("nope")))
	assert.True(t, errors.Is(err, ErrInvalidID))

	_, _, err = buildWhere(Listings, Where(Eq("title'--", "x")))
	assert.Error(t, err)
}

func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	require.NoError(t, db.EnsureSchema(ctx, sqlDB))
	_, err = pool.Exec(ctx, `DELETE FROM records`)
	require.NoError(t, err)

	s := NewPostgres(pool)

	type account struct {
		Email string `json:"email"`
		Token string `json:"token,omitempty"`
	}
	a, err := s.Create(ctx, Users, account{Email: "a@x.com"})
	require.NoError(t, err)
	_, err = s.Create(ctx, Users, account{Email: "a@x.com"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	ok, err := s.UpdateOne(ctx, Users, Where(ByID(a.ID), Empty("token")), map[string]any{"token": "tok"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.UpdateOne(ctx, Users, Where(ByID(a.ID), Empty("token")), map[string]any{"token": "other"})
	require.NoError(t, err)
	assert.False(t, ok)

	rec, err := s.FindOne(ctx, Users, Where(Eq("token", "tok")))
	require.NoError(t, err)
	assert.Equal(t, a.ID, rec.ID)

	_, err = s.Create(ctx, Listings, produce{Title: "Yellow Maize", Status: "active", Price: 2.5})
	require.NoError(t, err)
	_, err = s.Create(ctx, Listings, produce{Title: "Cassava", Status: "inactive", Price: 1})
	require.NoError(t, err)

	recs, err := s.FindMany(ctx, Listings, Where(Eq("status", "active"), ContainsFold("title", "maize"), Lte("unit_price", 2.5)), FindOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	_, err = s.FindOne(ctx, Listings, Where(Eq("status", "sold")))
	assert.True(t, errors.Is(err, ErrNotFound))
}
