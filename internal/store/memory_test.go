package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type produce struct {
	ID        string    `json:"id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Price     float64   `json:"unit_price"`
	Token     string    `json:"token,omitempty"`
}

func seed(t *testing.T, m *Memory, docs ...produce) []Record {
	t.Helper()
	var out []Record
	for _, d := range docs {
		rec, err := m.Create(context.Background(), Listings, d)
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestMemoryCreateStampsMetadata(t *testing.T) {
	m := NewMemory()
	rec, err := m.Create(context.Background(), Listings, produce{Title: "Maize", Status: "active", Price: 2.5})
	require.NoError(t, err)

	_, err = ParseID(rec.ID)
	require.NoError(t, err)

	var got produce
	require.NoError(t, rec.Decode(&got))
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "Maize", got.Title)
}

func TestMemoryFindManyOrdersNewestFirst(t *testing.T) {
	m := NewMemory()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	recs := seed(t, m,
		produce{Title: "Maize", Status: "active"},
		produce{Title: "Beans", Status: "active"},
		produce{Title: "Yams", Status: "active"},
	)

	got, err := m.FindMany(context.Background(), Listings, nil, FindOptions{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, recs[2].ID, got[0].ID)
	assert.Equal(t, recs[1].ID, got[1].ID)
	assert.Equal(t, recs[0].ID, got[2].ID)

	limited, err := m.FindMany(context.Background(), Listings, nil, FindOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestMemoryFilters(t *testing.T) {
	m := NewMemory()
	seed(t, m,
		produce{Title: "Yellow Maize", Status: "active", Price: 2.5},
		produce{Title: "White maize", Status: "sold", Price: 3},
		produce{Title: "Cassava", Status: "active", Price: 1},
		produce{Title: "Sweet Potato", Status: "active", Price: 4},
	)
	ctx := context.Background()

	titles := func(f Filter) []string {
		recs, err := m.FindMany(ctx, Listings, f, FindOptions{})
		require.NoError(t, err)
		var out []string
		for _, r := range recs {
			var p produce
			require.NoError(t, r.Decode(&p))
			out = append(out, p.Title)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"Yellow Maize", "White maize"}, titles(Where(ContainsFold("title", "MAIZE"))))
	assert.ElementsMatch(t, []string{"Yellow Maize", "Cassava", "Sweet Potato"}, titles(Where(Eq("status", "active"))))
	assert.ElementsMatch(t, []string{"Yellow Maize", "White maize", "Sweet Potato"}, titles(Where(Gte("unit_price", 2.5))))
	assert.ElementsMatch(t, []string{"Yellow Maize", "White maize", "Cassava"}, titles(Where(Lte("unit_price", 3))))
	assert.ElementsMatch(t, []string{"Yellow Maize"}, titles(Where(Eq("status", "active"), Gte("unit_price", 2), Lte("unit_price", 3))))
	assert.Empty(t, titles(Where(Eq("unit_price", "2.5"))))
}

func TestMemoryFindOneNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.FindOne(context.Background(), Listings, Where(ByID(newID())))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryUpdateOne(t *testing.T) {
	m := NewMemory()
	recs := seed(t, m, produce{Title: "Maize", Status: "active"})
	ctx := context.Background()

	ok, err := m.UpdateOne(ctx, Listings, Where(ByID(recs[0].ID)), map[string]any{"status": "sold", "id": "hijack"})
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := m.FindOne(ctx, Listings, Where(ByID(recs[0].ID)))
	require.NoError(t, err)
	var p produce
	require.NoError(t, rec.Decode(&p))
	assert.Equal(t, "sold", p.Status)
	assert.Equal(t, recs[0].ID, p.ID)
	// fields not named in the update are kept
	assert.Equal(t, "Maize", p.Title)

	ok, err = m.UpdateOne(ctx, Listings, Where(ByID(newID())), map[string]any{"status": "sold"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryConditionalUpdateAppliesOnce(t *testing.T) {
	m := NewMemory()
	recs := seed(t, m, produce{Title: "Maize"})
	ctx := context.Background()
	f := Where(ByID(recs[0].ID), Empty("token"))

	ok, err := m.UpdateOne(ctx, Listings, f, map[string]any{"token": "first"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.UpdateOne(ctx, Listings, f, map[string]any{"token": "second"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryUniqueFields(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	type account struct {
		Email string `json:"email"`
		Token string `json:"token,omitempty"`
	}

	_, err := m.Create(ctx, Users, account{Email: "a@x.com"})
	require.NoError(t, err)
	b, err := m.Create(ctx, Users, account{Email: "b@x.com", Token: "t1"})
	require.NoError(t, err)

	_, err = m.Create(ctx, Users, account{Email: "a@x.com"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	_, err = m.Create(ctx, Users, account{Email: "c@x.com", Token: "t1"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	// empty tokens never collide
	_, err = m.Create(ctx, Users, account{Email: "d@x.com"})
	require.NoError(t, err)

	ok, err := m.UpdateOne(ctx, Users, Where(ByID(b.ID)), map[string]any{"token": "t1"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseID(t *testing.T) {
	_, err := ParseID("not-an-id")
	assert.True(t, errors.Is(err, ErrInvalidID))

	id := newID()
	got, err := ParseID(id)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
