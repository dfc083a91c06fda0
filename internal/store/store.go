// Package store is the persistence gateway: create/find/update over named
// collections of JSON documents.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Collection names a set of records of the same shape.
type Collection string

const (
	Users        Collection = "user"
	Listings     Collection = "listing"
	Orders       Collection = "order"
	Messages     Collection = "message"
	FieldReports Collection = "fieldreport"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: duplicate record")
	ErrInvalidID = errors.New("store: invalid id format")
)

// Record is a stored document. Data always contains "id" and "created_at".
type Record struct {
	ID        string
	CreatedAt time.Time
	Data      json.RawMessage
}

// Decode unmarshals the record's document into v.
func (r Record) Decode(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode record %s: %w", r.ID, err)
	}
	return nil
}

// FindOptions tunes FindMany. Results are always newest first.
type FindOptions struct {
	Limit int // zero means unlimited
}

// Store is implemented by every persistence backend. Each call is atomic on
// a single document; there are no multi-document transactions.
type Store interface {
	// Create assigns an id and creation time and persists doc.
	Create(ctx context.Context, c Collection, doc any) (Record, error)
	// FindOne returns the newest record matching f or ErrNotFound.
	FindOne(ctx context.Context, c Collection, f Filter) (Record, error)
	FindMany(ctx context.Context, c Collection, f Filter, opts FindOptions) ([]Record, error)
	// UpdateOne merges set into one record matching f and reports whether
	// a record matched. Keys "id" and "created_at" are ignored.
	UpdateOne(ctx context.Context, c Collection, f Filter, set map[string]any) (bool, error)
}

// ParseID validates an externally supplied record id.
func ParseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return u.String(), nil
}

func newID() string { return uuid.New().String() }

// stamp encodes doc as a JSON object carrying the record metadata.
func stamp(doc any, id string, createdAt time.Time) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	fields["id"] = id
	fields["created_at"] = createdAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(fields)
}

// cleanSet drops metadata keys that an update may not overwrite.
func cleanSet(set map[string]any) map[string]any {
	out := make(map[string]any, len(set))
	for k, v := range set {
		if k == "id" || k == "created_at" {
			continue
		}
		out[k] = v
	}
	return out
}
