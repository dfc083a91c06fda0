package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store. It is safe for concurrent use and is
// intended for tests and local development.
type Memory struct {
	mu      sync.RWMutex
	seq     int64
	records map[Collection][]*memRecord
	unique  map[Collection][]string
	now     func() time.Time
}

type memRecord struct {
	seq       int64
	id        string
	createdAt time.Time
	fields    map[string]any
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store enforcing the same unique fields as the
// postgres schema.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[Collection][]*memRecord),
		unique: map[Collection][]string{
			Users: {"email", "token"},
		},
		now: time.Now,
	}
}

func (m *Memory) Create(_ context.Context, c Collection, doc any) (Record, error) {
	id := newID()
	createdAt := m.now().UTC()
	raw, err := stamp(doc, id, createdAt)
	if err != nil {
		return Record{}, err
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUniqueLocked(c, "", fields); err != nil {
		return Record{}, err
	}
	m.seq++
	rec := &memRecord{seq: m.seq, id: id, createdAt: createdAt, fields: fields}
	m.records[c] = append(m.records[c], rec)
	return rec.toRecord()
}

func (m *Memory) FindOne(ctx context.Context, c Collection, f Filter) (Record, error) {
	recs, err := m.FindMany(ctx, c, f, FindOptions{Limit: 1})
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, ErrNotFound
	}
	return recs[0], nil
}

func (m *Memory) FindMany(_ context.Context, c Collection, f Filter, opts FindOptions) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched, err := m.matchLocked(c, f)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	out := make([]Record, 0, len(matched))
	for _, rec := range matched {
		r, err := rec.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) UpdateOne(_ context.Context, c Collection, f Filter, set map[string]any) (bool, error) {
	normalized, err := normalize(cleanSet(set))
	if err != nil {
		return false, err
	}
	patch, _ := normalized.(map[string]any)

	m.mu.Lock()
	defer m.mu.Unlock()

	matched, err := m.matchLocked(c, f)
	if err != nil {
		return false, err
	}
	if len(matched) == 0 {
		return false, nil
	}
	rec := matched[0]

	next := make(map[string]any, len(rec.fields)+len(patch))
	for k, v := range rec.fields {
		next[k] = v
	}
	for k, v := range patch {
		next[k] = v
	}
	if err := m.checkUniqueLocked(c, rec.id, next); err != nil {
		return false, err
	}
	rec.fields = next
	return true, nil
}

// matchLocked returns matching records newest first.
func (m *Memory) matchLocked(c Collection, f Filter) ([]*memRecord, error) {
	var out []*memRecord
	for _, rec := range m.records[c] {
		ok, err := rec.matches(f)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.After(out[j].createdAt)
		}
		return out[i].seq > out[j].seq
	})
	return out, nil
}

func (m *Memory) checkUniqueLocked(c Collection, selfID string, fields map[string]any) error {
	for _, key := range m.unique[c] {
		v, ok := fields[key].(string)
		if !ok || v == "" {
			continue
		}
		for _, rec := range m.records[c] {
			if rec.id == selfID {
				continue
			}
			if other, _ := rec.fields[key].(string); other == v {
				return fmt.Errorf("%w: %s.%s", ErrDuplicate, c, key)
			}
		}
	}
	return nil
}

func (r *memRecord) toRecord() (Record, error) {
	raw, err := json.Marshal(r.fields)
	if err != nil {
		return Record{}, fmt.Errorf("encode record %s: %w", r.id, err)
	}
	return Record{ID: r.id, CreatedAt: r.createdAt, Data: raw}, nil
}

func (r *memRecord) matches(f Filter) (bool, error) {
	for _, cond := range f {
		got := r.fields[cond.Field]
		switch cond.Op {
		case OpEq:
			want, err := normalize(cond.Value)
			if err != nil {
				return false, err
			}
			if cond.Field == "id" {
				if s, ok := want.(string); !ok || s != r.id {
					return false, nil
				}
				continue
			}
			if !scalarEqual(got, want) {
				return false, nil
			}
		case OpGte, OpLte:
			n, ok := got.(float64)
			bound, _ := cond.Value.(float64)
			if !ok {
				return false, nil
			}
			if cond.Op == OpGte && n < bound || cond.Op == OpLte && n > bound {
				return false, nil
			}
		case OpContainsFold:
			s, ok := got.(string)
			sub, _ := cond.Value.(string)
			if !ok || !strings.Contains(strings.ToLower(s), strings.ToLower(sub)) {
				return false, nil
			}
		case OpEmpty:
			if got != nil && got != "" {
				return false, nil
			}
		default:
			return false, fmt.Errorf("store: unsupported operator %d", cond.Op)
		}
	}
	return true, nil
}

func scalarEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any, []any:
		return false
	default:
		return av == b
	}
}

func decodeFields(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}

// normalize round-trips v through JSON so Go values compare like stored ones.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}
