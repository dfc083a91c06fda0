package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool used by Postgres.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores every collection in the records table as JSONB.
type Postgres struct {
	db  Querier
	now func() time.Time
}

var _ Store = (*Postgres)(nil)

func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

const uniqueViolation = "23505"

func (p *Postgres) Create(ctx context.Context, c Collection, doc any) (Record, error) {
	id := newID()
	createdAt := p.now().UTC()
	raw, err := stamp(doc, id, createdAt)
	if err != nil {
		return Record{}, err
	}

	_, err = p.db.Exec(ctx,
		`INSERT INTO records (id, collection, data, created_at) VALUES ($1, $2, $3::jsonb, $4)`,
		id, string(c), string(raw), createdAt,
	)
	if err != nil {
		return Record{}, translate(fmt.Errorf("insert %s: %w", c, err))
	}
	return Record{ID: id, CreatedAt: createdAt, Data: raw}, nil
}

func (p *Postgres) FindOne(ctx context.Context, c Collection, f Filter) (Record, error) {
	where, args, err := buildWhere(c, f)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	err = p.db.QueryRow(ctx,
		`SELECT id::text, created_at, data FROM records WHERE `+where+` ORDER BY created_at DESC, id DESC LIMIT 1`,
		args...,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("find %s: %w", c, err)
	}
	return rec, nil
}

func (p *Postgres) FindMany(ctx context.Context, c Collection, f Filter, opts FindOptions) ([]Record, error) {
	where, args, err := buildWhere(c, f)
	if err != nil {
		return nil, err
	}
	query := `SELECT id::text, created_at, data FROM records WHERE ` + where + ` ORDER BY created_at DESC, id DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", c, err)
	}
	return out, nil
}

func (p *Postgres) UpdateOne(ctx context.Context, c Collection, f Filter, set map[string]any) (bool, error) {
	patch, err := json.Marshal(cleanSet(set))
	if err != nil {
		return false, fmt.Errorf("encode update: %w", err)
	}
	where, args, err := buildWhere(c, f)
	if err != nil {
		return false, err
	}
	args = append(args, string(patch))

	// The row lock makes the filter re-checked against the latest version,
	// so conditional updates (e.g. "token is empty") apply at most once.
	tag, err := p.db.Exec(ctx, fmt.Sprintf(
		`UPDATE records SET data = data || $%d::jsonb
		 WHERE id = (SELECT id FROM records WHERE %s ORDER BY created_at DESC LIMIT 1 FOR UPDATE)`,
		len(args), where), args...)
	if err != nil {
		return false, translate(fmt.Errorf("update %s: %w", c, err))
	}
	return tag.RowsAffected() > 0, nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// buildWhere renders f as a SQL predicate over the records table.
func buildWhere(c Collection, f Filter) (string, []any, error) {
	args := []any{string(c)}
	clauses := []string{"collection = $1"}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, cond := range f {
		if cond.Field == "" || strings.ContainsAny(cond.Field, "'\"\\") {
			return "", nil, fmt.Errorf("store: invalid field name %q", cond.Field)
		}
		if cond.Field == "id" {
			if cond.Op != OpEq {
				return "", nil, fmt.Errorf("store: id supports equality only")
			}
			s, _ := cond.Value.(string)
			id, err := ParseID(s)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, "id = "+next(id)+"::uuid")
			continue
		}

		field := "'" + cond.Field + "'"
		switch cond.Op {
		case OpEq:
			doc, err := json.Marshal(map[string]any{cond.Field: cond.Value})
			if err != nil {
				return "", nil, fmt.Errorf("encode condition: %w", err)
			}
			clauses = append(clauses, "data @> "+next(string(doc))+"::jsonb")
		case OpGte:
			clauses = append(clauses, fmt.Sprintf("(data->>%s)::numeric >= %s", field, next(cond.Value)))
		case OpLte:
			clauses = append(clauses, fmt.Sprintf("(data->>%s)::numeric <= %s", field, next(cond.Value)))
		case OpContainsFold:
			s, _ := cond.Value.(string)
			clauses = append(clauses, fmt.Sprintf(`data->>%s ILIKE %s ESCAPE '\'`, field, next("%"+escapeLike(s)+"%")))
		case OpEmpty:
			clauses = append(clauses, fmt.Sprintf("COALESCE(data->>%s, '') = ''", field))
		default:
			return "", nil, fmt.Errorf("store: unsupported operator %d", cond.Op)
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
