package store

// Op is a comparison applied to a single document field.
type Op int

const (
	OpEq Op = iota
	OpGte
	OpLte
	// OpContainsFold is a case-insensitive substring match on a string field.
	OpContainsFold
	// OpEmpty matches a field that is absent, null or "".
	OpEmpty
)

// Cond is one condition of a Filter.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions. A nil Filter matches everything.
type Filter []Cond

func Eq(field string, v any) Cond      { return Cond{Field: field, Op: OpEq, Value: v} }
func Gte(field string, v float64) Cond { return Cond{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v float64) Cond { return Cond{Field: field, Op: OpLte, Value: v} }
func ContainsFold(field, substr string) Cond {
	return Cond{Field: field, Op: OpContainsFold, Value: substr}
}
func Empty(field string) Cond { return Cond{Field: field, Op: OpEmpty} }

// ByID matches the record with the given id.
func ByID(id string) Cond { return Eq("id", id) }

// Where builds a Filter from conditions.
func Where(conds ...Cond) Filter { return Filter(conds) }
