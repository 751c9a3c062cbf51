package core

import (
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Operator is a comparison applied by a Filter.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNe  Operator = "ne"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpIn  Operator = "in"
)

type (
	// Filter compares one named field against Value. For OpIn, Value must
	// be a slice.
	//
	// Decimal fields compare exactly in the memory store. The SQLite store
	// compares them as float64, so the two agree up to 15 significant
	// digits: every two-decimal amount below 10^13.
	Filter struct {
		Field string
		Op    Operator
		Value any
	}

	// Sort orders by Field; records with equal values are ordered by
	// ascending id whatever the direction.
	Sort struct {
		Field string
		Desc  bool
	}

	// Query selects records of one kind. The zero Query selects everything
	// in storage order.
	Query struct {
		Filters []Filter
		Sort    *Sort
		Limit   int
	}
)

func (o Operator) Valid() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn:
		return true
	}
	return false
}

// Where starts a query with one filter.
func Where(field string, op Operator, value any) Query {
	return Query{}.Where(field, op, value)
}

func (q Query) Where(field string, op Operator, value any) Query {
	q.Filters = append(slices.Clone(q.Filters), Filter{Field: field, Op: op, Value: value})
	return q
}

func (q Query) OrderBy(field string, desc bool) Query {
	q.Sort = &Sort{Field: field, Desc: desc}
	return q
}

func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Match reports whether e satisfies every filter.
func (q Query) Match(e Entity) (bool, error) {
	for _, f := range q.Filters {
		ok, err := f.match(e)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Apply filters, sorts and truncates items in memory. items is not
// modified.
func (q Query) Apply(items []Entity) ([]Entity, error) {
	out := make([]Entity, 0, len(items))
	for _, e := range items {
		ok, err := q.Match(e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}

	if q.Sort != nil {
		var sortErr error
		field := q.Sort.Field
		slices.SortStableFunc(out, func(a, b Entity) int {
			av, aok := a.Field(field)
			bv, bok := b.Field(field)
			if !aok || !bok {
				sortErr = unknownField(a.Kind(), field)
				return 0
			}
			c, err := Compare(av, bv)
			if err != nil {
				sortErr = err
				return 0
			}
			if q.Sort.Desc {
				c = -c
			}
			if c == 0 {
				c = compareStrings(a.EntityID(), b.EntityID())
			}
			return c
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f Filter) match(e Entity) (bool, error) {
	if !f.Op.Valid() {
		return false, E(InvalidInput, "query", fmt.Sprintf("unknown operator %q", f.Op), nil)
	}
	v, ok := e.Field(f.Field)
	if !ok {
		return false, unknownField(e.Kind(), f.Field)
	}

	if f.Op == OpIn {
		values, err := FilterValues(f.Value)
		if err != nil {
			return false, err
		}
		for _, candidate := range values {
			c, err := Compare(v, candidate)
			if err != nil {
				return false, err
			}
			if c == 0 {
				return true, nil
			}
		}
		return false, nil
	}

	c, err := Compare(v, f.Value)
	if err != nil {
		return false, err
	}
	switch f.Op {
	case OpEq:
		return c == 0, nil
	case OpNe:
		return c != 0, nil
	case OpLt:
		return c < 0, nil
	case OpLte:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

// FilterValues expands the value of an OpIn filter into its elements.
func FilterValues(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, E(InvalidInput, "query", "in operator needs a slice value", nil)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// Normalize maps a field or filter value onto one of the comparable shapes:
// string, int64, bool, time.Time or decimal.Decimal. Named string types such
// as Category collapse to string.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, time.Time, decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		if x == nil {
			return nil, E(InvalidInput, "query", "nil decimal", nil)
		}
		return *x, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()), nil
	}
	return nil, E(InvalidInput, "query", fmt.Sprintf("unsupported value type %T", v), nil)
}

// Compare orders two values of the same normalized shape.
func Compare(a, b any) (int, error) {
	na, err := Normalize(a)
	if err != nil {
		return 0, err
	}
	nb, err := Normalize(b)
	if err != nil {
		return 0, err
	}

	switch x := na.(type) {
	case string:
		if y, ok := nb.(string); ok {
			return compareStrings(x, y), nil
		}
	case int64:
		switch y := nb.(type) {
		case int64:
			return compareInts(x, y), nil
		case decimal.Decimal:
			return decimal.NewFromInt(x).Cmp(y), nil
		}
	case bool:
		if y, ok := nb.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case time.Time:
		if y, ok := nb.(time.Time); ok {
			return x.Compare(y), nil
		}
	case decimal.Decimal:
		switch y := nb.(type) {
		case decimal.Decimal:
			return x.Cmp(y), nil
		case int64:
			return x.Cmp(decimal.NewFromInt(y)), nil
		}
	}
	return 0, E(InvalidInput, "query", fmt.Sprintf("cannot compare %T with %T", a, b), nil)
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func unknownField(kind Kind, field string) error {
	return E(InvalidInput, "query", fmt.Sprintf("unknown field %q for %s", field, kind), nil)
}
