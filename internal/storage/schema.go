package storage

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

type columnType int

const (
	colText columnType = iota
	colInt
	colBool
	colTime
	colDecimal
	colBlob
)

type column struct {
	name string
	typ  columnType
}

// table maps one entity kind onto its SQL table. Column order matches the
// values returned by values and consumed by scan.
type table struct {
	name    string
	columns []column
	values  func(core.Entity) []any
	scan    func(rowScanner) (core.Entity, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

var tables = map[core.Kind]*table{
	core.KindUser: {
		name: "users",
		columns: []column{
			{"id", colText}, {"email", colText}, {"name", colText},
			{"preferred_currency", colText}, {"profile_image", colBlob}, {"created_at", colTime},
		},
		values: func(e core.Entity) []any {
			u := e.(*core.User)
			return []any{u.ID, u.Email, u.Name, u.PreferredCurrency, u.ProfileImage, formatTime(u.CreatedAt)}
		},
		scan: func(r rowScanner) (core.Entity, error) {
			var (
				u       core.User
				created string
			)
			if err := r.Scan(&u.ID, &u.Email, &u.Name, &u.PreferredCurrency, &u.ProfileImage, &created); err != nil {
				return nil, err
			}
			var err error
			if u.CreatedAt, err = parseTime(created); err != nil {
				return nil, fmt.Errorf("user %s created_at: %w", u.ID, err)
			}
			return &u, nil
		},
	},
	core.KindAccount: {
		name: "accounts",
		columns: []column{
			{"id", colText}, {"user_id", colText}, {"name", colText}, {"balance", colDecimal},
			{"account_type", colText}, {"is_active", colBool}, {"created_at", colTime},
		},
		values: func(e core.Entity) []any {
			a := e.(*core.Account)
			return []any{a.ID, a.UserID, a.Name, a.Balance.String(), string(a.Type), a.IsActive, formatTime(a.CreatedAt)}
		},
		scan: func(r rowScanner) (core.Entity, error) {
			var (
				a       core.Account
				balance string
				kind    string
				created string
			)
			if err := r.Scan(&a.ID, &a.UserID, &a.Name, &balance, &kind, &a.IsActive, &created); err != nil {
				return nil, err
			}
			var err error
			if a.Balance, err = decimal.NewFromString(balance); err != nil {
				return nil, fmt.Errorf("account %s balance: %w", a.ID, err)
			}
			if a.CreatedAt, err = parseTime(created); err != nil {
				return nil, fmt.Errorf("account %s created_at: %w", a.ID, err)
			}
			a.Type = core.AccountType(kind)
			return &a, nil
		},
	},
	core.KindTransaction: {
		name: "transactions",
		columns: []column{
			{"id", colText}, {"account_id", colText}, {"amount", colDecimal}, {"description", colText},
			{"date", colTime}, {"category", colText}, {"type", colText}, {"created_at", colTime},
		},
		values: func(e core.Entity) []any {
			t := e.(*core.Transaction)
			return []any{t.ID, t.AccountID, t.Amount.String(), t.Description, formatTime(t.Date), string(t.Category), string(t.Type), formatTime(t.CreatedAt)}
		},
		scan: func(r rowScanner) (core.Entity, error) {
			var (
				t             core.Transaction
				amount        string
				date, created string
				category      string
				kind          string
			)
			if err := r.Scan(&t.ID, &t.AccountID, &amount, &t.Description, &date, &category, &kind, &created); err != nil {
				return nil, err
			}
			var err error
			if t.Amount, err = decimal.NewFromString(amount); err != nil {
				return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
			}
			if t.Date, err = parseTime(date); err != nil {
				return nil, fmt.Errorf("transaction %s date: %w", t.ID, err)
			}
			if t.CreatedAt, err = parseTime(created); err != nil {
				return nil, fmt.Errorf("transaction %s created_at: %w", t.ID, err)
			}
			t.Category = core.Category(category)
			t.Type = core.TransactionType(kind)
			return &t, nil
		},
	},
	core.KindBudget: {
		name: "budgets",
		columns: []column{
			{"id", colText}, {"user_id", colText}, {"category", colText}, {"limit", colDecimal},
			{"spent", colDecimal}, {"month", colInt}, {"year", colInt},
		},
		values: func(e core.Entity) []any {
			b := e.(*core.Budget)
			return []any{b.ID, b.UserID, string(b.Category), b.Limit.String(), b.Spent.String(), b.Month, b.Year}
		},
		scan: func(r rowScanner) (core.Entity, error) {
			var (
				b            core.Budget
				category     string
				limit, spent string
			)
			if err := r.Scan(&b.ID, &b.UserID, &category, &limit, &spent, &b.Month, &b.Year); err != nil {
				return nil, err
			}
			var err error
			if b.Limit, err = decimal.NewFromString(limit); err != nil {
				return nil, fmt.Errorf("budget %s limit: %w", b.ID, err)
			}
			if b.Spent, err = decimal.NewFromString(spent); err != nil {
				return nil, fmt.Errorf("budget %s spent: %w", b.ID, err)
			}
			b.Category = core.Category(category)
			return &b, nil
		},
	},
}

func tableFor(kind core.Kind) (*table, error) {
	t, ok := tables[kind]
	if !ok {
		return nil, core.E(core.InvalidInput, "query", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	return t, nil
}

// column looks up a queryable column. Blob columns are not queryable.
func (t *table) column(kind core.Kind, field string) (column, error) {
	for _, c := range t.columns {
		if c.name == field && c.typ != colBlob {
			return c, nil
		}
	}
	return column{}, core.E(core.InvalidInput, "query", fmt.Sprintf("unknown field %q for %s", field, kind), nil)
}

func (t *table) columnList() string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = quote(c.name)
	}
	return strings.Join(names, ", ")
}

// expr is the SQL expression compared for c. Decimals are stored as text
// and compared as REAL; see core.Filter for the precision this keeps.
func (c column) expr() string {
	if c.typ == colDecimal {
		return "CAST(" + quote(c.name) + " AS REAL)"
	}
	return quote(c.name)
}

// arg converts a filter value into the bind argument for c.
func (c column) arg(v any) (any, error) {
	n, err := core.Normalize(v)
	if err != nil {
		return nil, err
	}
	switch c.typ {
	case colText:
		if s, ok := n.(string); ok {
			return s, nil
		}
	case colInt:
		switch x := n.(type) {
		case int64:
			return x, nil
		case decimal.Decimal:
			return x.InexactFloat64(), nil
		}
	case colBool:
		if b, ok := n.(bool); ok {
			return b, nil
		}
	case colTime:
		if ts, ok := n.(time.Time); ok {
			return formatTime(ts), nil
		}
	case colDecimal:
		switch x := n.(type) {
		case decimal.Decimal:
			return x.InexactFloat64(), nil
		case int64:
			return float64(x), nil
		}
	}
	return nil, core.E(core.InvalidInput, "query", fmt.Sprintf("cannot compare %s with %T", c.name, v), nil)
}

func quote(name string) string {
	return `"` + name + `"`
}

// timeLayout is fixed width so text order matches time order for years
// 0000 through 9999.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
