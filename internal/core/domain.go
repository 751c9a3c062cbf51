package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	KindUser        Kind = "user"
	KindAccount     Kind = "account"
	KindTransaction Kind = "transaction"
	KindBudget      Kind = "budget"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryEntertainment  Category = "entertainment"
	CategoryShopping       Category = "shopping"
	CategoryBills          Category = "bills"
	CategoryHealthcare     Category = "healthcare"
	CategorySalary         Category = "salary"
	CategoryInvestment     Category = "investment"
	CategoryOther          Category = "other"
)

// DefaultCurrency is assigned to users who do not pick one at sign-up.
const DefaultCurrency = "USD"

// Calendar years a transaction date or budget period may fall in.
const (
	MinYear = 1970
	MaxYear = 9999
)

type (
	// Kind names a record type held by the entity store.
	Kind string

	AccountType     string
	TransactionType string
	Category        string

	// Entity is a persisted record. Field exposes the record's queryable
	// fields by their storage name so stores can evaluate a Query.
	Entity interface {
		Kind() Kind
		EntityID() string
		Field(name string) (any, bool)
		Clone() Entity
	}

	User struct {
		ID                string    `json:"id"`
		Email             string    `json:"email"`
		Name              string    `json:"name"`
		PreferredCurrency string    `json:"preferred_currency"`
		ProfileImage      []byte    `json:"profile_image,omitempty"`
		CreatedAt         time.Time `json:"created_at"`
	}

	Account struct {
		ID        string          `json:"id"`
		UserID    string          `json:"user_id"`
		Name      string          `json:"name"`
		Balance   decimal.Decimal `json:"balance"`
		Type      AccountType     `json:"account_type"`
		IsActive  bool            `json:"is_active"`
		CreatedAt time.Time       `json:"created_at"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		AccountID   string          `json:"account_id"`
		Amount      decimal.Decimal `json:"amount"` // negative for expenses
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		Category    Category        `json:"category"`
		Type        TransactionType `json:"type"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Budget struct {
		ID       string          `json:"id"`
		UserID   string          `json:"user_id"`
		Category Category        `json:"category"`
		Limit    decimal.Decimal `json:"limit"`
		Spent    decimal.Decimal `json:"spent"`
		Month    int             `json:"month"`
		Year     int             `json:"year"`
	}
)

var (
	ErrInvalidAmount      = &Error{Kind: InvalidInput, Message: "invalid amount"}
	ErrInvalidCategory    = &Error{Kind: InvalidInput, Message: "invalid category"}
	ErrInvalidAccountType = &Error{Kind: InvalidInput, Message: "invalid account type"}
	ErrInvalidTxType      = &Error{Kind: InvalidInput, Message: "invalid transaction type"}
	ErrInvalidMonth       = &Error{Kind: InvalidInput, Message: "invalid month"}
	ErrInvalidYear        = &Error{Kind: InvalidInput, Message: "invalid year"}
	ErrEmptyDescription   = &Error{Kind: InvalidInput, Message: "empty description"}
	ErrEmptyName          = &Error{Kind: InvalidInput, Message: "empty name"}
	ErrEmptyEmail         = &Error{Kind: InvalidInput, Message: "empty email"}
	ErrMissingOwner       = &Error{Kind: InvalidInput, Message: "missing owner reference"}
	ErrZeroDate           = &Error{Kind: InvalidInput, Message: "date cannot be zero"}
	ErrDateOutOfRange     = &Error{Kind: InvalidInput, Message: "date must fall between years 1970 and 9999"}
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategoryFood, CategoryTransportation, CategoryEntertainment,
		CategoryShopping, CategoryBills, CategoryHealthcare,
		CategorySalary, CategoryInvestment, CategoryOther,
	}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

func (t AccountType) Valid() bool {
	switch t {
	case Checking, Savings, Credit, Investment:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// SignedAmount applies the sign convention for the transaction type to a
// magnitude: expenses are negative, income positive.
func (t TransactionType) SignedAmount(amount decimal.Decimal) decimal.Decimal {
	if t == Expense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// NewUser builds a user with a fresh id. An empty currency falls back to
// DefaultCurrency.
func NewUser(name, email, currency string, now time.Time) *User {
	if strings.TrimSpace(currency) == "" {
		currency = DefaultCurrency
	}
	return &User{
		ID:                NewID(),
		Email:             email,
		Name:              name,
		PreferredCurrency: strings.ToUpper(currency),
		CreatedAt:         now.UTC(),
	}
}

func NewAccount(userID, name string, kind AccountType, balance decimal.Decimal, now time.Time) *Account {
	return &Account{
		ID:        NewID(),
		UserID:    userID,
		Name:      name,
		Balance:   balance,
		Type:      kind,
		IsActive:  true,
		CreatedAt: now.UTC(),
	}
}

// NewTransaction stores amount as given; callers apply the sign convention.
func NewTransaction(accountID string, amount decimal.Decimal, description string, date time.Time, category Category, kind TransactionType, now time.Time) *Transaction {
	return &Transaction{
		ID:          NewID(),
		AccountID:   accountID,
		Amount:      amount,
		Description: description,
		Date:        date.UTC(),
		Category:    category,
		Type:        kind,
		CreatedAt:   now.UTC(),
	}
}

func NewBudget(userID string, category Category, limit, spent decimal.Decimal, month, year int) *Budget {
	return &Budget{
		ID:       NewID(),
		UserID:   userID,
		Category: category,
		Limit:    limit,
		Spent:    spent,
		Month:    month,
		Year:     year,
	}
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if len(u.Name) > 100 {
		return &Error{Kind: InvalidInput, Message: "name too long (max 100 characters)"}
	}
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	return ValidateCurrency(u.PreferredCurrency)
}

func (a *Account) Validate() error {
	if a.UserID == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return ErrInvalidAccountType
	}
	return nil
}

// Validate checks field shapes only. The amount sign is the caller's
// responsibility.
func (t *Transaction) Validate() error {
	if t.AccountID == "" {
		return ErrMissingOwner
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if y := t.Date.UTC().Year(); y < MinYear || y > MaxYear {
		return ErrDateOutOfRange
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return &Error{Kind: InvalidInput, Message: "description too long (max 200 characters)"}
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if !t.Category.Valid() {
		return ErrInvalidCategory
	}
	if !t.Type.Valid() {
		return ErrInvalidTxType
	}
	return nil
}

func (b *Budget) Validate() error {
	if b.UserID == "" {
		return ErrMissingOwner
	}
	if !b.Category.Valid() {
		return ErrInvalidCategory
	}
	if b.Limit.IsNegative() || b.Spent.IsNegative() {
		return ErrInvalidAmount
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < MinYear || b.Year > MaxYear {
		return ErrInvalidYear
	}
	return nil
}

// InPeriod reports whether t falls in the given calendar month (UTC).
func (t *Transaction) InPeriod(month, year int) bool {
	d := t.Date.UTC()
	return int(d.Month()) == month && d.Year() == year
}

func (*User) Kind() Kind        { return KindUser }
func (*Account) Kind() Kind     { return KindAccount }
func (*Transaction) Kind() Kind { return KindTransaction }
func (*Budget) Kind() Kind      { return KindBudget }

func (u *User) EntityID() string        { return u.ID }
func (a *Account) EntityID() string     { return a.ID }
func (t *Transaction) EntityID() string { return t.ID }
func (b *Budget) EntityID() string      { return b.ID }

func (u *User) Clone() Entity {
	c := *u
	if u.ProfileImage != nil {
		c.ProfileImage = append([]byte(nil), u.ProfileImage...)
	}
	return &c
}

func (a *Account) Clone() Entity {
	c := *a
	return &c
}

func (t *Transaction) Clone() Entity {
	c := *t
	return &c
}

func (b *Budget) Clone() Entity {
	c := *b
	return &c
}

func (u *User) Field(name string) (any, bool) {
	switch name {
	case "id":
		return u.ID, true
	case "email":
		return u.Email, true
	case "name":
		return u.Name, true
	case "preferred_currency":
		return u.PreferredCurrency, true
	case "created_at":
		return u.CreatedAt, true
	}
	return nil, false
}

func (a *Account) Field(name string) (any, bool) {
	switch name {
	case "id":
		return a.ID, true
	case "user_id":
		return a.UserID, true
	case "name":
		return a.Name, true
	case "balance":
		return a.Balance, true
	case "account_type":
		return string(a.Type), true
	case "is_active":
		return a.IsActive, true
	case "created_at":
		return a.CreatedAt, true
	}
	return nil, false
}

func (t *Transaction) Field(name string) (any, bool) {
	switch name {
	case "id":
		return t.ID, true
	case "account_id":
		return t.AccountID, true
	case "amount":
		return t.Amount, true
	case "description":
		return t.Description, true
	case "date":
		return t.Date, true
	case "category":
		return string(t.Category), true
	case "type":
		return string(t.Type), true
	case "created_at":
		return t.CreatedAt, true
	}
	return nil, false
}

func (b *Budget) Field(name string) (any, bool) {
	switch name {
	case "id":
		return b.ID, true
	case "user_id":
		return b.UserID, true
	case "category":
		return string(b.Category), true
	case "limit":
		return b.Limit, true
	case "spent":
		return b.Spent, true
	case "month":
		return b.Month, true
	case "year":
		return b.Year, true
	}
	return nil, false
}
