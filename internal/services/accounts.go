package services

import (
	"context"
	"strings"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

type AccountInput struct {
	Name    string           `json:"name" validate:"required,max=100"`
	Type    core.AccountType `json:"account_type" validate:"required,oneof=checking savings credit investment"`
	Balance decimal.Decimal  `json:"balance"`
}

type AccountService struct {
	writer *Writer
	events ports.EventSink
	logger *applog.Logger
	now    func() time.Time
}

func NewAccountService(writer *Writer, events ports.EventSink, logger *applog.Logger) *AccountService {
	if events == nil {
		events = ports.NopSink{}
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &AccountService{
		writer: writer,
		events: events,
		logger: logger.WithComponent(applog.ComponentLedger),
		now:    time.Now,
	}
}

// Create opens an active account for the user with an opening balance.
func (s *AccountService) Create(ctx context.Context, userID string, in AccountInput) (*core.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput("create account", in); err != nil {
		return nil, s.failed(ctx, applog.OpCreate, userID, err)
	}
	account := core.NewAccount(userID, in.Name, in.Type, in.Balance.Round(2), s.now())
	if err := account.Validate(); err != nil {
		return nil, s.failed(ctx, applog.OpCreate, userID, err)
	}

	err := s.writer.Do(ctx, func(ctx context.Context, store ports.EntityStore) error {
		if _, err := ports.ByID[*core.User](ctx, store, userID); err != nil {
			return notFoundAs(err, "user not found")
		}
		store.Insert(account)
		return nil
	})
	if err != nil {
		return nil, s.failed(ctx, applog.OpCreate, userID, err)
	}

	s.logger.InfoContext(ctx, "Account created", applog.FieldUserID, userID, applog.FieldAccountID, account.ID)
	s.events.Emit(ctx, core.NewEvent(core.EventAccountCreated, userID, map[string]string{"account_type": string(account.Type)}))
	return account, nil
}

// Deactivate soft-deletes an account. Its transactions and balance stay.
func (s *AccountService) Deactivate(ctx context.Context, userID, accountID string) (*core.Account, error) {
	var account *core.Account
	err := s.writer.Do(ctx, func(ctx context.Context, store ports.EntityStore) error {
		var err error
		if account, err = ownedAccount(ctx, store, userID, accountID); err != nil {
			return err
		}
		if account.IsActive {
			account.IsActive = false
			store.Update(account)
		}
		return nil
	})
	if err != nil {
		return nil, s.failed(ctx, applog.OpDelete, userID, err)
	}

	s.events.Emit(ctx, core.NewEvent(core.EventAccountDeactivated, userID, nil))
	return account, nil
}

// List returns the user's accounts by name.
func (s *AccountService) List(ctx context.Context, userID string, includeInactive bool) ([]core.Account, error) {
	q := core.Where("user_id", core.OpEq, userID)
	if !includeInactive {
		q = q.Where("is_active", core.OpEq, true)
	}
	accounts, err := ports.Fetch[*core.Account](ctx, s.writer.Store(), q.OrderBy("name", false))
	if err != nil {
		return nil, s.failed(ctx, applog.OpList, userID, err)
	}
	return derefAll(accounts), nil
}

func (s *AccountService) failed(ctx context.Context, op, userID string, err error) error {
	return reportFailure(ctx, s.logger, "Account", op, userID, err)
}
