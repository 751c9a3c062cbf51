package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

// TransactionInput is a transaction as entered by the user. Amount is a
// magnitude; Type decides the stored sign.
type TransactionInput struct {
	AccountID   string               `json:"account_id" validate:"required"`
	Amount      decimal.Decimal      `json:"amount"`
	Description string               `json:"description" validate:"required,max=200"`
	Date        time.Time            `json:"date"`
	Category    core.Category        `json:"category" validate:"required"`
	Type        core.TransactionType `json:"type" validate:"required,oneof=income expense"`
}

// TransactionService posts and removes transactions, keeping the owning
// account's balance in step.
type TransactionService struct {
	writer *Writer
	events ports.EventSink
	logger *applog.Logger
	diag   *applog.StructuredLogger
	now    func() time.Time
}

func NewTransactionService(writer *Writer, events ports.EventSink, logger *applog.Logger) *TransactionService {
	if events == nil {
		events = ports.NopSink{}
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentLedger)
	return &TransactionService{
		writer: writer,
		events: events,
		logger: logger,
		diag:   applog.NewStructuredLogger(logger),
		now:    time.Now,
	}
}

// Create records a transaction on one of the user's active accounts and
// adjusts the balance in the same save.
func (s *TransactionService) Create(ctx context.Context, userID string, in TransactionInput) (*core.Transaction, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := validateInput("create transaction", in); err != nil {
		return nil, s.failed(ctx, applog.OpCreate, userID, err)
	}
	if !in.Amount.IsPositive() && !in.Amount.IsNegative() {
		return nil, s.failed(ctx, applog.OpCreate, userID, core.ErrInvalidAmount)
	}
	now := s.now()
	if in.Date.IsZero() {
		in.Date = now
	}

	tx := core.NewTransaction(in.AccountID, in.Type.SignedAmount(in.Amount).Round(2), in.Description, in.Date, in.Category, in.Type, now)
	if err := tx.Validate(); err != nil {
		return nil, s.failed(ctx, applog.OpCreate, userID, err)
	}

	err := s.writer.Do(ctx, func(ctx context.Context, store ports.EntityStore) error {
		account, err := ownedAccount(ctx, store, userID, in.AccountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return core.E(core.InvalidInput, "create transaction", "account is inactive", nil)
		}
		account.Balance = account.Balance.Add(tx.Amount)
		store.Insert(tx)
		store.Update(account)
		return nil
	})
	if err != nil {
		return nil, s.failed(ctx, applog.OpCreate, userID, err)
	}

	s.diag.LogTransactionCreated(ctx, tx)
	s.events.Emit(ctx, core.NewEvent(core.EventTransactionCreated, userID, map[string]string{
		"category": string(tx.Category),
		"type":     string(tx.Type),
	}))
	return tx, nil
}

// Delete removes a transaction and reverses its balance effect. A
// transaction owned by another user is reported as not found.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	err := s.writer.Do(ctx, func(ctx context.Context, store ports.EntityStore) error {
		tx, err := ports.ByID[*core.Transaction](ctx, store, id)
		if err != nil {
			return notFoundAs(err, "transaction not found")
		}
		account, err := ownedAccount(ctx, store, userID, tx.AccountID)
		if err != nil {
			return notFoundAs(err, "transaction not found")
		}
		account.Balance = account.Balance.Sub(tx.Amount)
		store.Delete(tx)
		store.Update(account)
		return nil
	})
	if err != nil {
		return s.failed(ctx, applog.OpDelete, userID, err)
	}

	s.events.Emit(ctx, core.NewEvent(core.EventTransactionDeleted, userID, nil))
	return nil
}

// List returns the user's transactions newest first, optionally limited to
// one account.
func (s *TransactionService) List(ctx context.Context, userID, accountID string) ([]core.Transaction, error) {
	store := s.writer.Store()
	var ids []string
	if accountID != "" {
		if _, err := ownedAccount(ctx, store, userID, accountID); err != nil {
			return nil, s.failed(ctx, applog.OpList, userID, err)
		}
		ids = []string{accountID}
	} else {
		var err error
		if ids, err = accountIDs(ctx, store, userID); err != nil {
			return nil, s.failed(ctx, applog.OpList, userID, err)
		}
	}
	if len(ids) == 0 {
		return []core.Transaction{}, nil
	}

	txs, err := ports.Fetch[*core.Transaction](ctx, store, core.Where("account_id", core.OpIn, ids).OrderBy("date", true))
	if err != nil {
		return nil, s.failed(ctx, applog.OpList, userID, err)
	}
	return derefAll(txs), nil
}

func (s *TransactionService) failed(ctx context.Context, op, userID string, err error) error {
	return reportFailure(ctx, s.logger, "Transaction", op, userID, err)
}

// ownedAccount loads an account and checks it belongs to userID.
func ownedAccount(ctx context.Context, store ports.EntityStore, userID, accountID string) (*core.Account, error) {
	account, err := ports.ByID[*core.Account](ctx, store, accountID)
	if err != nil {
		return nil, notFoundAs(err, "account not found")
	}
	if account.UserID != userID {
		return nil, core.E(core.NotFound, "", "account not found", nil)
	}
	return account, nil
}

func notFoundAs(err error, message string) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.E(core.NotFound, "", message, nil)
	}
	return err
}
