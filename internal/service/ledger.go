package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/infra/observability"
	"github.com/spendsphere/spendsphere-go/internal/port"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService owns the invariant linking transactions to account
// balances. It is the sole mutator of Account.Balance: every create,
// update and delete adjusts the touched balances inside one database
// transaction, with the affected account rows locked in ascending-id
// order.
type LedgerService struct {
	store   port.Store
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewLedgerService creates the ledger service.
func NewLedgerService(store port.Store, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{store: store, metrics: metrics, logger: logger}
}

// List returns all transactions of the user, newest first.
func (s *LedgerService) List(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.List")
	defer span.End()

	if err := s.requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	return s.store.Transactions().ListByUser(ctx, userID)
}

// Get returns one transaction owned by the user.
func (s *LedgerService) Get(ctx context.Context, userID, id int64) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Get")
	defer span.End()

	t, err := s.store.Transactions().GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if t == nil {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: strconv.FormatInt(id, 10)}
	}
	return t, nil
}

// Filter returns the user's transactions matching the supplied
// predicates; absent predicates are ignored.
func (s *LedgerService) Filter(ctx context.Context, userID int64, f domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Filter")
	defer span.End()

	if err := s.requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	return s.store.Transactions().Filter(ctx, userID, f)
}

// Create validates the request, locks the involved accounts, applies the
// balance effect and inserts the transaction row atomically.
func (s *LedgerService) Create(ctx context.Context, userID int64, req *domain.TransactionRequest) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Create")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	if req.Type == nil || !req.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be INCOME, EXPENSE or TRANSFER"}
	}
	if req.AccountID == nil {
		return nil, &domain.ErrValidation{Field: "accountId", Message: "is required"}
	}
	if req.Amount == nil || !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}

	t := &domain.Transaction{
		UserID:            userID,
		Type:              *req.Type,
		AccountID:         *req.AccountID,
		TransferAccountID: req.TransferAccountID,
		Amount:            *req.Amount,
		Date:              domain.Today(),
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Date != nil {
		t.Date = *req.Date
	}
	if err := validateTransfer(t); err != nil {
		return nil, err
	}

	err := s.store.Transact(ctx, func(tx port.Store) error {
		if err := s.requireUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := resolveCategory(ctx, tx, t, req.CategoryID); err != nil {
			return err
		}

		accounts, err := lockAccounts(ctx, tx, userID, involvedAccounts(t))
		if err != nil {
			return err
		}
		if err := checkFunds(t, accounts); err != nil {
			return err
		}

		applyEffect(t, accounts)
		if err := saveAccounts(ctx, tx, accounts); err != nil {
			return err
		}
		return tx.Transactions().Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrTransactionCreated(string(t.Type))
	s.logger.Info("transaction created",
		zap.Int64("user_id", userID),
		zap.Int64("transaction_id", t.ID),
		zap.String("type", string(t.Type)),
	)
	return t, nil
}

// Update applies a partial patch to a transaction. The old effect is
// reverted against the current account rows, patched fields are applied
// with ownership re-checked, and the new effect is applied, all under the
// same set of row locks.
func (s *LedgerService) Update(ctx context.Context, userID, id int64, patch *domain.TransactionRequest) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	var result *domain.Transaction
	err := s.store.Transact(ctx, func(tx port.Store) error {
		t, err := tx.Transactions().GetByIDAndUser(ctx, id, userID)
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if t == nil {
			return &domain.ErrNotFound{Resource: "transaction", ID: strconv.FormatInt(id, 10)}
		}

		// Lock every account the old or the new version touches.
		ids := involvedAccounts(t)
		if patch.AccountID != nil {
			ids = append(ids, *patch.AccountID)
		}
		if patch.TransferAccountID != nil {
			ids = append(ids, *patch.TransferAccountID)
		}
		accounts, err := lockAccounts(ctx, tx, userID, ids)
		if err != nil {
			return err
		}

		revertEffect(t, accounts)

		if patch.Type != nil {
			if !patch.Type.Valid() {
				return &domain.ErrValidation{Field: "type", Message: "must be INCOME, EXPENSE or TRANSFER"}
			}
			t.Type = *patch.Type
		}
		if patch.AccountID != nil {
			t.AccountID = *patch.AccountID
		}
		if patch.TransferAccountID != nil {
			t.TransferAccountID = patch.TransferAccountID
		}
		if t.Type != domain.TransactionTransfer {
			t.TransferAccountID = nil
		}
		if patch.CategoryID != nil {
			if err := resolveCategory(ctx, tx, t, patch.CategoryID); err != nil {
				return err
			}
		}
		if patch.Amount != nil {
			if !patch.Amount.IsPositive() {
				return &domain.ErrValidation{Field: "amount", Message: "must be positive"}
			}
			t.Amount = *patch.Amount
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Date != nil {
			t.Date = *patch.Date
		}

		if err := validateTransfer(t); err != nil {
			return err
		}
		if err := checkFunds(t, accounts); err != nil {
			return err
		}

		applyEffect(t, accounts)
		if err := saveAccounts(ctx, tx, accounts); err != nil {
			return err
		}
		if err := tx.Transactions().Update(ctx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction updated",
		zap.Int64("user_id", userID),
		zap.Int64("transaction_id", id),
	)
	return result, nil
}

// Delete reverts the transaction's effect and removes the row.
func (s *LedgerService) Delete(ctx context.Context, userID, id int64) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Delete")
	defer span.End()

	err := s.store.Transact(ctx, func(tx port.Store) error {
		t, err := tx.Transactions().GetByIDAndUser(ctx, id, userID)
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if t == nil {
			return &domain.ErrNotFound{Resource: "transaction", ID: strconv.FormatInt(id, 10)}
		}

		accounts, err := lockAccounts(ctx, tx, userID, involvedAccounts(t))
		if err != nil {
			return err
		}

		revertEffect(t, accounts)
		if err := saveAccounts(ctx, tx, accounts); err != nil {
			return err
		}
		return tx.Transactions().Delete(ctx, t)
	})
	if err != nil {
		return err
	}

	s.logger.Info("transaction deleted",
		zap.Int64("user_id", userID),
		zap.Int64("transaction_id", id),
	)
	return nil
}

func (s *LedgerService) requireUser(ctx context.Context, st port.Store, userID int64) error {
	u, err := st.Users().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return &domain.ErrNotFound{Resource: "user", ID: strconv.FormatInt(userID, 10)}
	}
	return nil
}

// involvedAccounts lists the account ids the transaction touches.
func involvedAccounts(t *domain.Transaction) []int64 {
	ids := []int64{t.AccountID}
	if t.TransferAccountID != nil {
		ids = append(ids, *t.TransferAccountID)
	}
	return ids
}

// lockAccounts takes row locks in ascending-id order so that two
// concurrent transfers over the same pair of accounts cannot deadlock.
// A missing or cross-user account surfaces as NOT_FOUND.
func lockAccounts(ctx context.Context, st port.Store, userID int64, ids []int64) (map[int64]*domain.Account, error) {
	uniq := make(map[int64]struct{}, len(ids))
	order := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := uniq[id]; !ok {
			uniq[id] = struct{}{}
			order = append(order, id)
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	accounts := make(map[int64]*domain.Account, len(order))
	for _, id := range order {
		a, err := st.Accounts().GetForUpdate(ctx, id, userID)
		if err != nil {
			return nil, fmt.Errorf("lock account %d: %w", id, err)
		}
		if a == nil {
			return nil, &domain.ErrNotFound{Resource: "account", ID: strconv.FormatInt(id, 10)}
		}
		accounts[id] = a
	}
	return accounts, nil
}

// resolveCategory validates the category reference: it must be a default
// category or owned by the transaction's user.
func resolveCategory(ctx context.Context, st port.Store, t *domain.Transaction, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	c, err := st.Categories().GetVisible(ctx, *categoryID, t.UserID)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if c == nil {
		return &domain.ErrNotFound{Resource: "category", ID: strconv.FormatInt(*categoryID, 10)}
	}
	t.CategoryID = &c.ID
	t.Category = c
	return nil
}

func validateTransfer(t *domain.Transaction) error {
	if t.Type != domain.TransactionTransfer {
		return nil
	}
	if t.TransferAccountID == nil {
		return &domain.ErrValidation{Field: "transferAccountId", Message: "is required for transfers"}
	}
	if *t.TransferAccountID == t.AccountID {
		return &domain.ErrValidation{Field: "transferAccountId", Message: "must differ from accountId"}
	}
	return nil
}

// checkFunds enforces the sufficient-funds rule: a non-INCOME transaction
// may not take the primary account below zero.
func checkFunds(t *domain.Transaction, accounts map[int64]*domain.Account) error {
	if t.Type == domain.TransactionIncome {
		return nil
	}
	primary := accounts[t.AccountID]
	if primary.Balance.LessThan(t.Amount) {
		return &domain.ErrInsufficientFunds{Available: primary.Balance, Required: t.Amount}
	}
	return nil
}

// applyEffect adds the transaction's effect to the locked balances.
func applyEffect(t *domain.Transaction, accounts map[int64]*domain.Account) {
	switch t.Type {
	case domain.TransactionIncome:
		a := accounts[t.AccountID]
		a.Balance = a.Balance.Add(t.Amount)
	case domain.TransactionExpense:
		a := accounts[t.AccountID]
		a.Balance = a.Balance.Sub(t.Amount)
	case domain.TransactionTransfer:
		from := accounts[t.AccountID]
		to := accounts[*t.TransferAccountID]
		from.Balance = from.Balance.Sub(t.Amount)
		to.Balance = to.Balance.Add(t.Amount)
	}
}

// revertEffect subtracts the transaction's effect, using its current
// (pre-patch) fields so the arithmetic stays exact.
func revertEffect(t *domain.Transaction, accounts map[int64]*domain.Account) {
	switch t.Type {
	case domain.TransactionIncome:
		a := accounts[t.AccountID]
		a.Balance = a.Balance.Sub(t.Amount)
	case domain.TransactionExpense:
		a := accounts[t.AccountID]
		a.Balance = a.Balance.Add(t.Amount)
	case domain.TransactionTransfer:
		from := accounts[t.AccountID]
		to := accounts[*t.TransferAccountID]
		from.Balance = from.Balance.Add(t.Amount)
		to.Balance = to.Balance.Sub(t.Amount)
	}
}

func saveAccounts(ctx context.Context, st port.Store, accounts map[int64]*domain.Account) error {
	ids := make([]int64, 0, len(accounts))
	for id := range accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := st.Accounts().Update(ctx, accounts[id]); err != nil {
			return fmt.Errorf("save account %d: %w", id, err)
		}
	}
	return nil
}
