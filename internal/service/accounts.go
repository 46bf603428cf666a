package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/port"
)

var accountTracer = otel.Tracer("service/accounts")

// AccountService handles account CRUD and the per-currency total.
// Balance changes after creation go through the ledger only.
type AccountService struct {
	store  port.Store
	logger *zap.Logger
}

// NewAccountService creates the account service.
func NewAccountService(store port.Store, logger *zap.Logger) *AccountService {
	return &AccountService{store: store, logger: logger}
}

func (s *AccountService) List(ctx context.Context, userID int64) ([]domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.List")
	defer span.End()

	return s.store.Accounts().ListByUser(ctx, userID)
}

func (s *AccountService) Get(ctx context.Context, userID, id int64) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Get")
	defer span.End()

	a, err := s.store.Accounts().GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if a == nil {
		return nil, &domain.ErrNotFound{Resource: "account", ID: strconv.FormatInt(id, 10)}
	}
	return a, nil
}

func (s *AccountService) Create(ctx context.Context, userID int64, req *domain.AccountRequest) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Create")
	defer span.End()

	if req.Name == nil || *req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "is required"}
	}
	if req.AccountType == nil || !req.AccountType.Valid() {
		return nil, &domain.ErrValidation{Field: "accountType", Message: "is invalid"}
	}
	if req.Currency == nil || !req.Currency.Valid() {
		return nil, &domain.ErrValidation{Field: "currency", Message: "is invalid"}
	}

	a := &domain.Account{
		UserID:         userID,
		Name:           *req.Name,
		AccountType:    *req.AccountType,
		Currency:       *req.Currency,
		Balance:        decimal.Zero,
		IsActive:       true,
		IncludeInTotal: true,
	}
	if req.Balance != nil {
		a.Balance = *req.Balance
	}
	if req.Icon != nil {
		a.Icon = *req.Icon
	}
	if req.CreditLimit != nil {
		a.CreditLimit = *req.CreditLimit
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	if req.IncludeInTotal != nil {
		a.IncludeInTotal = *req.IncludeInTotal
	}

	if err := s.store.Accounts().Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account created",
		zap.Int64("user_id", userID),
		zap.Int64("account_id", a.ID),
	)
	return a, nil
}

// Update patches the account. The balance is deliberately not patchable
// here; it belongs to the ledger.
func (s *AccountService) Update(ctx context.Context, userID, id int64, req *domain.AccountRequest) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Update")
	defer span.End()

	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, &domain.ErrValidation{Field: "name", Message: "must not be empty"}
		}
		a.Name = *req.Name
	}
	if req.AccountType != nil {
		if !req.AccountType.Valid() {
			return nil, &domain.ErrValidation{Field: "accountType", Message: "is invalid"}
		}
		a.AccountType = *req.AccountType
	}
	if req.Currency != nil {
		if !req.Currency.Valid() {
			return nil, &domain.ErrValidation{Field: "currency", Message: "is invalid"}
		}
		a.Currency = *req.Currency
	}
	if req.Icon != nil {
		a.Icon = *req.Icon
	}
	if req.CreditLimit != nil {
		a.CreditLimit = *req.CreditLimit
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	if req.IncludeInTotal != nil {
		a.IncludeInTotal = *req.IncludeInTotal
	}

	if err := s.store.Accounts().Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return a, nil
}

func (s *AccountService) Delete(ctx context.Context, userID, id int64) error {
	ctx, span := accountTracer.Start(ctx, "AccountService.Delete")
	defer span.End()

	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.Accounts().Delete(ctx, a); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	s.logger.Info("account deleted",
		zap.Int64("user_id", userID),
		zap.Int64("account_id", id),
	)
	return nil
}

// TotalBalance sums active accounts flagged includeInTotal, per currency.
// No conversion across currencies.
func (s *AccountService) TotalBalance(ctx context.Context, userID int64) (*domain.TotalBalance, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.TotalBalance")
	defer span.End()

	accounts, err := s.store.Accounts().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	totals := make(map[domain.Currency]decimal.Decimal)
	count := 0
	for _, a := range accounts {
		if !a.IsActive || !a.IncludeInTotal {
			continue
		}
		totals[a.Currency] = totals[a.Currency].Add(a.Balance)
		count++
	}
	return &domain.TotalBalance{Totals: totals, AccountsCount: count}, nil
}
