package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
)

func testAccounts(store *memStore) *AccountService {
	return NewAccountService(store, zap.NewNop())
}

func accountReq(name string) *domain.AccountRequest {
	return &domain.AccountRequest{
		Name:        ptr(name),
		AccountType: ptr(domain.AccountCash),
		Currency:    ptr(domain.CurrencyUSD),
	}
}

func TestCreateAccountDefaults(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	svc := testAccounts(store)

	a, err := svc.Create(context.Background(), 1, accountReq("Wallet"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !a.Balance.IsZero() {
		t.Errorf("balance = %s, want 0", a.Balance)
	}
	if !a.IsActive || !a.IncludeInTotal {
		t.Error("new accounts default to active and included in totals")
	}
}

func TestCreateAccountValidation(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	svc := testAccounts(store)

	tests := []struct {
		name   string
		mutate func(*domain.AccountRequest)
	}{
		{"missing name", func(r *domain.AccountRequest) { r.Name = nil }},
		{"empty name", func(r *domain.AccountRequest) { r.Name = ptr("") }},
		{"missing type", func(r *domain.AccountRequest) { r.AccountType = nil }},
		{"bad type", func(r *domain.AccountRequest) { r.AccountType = ptr(domain.AccountType("WALLET")) }},
		{"missing currency", func(r *domain.AccountRequest) { r.Currency = nil }},
		{"bad currency", func(r *domain.AccountRequest) { r.Currency = ptr(domain.Currency("XXX")) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := accountReq("Wallet")
			tc.mutate(req)
			_, err := svc.Create(context.Background(), 1, req)
			var validationErr *domain.ErrValidation
			if !errors.As(err, &validationErr) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUpdateAccountIgnoresBalance(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addAccount(10, 1, "500.00")
	svc := testAccounts(store)

	a, err := svc.Update(context.Background(), 1, 10, &domain.AccountRequest{
		Name:    ptr("Renamed"),
		Balance: ptr(money("9999.00")),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if a.Name != "Renamed" {
		t.Errorf("name = %q", a.Name)
	}
	if !a.Balance.Equal(money("500.00")) {
		t.Errorf("balance = %s, must not be patchable through account update", a.Balance)
	}
}

func TestUpdateForeignAccount(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addUser(2)
	store.addAccount(10, 2, "500.00")
	svc := testAccounts(store)

	_, err := svc.Update(context.Background(), 1, 10, &domain.AccountRequest{Name: ptr("x")})
	var notFoundErr *domain.ErrNotFound
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTotalBalancePerCurrency(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addAccount(10, 1, "100.00")
	store.addAccount(11, 1, "250.50")
	eur := store.addAccount(12, 1, "40.00")
	eur.Currency = domain.CurrencyEUR
	inactive := store.addAccount(13, 1, "999.00")
	inactive.IsActive = false
	excluded := store.addAccount(14, 1, "999.00")
	excluded.IncludeInTotal = false
	svc := testAccounts(store)

	total, err := svc.TotalBalance(context.Background(), 1)
	if err != nil {
		t.Fatalf("TotalBalance: %v", err)
	}
	if total.AccountsCount != 3 {
		t.Errorf("accountsCount = %d, want 3", total.AccountsCount)
	}
	if got := total.Totals[domain.CurrencyUSD]; !got.Equal(money("350.50")) {
		t.Errorf("USD total = %s, want 350.50", got)
	}
	if got := total.Totals[domain.CurrencyEUR]; !got.Equal(money("40.00")) {
		t.Errorf("EUR total = %s, want 40.00", got)
	}
}
