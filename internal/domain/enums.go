package domain

import "strings"

// TransactionType is the closed set of ledger entry kinds.
type TransactionType string

const (
	TransactionIncome   TransactionType = "INCOME"
	TransactionExpense  TransactionType = "EXPENSE"
	TransactionTransfer TransactionType = "TRANSFER"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionIncome, TransactionExpense, TransactionTransfer:
		return true
	}
	return false
}

// ParseTransactionType parses a type name case-insensitively.
// Returns false on empty or unknown input.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if t.Valid() {
		return t, true
	}
	return "", false
}

// AccountType classifies an account.
type AccountType string

const (
	AccountCash       AccountType = "CASH"
	AccountCard       AccountType = "CARD"
	AccountSavings    AccountType = "SAVINGS"
	AccountCredit     AccountType = "CREDIT"
	AccountInvestment AccountType = "INVESTMENT"
	AccountOther      AccountType = "OTHER"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountCash, AccountCard, AccountSavings, AccountCredit, AccountInvestment, AccountOther:
		return true
	}
	return false
}

// Currency is the fixed set of supported account denominations.
// Totals are never converted across currencies.
type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCNY Currency = "CNY"
	CurrencyJPY Currency = "JPY"
	CurrencyKZT Currency = "KZT"
	CurrencyBYN Currency = "BYN"
	CurrencyUAH Currency = "UAH"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyRUB, CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyCNY,
		CurrencyJPY, CurrencyKZT, CurrencyBYN, CurrencyUAH:
		return true
	}
	return false
}

// CategoryType restricts which transaction kinds a category applies to.
type CategoryType string

const (
	CategoryIncome  CategoryType = "INCOME"
	CategoryExpense CategoryType = "EXPENSE"
	CategoryBoth    CategoryType = "BOTH"
)

func (t CategoryType) Valid() bool {
	switch t {
	case CategoryIncome, CategoryExpense, CategoryBoth:
		return true
	}
	return false
}

// RecurrenceType is a reminder's periodicity.
type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "DAILY"
	RecurrenceWeekly  RecurrenceType = "WEEKLY"
	RecurrenceMonthly RecurrenceType = "MONTHLY"
)

func (t RecurrenceType) Valid() bool {
	switch t {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}
