package domain

import "github.com/shopspring/decimal"

// Request DTOs use pointer fields so PUT handlers can distinguish
// "absent" from "zero": absent fields leave the entity unchanged.

// TransactionRequest is the create/update payload for the ledger.
type TransactionRequest struct {
	Type              *TransactionType `json:"type,omitempty"`
	CategoryID        *int64           `json:"categoryId,omitempty"`
	AccountID         *int64           `json:"accountId,omitempty"`
	TransferAccountID *int64           `json:"transferAccountId,omitempty"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	Description       *string          `json:"description,omitempty"`
	Date              *Date            `json:"date,omitempty"`
}

// TransactionFilter holds the optional predicates of the filter operation.
// Absent predicates are ignored; AccountID matches either side of a
// transfer; date bounds are inclusive.
type TransactionFilter struct {
	Type       *TransactionType
	AccountID  *int64
	CategoryID *int64
	DateFrom   *Date
	DateTo     *Date
}

// AccountRequest is the create/update payload for accounts.
type AccountRequest struct {
	Name           *string          `json:"name,omitempty"`
	AccountType    *AccountType     `json:"accountType,omitempty"`
	Currency       *Currency        `json:"currency,omitempty"`
	Balance        *decimal.Decimal `json:"balance,omitempty"`
	Icon           *string          `json:"icon,omitempty"`
	CreditLimit    *decimal.Decimal `json:"creditLimit,omitempty"`
	IsActive       *bool            `json:"isActive,omitempty"`
	IncludeInTotal *bool            `json:"includeInTotal,omitempty"`
}

// TotalBalance is the per-currency sum over active accounts flagged
// includeInTotal. No currency conversion happens.
type TotalBalance struct {
	Totals        map[Currency]decimal.Decimal `json:"totals"`
	AccountsCount int                          `json:"accountsCount"`
}

// CategoryRequest is the create/update payload for user categories.
type CategoryRequest struct {
	Name         *string       `json:"name,omitempty"`
	CategoryType *CategoryType `json:"categoryType,omitempty"`
	Icon         *string       `json:"icon,omitempty"`
	Color        *string       `json:"color,omitempty"`
}

// ReminderRequest is the create/update payload for reminders.
type ReminderRequest struct {
	AccountID   *int64           `json:"accountId,omitempty"`
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Recurrence  *RecurrenceType  `json:"recurrence,omitempty"`
	DayOfWeek   *int             `json:"dayOfWeek,omitempty"`
	DayOfMonth  *int             `json:"dayOfMonth,omitempty"`
	UseLastDay  *bool            `json:"useLastDay,omitempty"`
	IsActive    *bool            `json:"isActive,omitempty"`
}

// ReminderOccurrence is one calculated upcoming payment.
type ReminderOccurrence struct {
	ReminderID int64           `json:"reminderId"`
	Title      string          `json:"title"`
	Amount     decimal.Decimal `json:"amount"`
	DueDate    Date            `json:"dueDate"`
}

// ProfileRequest is the patch payload for the user profile.
type ProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	Surname  *string `json:"surname,omitempty"`
	Birthday *Date   `json:"birthday,omitempty"`
	PhotoURL *string `json:"photoUrl,omitempty"`
}

// RegisterRequest creates a user with an email/password credential.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
}

// LoginRequest is the email/password login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries a signed access token.
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	UserID      int64  `json:"userId"`
}

// AdviceRequest starts an advice pipeline round-trip.
type AdviceRequest struct {
	Goal       string `json:"goal"`
	TargetDate *Date  `json:"targetDate,omitempty"`
}

// OcrTaskResponse acknowledges an accepted receipt image.
type OcrTaskResponse struct {
	TaskID string `json:"taskId"`
}
