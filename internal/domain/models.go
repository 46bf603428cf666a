// Package domain defines the core business entities for the finance
// service. These models are independent of transport and storage and are
// the canonical data structures used throughout the application.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is an account holder. Created on registration or OAuth first-login,
// never deleted by this service.
type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Name         string    `gorm:"size:100" json:"name"`
	Surname      string    `gorm:"size:100" json:"surname"`
	Birthday     *Date     `gorm:"type:date" json:"birthday,omitempty"`
	PhotoURL     string    `gorm:"size:512" json:"photoUrl,omitempty"`
	Provider     string    `gorm:"size:50" json:"-"`
	ProviderID   string    `gorm:"size:255;index" json:"-"`
	IsPremium    bool      `gorm:"not null;default:false" json:"isPremium"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

// Account holds a running balance. The balance column is mutated only by
// the ledger, inside the same database transaction as the transaction row.
type Account struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	UserID         int64           `gorm:"not null;index" json:"userId"`
	Name           string          `gorm:"size:100;not null" json:"name"`
	AccountType    AccountType     `gorm:"size:20;not null" json:"accountType"`
	Currency       Currency        `gorm:"size:3;not null" json:"currency"`
	Balance        decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"balance"`
	Icon           string          `gorm:"size:100" json:"icon,omitempty"`
	CreditLimit    decimal.Decimal `gorm:"type:decimal(19,2);not null;default:0" json:"creditLimit"`
	IsActive       bool            `gorm:"not null;default:true" json:"isActive"`
	IncludeInTotal bool            `gorm:"not null;default:true" json:"includeInTotal"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Category tags transactions. UserID nil means a system default category,
// visible to every user and immutable through the API.
type Category struct {
	ID           int64        `gorm:"primaryKey" json:"id"`
	UserID       *int64       `gorm:"index" json:"userId,omitempty"`
	Name         string       `gorm:"size:100;not null" json:"name"`
	CategoryType CategoryType `gorm:"size:10;not null" json:"categoryType"`
	Icon         string       `gorm:"size:100" json:"icon,omitempty"`
	Color        string       `gorm:"size:20" json:"color,omitempty"`
	IsDefault    bool         `gorm:"not null;default:false" json:"isDefault"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"-"`
}

// Transaction is a ledger entry. Its existence implies its effect is
// applied to the referenced account balances.
type Transaction struct {
	ID                int64           `gorm:"primaryKey" json:"id"`
	UserID            int64           `gorm:"not null;index" json:"userId"`
	Type              TransactionType `gorm:"size:10;not null" json:"type"`
	CategoryID        *int64          `gorm:"index" json:"categoryId,omitempty"`
	Category          *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	AccountID         int64           `gorm:"not null;index" json:"accountId"`
	TransferAccountID *int64          `gorm:"index" json:"transferAccountId,omitempty"`
	Amount            decimal.Decimal `gorm:"type:decimal(19,2);not null" json:"amount"`
	Description       string          `gorm:"size:500" json:"description,omitempty"`
	Date              Date            `gorm:"type:date;not null;index" json:"date"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"-"`
}

// CategoryName returns the preloaded category name or "".
func (t *Transaction) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Name
}

// Reminder is a recurring payment reminder.
// Weekly reminders carry DayOfWeek (1 = Monday .. 7 = Sunday); monthly
// reminders carry either DayOfMonth in [1,30] or UseLastDay.
type Reminder struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	UserID      int64           `gorm:"not null;index" json:"userId"`
	AccountID   *int64          `json:"accountId,omitempty"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description string          `gorm:"size:500" json:"description,omitempty"`
	Amount      decimal.Decimal `gorm:"type:decimal(19,2);not null" json:"amount"`
	Recurrence  RecurrenceType  `gorm:"size:10;not null" json:"recurrence"`
	DayOfWeek   *int            `json:"dayOfWeek,omitempty"`
	DayOfMonth  *int            `json:"dayOfMonth,omitempty"`
	UseLastDay  bool            `gorm:"not null;default:false" json:"useLastDay"`
	IsActive    bool            `gorm:"not null;default:true" json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"-"`
}

// OcrTask correlates an outbound OCR request with its eventual result.
// The row is deleted when the result is ingested, so a redelivered result
// finds no task and is dropped.
type OcrTask struct {
	TaskID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"taskId"`
	UserID    int64     `gorm:"not null;index" json:"userId"`
	AccountID int64     `gorm:"not null" json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Advice is a persisted AI advice result with its ordered items.
type Advice struct {
	ID         int64        `gorm:"primaryKey" json:"id"`
	UserID     int64        `gorm:"not null;index" json:"userId"`
	TaskID     string       `gorm:"size:255;not null;uniqueIndex" json:"taskId"`
	Goal       string       `gorm:"size:500" json:"goal"`
	TargetDate *Date        `gorm:"type:date" json:"targetDate,omitempty"`
	Items      []AdviceItem `gorm:"foreignKey:AdviceID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// AdviceItem is one recommendation within an Advice, ordered by ItemOrder.
type AdviceItem struct {
	ID          int64  `gorm:"primaryKey" json:"-"`
	AdviceID    int64  `gorm:"not null;index" json:"-"`
	ItemOrder   int    `gorm:"not null" json:"order"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Priority    string `gorm:"size:20" json:"priority"`
	Description string `gorm:"size:2000" json:"description"`
}
