// Package port defines the interfaces between services and infrastructure.
// Services depend on these, never on concrete adapters.
package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spendsphere/spendsphere-go/internal/domain"
)

// Store bundles the per-aggregate stores with transaction demarcation.
// Transact runs fn against a store view bound to one database transaction;
// returning an error rolls everything back.
type Store interface {
	Users() UserStore
	Accounts() AccountStore
	Categories() CategoryStore
	Transactions() TransactionStore
	Reminders() ReminderStore
	Advices() AdviceStore
	OcrTasks() OcrTaskStore

	Transact(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}

// Lookup methods return (nil, nil) when the row is absent; services turn
// that into domain.ErrNotFound.

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
}

type AccountStore interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.Account, error)
	GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Account, error)
	// GetForUpdate acquires a row-level lock on the account for the
	// duration of the enclosing transaction.
	GetForUpdate(ctx context.Context, id, userID int64) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, a *domain.Account) error
	Delete(ctx context.Context, a *domain.Account) error
}

type CategoryStore interface {
	// ListVisible returns default categories plus the user's own.
	ListVisible(ctx context.Context, userID int64) ([]domain.Category, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Category, error)
	ListDefaults(ctx context.Context) ([]domain.Category, error)
	// GetVisible resolves a category that is either default or owned by
	// the user; cross-user categories come back (nil, nil).
	GetVisible(ctx context.Context, id, userID int64) (*domain.Category, error)
	GetOwned(ctx context.Context, id, userID int64) (*domain.Category, error)
	Create(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, c *domain.Category) error
}

type TransactionStore interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.Transaction, error)
	GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Transaction, error)
	Filter(ctx context.Context, userID int64, f domain.TransactionFilter) ([]domain.Transaction, error)
	Create(ctx context.Context, t *domain.Transaction) error
	Update(ctx context.Context, t *domain.Transaction) error
	Delete(ctx context.Context, t *domain.Transaction) error
}

type ReminderStore interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.Reminder, error)
	GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Reminder, error)
	Create(ctx context.Context, r *domain.Reminder) error
	Update(ctx context.Context, r *domain.Reminder) error
	Delete(ctx context.Context, r *domain.Reminder) error
}

type AdviceStore interface {
	// Create persists the advice together with its items.
	Create(ctx context.Context, a *domain.Advice) error
	GetByTaskID(ctx context.Context, taskID string) (*domain.Advice, error)
	// ListRecent returns the user's advices created after since, items
	// ordered by item order ascending.
	ListRecent(ctx context.Context, userID int64, since time.Time) ([]domain.Advice, error)
}

type OcrTaskStore interface {
	Create(ctx context.Context, t *domain.OcrTask) error
	Get(ctx context.Context, id uuid.UUID) (*domain.OcrTask, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Publisher sends a JSON-encoded message to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, body any) error
}
