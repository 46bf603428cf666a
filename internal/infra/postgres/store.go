package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/spendsphere/spendsphere-go/internal/port"
)

// Store implements port.Store on a gorm handle. The same type serves both
// the root connection and a transaction-scoped view.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() port.UserStore               { return &userStore{db: s.db} }
func (s *Store) Accounts() port.AccountStore         { return &accountStore{db: s.db} }
func (s *Store) Categories() port.CategoryStore      { return &categoryStore{db: s.db} }
func (s *Store) Transactions() port.TransactionStore { return &transactionStore{db: s.db} }
func (s *Store) Reminders() port.ReminderStore       { return &reminderStore{db: s.db} }
func (s *Store) Advices() port.AdviceStore           { return &adviceStore{db: s.db} }
func (s *Store) OcrTasks() port.OcrTaskStore         { return &ocrTaskStore{db: s.db} }

// Transact runs fn inside one database transaction. An error from fn
// rolls back every mutation made through the passed store view.
func (s *Store) Transact(ctx context.Context, fn func(port.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return Ping(ctx, s.db)
}
