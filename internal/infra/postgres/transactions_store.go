package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/spendsphere/spendsphere-go/internal/domain"
)

type transactionStore struct {
	db *gorm.DB
}

func (s *transactionStore) ListByUser(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := s.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ?", userID).
		Order("date DESC, created_at DESC").
		Find(&txs).Error
	return txs, err
}

func (s *transactionStore) GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *transactionStore) Filter(ctx context.Context, userID int64, f domain.TransactionFilter) ([]domain.Transaction, error) {
	q := s.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ?", userID)

	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.AccountID != nil {
		q = q.Where("account_id = ? OR transfer_account_id = ?", *f.AccountID, *f.AccountID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.DateFrom != nil {
		q = q.Where("date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("date <= ?", *f.DateTo)
	}

	var txs []domain.Transaction
	err := q.Order("date DESC, created_at DESC").Find(&txs).Error
	return txs, err
}

func (s *transactionStore) Create(ctx context.Context, t *domain.Transaction) error {
	return s.db.WithContext(ctx).Omit("Category").Create(t).Error
}

func (s *transactionStore) Update(ctx context.Context, t *domain.Transaction) error {
	return s.db.WithContext(ctx).Omit("Category").Save(t).Error
}

func (s *transactionStore) Delete(ctx context.Context, t *domain.Transaction) error {
	return s.db.WithContext(ctx).Delete(t).Error
}
