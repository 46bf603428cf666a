package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spendsphere/spendsphere-go/internal/domain"
)

type accountStore struct {
	db *gorm.DB
}

func (s *accountStore) ListByUser(ctx context.Context, userID int64) ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&accounts).Error
	return accounts, err
}

func (s *accountStore) GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Account, error) {
	var a domain.Account
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetForUpdate takes a SELECT ... FOR UPDATE lock. Callers must lock
// accounts in ascending-id order to avoid deadlocks on transfers.
func (s *accountStore) GetForUpdate(ctx context.Context, id, userID int64) (*domain.Account, error) {
	var a domain.Account
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *accountStore) Create(ctx context.Context, a *domain.Account) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *accountStore) Update(ctx context.Context, a *domain.Account) error {
	return s.db.WithContext(ctx).Save(a).Error
}

func (s *accountStore) Delete(ctx context.Context, a *domain.Account) error {
	return s.db.WithContext(ctx).Delete(a).Error
}
