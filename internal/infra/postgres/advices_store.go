package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/spendsphere/spendsphere-go/internal/domain"
)

type adviceStore struct {
	db *gorm.DB
}

// Create persists the advice row and its items in one insert batch.
func (s *adviceStore) Create(ctx context.Context, a *domain.Advice) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *adviceStore) GetByTaskID(ctx context.Context, taskID string) (*domain.Advice, error) {
	var a domain.Advice
	err := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *adviceStore) ListRecent(ctx context.Context, userID int64, since time.Time) ([]domain.Advice, error) {
	var advices []domain.Advice
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("item_order ASC")
		}).
		Where("user_id = ? AND created_at > ?", userID, since).
		Order("created_at DESC").
		Find(&advices).Error
	return advices, err
}
