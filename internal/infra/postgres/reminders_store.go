package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/spendsphere/spendsphere-go/internal/domain"
)

type reminderStore struct {
	db *gorm.DB
}

func (s *reminderStore) ListByUser(ctx context.Context, userID int64) ([]domain.Reminder, error) {
	var reminders []domain.Reminder
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&reminders).Error
	return reminders, err
}

func (s *reminderStore) GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Reminder, error) {
	var r domain.Reminder
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *reminderStore) Create(ctx context.Context, r *domain.Reminder) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *reminderStore) Update(ctx context.Context, r *domain.Reminder) error {
	return s.db.WithContext(ctx).Save(r).Error
}

func (s *reminderStore) Delete(ctx context.Context, r *domain.Reminder) error {
	return s.db.WithContext(ctx).Delete(r).Error
}
