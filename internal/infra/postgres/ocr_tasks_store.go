package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spendsphere/spendsphere-go/internal/domain"
)

type ocrTaskStore struct {
	db *gorm.DB
}

func (s *ocrTaskStore) Create(ctx context.Context, t *domain.OcrTask) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *ocrTaskStore) Get(ctx context.Context, id uuid.UUID) (*domain.OcrTask, error) {
	var t domain.OcrTask
	err := s.db.WithContext(ctx).
		Where("task_id = ?", id).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *ocrTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("task_id = ?", id).
		Delete(&domain.OcrTask{}).Error
}
