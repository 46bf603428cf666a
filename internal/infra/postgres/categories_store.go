package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/spendsphere/spendsphere-go/internal/domain"
)

type categoryStore struct {
	db *gorm.DB
}

func (s *categoryStore) ListVisible(ctx context.Context, userID int64) ([]domain.Category, error) {
	var categories []domain.Category
	err := s.db.WithContext(ctx).
		Where("user_id IS NULL OR user_id = ?", userID).
		Order("id ASC").
		Find(&categories).Error
	return categories, err
}

func (s *categoryStore) ListByUser(ctx context.Context, userID int64) ([]domain.Category, error) {
	var categories []domain.Category
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&categories).Error
	return categories, err
}

func (s *categoryStore) ListDefaults(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := s.db.WithContext(ctx).
		Where("user_id IS NULL").
		Order("id ASC").
		Find(&categories).Error
	return categories, err
}

func (s *categoryStore) GetVisible(ctx context.Context, id, userID int64) (*domain.Category, error) {
	var c domain.Category
	err := s.db.WithContext(ctx).
		Where("id = ? AND (user_id IS NULL OR user_id = ?)", id, userID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *categoryStore) GetOwned(ctx context.Context, id, userID int64) (*domain.Category, error) {
	var c domain.Category
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *categoryStore) Create(ctx context.Context, c *domain.Category) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *categoryStore) Update(ctx context.Context, c *domain.Category) error {
	return s.db.WithContext(ctx).Save(c).Error
}

func (s *categoryStore) Delete(ctx context.Context, c *domain.Category) error {
	return s.db.WithContext(ctx).Delete(c).Error
}
