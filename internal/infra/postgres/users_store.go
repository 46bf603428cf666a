package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/spendsphere/spendsphere-go/internal/domain"
)

type userStore struct {
	db *gorm.DB
}

func (s *userStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *userStore) GetByProvider(ctx context.Context, provider, providerID string) (*domain.User, error) {
	var u domain.User
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *domain.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *userStore) Update(ctx context.Context, u *domain.User) error {
	return s.db.WithContext(ctx).Save(u).Error
}
