package service

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/port"
)

var userTracer = otel.Tracer("service/users")

// UserService manages user profiles. Users are never deleted here.
type UserService struct {
	store  port.Store
	logger *zap.Logger
}

// NewUserService creates the user service.
func NewUserService(store port.Store, logger *zap.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

func (s *UserService) Get(ctx context.Context, userID int64) (*domain.User, error) {
	ctx, span := userTracer.Start(ctx, "UserService.Get")
	defer span.End()

	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: strconv.FormatInt(userID, 10)}
	}
	return u, nil
}

// UpdateProfile patches the mutable profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *domain.ProfileRequest) (*domain.User, error) {
	ctx, span := userTracer.Start(ctx, "UserService.UpdateProfile")
	defer span.End()

	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Surname != nil {
		u.Surname = *req.Surname
	}
	if req.Birthday != nil {
		u.Birthday = req.Birthday
	}
	if req.PhotoURL != nil {
		u.PhotoURL = *req.PhotoURL
	}

	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("profile updated", zap.Int64("user_id", userID))
	return u, nil
}
