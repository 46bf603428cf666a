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

var categoryTracer = otel.Tracer("service/categories")

// CategoryService manages user categories. Default categories are
// visible to everyone but only user-owned ones can be changed.
type CategoryService struct {
	store  port.Store
	logger *zap.Logger
}

// NewCategoryService creates the category service.
func NewCategoryService(store port.Store, logger *zap.Logger) *CategoryService {
	return &CategoryService{store: store, logger: logger}
}

// List returns the categories visible to the user: defaults plus own.
func (s *CategoryService) List(ctx context.Context, userID int64) ([]domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.List")
	defer span.End()

	return s.store.Categories().ListVisible(ctx, userID)
}

// ListOwn returns only the user's custom categories.
func (s *CategoryService) ListOwn(ctx context.Context, userID int64) ([]domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.ListOwn")
	defer span.End()

	return s.store.Categories().ListByUser(ctx, userID)
}

// ListDefaults returns the system default categories.
func (s *CategoryService) ListDefaults(ctx context.Context) ([]domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.ListDefaults")
	defer span.End()

	return s.store.Categories().ListDefaults(ctx)
}

func (s *CategoryService) Create(ctx context.Context, userID int64, req *domain.CategoryRequest) (*domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Create")
	defer span.End()

	if req.Name == nil || *req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "is required"}
	}
	if req.CategoryType == nil || !req.CategoryType.Valid() {
		return nil, &domain.ErrValidation{Field: "categoryType", Message: "is invalid"}
	}

	c := &domain.Category{
		UserID:       &userID,
		Name:         *req.Name,
		CategoryType: *req.CategoryType,
		IsDefault:    false,
	}
	if req.Icon != nil {
		c.Icon = *req.Icon
	}
	if req.Color != nil {
		c.Color = *req.Color
	}

	if err := s.store.Categories().Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.Info("category created",
		zap.Int64("user_id", userID),
		zap.Int64("category_id", c.ID),
	)
	return c, nil
}

// Update patches a user-owned category. Default categories resolve as
// not found because they are owned by nobody.
func (s *CategoryService) Update(ctx context.Context, userID, id int64, req *domain.CategoryRequest) (*domain.Category, error) {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Update")
	defer span.End()

	c, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, &domain.ErrValidation{Field: "name", Message: "must not be empty"}
		}
		c.Name = *req.Name
	}
	if req.CategoryType != nil {
		if !req.CategoryType.Valid() {
			return nil, &domain.ErrValidation{Field: "categoryType", Message: "is invalid"}
		}
		c.CategoryType = *req.CategoryType
	}
	if req.Icon != nil {
		c.Icon = *req.Icon
	}
	if req.Color != nil {
		c.Color = *req.Color
	}

	if err := s.store.Categories().Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	ctx, span := categoryTracer.Start(ctx, "CategoryService.Delete")
	defer span.End()

	c, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.Categories().Delete(ctx, c); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.logger.Info("category deleted",
		zap.Int64("user_id", userID),
		zap.Int64("category_id", id),
	)
	return nil
}

func (s *CategoryService) getOwned(ctx context.Context, userID, id int64) (*domain.Category, error) {
	c, err := s.store.Categories().GetOwned(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if c == nil {
		return nil, &domain.ErrNotFound{Resource: "category", ID: strconv.FormatInt(id, 10)}
	}
	return c, nil
}
