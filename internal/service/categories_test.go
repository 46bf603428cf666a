package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
)

func testCategories(store *memStore) *CategoryService {
	return NewCategoryService(store, zap.NewNop())
}

func TestListVisibleIncludesDefaults(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addUser(2)
	store.addCategory(30, nil, "Food")
	store.addCategory(31, ptr(int64(1)), "Hobby")
	store.addCategory(32, ptr(int64(2)), "Other user's")
	svc := testCategories(store)

	visible, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("got %d categories, want defaults plus own", len(visible))
	}

	own, err := svc.ListOwn(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListOwn: %v", err)
	}
	if len(own) != 1 || own[0].Name != "Hobby" {
		t.Fatalf("ListOwn = %+v, want only Hobby", own)
	}

	defaults, err := svc.ListDefaults(context.Background())
	if err != nil {
		t.Fatalf("ListDefaults: %v", err)
	}
	if len(defaults) != 1 || defaults[0].Name != "Food" {
		t.Fatalf("ListDefaults = %+v, want only Food", defaults)
	}
}

func TestCreateCategoryOwnedByUser(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	svc := testCategories(store)

	c, err := svc.Create(context.Background(), 1, &domain.CategoryRequest{
		Name:         ptr("Books"),
		CategoryType: ptr(domain.CategoryExpense),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.UserID == nil || *c.UserID != 1 {
		t.Errorf("userID = %v, want 1", c.UserID)
	}
	if c.IsDefault {
		t.Error("user categories must never be default")
	}
}

func TestDefaultCategoryIsImmutable(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addCategory(30, nil, "Food")
	svc := testCategories(store)

	_, err := svc.Update(context.Background(), 1, 30, &domain.CategoryRequest{Name: ptr("Mine now")})
	var notFoundErr *domain.ErrNotFound
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("update: err = %v, want ErrNotFound", err)
	}

	err = svc.Delete(context.Background(), 1, 30)
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("delete: err = %v, want ErrNotFound", err)
	}
	if _, ok := store.categories[30]; !ok {
		t.Error("default category must survive")
	}
}

func TestForeignCategoryIsInvisible(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	store.addUser(2)
	store.addCategory(31, ptr(int64(2)), "Private")
	svc := testCategories(store)

	_, err := svc.Update(context.Background(), 1, 31, &domain.CategoryRequest{Name: ptr("x")})
	var notFoundErr *domain.ErrNotFound
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
