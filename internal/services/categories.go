package services

import (
	"context"
	"fmt"
	"strings"

	"tally/internal/core"
	"tally/internal/ledger"
)

type CategoryService struct {
	store ledger.Store
}

func NewCategoryService(store ledger.Store) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	exists, err := s.store.CategoryNameExists(ctx, c.Name, 0)
	if err != nil {
		return core.Category{}, fmt.Errorf("check category name: %w", err)
	}
	if exists {
		return core.Category{}, fmt.Errorf("%w: category name %q already exists", core.ErrConflict, c.Name)
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CategoryService) Update(ctx context.Context, c core.Category) (core.Category, error) {
	existing, err := s.store.GetCategory(ctx, c.ID)
	if err != nil {
		return core.Category{}, err
	}

	existing.Name = strings.TrimSpace(c.Name)
	existing.Type = c.Type
	existing.Color = c.Color
	if err := existing.Validate(); err != nil {
		return core.Category{}, err
	}

	exists, err := s.store.CategoryNameExists(ctx, existing.Name, c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("check category name: %w", err)
	}
	if exists {
		return core.Category{}, fmt.Errorf("%w: category name %q already exists", core.ErrConflict, existing.Name)
	}

	if err := s.store.UpdateCategory(ctx, existing); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return existing, nil
}

// Delete removes a category. Restricted while transactions or budgets still
// reference it.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		return err
	}

	inUse, err := s.store.CategoryInUse(ctx, id)
	if err != nil {
		return fmt.Errorf("check category references: %w", err)
	}
	if inUse {
		return fmt.Errorf("%w: category is referenced by transactions or budgets", core.ErrConflict)
	}

	return s.store.DeleteCategory(ctx, id)
}
