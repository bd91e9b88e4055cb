package services

import (
	"context"
	"fmt"

	"tally/internal/core"
	"tally/internal/ledger"
)

type BudgetService struct {
	store ledger.Store
}

func NewBudgetService(store ledger.Store) *BudgetService {
	return &BudgetService{store: store}
}

// Create persists a budget. The month is normalized to the first of the
// month; at most one budget may exist per (category, month).
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	y, m, _ := b.Month.Date()
	b.Month = core.MonthStart(y, int(m))
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	if _, err := s.store.GetCategory(ctx, b.CategoryID); err != nil {
		return core.Budget{}, err
	}

	exists, err := s.store.BudgetExists(ctx, b.CategoryID, b.Month, 0)
	if err != nil {
		return core.Budget{}, fmt.Errorf("check budget: %w", err)
	}
	if exists {
		return core.Budget{}, fmt.Errorf("%w: budget already exists for category %d in %s",
			core.ErrConflict, b.CategoryID, b.Month.Format("2006-01"))
	}

	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return created, nil
}

// ListMonth returns all budgets for the given calendar month.
func (s *BudgetService) ListMonth(ctx context.Context, year, month int) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, core.MonthStart(year, month))
}

// Update changes a budget's limit (and optionally its month), keeping the
// per-(category, month) uniqueness invariant.
func (s *BudgetService) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	existing, err := s.store.GetBudget(ctx, b.ID)
	if err != nil {
		return core.Budget{}, err
	}

	y, m, _ := b.Month.Date()
	existing.Month = core.MonthStart(y, int(m))
	existing.Limit = b.Limit
	if err := existing.Validate(); err != nil {
		return core.Budget{}, err
	}

	exists, err := s.store.BudgetExists(ctx, existing.CategoryID, existing.Month, b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("check budget: %w", err)
	}
	if exists {
		return core.Budget{}, fmt.Errorf("%w: budget already exists for category %d in %s",
			core.ErrConflict, existing.CategoryID, existing.Month.Format("2006-01"))
	}

	if err := s.store.UpdateBudget(ctx, existing); err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return existing, nil
}

func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.GetBudget(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteBudget(ctx, id)
}
