package services

import (
	"context"
	"errors"
	"testing"

	"tally/internal/core"
)

func TestBudgetCreateNormalizesMonth(t *testing.T) {
	ctx := context.Background()
	store, _, _, category := newLedger(t)
	svc := NewBudgetService(store)

	created, err := svc.Create(ctx, core.Budget{
		CategoryID: category.ID,
		Month:      core.NewDate(2024, 5, 17), // mid-month input
		Limit:      core.Money{Cents: 30000},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	y, m, d := created.Month.Date()
	if y != 2024 || m != 5 || d != 1 {
		t.Errorf("month = %v, want normalized 2024-05-01", created.Month)
	}

	listed, err := svc.ListMonth(ctx, 2024, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("listed = %+v, want the created budget", listed)
	}
}

func TestBudgetUniquePerCategoryMonth(t *testing.T) {
	ctx := context.Background()
	store, _, _, category := newLedger(t)
	svc := NewBudgetService(store)

	if _, err := svc.Create(ctx, core.Budget{
		CategoryID: category.ID, Month: core.MonthStart(2024, 5), Limit: core.Money{Cents: 100},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Create(ctx, core.Budget{
		CategoryID: category.ID, Month: core.MonthStart(2024, 5), Limit: core.Money{Cents: 200},
	}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate budget err = %v, want ErrConflict", err)
	}

	// Same category, different month is fine.
	if _, err := svc.Create(ctx, core.Budget{
		CategoryID: category.ID, Month: core.MonthStart(2024, 6), Limit: core.Money{Cents: 200},
	}); err != nil {
		t.Errorf("different month should not conflict: %v", err)
	}
}

func TestBudgetCreateValidation(t *testing.T) {
	ctx := context.Background()
	store, _, _, category := newLedger(t)
	svc := NewBudgetService(store)

	if _, err := svc.Create(ctx, core.Budget{
		CategoryID: category.ID, Month: core.MonthStart(2024, 5), Limit: core.Money{Cents: -1},
	}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("negative limit err = %v, want ErrInvalidArgument", err)
	}

	if _, err := svc.Create(ctx, core.Budget{
		CategoryID: 999, Month: core.MonthStart(2024, 5), Limit: core.Money{Cents: 100},
	}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown category err = %v, want ErrNotFound", err)
	}

	// Zero limit is a legal budget; the report layer handles the percent.
	if _, err := svc.Create(ctx, core.Budget{
		CategoryID: category.ID, Month: core.MonthStart(2024, 7), Limit: core.Money{},
	}); err != nil {
		t.Errorf("zero limit budget: %v", err)
	}
}

func TestBudgetUpdateKeepsUniqueness(t *testing.T) {
	ctx := context.Background()
	store, _, _, category := newLedger(t)
	svc := NewBudgetService(store)

	may, err := svc.Create(ctx, core.Budget{
		CategoryID: category.ID, Month: core.MonthStart(2024, 5), Limit: core.Money{Cents: 100},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	june, err := svc.Create(ctx, core.Budget{
		CategoryID: category.ID, Month: core.MonthStart(2024, 6), Limit: core.Money{Cents: 100},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Raising a limit in place works.
	may.Limit = core.Money{Cents: 500}
	if _, err := svc.Update(ctx, may); err != nil {
		t.Errorf("update limit: %v", err)
	}

	// Moving june onto may's month collides.
	june.Month = core.MonthStart(2024, 5)
	if _, err := svc.Update(ctx, june); !errors.Is(err, core.ErrConflict) {
		t.Errorf("move onto occupied month err = %v, want ErrConflict", err)
	}
}
