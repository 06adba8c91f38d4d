package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"expensebook/internal/core"
)

func clock() func() time.Time {
	t := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func seed(t *testing.T) (*Store, string) {
	t.Helper()
	ctx := context.Background()
	s := NewWithClock(clock())
	if err := s.UpsertCategory(ctx, core.CategoryUpsert{Name: "Food"}); err != nil {
		t.Fatalf("upsert category: %v", err)
	}
	cats, _ := s.FetchAllCategories(ctx, core.AllCategoryCriteria{})
	food := cats[0].ID
	for _, u := range []core.ExpenseUpsert{
		{Name: "Coffee", Amount: core.Money{Cents: 250}, Date: core.NewDate(2024, 1, 3), CategoryID: food},
		{Name: "Bus", Amount: core.Money{Cents: 150}, Date: core.NewDate(2024, 1, 4)},
		{Name: "coffee beans", Amount: core.Money{Cents: 1200}, Date: core.NewDate(2024, 2, 1), CategoryID: food},
	} {
		if err := s.UpsertExpense(ctx, u); err != nil {
			t.Fatalf("upsert expense: %v", err)
		}
	}
	return s, food
}

func TestFetchExpensePageFilters(t *testing.T) {
	s, food := seed(t)
	ctx := context.Background()

	p, err := s.FetchExpensePage(ctx, core.ExpenseCriteria{Size: 10, Sort: core.SortNameAsc, Name: "COFFEE"})
	if err != nil || len(p.Content) != 2 || !p.Last || p.TotalElements != 2 {
		t.Fatalf("name filter: %+v err=%v", p, err)
	}

	p, _ = s.FetchExpensePage(ctx, core.ExpenseCriteria{Size: 10, CategoryIDs: []string{food}, YearMonth: core.Period{Year: 2024, Month: time.February}})
	if len(p.Content) != 1 || p.Content[0].Name != "coffee beans" || p.Content[0].Category.Name != "Food" {
		t.Fatalf("category+period filter: %+v", p)
	}
}

func TestFetchExpensePagePaging(t *testing.T) {
	s, _ := seed(t)
	ctx := context.Background()

	first, _ := s.FetchExpensePage(ctx, core.ExpenseCriteria{Page: 0, Size: 2, Sort: core.SortDateAsc})
	second, _ := s.FetchExpensePage(ctx, core.ExpenseCriteria{Page: 1, Size: 2, Sort: core.SortDateAsc})
	beyond, _ := s.FetchExpensePage(ctx, core.ExpenseCriteria{Page: 5, Size: 2, Sort: core.SortDateAsc})

	if len(first.Content) != 2 || first.Last || first.Content[0].Name != "Coffee" {
		t.Fatalf("first page: %+v", first)
	}
	if len(second.Content) != 1 || !second.Last {
		t.Fatalf("second page: %+v", second)
	}
	if beyond.Content == nil || len(beyond.Content) != 0 || !beyond.Last {
		t.Fatalf("beyond last page: %+v", beyond)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s, food := seed(t)
	ctx := context.Background()

	all, _ := s.FetchAllExpenses(ctx, core.AllExpenseCriteria{Sort: core.SortCreatedAtAsc})
	bus := all[1]
	if err := s.UpsertExpense(ctx, core.ExpenseUpsert{ID: bus.ID, Name: "Train", Amount: core.Money{Cents: 900}, Date: bus.Date}); err != nil {
		t.Fatalf("update: %v", err)
	}
	all, _ = s.FetchAllExpenses(ctx, core.AllExpenseCriteria{Sort: core.SortCreatedAtAsc})
	if all[1].Name != "Train" || !all[1].CreatedAt.Equal(bus.CreatedAt) {
		t.Fatalf("update lost fields: %+v", all[1])
	}

	if err := s.DeleteExpense(ctx, bus.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteExpense(ctx, bus.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteCategory(ctx, food); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	all, _ = s.FetchAllExpenses(ctx, core.AllExpenseCriteria{})
	for _, e := range all {
		if e.Category != nil {
			t.Fatalf("expense kept deleted category: %+v", e)
		}
	}
}

func TestUpsertValidation(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.UpsertExpense(ctx, core.ExpenseUpsert{Name: " ", Date: core.NewDate(2024, 1, 1)}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := s.UpsertExpense(ctx, core.ExpenseUpsert{Name: "x", Date: core.NewDate(2024, 1, 1), CategoryID: "missing"}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected unknown category to be rejected, got %v", err)
	}
	if err := s.UpsertCategory(ctx, core.CategoryUpsert{ID: "nope", Name: "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCategoryPage(t *testing.T) {
	s := NewWithClock(clock())
	ctx := context.Background()
	for _, n := range []string{"b", "A", "c"} {
		_ = s.UpsertCategory(ctx, core.CategoryUpsert{Name: n})
	}
	p, _ := s.FetchCategoryPage(ctx, core.CategoryCriteria{Size: 2, Sort: core.SortNameAsc})
	if len(p.Content) != 2 || p.Content[0].Name != "A" || p.Content[1].Name != "b" || p.Last {
		t.Fatalf("unexpected page: %+v", p)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	cats, _ := s.FetchAllCategories(context.Background(), core.AllCategoryCriteria{})
	if len(cats) == 0 {
		t.Fatalf("expected defaults when file missing")
	}

	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("# header\nRent\nFun\nRent\n\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	cats, _ = s.FetchAllCategories(context.Background(), core.AllCategoryCriteria{Sort: core.SortNameAsc})
	if len(cats) != 2 || cats[0].Name != "Fun" || cats[1].Name != "Rent" {
		t.Fatalf("unexpected seeds: %+v", cats)
	}
}
