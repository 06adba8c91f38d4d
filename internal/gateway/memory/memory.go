// Package memory is an in-process gateway used by the CLI in offline mode
// and by tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensebook/internal/core"
)

type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	categories []core.Category
	expenses   []core.Expense
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewWithClock creates a store stamping records with now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// NewFromFiles seeds categories from base/seed_categories.txt, one name per
// line. Missing files fall back to a small default set.
func NewFromFiles(base string) *Store {
	s := New()
	names := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(names) == 0 {
		names = []string{"Groceries", "Home", "Transport"}
	}
	for _, n := range names {
		_ = s.UpsertCategory(context.Background(), core.CategoryUpsert{Name: n})
	}
	return s
}

// FetchExpensePage implements gateway.ExpensePager
func (s *Store) FetchExpensePage(_ context.Context, c core.ExpenseCriteria) (core.Page[core.Expense], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Size <= 0 {
		c.Size = core.DefaultPageSize
	}
	var matched []core.Expense
	for _, e := range s.expenses {
		if matchesExpense(e, c) {
			matched = append(matched, s.withCategory(e))
		}
	}
	core.SortExpenses(matched, c.Sort)
	return core.NewPage(window(matched, c.Offset(), c.Size), c.Page, c.Size, len(matched)), nil
}

// FetchAllExpenses implements gateway.ExpenseLister
func (s *Store) FetchAllExpenses(_ context.Context, c core.AllExpenseCriteria) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Expense{}
	for _, e := range s.expenses {
		if containsFold(e.Name, c.Name) {
			out = append(out, s.withCategory(e))
		}
	}
	core.SortExpenses(out, c.Sort)
	return out, nil
}

// UpsertExpense implements gateway.ExpenseWriter
func (s *Store) UpsertExpense(_ context.Context, u core.ExpenseUpsert) error {
	u = u.Normalize()
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ref *core.CategoryRef
	if u.CategoryID != "" {
		i := s.categoryIndex(u.CategoryID)
		if i < 0 {
			return &core.ValidationError{Field: "categoryId", Reason: "unknown category"}
		}
		r := s.categories[i].Ref()
		ref = &r
	}
	if u.ID != "" {
		for i := range s.expenses {
			if s.expenses[i].ID == u.ID {
				s.expenses[i].Name = u.Name
				s.expenses[i].Amount = u.Amount
				s.expenses[i].Date = u.Date
				s.expenses[i].Category = ref
				return nil
			}
		}
		return fmt.Errorf("expense %s: %w", u.ID, core.ErrNotFound)
	}
	s.expenses = append(s.expenses, core.Expense{
		ID:        uuid.NewString(),
		Name:      u.Name,
		Amount:    u.Amount,
		Date:      u.Date,
		CreatedAt: s.now().UTC(),
		Category:  ref,
	})
	return nil
}

// DeleteExpense implements gateway.ExpenseWriter
func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.expenses {
		if s.expenses[i].ID == id {
			s.expenses = slices.Delete(s.expenses, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
}

// FetchCategoryPage implements gateway.CategoryPager
func (s *Store) FetchCategoryPage(_ context.Context, c core.CategoryCriteria) (core.Page[core.Category], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Size <= 0 {
		c.Size = core.DefaultPageSize
	}
	matched := s.matchCategories(c.Name, c.Sort)
	return core.NewPage(window(matched, c.Offset(), c.Size), c.Page, c.Size, len(matched)), nil
}

// FetchAllCategories implements gateway.CategoryLister
func (s *Store) FetchAllCategories(_ context.Context, c core.AllCategoryCriteria) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchCategories(c.Name, c.Sort), nil
}

// UpsertCategory implements gateway.CategoryWriter
func (s *Store) UpsertCategory(_ context.Context, u core.CategoryUpsert) error {
	u = u.Normalize()
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if u.ID != "" {
		i := s.categoryIndex(u.ID)
		if i < 0 {
			return fmt.Errorf("category %s: %w", u.ID, core.ErrNotFound)
		}
		s.categories[i].Name = u.Name
		s.categories[i].Color = u.Color
		s.categories[i].LastModifiedAt = now
		return nil
	}
	s.categories = append(s.categories, core.Category{
		ID:             uuid.NewString(),
		Name:           u.Name,
		Color:          u.Color,
		CreatedAt:      now,
		LastModifiedAt: now,
	})
	return nil
}

// DeleteCategory implements gateway.CategoryWriter. Expenses of the
// category are kept without a category.
func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(id)
	if i < 0 {
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	s.categories = slices.Delete(s.categories, i, i+1)
	for j := range s.expenses {
		if s.expenses[j].Category != nil && s.expenses[j].Category.ID == id {
			s.expenses[j].Category = nil
		}
	}
	return nil
}

func (s *Store) categoryIndex(id string) int {
	return slices.IndexFunc(s.categories, func(c core.Category) bool { return c.ID == id })
}

// withCategory refreshes the embedded category name.
func (s *Store) withCategory(e core.Expense) core.Expense {
	if e.Category == nil {
		return e
	}
	if i := s.categoryIndex(e.Category.ID); i >= 0 {
		ref := s.categories[i].Ref()
		e.Category = &ref
	}
	return e
}

func (s *Store) matchCategories(name string, sort core.SortKey) []core.Category {
	out := []core.Category{}
	for _, c := range s.categories {
		if containsFold(c.Name, name) {
			out = append(out, c)
		}
	}
	core.SortCategories(out, sort)
	return out
}

func matchesExpense(e core.Expense, c core.ExpenseCriteria) bool {
	if !containsFold(e.Name, c.Name) {
		return false
	}
	if len(c.CategoryIDs) > 0 && (e.Category == nil || !slices.Contains(c.CategoryIDs, e.Category.ID)) {
		return false
	}
	if !c.YearMonth.IsZero() && !c.YearMonth.Contains(e.Date) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	substr = strings.TrimSpace(substr)
	return substr == "" || strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func window[T any](items []T, offset, size int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+size, len(items))
	return slices.Clone(items[offset:end])
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
