package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"expensebook/internal/core"
)

// RepositoryTestSuite runs every test on a fresh database file.
type RepositoryTestSuite struct {
	suite.Suite
	path string
	repo *SQLiteRepository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	// The migration connection is separate, so an in-memory database would not see the schema.
	s.path = filepath.Join(s.T().TempDir(), "nested", "expenses.db")
	repo, err := NewSQLiteRepository(s.path)
	require.NoError(s.T(), err, "failed to create test database")

	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	s.repo = repo.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) category(name string) core.Category {
	c, err := s.repo.UpsertCategory(s.ctx, core.CategoryUpsert{Name: name})
	require.NoError(s.T(), err)
	return c
}

func (s *RepositoryTestSuite) expense(name string, cents int64, date core.Date, categoryID string) core.Expense {
	e, err := s.repo.UpsertExpense(s.ctx, core.ExpenseUpsert{Name: name, Amount: core.Money{Cents: cents}, Date: date, CategoryID: categoryID})
	require.NoError(s.T(), err, "failed to create expense: %s", name)
	return e
}

func (s *RepositoryTestSuite) TestMigrationsApplied() {
	v, dirty, err := SchemaVersion(dsn(s.path))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint(1), v)
	assert.False(s.T(), dirty)

	// Reopening must not fail on an already migrated file.
	again, err := NewSQLiteRepository(s.path)
	require.NoError(s.T(), err)
	again.Close()
}

func (s *RepositoryTestSuite) TestCreateAndGetExpense() {
	food := s.category("Food")
	e := s.expense("Coffee", 250, core.NewDate(2024, 1, 3), food.ID)

	assert.NotEmpty(s.T(), e.ID)
	got, err := s.repo.GetExpense(s.ctx, e.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Coffee", got.Name)
	assert.Equal(s.T(), int64(250), got.Amount.Cents)
	assert.Equal(s.T(), "2024-01-03", got.Date.String())
	require.NotNil(s.T(), got.Category)
	assert.Equal(s.T(), "Food", got.Category.Name)
	assert.False(s.T(), got.CreatedAt.IsZero())
}

func (s *RepositoryTestSuite) TestUpdateExpense() {
	e := s.expense("Bus", 150, core.NewDate(2024, 1, 4), "")
	updated, err := s.repo.UpsertExpense(s.ctx, core.ExpenseUpsert{ID: e.ID, Name: "Train", Amount: core.Money{Cents: 900}, Date: e.Date})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Train", updated.Name)
	assert.True(s.T(), e.CreatedAt.Equal(updated.CreatedAt))

	_, err = s.repo.UpsertExpense(s.ctx, core.ExpenseUpsert{ID: "missing", Name: "x", Date: e.Date})
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestUpsertRejectsInvalidInput() {
	_, err := s.repo.UpsertExpense(s.ctx, core.ExpenseUpsert{Name: "", Date: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(s.T(), err, core.ErrValidation)

	_, err = s.repo.UpsertExpense(s.ctx, core.ExpenseUpsert{Name: "x", Date: core.NewDate(2024, 1, 1), CategoryID: "nope"})
	assert.ErrorIs(s.T(), err, core.ErrValidation)

	_, err = s.repo.UpsertCategory(s.ctx, core.CategoryUpsert{Name: "   "})
	assert.ErrorIs(s.T(), err, core.ErrValidation)
}

func (s *RepositoryTestSuite) TestListExpensesFiltersAndPages() {
	food := s.category("Food")
	travel := s.category("Travel")
	s.expense("Coffee", 250, core.NewDate(2024, 1, 3), food.ID)
	s.expense("bus", 150, core.NewDate(2024, 1, 4), travel.ID)
	s.expense("coffee beans", 1200, core.NewDate(2024, 2, 1), food.ID)
	s.expense("100%_pure", 100, core.NewDate(2024, 2, 2), "")

	page, err := s.repo.ListExpenses(s.ctx, core.ExpenseCriteria{Size: 10, Sort: core.SortNameAsc, Name: "COFFEE"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, page.TotalElements)
	assert.True(s.T(), page.Last)

	page, err = s.repo.ListExpenses(s.ctx, core.ExpenseCriteria{Size: 10, CategoryIDs: []string{food.ID, travel.ID}, YearMonth: core.Period{Year: 2024, Month: time.January}})
	require.NoError(s.T(), err)
	assert.Len(s.T(), page.Content, 2)

	page, err = s.repo.ListExpenses(s.ctx, core.ExpenseCriteria{Size: 10, Name: "%_"})
	require.NoError(s.T(), err)
	require.Len(s.T(), page.Content, 1, "LIKE wildcards must match literally")
	assert.Equal(s.T(), "100%_pure", page.Content[0].Name)

	first, err := s.repo.ListExpenses(s.ctx, core.ExpenseCriteria{Page: 0, Size: 3, Sort: core.SortDateDesc})
	require.NoError(s.T(), err)
	second, err := s.repo.ListExpenses(s.ctx, core.ExpenseCriteria{Page: 1, Size: 3, Sort: core.SortDateDesc})
	require.NoError(s.T(), err)
	assert.Len(s.T(), first.Content, 3)
	assert.False(s.T(), first.Last)
	assert.Equal(s.T(), "100%_pure", first.Content[0].Name)
	assert.Len(s.T(), second.Content, 1)
	assert.True(s.T(), second.Last)
	assert.Equal(s.T(), "Coffee", second.Content[0].Name)
}

func (s *RepositoryTestSuite) TestSortIsCaseInsensitive() {
	for _, n := range []string{"b", "A", "c"} {
		s.expense(n, 1, core.NewDate(2024, 1, 1), "")
	}
	all, err := s.repo.AllExpenses(s.ctx, core.AllExpenseCriteria{Sort: core.SortNameAsc})
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 3)
	assert.Equal(s.T(), []string{"A", "b", "c"}, []string{all[0].Name, all[1].Name, all[2].Name})

	all, err = s.repo.AllExpenses(s.ctx, core.AllExpenseCriteria{Sort: core.SortCreatedAtDesc})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "c", all[0].Name)
}

func (s *RepositoryTestSuite) TestEmptyPageHasNoNilContent() {
	page, err := s.repo.ListExpenses(s.ctx, core.ExpenseCriteria{Page: 3, Size: 5})
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), page.Content)
	assert.Empty(s.T(), page.Content)
	assert.True(s.T(), page.Last)
}

func (s *RepositoryTestSuite) TestDeleteCategoryDetachesExpenses() {
	food := s.category("Food")
	e := s.expense("Coffee", 250, core.NewDate(2024, 1, 3), food.ID)

	require.NoError(s.T(), s.repo.DeleteCategory(s.ctx, food.ID))
	got, err := s.repo.GetExpense(s.ctx, e.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), got.Category)

	assert.ErrorIs(s.T(), s.repo.DeleteCategory(s.ctx, food.ID), core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeleteExpense() {
	e := s.expense("Coffee", 250, core.NewDate(2024, 1, 3), "")
	require.NoError(s.T(), s.repo.DeleteExpense(s.ctx, e.ID))
	_, err := s.repo.GetExpense(s.ctx, e.ID)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
	assert.ErrorIs(s.T(), s.repo.DeleteExpense(s.ctx, e.ID), core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestCategoriesListAndUpdate() {
	s.category("b")
	a := s.category("A")
	s.category("c")

	page, err := s.repo.ListCategories(s.ctx, core.CategoryCriteria{Size: 2, Sort: core.SortNameAsc})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 3, page.TotalElements)
	assert.False(s.T(), page.Last)
	assert.Equal(s.T(), "A", page.Content[0].Name)

	updated, err := s.repo.UpsertCategory(s.ctx, core.CategoryUpsert{ID: a.ID, Name: "Alpha", Color: "#ff0000"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "#ff0000", updated.Color)
	assert.True(s.T(), updated.LastModifiedAt.After(a.LastModifiedAt))
	assert.True(s.T(), updated.CreatedAt.Equal(a.CreatedAt))

	all, err := s.repo.AllCategories(s.ctx, core.AllCategoryCriteria{Name: "alp"})
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 1)
	assert.Equal(s.T(), a.ID, all[0].ID)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
