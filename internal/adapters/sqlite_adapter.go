package adapters

import (
	"context"

	"expensebook/internal/core"
	"expensebook/internal/gateway"
	"expensebook/internal/services"
)

// ServiceAdapter exposes the local services as a gateway.Gateway, so the
// list and edit flows run unchanged against a local database. Writes go
// through the services and still publish change messages.
type ServiceAdapter struct {
	expenses   *services.ExpenseService
	categories *services.CategoryService
}

var _ gateway.Gateway = (*ServiceAdapter)(nil)

func NewServiceAdapter(expenses *services.ExpenseService, categories *services.CategoryService) *ServiceAdapter {
	return &ServiceAdapter{
		expenses:   expenses,
		categories: categories,
	}
}

// FetchExpensePage implements gateway.ExpensePager
func (a *ServiceAdapter) FetchExpensePage(ctx context.Context, c core.ExpenseCriteria) (core.Page[core.Expense], error) {
	return a.expenses.List(ctx, c)
}

// FetchAllExpenses implements gateway.ExpenseLister
func (a *ServiceAdapter) FetchAllExpenses(ctx context.Context, c core.AllExpenseCriteria) ([]core.Expense, error) {
	return a.expenses.All(ctx, c)
}

// UpsertExpense implements gateway.ExpenseWriter
func (a *ServiceAdapter) UpsertExpense(ctx context.Context, u core.ExpenseUpsert) error {
	_, err := a.expenses.Upsert(ctx, u)
	return err
}

// DeleteExpense implements gateway.ExpenseWriter
func (a *ServiceAdapter) DeleteExpense(ctx context.Context, id string) error {
	return a.expenses.Delete(ctx, id)
}

// FetchCategoryPage implements gateway.CategoryPager
func (a *ServiceAdapter) FetchCategoryPage(ctx context.Context, c core.CategoryCriteria) (core.Page[core.Category], error) {
	return a.categories.List(ctx, c)
}

// FetchAllCategories implements gateway.CategoryLister
func (a *ServiceAdapter) FetchAllCategories(ctx context.Context, c core.AllCategoryCriteria) ([]core.Category, error) {
	return a.categories.All(ctx, c)
}

// UpsertCategory implements gateway.CategoryWriter
func (a *ServiceAdapter) UpsertCategory(ctx context.Context, u core.CategoryUpsert) error {
	_, err := a.categories.Upsert(ctx, u)
	return err
}

// DeleteCategory implements gateway.CategoryWriter
func (a *ServiceAdapter) DeleteCategory(ctx context.Context, id string) error {
	return a.categories.Delete(ctx, id)
}
