package gateway

import (
	"context"

	"expensebook/internal/core"
)

// Ports for the remote data service.
type (
	ExpensePager interface {
		FetchExpensePage(ctx context.Context, c core.ExpenseCriteria) (core.Page[core.Expense], error)
	}

	// ExpenseLister returns every matching expense without paging.
	ExpenseLister interface {
		FetchAllExpenses(ctx context.Context, c core.AllExpenseCriteria) ([]core.Expense, error)
	}

	ExpenseWriter interface {
		UpsertExpense(ctx context.Context, u core.ExpenseUpsert) error
		// DeleteExpense removes an expense. Unknown ids report core.ErrNotFound.
		DeleteExpense(ctx context.Context, id string) error
	}

	CategoryPager interface {
		FetchCategoryPage(ctx context.Context, c core.CategoryCriteria) (core.Page[core.Category], error)
	}

	CategoryLister interface {
		FetchAllCategories(ctx context.Context, c core.AllCategoryCriteria) ([]core.Category, error)
	}

	CategoryWriter interface {
		UpsertCategory(ctx context.Context, u core.CategoryUpsert) error
		DeleteCategory(ctx context.Context, id string) error
	}

	// Gateway is the full remote data surface used by the client.
	Gateway interface {
		ExpensePager
		ExpenseLister
		ExpenseWriter
		CategoryPager
		CategoryLister
		CategoryWriter
	}
)
