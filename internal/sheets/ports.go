package sheets

import (
	"context"

	"expensebook/internal/core"
)

// Ports for the spreadsheet mirror.
type (
	// ExpenseAppender writes one expense as a new row.
	ExpenseAppender interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// ExpenseRemover clears the rows mirroring an expense id. It reports
	// how many rows were cleared.
	ExpenseRemover interface {
		Remove(ctx context.Context, id string) (int, error)
	}
)
