package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensebook/internal/amqp"
	"expensebook/internal/core"
	"expensebook/internal/sheets"
)

// ExpenseReader loads the current state of an expense.
type ExpenseReader interface {
	GetExpense(ctx context.Context, id string) (core.Expense, error)
}

// SheetsMirror keeps a spreadsheet in step with expense change messages.
type SheetsMirror struct {
	store    ExpenseReader
	appender sheets.ExpenseAppender
	remover  sheets.ExpenseRemover
}

// NewSheetsMirror wires the mirror. A nil remover leaves deleted expenses
// in the sheet and lets edits append a second row.
func NewSheetsMirror(store ExpenseReader, appender sheets.ExpenseAppender, remover sheets.ExpenseRemover) *SheetsMirror {
	return &SheetsMirror{
		store:    store,
		appender: appender,
		remover:  remover,
	}
}

// HandleChange applies one change message. A returned error requeues it.
func (w *SheetsMirror) HandleChange(ctx context.Context, msg amqp.ChangeMessage) error {
	if msg.Resource != amqp.ResourceExpense {
		slog.DebugContext(ctx, "Ignoring change message", "resource", msg.Resource, "op", msg.Op, "id", msg.ID)
		return nil
	}

	slog.InfoContext(ctx, "Processing change message", "op", msg.Op, "id", msg.ID)
	switch msg.Op {
	case amqp.OpUpsert:
		return w.mirrorUpsert(ctx, msg.ID)
	case amqp.OpDelete:
		_, err := w.remove(ctx, msg.ID)
		return err
	default:
		return fmt.Errorf("unsupported operation %q", msg.Op)
	}
}

func (w *SheetsMirror) mirrorUpsert(ctx context.Context, id string) error {
	e, err := w.store.GetExpense(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before we got here; the delete message cleans up.
		slog.WarnContext(ctx, "Expense no longer exists, skipping sheet append", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	// Replace rows from earlier versions of the same expense.
	if _, err := w.remove(ctx, id); err != nil {
		return err
	}

	ref, err := w.appender.Append(ctx, e)
	if err != nil {
		return fmt.Errorf("append expense to sheets: %w", err)
	}
	slog.InfoContext(ctx, "Mirrored expense to sheets", "id", id, "sheets_ref", ref)
	return nil
}

func (w *SheetsMirror) remove(ctx context.Context, id string) (int, error) {
	if w.remover == nil {
		slog.WarnContext(ctx, "No expense remover configured, skipping sheet cleanup", "id", id)
		return 0, nil
	}
	n, err := w.remover.Remove(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("remove expense rows: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Removed expense rows from sheets", "id", id, "rows", n)
	}
	return n, nil
}
