// Package editor saves and deletes expenses and categories from a form,
// reports the outcome through a notifier and refreshes the list it came from.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"expensebook/internal/core"
	"expensebook/internal/gateway"
	"expensebook/internal/notify"
)

// Refresher reloads a list after a successful write.
// *listview.Controller implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Writer is the part of the gateway the editor needs.
type Writer interface {
	gateway.ExpenseWriter
	gateway.CategoryWriter
}

type Editor struct {
	gw       Writer
	notifier notify.Notifier
}

func New(gw Writer, n notify.Notifier) *Editor {
	if n == nil {
		n = notify.Discard
	}
	return &Editor{gw: gw, notifier: n}
}

// SaveExpense validates u and upserts it. Validation errors are returned
// without reaching the gateway. On success refresh is reloaded when non-nil.
func (e *Editor) SaveExpense(ctx context.Context, u core.ExpenseUpsert, refresh Refresher) error {
	u = u.Normalize()
	if err := u.Validate(); err != nil {
		return err
	}
	if err := e.gw.UpsertExpense(ctx, u); err != nil {
		e.notifier.Warn("Could not save expense", err)
		return fmt.Errorf("save expense: %w", err)
	}
	e.notifier.Success("Expense saved")
	e.refresh(ctx, refresh)
	return nil
}

func (e *Editor) DeleteExpense(ctx context.Context, id string, refresh Refresher) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &core.ValidationError{Field: "id", Reason: "id is required"}
	}
	if err := e.gw.DeleteExpense(ctx, id); err != nil {
		e.notifier.Warn("Could not delete expense", err)
		return fmt.Errorf("delete expense: %w", err)
	}
	e.notifier.Success("Expense deleted")
	e.refresh(ctx, refresh)
	return nil
}

func (e *Editor) SaveCategory(ctx context.Context, u core.CategoryUpsert, refresh Refresher) error {
	u = u.Normalize()
	if err := u.Validate(); err != nil {
		return err
	}
	if err := e.gw.UpsertCategory(ctx, u); err != nil {
		e.notifier.Warn("Could not save category", err)
		return fmt.Errorf("save category: %w", err)
	}
	e.notifier.Success("Category saved")
	e.refresh(ctx, refresh)
	return nil
}

func (e *Editor) DeleteCategory(ctx context.Context, id string, refresh Refresher) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &core.ValidationError{Field: "id", Reason: "id is required"}
	}
	if err := e.gw.DeleteCategory(ctx, id); err != nil {
		e.notifier.Warn("Could not delete category", err)
		return fmt.Errorf("delete category: %w", err)
	}
	e.notifier.Success("Category deleted")
	e.refresh(ctx, refresh)
	return nil
}

// The write already succeeded, so a failed reload is only logged.
func (e *Editor) refresh(ctx context.Context, r Refresher) {
	if isNil(r) {
		return
	}
	if err := r.Refresh(ctx); err != nil {
		slog.WarnContext(ctx, "Refresh after write failed", "error", err)
	}
}

// isNil also catches a nil pointer stored in the interface, such as a
// (*listview.Controller)(nil).
func isNil(r Refresher) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
