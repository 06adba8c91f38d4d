package services

import (
	"context"
	"fmt"
	"log/slog"

	"expensebook/internal/amqp"
	"expensebook/internal/core"
)

// Publisher sends change messages. *amqp.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, msg amqp.ChangeMessage) error
}

// ExpenseStore is the persistence used by ExpenseService.
type ExpenseStore interface {
	ListExpenses(ctx context.Context, c core.ExpenseCriteria) (core.Page[core.Expense], error)
	AllExpenses(ctx context.Context, c core.AllExpenseCriteria) ([]core.Expense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	UpsertExpense(ctx context.Context, u core.ExpenseUpsert) (core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
}

// ExpenseService orchestrates expense operations across storage and AMQP.
// A nil publisher disables change messages.
type ExpenseService struct {
	storage   ExpenseStore
	publisher Publisher
}

func NewExpenseService(storage ExpenseStore, publisher Publisher) *ExpenseService {
	return &ExpenseService{
		storage:   storage,
		publisher: publisher,
	}
}

// List returns one page of expenses.
func (s *ExpenseService) List(ctx context.Context, c core.ExpenseCriteria) (core.Page[core.Expense], error) {
	page, err := s.storage.ListExpenses(ctx, c)
	if err != nil {
		return core.Page[core.Expense]{}, fmt.Errorf("list expenses: %w", err)
	}
	return page, nil
}

// All returns every matching expense.
func (s *ExpenseService) All(ctx context.Context, c core.AllExpenseCriteria) ([]core.Expense, error) {
	items, err := s.storage.AllExpenses(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("list all expenses: %w", err)
	}
	return items, nil
}

// Get returns one expense.
func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.storage.GetExpense(ctx, id)
}

// Upsert saves the expense and announces the change. A failed publish is
// logged; the saved expense is still returned.
func (s *ExpenseService) Upsert(ctx context.Context, u core.ExpenseUpsert) (core.Expense, error) {
	e, err := s.storage.UpsertExpense(ctx, u)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.ResourceExpense, amqp.OpUpsert, e.ID))
	return e, nil
}

// Delete removes the expense and announces the change.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.storage.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.ResourceExpense, amqp.OpDelete, id))
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, msg amqp.ChangeMessage) {
	publishChange(ctx, s.publisher, msg)
}

func publishChange(ctx context.Context, p Publisher, msg amqp.ChangeMessage) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping change message", "resource", msg.Resource, "id", msg.ID)
		return
	}
	if err := p.Publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"resource", msg.Resource,
			"op", msg.Op,
			"id", msg.ID,
			"error", err)
	}
}
