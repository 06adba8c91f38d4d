package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"expensebook/internal/amqp"
	"expensebook/internal/core"
	"expensebook/internal/storage"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []amqp.ChangeMessage
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, msg amqp.ChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestExpenseService_PublishesChanges(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewExpenseService(newRepo(t), pub)
	ctx := context.Background()

	e, err := svc.Upsert(ctx, core.ExpenseUpsert{Name: "Coffee", Amount: core.Money{Cents: 250}, Date: core.NewDate(2024, 1, 1)})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := svc.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(pub.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pub.msgs))
	}
	if pub.msgs[0].RoutingKey() != "expense.upsert" || pub.msgs[0].ID != e.ID {
		t.Errorf("unexpected upsert message %+v", pub.msgs[0])
	}
	if pub.msgs[1].RoutingKey() != "expense.delete" {
		t.Errorf("unexpected delete message %+v", pub.msgs[1])
	}
}

func TestExpenseService_PublishFailureDoesNotFailSave(t *testing.T) {
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc := NewExpenseService(newRepo(t), pub)

	e, err := svc.Upsert(context.Background(), core.ExpenseUpsert{Name: "Bus", Date: core.NewDate(2024, 1, 2)})
	if err != nil {
		t.Fatalf("save should succeed when publishing fails: %v", err)
	}
	if _, err := svc.Get(context.Background(), e.ID); err != nil {
		t.Fatalf("saved expense not found: %v", err)
	}
}

func TestExpenseService_NilPublisher(t *testing.T) {
	svc := NewExpenseService(newRepo(t), nil)
	if _, err := svc.Upsert(context.Background(), core.ExpenseUpsert{Name: "Tea", Date: core.NewDate(2024, 1, 3)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func TestExpenseService_ErrorsKeepSentinels(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewExpenseService(newRepo(t), pub)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, core.ExpenseUpsert{Name: "", Date: core.NewDate(2024, 1, 1)})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := svc.Delete(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if len(pub.msgs) != 0 {
		t.Errorf("failed writes must not publish, got %d messages", len(pub.msgs))
	}
}

func TestCategoryService(t *testing.T) {
	pub := &fakePublisher{}
	repo := newRepo(t)
	cats := NewCategoryService(repo, pub)
	exps := NewExpenseService(repo, nil)
	ctx := context.Background()

	c, err := cats.Upsert(ctx, core.CategoryUpsert{Name: "Food"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	e, err := exps.Upsert(ctx, core.ExpenseUpsert{Name: "Lunch", Date: core.NewDate(2024, 1, 1), CategoryID: c.ID})
	if err != nil {
		t.Fatalf("expense Upsert: %v", err)
	}
	if err := cats.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := exps.Get(ctx, e.ID)
	if err != nil || got.Category != nil {
		t.Fatalf("expense should survive without category: %+v err=%v", got, err)
	}
	if len(pub.msgs) != 2 || pub.msgs[1].RoutingKey() != "category.delete" {
		t.Fatalf("unexpected messages %+v", pub.msgs)
	}

	page, err := cats.List(ctx, core.CategoryCriteria{Size: 5})
	if err != nil || page.TotalElements != 0 {
		t.Fatalf("List: %+v err=%v", page, err)
	}
}
