package services

import (
	"context"
	"fmt"

	"expensebook/internal/amqp"
	"expensebook/internal/core"
)

// CategoryStore is the persistence used by CategoryService.
type CategoryStore interface {
	ListCategories(ctx context.Context, c core.CategoryCriteria) (core.Page[core.Category], error)
	AllCategories(ctx context.Context, c core.AllCategoryCriteria) ([]core.Category, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
	UpsertCategory(ctx context.Context, u core.CategoryUpsert) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// CategoryService orchestrates category operations across storage and AMQP.
type CategoryService struct {
	storage   CategoryStore
	publisher Publisher
}

func NewCategoryService(storage CategoryStore, publisher Publisher) *CategoryService {
	return &CategoryService{storage: storage, publisher: publisher}
}

// List returns one page of categories.
func (s *CategoryService) List(ctx context.Context, c core.CategoryCriteria) (core.Page[core.Category], error) {
	page, err := s.storage.ListCategories(ctx, c)
	if err != nil {
		return core.Page[core.Category]{}, fmt.Errorf("list categories: %w", err)
	}
	return page, nil
}

// All returns every matching category.
func (s *CategoryService) All(ctx context.Context, c core.AllCategoryCriteria) ([]core.Category, error) {
	items, err := s.storage.AllCategories(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("list all categories: %w", err)
	}
	return items, nil
}

// Upsert saves the category and announces the change.
func (s *CategoryService) Upsert(ctx context.Context, u core.CategoryUpsert) (core.Category, error) {
	c, err := s.storage.UpsertCategory(ctx, u)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	publishChange(ctx, s.publisher, amqp.NewChangeMessage(amqp.ResourceCategory, amqp.OpUpsert, c.ID))
	return c, nil
}

// Delete removes the category. Its expenses are kept without a category.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.storage.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	publishChange(ctx, s.publisher, amqp.NewChangeMessage(amqp.ResourceCategory, amqp.OpDelete, id))
	return nil
}
