package session

import (
	"context"

	"github.com/tillsync/tillsync/internal/record"
)

// CreateCategory adds a product category.
func (e *Engine) CreateCategory(ctx context.Context, cat record.Record) (record.Record, error) {
	return e.create(ctx, "categories", cat)
}

// UpdateCategory applies payload to a category.
func (e *Engine) UpdateCategory(ctx context.Context, id string, payload record.Record) (record.Record, error) {
	return e.update(ctx, "categories", id, payload)
}

// RemoveCategory deletes a category.
func (e *Engine) RemoveCategory(ctx context.Context, id string) error {
	return e.remove(ctx, "categories", id)
}

// Categories returns the cached categories.
func (e *Engine) Categories() []record.Record {
	return e.cache.list("categories")
}

// LoadCategories refreshes the categories cache from the store.
func (e *Engine) LoadCategories(ctx context.Context) []record.Record {
	return e.load(ctx, "categories")
}
