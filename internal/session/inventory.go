package session

import (
	"context"

	"github.com/tillsync/tillsync/internal/record"
)

// CreateItem adds an inventory item optimistically and persists it.
func (e *Engine) CreateItem(ctx context.Context, item record.Record) (record.Record, error) {
	return e.create(ctx, "inventory", item)
}

// UpdateItem applies payload to an inventory item.
func (e *Engine) UpdateItem(ctx context.Context, id string, payload record.Record) (record.Record, error) {
	return e.update(ctx, "inventory", id, payload)
}

// RemoveItem deletes an inventory item.
func (e *Engine) RemoveItem(ctx context.Context, id string) error {
	return e.remove(ctx, "inventory", id)
}

// AdjustStock applies a signed delta to an item's stock.
//
// The delta is computed against the current cached value and clamped so
// the result is never negative; what gets persisted is the absolute
// clamped value, not the delta, which avoids depending on store-side
// atomic increments.
func (e *Engine) AdjustStock(ctx context.Context, id string, delta int64) (record.Record, error) {
	var current int64
	if item, ok := e.cache.get("inventory", id); ok {
		current = asInt64(item["stock"])
	}

	next := current + delta
	if next < 0 {
		next = 0
	}

	return e.update(ctx, "inventory", id, record.Record{"stock": next})
}

// Items returns the cached inventory rows.
func (e *Engine) Items() []record.Record {
	return e.cache.list("inventory")
}

// LoadInventory refreshes the inventory cache from the store. On failure
// the stale cache is served; reads never throw.
func (e *Engine) LoadInventory(ctx context.Context) []record.Record {
	return e.load(ctx, "inventory")
}

// asInt64 coerces the numeric types that reach records from JSON
// decoding (float64) and the SQLite driver (int64).
func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
