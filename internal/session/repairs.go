package session

import (
	"context"

	"github.com/tillsync/tillsync/internal/record"
)

// CreateRepair records a new repair job.
func (e *Engine) CreateRepair(ctx context.Context, job record.Record) (record.Record, error) {
	return e.create(ctx, "repairs", job)
}

// UpdateRepair applies payload to a repair job (status changes, cost).
func (e *Engine) UpdateRepair(ctx context.Context, id string, payload record.Record) (record.Record, error) {
	return e.update(ctx, "repairs", id, payload)
}

// RemoveRepair deletes a repair job.
func (e *Engine) RemoveRepair(ctx context.Context, id string) error {
	return e.remove(ctx, "repairs", id)
}

// Repairs returns the cached repair jobs.
func (e *Engine) Repairs() []record.Record {
	return e.cache.list("repairs")
}

// LoadRepairs refreshes the repairs cache from the store.
func (e *Engine) LoadRepairs(ctx context.Context) []record.Record {
	return e.load(ctx, "repairs")
}
