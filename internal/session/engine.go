// Package session implements the client-side optimistic mutation engine:
// per-entity create/update/remove operations that mutate the local cache
// synchronously, persist remotely, reconcile the cache with whatever the
// store echoed back, roll back on failure, and replicate committed
// changes to other sessions on the same tenant.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tillsync/tillsync/internal/client"
	"github.com/tillsync/tillsync/internal/record"
	"github.com/tillsync/tillsync/internal/replication"
	"github.com/tillsync/tillsync/internal/snapshot"
)

// ReconciliationError is thrown from a mutation whose remote persist
// failed after the optimistic cache write. The cache has already been
// rolled back when callers see it; Err carries the backing store's
// message so the caller can surface it.
type ReconciliationError struct {
	Op  string
	Err error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// Engine owns one session's cache and mutation lifecycle.
//
// Every mutation follows the same machine:
//
//	Idle → OptimisticApplied → {Reconciled | RolledBack}
//
// The optimistic apply is synchronous - callers observe the change before
// any network round trip. Reconciliation replaces the cache entry with
// the canonical row the store echoed back and broadcasts on the tenant's
// replication topic. Rollback restores the exact pre-mutation entry and
// rethrows.
type Engine struct {
	tenantID  string
	client    *client.Client
	broker    *replication.Broker
	snapshots *snapshot.Store
	cache     *cache

	mu   sync.Mutex
	seen map[string]int // self-committed action+id echoes pending on the live stream
	sub  *replication.Subscription
	done chan struct{}
}

// NewEngine creates a session engine for one tenant. The broker and
// snapshot store may be shared across sessions; the cache never is.
func NewEngine(tenantID string, c *client.Client, b *replication.Broker, snaps *snapshot.Store) *Engine {
	return &Engine{
		tenantID:  tenantID,
		client:    c,
		broker:    b,
		snapshots: snaps,
		cache:     newCache(),
		seen:      make(map[string]int),
	}
}

// TenantID returns the tenant this session operates under.
func (e *Engine) TenantID() string { return e.tenantID }

// Start subscribes to the tenant's replication topic and applies
// incoming events until Close. Safe to skip for single-session use.
func (e *Engine) Start() {
	if e.sub != nil {
		return
	}
	e.sub = e.broker.Subscribe(e.tenantID)
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		for ev := range e.sub.C {
			e.applyEvent(ev)
		}
	}()
}

// Close detaches from the replication topic.
func (e *Engine) Close() {
	if e.sub == nil {
		return
	}
	e.sub.Close()
	<-e.done
	e.sub = nil
}

// applyEvent folds one replicated mutation into the cache. Events for a
// different tenant are ignored; events for records this session just
// committed itself are de-duplicated against the optimistic apply.
func (e *Engine) applyEvent(ev replication.Event) {
	if ev.Data.TenantID() != e.tenantID {
		return
	}
	if e.consumeSeen(ev.Action, ev.Data.ID()) {
		return
	}

	switch ev.Action {
	case replication.ActionInsert:
		if _, ok := e.cache.get(ev.Table, ev.Data.ID()); ok {
			return
		}
		e.cache.put(ev.Table, ev.Data, StateCommitted)
	case replication.ActionUpdate:
		e.cache.mergeInto(ev.Table, ev.Data)
	case replication.ActionDelete:
		e.cache.remove(ev.Table, ev.Data.ID())
	}
}

// markSeen records that this session committed this mutation itself, so
// the echo on its own live stream must not be re-applied. Keyed by
// action+id: an own UPDATE echo must not swallow a peer's INSERT or
// DELETE for the same record.
func (e *Engine) markSeen(action replication.Action, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen[string(action)+":"+id]++
}

func (e *Engine) consumeSeen(action replication.Action, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := string(action) + ":" + id
	if e.seen[key] == 0 {
		return false
	}
	e.seen[key]--
	if e.seen[key] == 0 {
		delete(e.seen, key)
	}
	return true
}

// publish broadcasts a committed mutation on the tenant's topic. The
// mutation is marked seen only while a live subscription exists: with no
// subscription there is no echo to de-duplicate, and a stale entry would
// swallow a real peer event arriving after a later Start.
func (e *Engine) publish(action replication.Action, table string, data record.Record) {
	if e.sub != nil {
		e.markSeen(action, data.ID())
	}
	e.broker.Publish(e.tenantID, replication.Event{
		Action: action,
		Table:  table,
		Data:   data,
	})
}

// create runs the mutation machine for a new record: optimistic insert
// into the cache, remote persist, reconcile with the echoed row or roll
// back and rethrow. A retried create can collide with an id that is
// already committed, so rollback restores the prior entry rather than
// assuming there was none.
func (e *Engine) create(ctx context.Context, table string, rec record.Record) (record.Record, error) {
	rec = rec.Clone()
	if rec.ID() == "" {
		rec["id"] = uuid.NewString()
	}
	rec["tenant_id"] = e.tenantID
	id := rec.ID()

	prior, had := e.cache.get(table, id)
	e.cache.put(table, rec, StateOptimistic)

	res, err := e.client.From(table).Insert(rec).Select().Single().Exec(ctx)
	if err != nil {
		e.rollback(table, id, prior, had)
		return nil, &ReconciliationError{Op: "create " + table, Err: err}
	}

	committed := res.Row
	e.cache.put(table, committed, StateCommitted)
	e.publish(replication.ActionInsert, table, committed)
	return committed.Clone(), nil
}

// update runs the mutation machine for an existing record.
func (e *Engine) update(ctx context.Context, table, id string, payload record.Record) (record.Record, error) {
	prior, had := e.cache.get(table, id)

	optimistic := prior.Merge(payload)
	optimistic["id"] = id
	e.cache.put(table, optimistic, StateOptimistic)

	res, err := e.client.From(table).Update(payload).Eq("id", id).Select().MaybeSingle().Exec(ctx)
	if err != nil {
		e.rollback(table, id, prior, had)
		return nil, &ReconciliationError{Op: "update " + table, Err: err}
	}

	committed := res.Row
	if committed == nil {
		// Store acknowledged without echoing a row; the optimistic
		// merge is the best known state.
		committed = optimistic
	}
	e.cache.put(table, committed, StateCommitted)
	e.publish(replication.ActionUpdate, table, committed)
	return committed.Clone(), nil
}

// remove runs the mutation machine for a deletion.
func (e *Engine) remove(ctx context.Context, table, id string) error {
	prior, had := e.cache.remove(table, id)

	if _, err := e.client.From(table).Delete().Eq("id", id).Exec(ctx); err != nil {
		e.rollback(table, id, prior, had)
		return &ReconciliationError{Op: "delete " + table, Err: err}
	}

	e.publish(replication.ActionDelete, table, record.Record{
		"id":        id,
		"tenant_id": e.tenantID,
	})
	return nil
}

// rollback restores the exact pre-mutation cache entry. For a failed
// create there is no prior entry, so the id is removed instead. Rollback
// only touches in-memory state and therefore always succeeds.
func (e *Engine) rollback(table, id string, prior record.Record, had bool) {
	e.cache.markRollingBack(table, id)
	if had {
		e.cache.put(table, prior, StateCommitted)
		return
	}
	e.cache.remove(table, id)
}

// load replaces a table's cache contents from the remote store, filtered
// to this tenant. Reads never throw: on failure the stale cache stands
// and the cached rows are returned.
func (e *Engine) load(ctx context.Context, table string) []record.Record {
	res, err := e.client.From(table).Select().Eq("tenant_id", e.tenantID).Exec(ctx)
	if err != nil {
		slog.Warn("load failed, serving cached rows", "table", table, "error", err)
		return e.cache.list(table)
	}
	e.cache.replaceTable(table, res.Rows)
	return e.cache.list(table)
}
