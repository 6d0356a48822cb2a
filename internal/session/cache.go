package session

import (
	"sort"
	"sync"

	"github.com/tillsync/tillsync/internal/record"
)

// EntryState tags a cache entry's lifecycle.
type EntryState int

const (
	// StateCommitted: the entry mirrors the last known server state.
	StateCommitted EntryState = iota
	// StateOptimistic: the entry reflects a not-yet-acknowledged local
	// mutation.
	StateOptimistic
	// StateRollingBack: the entry's mutation failed remotely and its
	// pre-mutation value is being restored.
	StateRollingBack
)

// entry is one cached record with its lifecycle tag.
type entry struct {
	rec   record.Record
	state EntryState
}

// cache is the session's in-memory mirror of the backing store.
//
// Owned exclusively by the Engine: mutation happens only through Engine
// command methods, readers get clones. The invariant it protects: at any
// observable point an entry is either the last known committed server
// state or the current optimistic state of a single in-flight mutation.
// Two concurrent optimistic mutations on one record are not merged - the
// later one supersedes the earlier entry.
type cache struct {
	mu     sync.RWMutex
	tables map[string]map[string]entry
}

func newCache() *cache {
	return &cache{tables: make(map[string]map[string]entry)}
}

// get returns a clone of the entry's record.
func (c *cache) get(table, id string) (record.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.tables[table][id]
	if !ok {
		return nil, false
	}
	return e.rec.Clone(), true
}

// list returns clones of every record in a table, ordered by id for
// stable iteration.
func (c *cache) list(table string) []record.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows := c.tables[table]
	out := make([]record.Record, 0, len(rows))
	for _, e := range rows {
		out = append(out, e.rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// put stores a clone of rec under the given state, superseding any prior
// entry for the id.
func (c *cache) put(table string, rec record.Record, state EntryState) {
	id := rec.ID()
	if id == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tables[table] == nil {
		c.tables[table] = make(map[string]entry)
	}
	c.tables[table][id] = entry{rec: rec.Clone(), state: state}
}

// remove deletes an entry, returning its prior record for rollback.
func (c *cache) remove(table, id string) (record.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.tables[table][id]
	if !ok {
		return nil, false
	}
	delete(c.tables[table], id)
	return e.rec, true
}

// markRollingBack flags an entry while its pre-mutation value is being
// restored. Missing entries (failed creates) are fine to skip.
func (c *cache) markRollingBack(table, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.tables[table][id]; ok {
		e.state = StateRollingBack
		c.tables[table][id] = e
	}
}

// replaceTable swaps a table's full contents for freshly loaded committed
// rows.
func (c *cache) replaceTable(table string, rows []record.Record) {
	next := make(map[string]entry, len(rows))
	for _, rec := range rows {
		if id := rec.ID(); id != "" {
			next[id] = entry{rec: rec.Clone(), state: StateCommitted}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[table] = next
}

// mergeInto applies a replicated UPDATE: incoming fields overlay the
// cached record. Unknown ids are stored as-is (the local session may not
// have loaded that row yet).
func (c *cache) mergeInto(table string, rec record.Record) {
	id := rec.ID()
	if id == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tables[table] == nil {
		c.tables[table] = make(map[string]entry)
	}
	if prior, ok := c.tables[table][id]; ok {
		c.tables[table][id] = entry{rec: prior.rec.Merge(rec), state: StateCommitted}
		return
	}
	c.tables[table][id] = entry{rec: rec.Clone(), state: StateCommitted}
}
