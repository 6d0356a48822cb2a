// Package record defines the schema-less row representation shared by the
// query protocol and the client-side cache.
//
// A Record is a plain column→value mapping. The protocol is schema-less on
// purpose: the backing store owns column types, and callers narrow values
// only after the identifier guard has filtered keys. Every record carries
// a string primary key under "id" and, by convention, a "tenant_id"
// identifying the shop it belongs to.
package record

// Record maps column names to scalar or JSON-serializable values.
type Record map[string]any

// ID returns the primary key, or "" when absent or not a string.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// TenantID returns the shop identifier, or "" when absent.
func (r Record) TenantID() string {
	t, _ := r["tenant_id"].(string)
	return t
}

// Clone returns a shallow copy. Values are shared; the map is not.
// The cache keeps clones so optimistic rollback can restore the exact
// pre-mutation entry.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge overlays src onto a copy of r, field by field. Used when applying
// replicated UPDATE events: incoming fields win over cached ones.
func (r Record) Merge(src Record) Record {
	out := r.Clone()
	if out == nil {
		out = make(Record, len(src))
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Present reports whether the value counts as set for merge precedence:
// non-nil and, for strings, non-empty. Numeric zero counts as present
// (a stock of 0 is real data).
func Present(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}
