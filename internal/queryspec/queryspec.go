// Package queryspec defines the declarative operation protocol: a JSON
// description of one CRUD operation against a named table, plus the
// identifier guard that makes dynamic identifiers safe to interpolate.
//
// The protocol is deliberately small. It is not a query language: no
// joins, no aggregation, no multi-table transactions. Filters are
// restricted to equality and membership, and every identifier that could
// reach SQL text must pass IsSafeIdentifier first. Data values never
// travel through identifiers - they are always bound as parameters by the
// compiler.
package queryspec

import (
	"regexp"

	"github.com/tillsync/tillsync/internal/record"
)

// Action identifies one of the five supported operation verbs.
//
// This is a closed set dispatched once at the gateway boundary.
// Anything else is rejected explicitly rather than defaulting to a read.
type Action string

const (
	ActionSelect Action = "select"
	ActionInsert Action = "insert"
	ActionUpsert Action = "upsert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the five supported verbs.
func (a Action) Valid() bool {
	switch a {
	case ActionSelect, ActionInsert, ActionUpsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// FilterOp identifies a filter comparison.
type FilterOp string

const (
	// FilterEq compiles to "col" = ?.
	FilterEq FilterOp = "eq"
	// FilterIn compiles to "col" IN (?, ...), or to a clause matching
	// zero rows when the value set is empty.
	FilterIn FilterOp = "in"
)

// Filter is one WHERE condition. Eq uses Value; In uses Values.
//
// A filter whose Column fails the identifier guard is silently skipped by
// the compiler rather than failing the operation. That looseness is
// observed protocol behavior callers rely on; tightening it would change
// result sets under malformed input.
type Filter struct {
	Op     FilterOp `json:"op"`
	Column string   `json:"column"`
	Value  any      `json:"value,omitempty"`
	Values []any    `json:"values,omitempty"`
}

// Order describes the ORDER BY clause. Direction is DESC only when
// Ascending is explicitly false; absent or true means ASC.
type Order struct {
	Column    string `json:"column"`
	Ascending *bool  `json:"ascending,omitempty"`
}

// OperationSpec is the declarative description of one CRUD operation.
//
// Rows carries the batch for insert/upsert; Payload carries the SET map
// for update. Limit is kept as a JSON number so the compiler can apply
// the finite-positive-floored rule instead of silently truncating.
type OperationSpec struct {
	Action     Action          `json:"action"`
	Table      string          `json:"table"`
	Columns    []string        `json:"columns,omitempty"`
	Filters    []Filter        `json:"filters,omitempty"`
	Order      *Order          `json:"order,omitempty"`
	Limit      *float64        `json:"limit,omitempty"`
	Rows       []record.Record `json:"rows,omitempty"`
	Payload    record.Record   `json:"payload,omitempty"`
	OnConflict string          `json:"onConflict,omitempty"`
	Returning  bool            `json:"returning,omitempty"`
}

// safeIdentifier is the sole injection defense for identifiers. Bound
// values are parameterized separately and never pass through here.
var safeIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsSafeIdentifier reports whether value may be interpolated into SQL
// text as a table or column name. Pure function, no side effects.
func IsSafeIdentifier(value string) bool {
	return safeIdentifier.MatchString(value)
}

// SafeColumns filters cols down to the identifier-safe subset, preserving
// order. Unsafe entries are dropped, not rejected.
func SafeColumns(cols []string) []string {
	var out []string
	for _, c := range cols {
		if IsSafeIdentifier(c) {
			out = append(out, c)
		}
	}
	return out
}
