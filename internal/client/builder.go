package client

import (
	"context"
	"errors"

	"github.com/tillsync/tillsync/internal/queryspec"
	"github.com/tillsync/tillsync/internal/record"
)

// ErrNoRows is returned by Exec when Single was requested and the
// response carried zero rows.
var ErrNoRows = errors.New("expected a single row but none were returned")

// Client creates builders bound to one transport.
type Client struct {
	transport Transport
}

// NewClient creates a Client over the given transport.
func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

// From starts a builder for the given table. The default action is
// select; calling Insert/Upsert/Update/Delete switches it.
func (c *Client) From(table string) *Builder {
	return &Builder{
		transport: c.transport,
		spec: queryspec.OperationSpec{
			Action: queryspec.ActionSelect,
			Table:  table,
		},
	}
}

// resultShape is the single/maybeSingle contract chosen on the builder.
type resultShape int

const (
	shapeRows resultShape = iota
	shapeSingle
	shapeMaybeSingle
)

// Builder accumulates an OperationSpec through chained calls and sends it
// on Exec. Nothing is transmitted until Exec; the chain only records
// intent.
type Builder struct {
	transport Transport
	spec      queryspec.OperationSpec
	shape     resultShape
}

// Result carries the rows of an executed operation. Row is populated only
// under the Single/MaybeSingle contracts.
type Result struct {
	Rows []record.Record
	Row  record.Record
}

// Select sets the projected columns. On a mutation builder it also
// requests RETURNING so the echoed rows come back.
func (b *Builder) Select(cols ...string) *Builder {
	b.spec.Columns = cols
	if b.spec.Action != queryspec.ActionSelect {
		b.spec.Returning = true
	}
	return b
}

// Eq adds an equality filter.
func (b *Builder) Eq(column string, value any) *Builder {
	b.spec.Filters = append(b.spec.Filters, queryspec.Filter{
		Op: queryspec.FilterEq, Column: column, Value: value,
	})
	return b
}

// In adds a membership filter. An empty values set matches zero rows.
func (b *Builder) In(column string, values []any) *Builder {
	b.spec.Filters = append(b.spec.Filters, queryspec.Filter{
		Op: queryspec.FilterIn, Column: column, Values: values,
	})
	return b
}

// Order sets the ordering column and direction.
func (b *Builder) Order(column string, ascending bool) *Builder {
	b.spec.Order = &queryspec.Order{Column: column, Ascending: &ascending}
	return b
}

// Limit caps the number of returned rows.
func (b *Builder) Limit(n int) *Builder {
	limit := float64(n)
	b.spec.Limit = &limit
	return b
}

// Insert switches the builder to an insert of the given rows.
func (b *Builder) Insert(rows ...record.Record) *Builder {
	b.spec.Action = queryspec.ActionInsert
	b.spec.Rows = rows
	return b
}

// Upsert switches the builder to an upsert of the given rows, resolving
// conflicts on onConflict (defaults to "id" when empty).
func (b *Builder) Upsert(rows []record.Record, onConflict string) *Builder {
	b.spec.Action = queryspec.ActionUpsert
	b.spec.Rows = rows
	b.spec.OnConflict = onConflict
	return b
}

// Update switches the builder to an update with the given payload.
func (b *Builder) Update(payload record.Record) *Builder {
	b.spec.Action = queryspec.ActionUpdate
	b.spec.Payload = payload
	return b
}

// Delete switches the builder to a delete.
func (b *Builder) Delete() *Builder {
	b.spec.Action = queryspec.ActionDelete
	return b
}

// Single requires exactly one row: zero rows is an error; extra rows
// beyond the first are discarded (callers are expected to have
// constrained the query).
func (b *Builder) Single() *Builder {
	b.shape = shapeSingle
	b.spec.Returning = true
	return b
}

// MaybeSingle is Single except zero rows yields a nil Row and no error.
func (b *Builder) MaybeSingle() *Builder {
	b.shape = shapeMaybeSingle
	b.spec.Returning = true
	return b
}

// Spec returns the accumulated OperationSpec. Mainly for tests and
// logging.
func (b *Builder) Spec() queryspec.OperationSpec {
	return b.spec
}

// Exec sends the accumulated spec through the transport and applies the
// result-shape contract. Without Single/MaybeSingle, Result.Rows is the
// raw row slice (possibly empty, never nil).
func (b *Builder) Exec(ctx context.Context) (Result, error) {
	rows, err := b.transport.Do(ctx, b.spec)
	if err != nil {
		return Result{}, err
	}
	if rows == nil {
		rows = []record.Record{}
	}

	res := Result{Rows: rows}
	switch b.shape {
	case shapeSingle:
		if len(rows) == 0 {
			return Result{}, ErrNoRows
		}
		res.Row = rows[0]
	case shapeMaybeSingle:
		if len(rows) > 0 {
			res.Row = rows[0]
		}
	}
	return res, nil
}
