// Package gateway is the network-facing entry point of the query
// protocol: it enforces the fixed table allow-list, dispatches each
// OperationSpec to the SQL compiler, executes against the backing store,
// and normalizes every outcome to rows-or-structured-error.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tillsync/tillsync/internal/queryspec"
	"github.com/tillsync/tillsync/internal/querysql"
	"github.com/tillsync/tillsync/internal/record"
	"github.com/tillsync/tillsync/internal/store"
)

// AllowedTables is the closed set of tables the gateway operates on.
// Not configurable at runtime; any other name fails closed.
var AllowedTables = map[string]bool{
	"shops":        true,
	"profiles":     true,
	"inventory":    true,
	"categories":   true,
	"transactions": true,
	"repairs":      true,
	"attendance":   true,
}

// Gateway dispatches OperationSpecs against the backing store.
//
// INVARIANTS:
//   - The allow-list check happens before any SQL is built.
//   - Do never panics across its boundary; every failure is a *QueryError.
//   - Reads and writes stay parameterized end to end: the only
//     interpolated strings are guard-approved identifiers.
type Gateway struct {
	store    *store.Store
	compiler *querysql.Compiler
	monitor  *Monitor
}

// New creates a Gateway over the given store. A nil store is legal and
// makes every operation fail with a BINDING_MISSING error; that mirrors a
// deployment whose database binding was never configured.
func New(s *store.Store) *Gateway {
	return &Gateway{
		store:    s,
		compiler: querysql.NewCompiler(),
		monitor:  NewMonitor(),
	}
}

// Monitor returns the gateway's latency monitor.
func (g *Gateway) Monitor() *Monitor {
	return g.monitor
}

// Do executes one OperationSpec and returns the resulting rows.
//
// Ordering of checks: store handle, table allow-list, action, compile,
// execute. Each failure maps to one QueryErrorCode. The returned slice is
// never nil on success; operations that execute no statement (empty
// insert batch, update with no safe payload keys) return an empty slice.
func (g *Gateway) Do(ctx context.Context, spec queryspec.OperationSpec) ([]record.Record, error) {
	start := time.Now()
	rows, err := g.do(ctx, spec)
	g.monitor.Observe(spec.Action, time.Since(start), err == nil)

	if err != nil {
		slog.Debug("query failed", "action", spec.Action, "table", spec.Table, "error", err)
		return nil, err
	}
	slog.Debug("query ok", "action", spec.Action, "table", spec.Table, "rows", len(rows))
	return rows, nil
}

func (g *Gateway) do(ctx context.Context, spec queryspec.OperationSpec) ([]record.Record, error) {
	if g.store == nil {
		return nil, newBindingMissingError()
	}

	// Fail closed before any SQL text exists for this table name.
	if !AllowedTables[spec.Table] {
		return nil, newTableNotAllowedError(spec.Table)
	}

	if !spec.Action.Valid() {
		return nil, &QueryError{
			Code:    ErrCodeUnsupportedAction,
			Message: fmt.Sprintf("unsupported action %q", spec.Action),
			Table:   spec.Table,
		}
	}

	stmts, err := g.compiler.Compile(spec)
	if err != nil {
		return nil, &QueryError{
			Code:    compileErrorCode(err),
			Message: err.Error(),
			Table:   spec.Table,
		}
	}

	collect := spec.Action == queryspec.ActionSelect || spec.Returning

	out := []record.Record{}
	for _, stmt := range stmts {
		if collect {
			rows, err := g.store.Query(ctx, stmt.SQL, stmt.Args...)
			if err != nil {
				return nil, &QueryError{
					Code:    ErrCodeRemoteOperation,
					Message: err.Error(),
					Table:   spec.Table,
				}
			}
			out = append(out, rows...)
			continue
		}
		if err := g.store.Exec(ctx, stmt.SQL, stmt.Args...); err != nil {
			return nil, &QueryError{
				Code:    ErrCodeRemoteOperation,
				Message: err.Error(),
				Table:   spec.Table,
			}
		}
	}

	return out, nil
}

// compileErrorCode maps compiler errors onto the gateway taxonomy.
func compileErrorCode(err error) QueryErrorCode {
	switch {
	case errors.Is(err, querysql.ErrUnsafeIdentifier):
		return ErrCodeUnsafeIdentifier
	case errors.Is(err, querysql.ErrUnsupportedAction):
		return ErrCodeUnsupportedAction
	default:
		return ErrCodeRemoteOperation
	}
}
