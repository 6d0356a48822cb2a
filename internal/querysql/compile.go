// Package querysql compiles OperationSpecs to parameterized SQL for
// SQLite.
//
// CRITICAL: all data values are parameterized (never interpolated); the
// only strings spliced into SQL text are identifiers that have passed
// queryspec.IsSafeIdentifier, and each is double-quoted.
package querysql

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tillsync/tillsync/internal/queryspec"
	"github.com/tillsync/tillsync/internal/record"
)

// ErrUnsafeIdentifier is returned when an identifier that cannot be
// degraded away (the table name, or an upsert conflict column) fails the
// identifier guard. Filter, column-list and payload identifiers degrade
// instead: they are dropped and compilation proceeds.
var ErrUnsafeIdentifier = errors.New("unsafe identifier")

// ErrUnsupportedAction is returned for action strings outside the five
// supported verbs. The gateway rejects these before compilation; the
// compiler repeats the check so it is safe to call directly.
var ErrUnsupportedAction = errors.New("unsupported action")

// Statement is one executable SQL statement with its bind values.
type Statement struct {
	SQL  string
	Args []any
}

// Compiler turns OperationSpecs into parameterized statements.
//
// Insert and upsert compile one statement per input row rather than a
// multi-row VALUES batch: a malformed row skips without blocking the
// rest of the batch.
type Compiler struct{}

// NewCompiler creates a Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile converts spec into zero or more statements.
//
// Zero statements is a valid outcome: an empty insert batch, a batch
// whose rows all lack safe keys, or an update with no safe payload keys
// all compile to nothing and mean "no-op, empty result".
func (c *Compiler) Compile(spec queryspec.OperationSpec) ([]Statement, error) {
	if !queryspec.IsSafeIdentifier(spec.Table) {
		return nil, fmt.Errorf("%w: table %q", ErrUnsafeIdentifier, spec.Table)
	}

	switch spec.Action {
	case queryspec.ActionSelect:
		return c.compileSelect(spec)
	case queryspec.ActionInsert:
		return c.compileInsert(spec, false)
	case queryspec.ActionUpsert:
		return c.compileInsert(spec, true)
	case queryspec.ActionUpdate:
		return c.compileUpdate(spec)
	case queryspec.ActionDelete:
		return c.compileDelete(spec)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, spec.Action)
	}
}

// compileSelect builds SELECT <columns> FROM <table> <where> <order> <limit>.
func (c *Compiler) compileSelect(spec queryspec.OperationSpec) ([]Statement, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	sb.WriteString(columnList(spec.Columns))
	sb.WriteString(" FROM ")
	sb.WriteString(quote(spec.Table))

	whereSQL, whereArgs := compileFilters(spec.Filters)
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
		args = append(args, whereArgs...)
	}

	// Order degrades away when the column is unsafe, same as filters.
	if spec.Order != nil && queryspec.IsSafeIdentifier(spec.Order.Column) {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(quote(spec.Order.Column))
		if spec.Order.Ascending != nil && !*spec.Order.Ascending {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}

	// LIMIT only for a finite positive number, floored, and bound -
	// never interpolated.
	if n, ok := limitValue(spec.Limit); ok {
		sb.WriteString(" LIMIT ?")
		args = append(args, n)
	}

	return []Statement{{SQL: sb.String(), Args: args}}, nil
}

// compileInsert builds one INSERT per row. For upsert it appends an
// ON CONFLICT clause updating every non-conflict column from excluded.
func (c *Compiler) compileInsert(spec queryspec.OperationSpec, upsert bool) ([]Statement, error) {
	conflictCol := spec.OnConflict
	if upsert {
		if conflictCol == "" {
			conflictCol = "id"
		}
		if !queryspec.IsSafeIdentifier(conflictCol) {
			return nil, fmt.Errorf("%w: conflict column %q", ErrUnsafeIdentifier, conflictCol)
		}
	}

	var stmts []Statement
	for _, row := range spec.Rows {
		cols := safeKeys(row)
		if len(cols) == 0 {
			// Row with zero safe columns: skipped, not an error.
			continue
		}

		var sb strings.Builder
		sb.WriteString("INSERT INTO ")
		sb.WriteString(quote(spec.Table))
		sb.WriteString(" (")
		args := make([]any, 0, len(cols))
		for i, col := range cols {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quote(col))
			args = append(args, bindValue(row[col]))
		}
		sb.WriteString(") VALUES (")
		sb.WriteString(placeholders(len(cols)))
		sb.WriteString(")")

		if upsert {
			sb.WriteString(" ON CONFLICT (")
			sb.WriteString(quote(conflictCol))
			sb.WriteString(") DO UPDATE SET ")
			sb.WriteString(excludedSet(cols, conflictCol))
		}
		if spec.Returning {
			sb.WriteString(" RETURNING *")
		}

		stmts = append(stmts, Statement{SQL: sb.String(), Args: args})
	}

	return stmts, nil
}

// compileUpdate builds UPDATE <table> SET ... <where>. A payload with no
// safe keys compiles to zero statements.
func (c *Compiler) compileUpdate(spec queryspec.OperationSpec) ([]Statement, error) {
	cols := safeKeys(spec.Payload)
	if len(cols) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(quote(spec.Table))
	sb.WriteString(" SET ")
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quote(col))
		sb.WriteString(" = ?")
		args = append(args, bindValue(spec.Payload[col]))
	}

	whereSQL, whereArgs := compileFilters(spec.Filters)
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
		args = append(args, whereArgs...)
	}
	if spec.Returning {
		sb.WriteString(" RETURNING *")
	}

	return []Statement{{SQL: sb.String(), Args: args}}, nil
}

// compileDelete builds DELETE FROM <table> <where>.
func (c *Compiler) compileDelete(spec queryspec.OperationSpec) ([]Statement, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("DELETE FROM ")
	sb.WriteString(quote(spec.Table))

	whereSQL, whereArgs := compileFilters(spec.Filters)
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
		args = append(args, whereArgs...)
	}
	if spec.Returning {
		sb.WriteString(" RETURNING *")
	}

	return []Statement{{SQL: sb.String(), Args: args}}, nil
}

// compileFilters folds filters into a WHERE fragment.
//
// Filters whose column fails the identifier guard are silently skipped.
// An IN filter with an empty value set emits the tautology-false clause
// "1 = 0" so it matches zero rows instead of raising a syntax error.
func compileFilters(filters []queryspec.Filter) (string, []any) {
	var parts []string
	var args []any

	for _, f := range filters {
		if !queryspec.IsSafeIdentifier(f.Column) {
			continue
		}
		switch f.Op {
		case queryspec.FilterEq:
			parts = append(parts, quote(f.Column)+" = ?")
			args = append(args, bindValue(f.Value))
		case queryspec.FilterIn:
			if len(f.Values) == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			parts = append(parts, quote(f.Column)+" IN ("+placeholders(len(f.Values))+")")
			for _, v := range f.Values {
				args = append(args, bindValue(v))
			}
		}
	}

	return strings.Join(parts, " AND "), args
}

// columnList keeps only identifier-safe columns, each quoted. If none
// remain (or none were supplied) it falls back to *.
func columnList(cols []string) string {
	safe := queryspec.SafeColumns(cols)
	if len(safe) == 0 {
		return "*"
	}
	quoted := make([]string, len(safe))
	for i, c := range safe {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

// excludedSet builds the DO UPDATE SET list for every column except the
// conflict column. When every column is the conflict column, the conflict
// column updates to itself so the SQL stays valid.
func excludedSet(cols []string, conflictCol string) string {
	var parts []string
	for _, col := range cols {
		if col == conflictCol {
			continue
		}
		parts = append(parts, quote(col)+" = excluded."+quote(col))
	}
	if len(parts) == 0 {
		parts = append(parts, quote(conflictCol)+" = excluded."+quote(conflictCol))
	}
	return strings.Join(parts, ", ")
}

// safeKeys returns the identifier-safe keys of a record, sorted for
// deterministic statement text.
func safeKeys(r record.Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		if queryspec.IsSafeIdentifier(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// limitValue applies the limit rule: finite, positive, floored.
func limitValue(limit *float64) (int64, bool) {
	if limit == nil {
		return 0, false
	}
	n := *limit
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0, false
	}
	return int64(math.Floor(n)), true
}

// bindValue prepares a value for binding. String values are normalized to
// NFC so equality behaves consistently across differently-composed input.
func bindValue(v any) any {
	if s, ok := v.(string); ok {
		return norm.NFC.String(s)
	}
	return v
}

// quote wraps an already-guarded identifier in double quotes.
func quote(ident string) string {
	return `"` + ident + `"`
}

// placeholders returns n comma-separated ? markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
