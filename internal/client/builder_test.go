package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillsync/tillsync/internal/queryspec"
	"github.com/tillsync/tillsync/internal/record"
)

// fakeTransport captures the spec it receives and returns canned rows.
type fakeTransport struct {
	spec queryspec.OperationSpec
	rows []record.Record
	err  error
}

func (f *fakeTransport) Do(ctx context.Context, spec queryspec.OperationSpec) ([]record.Record, error) {
	f.spec = spec
	return f.rows, f.err
}

func TestBuilder_AccumulatesSelectSpec(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClient(ft)

	_, err := c.From("inventory").
		Select("id", "name").
		Eq("tenant_id", "s1").
		In("category_id", []any{"c1", "c2"}).
		Order("name", false).
		Limit(10).
		Exec(context.Background())
	require.NoError(t, err)

	spec := ft.spec
	assert.Equal(t, queryspec.ActionSelect, spec.Action)
	assert.Equal(t, "inventory", spec.Table)
	assert.Equal(t, []string{"id", "name"}, spec.Columns)
	require.Len(t, spec.Filters, 2)
	assert.Equal(t, queryspec.FilterEq, spec.Filters[0].Op)
	assert.Equal(t, queryspec.FilterIn, spec.Filters[1].Op)
	require.NotNil(t, spec.Order)
	assert.False(t, *spec.Order.Ascending)
	require.NotNil(t, spec.Limit)
	assert.Equal(t, 10.0, *spec.Limit)
}

func TestBuilder_MutationVerbs(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClient(ft)

	_, err := c.From("inventory").Insert(record.Record{"id": "p1"}).Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, queryspec.ActionInsert, ft.spec.Action)
	require.Len(t, ft.spec.Rows, 1)

	_, err = c.From("inventory").Upsert([]record.Record{{"id": "p1"}}, "id").Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, queryspec.ActionUpsert, ft.spec.Action)
	assert.Equal(t, "id", ft.spec.OnConflict)

	_, err = c.From("inventory").Update(record.Record{"stock": 3}).Eq("id", "p1").Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, queryspec.ActionUpdate, ft.spec.Action)

	_, err = c.From("inventory").Delete().Eq("id", "p1").Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, queryspec.ActionDelete, ft.spec.Action)
}

func TestBuilder_SelectAfterMutationRequestsReturning(t *testing.T) {
	ft := &fakeTransport{rows: []record.Record{{"id": "p1"}}}
	c := NewClient(ft)

	_, err := c.From("inventory").Insert(record.Record{"id": "p1"}).Select().Exec(context.Background())
	require.NoError(t, err)
	assert.True(t, ft.spec.Returning)
}

func TestBuilder_RowsContract(t *testing.T) {
	ft := &fakeTransport{rows: []record.Record{{"id": "p1"}, {"id": "p2"}}}
	c := NewClient(ft)

	res, err := c.From("inventory").Exec(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Nil(t, res.Row)
}

func TestBuilder_RowsNeverNil(t *testing.T) {
	ft := &fakeTransport{rows: nil}
	c := NewClient(ft)

	res, err := c.From("inventory").Exec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestBuilder_SingleRequiresOneRow(t *testing.T) {
	ft := &fakeTransport{rows: []record.Record{}}
	c := NewClient(ft)

	_, err := c.From("inventory").Eq("id", "missing").Single().Exec(context.Background())
	require.ErrorIs(t, err, ErrNoRows)
	assert.EqualError(t, err, "expected a single row but none were returned")
}

func TestBuilder_SingleTakesFirstOfMany(t *testing.T) {
	ft := &fakeTransport{rows: []record.Record{{"id": "p1"}, {"id": "p2"}}}
	c := NewClient(ft)

	res, err := c.From("inventory").Single().Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p1", res.Row.ID())
}

func TestBuilder_MaybeSingleZeroRowsIsNotError(t *testing.T) {
	ft := &fakeTransport{rows: []record.Record{}}
	c := NewClient(ft)

	res, err := c.From("inventory").Eq("id", "missing").MaybeSingle().Exec(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Row)
}

func TestBuilder_TransportErrorPropagates(t *testing.T) {
	ft := &fakeTransport{err: errors.New("UNIQUE constraint failed")}
	c := NewClient(ft)

	_, err := c.From("inventory").Insert(record.Record{"id": "p1"}).Exec(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")
}
