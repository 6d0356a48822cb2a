package queryspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSafeIdentifier_Accepts(t *testing.T) {
	good := []string{
		"inventory",
		"tenant_id",
		"_private",
		"sellingPrice",
		"a",
		"A1",
		"snake_case_name_2",
	}
	for _, s := range good {
		assert.True(t, IsSafeIdentifier(s), "expected %q to be safe", s)
	}
}

func TestIsSafeIdentifier_Rejects(t *testing.T) {
	bad := []string{
		"",
		"1abc",
		"name;DROP TABLE inventory",
		"name--",
		"a b",
		"col\"",
		"col'",
		"col.name",
		"läden",
		"name\n",
		"(select 1)",
		"名前",
	}
	for _, s := range bad {
		assert.False(t, IsSafeIdentifier(s), "expected %q to be rejected", s)
	}
}

func TestAction_Valid(t *testing.T) {
	for _, a := range []Action{ActionSelect, ActionInsert, ActionUpsert, ActionUpdate, ActionDelete} {
		assert.True(t, a.Valid())
	}
	assert.False(t, Action("truncate").Valid())
	assert.False(t, Action("").Valid())
	assert.False(t, Action("SELECT").Valid())
}

func TestSafeColumns(t *testing.T) {
	cols := SafeColumns([]string{"id", "name;--", "stock", ""})
	assert.Equal(t, []string{"id", "stock"}, cols)

	assert.Nil(t, SafeColumns(nil))
	assert.Nil(t, SafeColumns([]string{"1bad", "also bad"}))
}
