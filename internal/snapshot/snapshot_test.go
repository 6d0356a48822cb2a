package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillsync/tillsync/internal/record"
)

func TestStore_SaveReadRemove(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "snaps.json"))

	s.Save("t1", record.Record{"name": "Screen", "sellingPrice": 25.0})
	s.Save("t2", record.Record{"name": "Battery"})

	snaps := s.Read()
	require.Len(t, snaps, 2)
	assert.Equal(t, "Screen", snaps["t1"]["name"])

	s.Remove("t1")
	snaps = s.Read()
	require.Len(t, snaps, 1)
	assert.Nil(t, snaps["t1"])
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaps.json")

	s := NewStore(path)
	s.Save("t1", record.Record{"name": "Screen"})

	reopened := NewStore(path)
	snaps := reopened.Read()
	require.Len(t, snaps, 1)
	assert.Equal(t, "Screen", snaps["t1"]["name"])
}

func TestStore_StripsBinaryAndImageFields(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "snaps.json"))

	s.Save("t1", record.Record{
		"name":      "Screen",
		"image":     "data:image/png;base64,AAAA",
		"thumbnail": "data:image/png;base64,BBBB",
		"blob":      []byte{0x01, 0x02},
	})

	snap := s.Read()["t1"]
	assert.Equal(t, record.Record{"name": "Screen"}, snap)
}

func TestStore_CorruptDocumentStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaps.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	s := NewStore(path)
	assert.Empty(t, s.Read())
}

func TestStore_WriteFailureIsSwallowed(t *testing.T) {
	// Point the document at a directory so every persist fails.
	dir := t.TempDir()
	s := NewStore(dir)

	s.Save("t1", record.Record{"name": "Screen"})

	// The in-memory map stays authoritative for the session.
	assert.Equal(t, "Screen", s.Read()["t1"]["name"])
}

func TestStore_ReadReturnsCopies(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "snaps.json"))
	s.Save("t1", record.Record{"name": "Screen"})

	s.Read()["t1"]["name"] = "Tampered"
	assert.Equal(t, "Screen", s.Read()["t1"]["name"])
}

func TestMerge_CanonicalWinsWhenPresent(t *testing.T) {
	canonical := record.Record{"id": "t1", "name": "Canonical", "total": 75.0}
	snap := record.Record{"name": "Snapshot", "barcode": "123"}

	merged := Merge(canonical, snap)
	assert.Equal(t, "Canonical", merged["name"])
	assert.Equal(t, "123", merged["barcode"])
	assert.Equal(t, 75.0, merged["total"])
}

func TestMerge_EmptyCanonicalFieldYieldsToSnapshot(t *testing.T) {
	canonical := record.Record{"id": "t1", "barcode": ""}
	snap := record.Record{"barcode": "123"}

	merged := Merge(canonical, snap)
	assert.Equal(t, "123", merged["barcode"])

	// Once the canonical record carries a real value, the stale
	// snapshot no longer shows through.
	canonical["barcode"] = "999"
	merged = Merge(canonical, snap)
	assert.Equal(t, "999", merged["barcode"])
}

func TestMerge_NumericZeroIsPresent(t *testing.T) {
	canonical := record.Record{"id": "t1", "quantity": int64(0)}
	snap := record.Record{"quantity": int64(9)}

	merged := Merge(canonical, snap)
	assert.Equal(t, int64(0), merged["quantity"])
}

func TestMerge_NilSnapshotClonesCanonical(t *testing.T) {
	canonical := record.Record{"id": "t1", "name": "Canonical"}

	merged := Merge(canonical, nil)
	merged["name"] = "Tampered"
	assert.Equal(t, "Canonical", canonical["name"])
}

func TestMergeAll_KeysByRecordID(t *testing.T) {
	rows := []record.Record{
		{"id": "t1"},
		{"id": "t2"},
	}
	snaps := map[string]record.Record{
		"t1": {"name": "Screen"},
	}

	merged := MergeAll(rows, snaps)
	require.Len(t, merged, 2)
	assert.Equal(t, "Screen", merged[0]["name"])
	assert.NotContains(t, merged[1], "name")
}
