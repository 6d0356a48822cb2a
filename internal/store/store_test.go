package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Open multiple times
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	// Final open should work
	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	// Verify schema is intact
	tables := []string{"shops", "profiles", "inventory", "categories", "transactions", "repairs", "attendance"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	// Try to open in non-existent directory
	path := "/nonexistent/dir/test.db"

	_, err := Open(path)
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Errorf("pragma check failed: %v", err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Errorf("pragma check failed: %v", err)
	}
}

func TestQuery_ScansRowsIntoRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	err = s.Exec(ctx,
		`INSERT INTO "inventory" ("id", "name", "sellingPrice", "stock") VALUES (?, ?, ?, ?)`,
		"p1", "Widget", 9.99, int64(5))
	if err != nil {
		t.Fatalf("Exec() failed: %v", err)
	}

	rows, err := s.Query(ctx, `SELECT "id", "name", "sellingPrice", "stock" FROM "inventory" WHERE "id" = ?`, "p1")
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	rec := rows[0]
	if rec["id"] != "p1" {
		t.Errorf("id = %v, expected p1", rec["id"])
	}
	if rec["name"] != "Widget" {
		t.Errorf("name = %v, expected Widget", rec["name"])
	}
	if rec["sellingPrice"] != 9.99 {
		t.Errorf("sellingPrice = %v, expected 9.99", rec["sellingPrice"])
	}
	if rec["stock"] != int64(5) {
		t.Errorf("stock = %v, expected 5", rec["stock"])
	}
}

func TestQuery_EmptyResultIsEmptySlice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	rows, err := s.Query(context.Background(), `SELECT * FROM "inventory"`)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if rows == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(rows) != 0 {
		t.Fatalf("expected 0 rows, got %d", len(rows))
	}
}
