// Package snapshot holds denormalized side-records that enrich canonical
// rows at read time. Snapshots are a local, best-effort cache of fields
// too volatile or too large to keep in the canonical row (point-of-sale
// line-item detail, for example); they are never the source of truth, so
// persistence failures are swallowed rather than surfaced.
package snapshot

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/tillsync/tillsync/internal/record"
)

// excludedFields are never written into a snapshot. Large binary and
// image payloads would blow through local storage quotas for data the
// canonical store already has.
var excludedFields = map[string]bool{
	"image":     true,
	"images":    true,
	"photo":     true,
	"thumbnail": true,
}

// Store is a file-backed map from owning-record id to snapshot.
// All snapshots live under a single namespaced JSON document, read and
// rewritten on every mutation.
type Store struct {
	mu   sync.Mutex
	path string
	data map[string]record.Record
}

// NewStore opens (or lazily creates) the snapshot document at path.
// A missing or unreadable document starts empty: snapshots are an
// enrichment, losing them only degrades merged views.
func NewStore(path string) *Store {
	s := &Store{
		path: path,
		data: make(map[string]record.Record),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Debug("snapshot document unreadable, starting empty", "path", path, "error", err)
		}
		return s
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		slog.Debug("snapshot document corrupt, starting empty", "path", path, "error", err)
		s.data = make(map[string]record.Record)
	}
	return s
}

// Save stores the snapshot for the given owner id, replacing any prior
// version. Excluded (binary/image) fields are stripped first.
func (s *Store) Save(id string, snap record.Record) {
	if id == "" || snap == nil {
		return
	}

	trimmed := make(record.Record, len(snap))
	for k, v := range snap {
		if excludedFields[k] {
			continue
		}
		if _, isBytes := v.([]byte); isBytes {
			continue
		}
		trimmed[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = trimmed
	s.persist()
}

// Read returns the full id→snapshot map. The returned map is a copy;
// mutating it does not touch the store.
func (s *Store) Read() map[string]record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]record.Record, len(s.data))
	for id, snap := range s.data {
		out[id] = snap.Clone()
	}
	return out
}

// Remove deletes the snapshot for the given owner id.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return
	}
	delete(s.data, id)
	s.persist()
}

// persist rewrites the document. Failures (quota, permissions) are
// swallowed: the in-memory map stays authoritative for this session.
// Caller must hold s.mu.
func (s *Store) persist() {
	raw, err := json.Marshal(s.data)
	if err != nil {
		slog.Debug("snapshot encode failed", "error", err)
		return
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		slog.Debug("snapshot write failed", "path", s.path, "error", err)
	}
}

// Merge computes the merged view of a canonical record and its snapshot:
// field by field, the canonical value wins when present and non-empty,
// otherwise the snapshot value is used. Fields absent from both are
// omitted. The input record is not modified.
func Merge(canonical record.Record, snap record.Record) record.Record {
	if snap == nil {
		return canonical.Clone()
	}

	merged := canonical.Clone()
	if merged == nil {
		merged = make(record.Record, len(snap))
	}
	for k, v := range snap {
		if !record.Present(merged[k]) {
			merged[k] = v
		}
	}
	return merged
}

// MergeAll applies Merge across a row set, keyed by each record's id.
func MergeAll(rows []record.Record, snapshots map[string]record.Record) []record.Record {
	out := make([]record.Record, len(rows))
	for i, row := range rows {
		out[i] = Merge(row, snapshots[row.ID()])
	}
	return out
}
