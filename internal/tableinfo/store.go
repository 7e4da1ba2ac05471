// Package tableinfo implements the TableInfoStore: the per-table shadow map
// from canonical match key to {driver entry handle, controller metadata}
// (§4.3). Each table gets its own RWLock so independent tables can mutate
// concurrently while still preserving I2 (shadow/driver consistency) and I5
// (per-table write serialization).
package tableinfo

import (
	"sync"

	"github.com/p4lang/pi4go/internal/keys"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"github.com/p4lang/pi4go/pkg/pidriver"
)

// EntryData is the shadow record for one table row: the driver handle plus
// everything needed to reconstruct the controller-facing TableEntry on a
// read without re-deriving it from the opaque canonical key bytes.
type EntryData struct {
	Handle             pidriver.EntryHandle
	ControllerMetadata uint64
	Match              []p4rt.FieldMatch
	Action             p4rt.ActionEntry
}

type table struct {
	mu      sync.RWMutex
	entries map[keys.CanonicalKey]EntryData
}

// Guard is a held table lock. Callers must hold it across both the driver
// call and the subsequent shadow-store update (§4.3), and release it via
// Unlock when done.
type Guard struct {
	t        *table
	exclusive bool
}

// Unlock releases the guard.
func (g *Guard) Unlock() {
	if g.exclusive {
		g.t.mu.Unlock()
	} else {
		g.t.mu.RUnlock()
	}
}

// Store is the TableInfoStore: table_id -> (RWLock, shadow map).
type Store struct {
	mu     sync.RWMutex // protects the tables map itself, not its contents
	tables map[uint32]*table
}

// New creates an empty Store with an entry pre-allocated for each tableID.
func New(tableIDs []uint32) *Store {
	s := &Store{tables: make(map[uint32]*table, len(tableIDs))}
	for _, id := range tableIDs {
		s.tables[id] = &table{entries: make(map[keys.CanonicalKey]EntryData)}
	}
	return s
}

func (s *Store) tableFor(tableID uint32) *table {
	s.mu.RLock()
	t, ok := s.tables[tableID]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok = s.tables[tableID]; ok {
		return t
	}
	t = &table{entries: make(map[keys.CanonicalKey]EntryData)}
	s.tables[tableID] = t
	return t
}

// LockTable acquires an exclusive guard for tableID. Every table write path
// must hold this across the driver call and the shadow update.
func (s *Store) LockTable(tableID uint32) *Guard {
	t := s.tableFor(tableID)
	t.mu.Lock()
	return &Guard{t: t, exclusive: true}
}

// RLockTable acquires a shared guard for tableID. Every table read must hold
// at least this while fetching driver entries and cross-checking the store.
func (s *Store) RLockTable(tableID uint32) *Guard {
	t := s.tableFor(tableID)
	t.mu.RLock()
	return &Guard{t: t, exclusive: false}
}

// AddEntry records a new shadow row. Callers must hold an exclusive Guard
// for the table.
func (g *Guard) AddEntry(key keys.CanonicalKey, data EntryData) {
	g.t.entries[key] = data
}

// GetEntry looks up a shadow row. Safe under either guard kind.
func (g *Guard) GetEntry(key keys.CanonicalKey) (EntryData, bool) {
	d, ok := g.t.entries[key]
	return d, ok
}

// RemoveEntry deletes a shadow row. Callers must hold an exclusive Guard.
func (g *Guard) RemoveEntry(key keys.CanonicalKey) {
	delete(g.t.entries, key)
}

// UpdateMetadata rewrites ControllerMetadata in place for an existing row.
// Callers must hold an exclusive Guard and the key must already be present.
func (g *Guard) UpdateMetadata(key keys.CanonicalKey, metadata uint64) {
	d := g.t.entries[key]
	d.ControllerMetadata = metadata
	g.t.entries[key] = d
}

// Snapshot returns a copy of every shadow row for the guarded table, for use
// by the table-read path's shadow cross-reference. Safe under either guard
// kind.
func (g *Guard) Snapshot() map[keys.CanonicalKey]EntryData {
	out := make(map[keys.CanonicalKey]EntryData, len(g.t.entries))
	for k, v := range g.t.entries {
		out[k] = v
	}
	return out
}

// Reset clears every table's shadow map. Called on pipeline change; callers
// are responsible for ensuring no concurrent table writers are in flight
// (§4.6 Concurrency).
func (s *Store) Reset(tableIDs []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[uint32]*table, len(tableIDs))
	for _, id := range tableIDs {
		s.tables[id] = &table{entries: make(map[keys.CanonicalKey]EntryData)}
	}
}
