package tableinfo

import (
	"sync"
	"testing"

	"github.com/p4lang/pi4go/internal/keys"
	"github.com/p4lang/pi4go/pkg/pidriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGetRemoveEntry(t *testing.T) {
	s := New([]uint32{1})

	g := s.LockTable(1)
	g.AddEntry("k1", EntryData{Handle: pidriver.EntryHandle(42), ControllerMetadata: 7})
	g.Unlock()

	g = s.RLockTable(1)
	data, ok := g.GetEntry("k1")
	g.Unlock()
	require.True(t, ok)
	assert.Equal(t, pidriver.EntryHandle(42), data.Handle)
	assert.Equal(t, uint64(7), data.ControllerMetadata)

	g = s.LockTable(1)
	g.RemoveEntry("k1")
	g.Unlock()

	g = s.RLockTable(1)
	_, ok = g.GetEntry("k1")
	g.Unlock()
	assert.False(t, ok)
}

func TestUpdateMetadata(t *testing.T) {
	s := New([]uint32{1})
	g := s.LockTable(1)
	g.AddEntry("k1", EntryData{Handle: 1, ControllerMetadata: 1})
	g.UpdateMetadata("k1", 99)
	g.Unlock()

	g = s.RLockTable(1)
	data, ok := g.GetEntry("k1")
	g.Unlock()
	require.True(t, ok)
	assert.Equal(t, uint64(99), data.ControllerMetadata)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New([]uint32{1})
	g := s.LockTable(1)
	g.AddEntry("k1", EntryData{Handle: 1})
	snap := g.Snapshot()
	g.Unlock()

	snap["k2"] = EntryData{Handle: 2}

	g = s.RLockTable(1)
	_, ok := g.GetEntry("k2")
	g.Unlock()
	assert.False(t, ok, "mutating the snapshot must not affect the store")
}

func TestTableForLazilyCreatesUnknownTable(t *testing.T) {
	s := New(nil)
	g := s.LockTable(5)
	g.AddEntry("k1", EntryData{Handle: 1})
	g.Unlock()

	g = s.RLockTable(5)
	_, ok := g.GetEntry("k1")
	g.Unlock()
	assert.True(t, ok)
}

func TestReset(t *testing.T) {
	s := New([]uint32{1, 2})
	g := s.LockTable(1)
	g.AddEntry("k1", EntryData{Handle: 1})
	g.Unlock()

	s.Reset([]uint32{1})

	g = s.RLockTable(1)
	_, ok := g.GetEntry("k1")
	g.Unlock()
	assert.False(t, ok, "reset must clear existing shadow rows")
}

func TestIndependentTablesDoNotBlockEachOther(t *testing.T) {
	s := New([]uint32{1, 2})

	g1 := s.LockTable(1)
	defer g1.Unlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		g2 := s.LockTable(2)
		g2.AddEntry("k", EntryData{Handle: 1})
		g2.Unlock()
		close(done)
	}()
	wg.Wait()

	select {
	case <-done:
	default:
		t.Fatal("table 2 lock should not be blocked by table 1's held lock")
	}
}
