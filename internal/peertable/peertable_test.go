package peertable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOrUpdateIdempotent(t *testing.T) {
	table := New()
	p := Peer{DeviceID: "d1", Alias: "a", Address: "10.0.0.1", Port: 53318, LastActive: time.Now().Unix()}

	table.AddOrUpdate(p)
	table.AddOrUpdate(p)

	assert.Equal(t, 1, table.Len())
	got, ok := table.Get("d1")
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestAddOrUpdateOverwritesAllFields(t *testing.T) {
	table := New()
	table.AddOrUpdate(Peer{DeviceID: "d1", Alias: "old", Address: "10.0.0.1", Port: 1, LastActive: 100})
	table.AddOrUpdate(Peer{DeviceID: "d1", Alias: "new", Address: "10.0.0.2", Port: 2, LastActive: 200})

	got, ok := table.Get("d1")
	require.True(t, ok)
	assert.Equal(t, "new", got.Alias)
	assert.Equal(t, "10.0.0.2", got.Address)
	assert.Equal(t, 2, got.Port)
	assert.EqualValues(t, 200, got.LastActive)
	assert.Equal(t, 1, table.Len())
}

func TestRemoveStaleEvictsOnlyOldEntries(t *testing.T) {
	table := New()
	now := time.Now().Unix()
	table.AddOrUpdate(Peer{DeviceID: "fresh", LastActive: now})
	table.AddOrUpdate(Peer{DeviceID: "old", LastActive: now - 100})

	table.RemoveStale(15)

	_, freshOK := table.Get("fresh")
	_, oldOK := table.Get("old")
	assert.True(t, freshOK)
	assert.False(t, oldOK)
}

func TestRemoveStaleInvariant(t *testing.T) {
	table := New()
	now := time.Now().Unix()
	for i, age := range []int64{0, 5, 10, 14, 16, 30} {
		table.AddOrUpdate(Peer{DeviceID: string(rune('a' + i)), LastActive: now - age})
	}

	table.RemoveStale(15)

	for _, peer := range table.Snapshot() {
		assert.LessOrEqual(t, now-peer.LastActive, int64(15))
	}
}

func TestSnapshotIsOwnedCopy(t *testing.T) {
	table := New()
	table.AddOrUpdate(Peer{DeviceID: "d1", Alias: "a"})

	snap := table.Snapshot()
	snap[0].Alias = "mutated"

	got, _ := table.Get("d1")
	assert.Equal(t, "a", got.Alias)
}
