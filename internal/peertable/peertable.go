// Package peertable holds the live, concurrent set of peers the
// discovery service has observed. A single table-wide mutex guards
// every operation; none of them suspend while holding it, and
// Snapshot returns an owned copy so readers never iterate under lock.
package peertable

import (
	"sync"
	"time"
)

// Peer is one entry in the table, keyed by DeviceID.
type Peer struct {
	DeviceID   string
	Alias      string
	Address    string
	Port       int
	LastActive int64 // seconds since epoch
}

// Table is a concurrent map of device-id to Peer.
type Table struct {
	mu    sync.Mutex
	peers map[string]Peer
}

// New returns an empty Table.
func New() *Table {
	return &Table{peers: make(map[string]Peer)}
}

// AddOrUpdate upserts peer by DeviceID. A re-announce overwrites every
// field, including LastActive.
func (t *Table) AddOrUpdate(peer Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[peer.DeviceID] = peer
}

// RemoveStale evicts every peer whose LastActive is more than
// maxAgeSeconds behind "now", where now is sampled once for the whole
// call.
func (t *Table) RemoveStale(maxAgeSeconds int64) {
	now := time.Now().Unix()

	t.mu.Lock()
	defer t.mu.Unlock()
	for id, peer := range t.peers {
		if now-peer.LastActive > maxAgeSeconds {
			delete(t.peers, id)
		}
	}
}

// Snapshot returns a freshly allocated copy of every peer currently in
// the table, in unspecified order.
func (t *Table) Snapshot() []Peer {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Peer, 0, len(t.peers))
	for _, peer := range t.peers {
		out = append(out, peer)
	}
	return out
}

// Len reports the current peer count, mostly useful for tests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}

// Get returns the peer for deviceID, if present.
func (t *Table) Get(deviceID string) (Peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[deviceID]
	return p, ok
}
