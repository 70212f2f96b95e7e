package discovery

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitshare/internal/peertable"
	"bitshare/internal/protocol"
)

func newTestListener(table *peertable.Table) *Listener {
	return &Listener{
		cfg:   Config{DeviceID: "local-device", Alias: "local", ListenPort: 53318},
		table: table,
	}
}

func TestIngestSelfEchoIsIgnored(t *testing.T) {
	table := peertable.New()
	l := newTestListener(table)

	payload := protocol.AnnouncePayload{Alias: "local", DeviceID: "local-device", Version: 1, Port: Port}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	before := table.Len()
	l.ingest(data, "10.0.0.5")
	assert.Equal(t, before, table.Len())
}

func TestIngestAddsPeerWithLocalListenPortNotWirePort(t *testing.T) {
	table := peertable.New()
	l := newTestListener(table)

	payload := protocol.AnnouncePayload{Alias: "remote", DeviceID: "remote-device", Version: 1, Port: 9999}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	l.ingest(data, "10.0.0.7")

	peer, ok := table.Get("remote-device")
	require.True(t, ok)
	assert.Equal(t, "remote", peer.Alias)
	assert.Equal(t, "10.0.0.7", peer.Address)
	assert.Equal(t, l.cfg.ListenPort, peer.Port)
	assert.NotEqual(t, payload.Port, peer.Port)
	assert.WithinDuration(t, time.Now(), time.Unix(peer.LastActive, 0), 2*time.Second)
}

func TestIngestDropsMalformedJSON(t *testing.T) {
	table := peertable.New()
	l := newTestListener(table)

	l.ingest([]byte("not json"), "10.0.0.9")
	assert.Equal(t, 0, table.Len())
}

func TestIngestReannounceRefreshesLastActive(t *testing.T) {
	table := peertable.New()
	l := newTestListener(table)

	payload := protocol.AnnouncePayload{Alias: "remote", DeviceID: "remote-device", Version: 1}
	data, _ := json.Marshal(payload)

	l.ingest(data, "10.0.0.7")
	first, _ := table.Get("remote-device")

	time.Sleep(1100 * time.Millisecond)
	l.ingest(data, "10.0.0.7")
	second, _ := table.Get("remote-device")

	assert.Greater(t, second.LastActive, first.LastActive)
	assert.Equal(t, 1, table.Len())
}
