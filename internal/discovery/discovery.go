// Package discovery implements the two cooperating background
// activities bound to the well-known discovery port 53317/UDP: a
// periodic broadcaster that announces this device, and a listener
// that feeds announces from other devices into a peertable.Table.
//
// Grounded on the teacher's p2p.TCPManager discovery pair
// (startDiscoveryService / Discover), generalized to a standalone
// one-shot-dial broadcaster and a SO_REUSEPORT listener per spec.
package discovery

import (
	"context"
	"encoding/json"
	"net"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"bitshare/internal/peertable"
	"bitshare/internal/protocol"
)

const (
	// Port is the well-known UDP discovery port.
	Port = 53317
	// BroadcastAddr is the destination for announce datagrams.
	BroadcastAddr = "255.255.255.255:53317"
	// Interval is the announce cadence.
	Interval = 5 * time.Second
	// StaleThreshold is three broadcast intervals: three missed
	// announces before a peer is evicted.
	StaleThreshold = 15 * time.Second
)

// Config carries the identity and ports a discovery round advertises.
type Config struct {
	DeviceID   string
	Alias      string
	ListenPort int // the local TCP transfer listen port
}

// Broadcaster periodically announces this device on the LAN. Send
// failures are swallowed — best-effort by design, per spec.md §4.4.
type Broadcaster struct {
	cfg      Config
	conn     *net.UDPConn
	destAddr *net.UDPAddr
	log      *logrus.Entry
}

// NewBroadcaster opens a UDP socket with SO_BROADCAST enabled.
func NewBroadcaster(cfg Config) (*Broadcaster, error) {
	addr, err := net.ResolveUDPAddr("udp4", BroadcastAddr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, err
	}

	if err := setBroadcast(conn); err != nil {
		conn.Close()
		return nil, err
	}

	b := &Broadcaster{
		cfg:  cfg,
		conn: conn,
		log:  logrus.WithField("component", "discovery.broadcaster"),
	}
	b.destAddr = addr
	return b, nil
}

func setBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return opErr
}

// Run sends one announce datagram immediately and then every Interval
// until ctx is canceled.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	b.announceOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.announceOnce()
		}
	}
}

func (b *Broadcaster) announceOnce() {
	payload := protocol.AnnouncePayload{
		Alias:    b.cfg.Alias,
		DeviceID: b.cfg.DeviceID,
		Version:  1,
		// Deliberately the discovery port, not b.cfg.ListenPort — see
		// DESIGN.md "Open Question decisions" #1. This reproduces a
		// documented deviation rather than fixing it silently.
		Port: Port,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		b.log.WithError(err).Warn("failed to marshal announce payload")
		return
	}

	if _, err := b.conn.WriteToUDP(data, b.destAddr); err != nil {
		b.log.WithError(err).Debug("announce send failed, will retry next tick")
	}
}

// Close releases the broadcaster's socket.
func (b *Broadcaster) Close() error {
	return b.conn.Close()
}

// Listener receives announce datagrams and feeds a peertable.Table.
type Listener struct {
	cfg   Config
	table *peertable.Table
	conn  *net.UDPConn
	log   *logrus.Entry
}

// NewListener opens a UDP socket with SO_REUSEADDR and SO_REUSEPORT,
// bound to 0.0.0.0:53317, so multiple BitShare processes on the same
// host (as in local integration tests) can each listen.
func NewListener(cfg Config, table *peertable.Table) (*Listener, error) {
	lc := net.ListenConfig{Control: controlReuse}

	pc, err := lc.ListenPacket(context.Background(), "udp4", "0.0.0.0:53317")
	if err != nil {
		return nil, err
	}

	return &Listener{
		cfg:   cfg,
		table: table,
		conn:  pc.(*net.UDPConn),
		log:   logrus.WithField("component", "discovery.listener"),
	}, nil
}

func controlReuse(network, address string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		if opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); opErr != nil {
			return
		}
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}

// Run reads announce datagrams until ctx is canceled, inserting or
// updating peers in the table. Parse failures and self-announces are
// dropped silently, per spec.md §4.4.
func (l *Listener) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	buf := make([]byte, 64*1024)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				l.log.WithError(err).Debug("discovery read failed, continuing")
				continue
			}
		}

		l.ingest(buf[:n], addr.IP.String())
	}
}

// ingest parses one datagram's worth of bytes and, if it is a valid,
// non-self announce, upserts the sender into the table. Split out of
// Run so the parse/filter/insert logic is testable without a real
// socket.
func (l *Listener) ingest(data []byte, sourceIP string) {
	var payload protocol.AnnouncePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	if payload.DeviceID == l.cfg.DeviceID {
		return // self-echo
	}

	l.table.AddOrUpdate(peertable.Peer{
		DeviceID: payload.DeviceID,
		Alias:    payload.Alias,
		Address:  sourceIP,
		// The local transfer listen port, NOT payload.Port — see
		// DESIGN.md "Open Question decisions" #1.
		Port:       l.cfg.ListenPort,
		LastActive: time.Now().Unix(),
	})
}

// Close releases the listener's socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}
