// Package engine wires identity, config, peertable, discovery, and
// transfer into the two top-level operations spec.md §6 describes:
// running as a listening node, and sending a set of paths to a peer.
//
// Grounded on the teacher's cmd/bitshare/main.go runListenMode /
// runSendMode, generalized from direct os.Args handling into callable
// functions a CLI layer can invoke, and its sigChan/signal.Notify
// graceful-shutdown pattern.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"bitshare/internal/config"
	"bitshare/internal/discovery"
	"bitshare/internal/localfs"
	"bitshare/internal/peertable"
	"bitshare/internal/transfer"
)

// staleSweepInterval is how often the listen loop evicts peers that
// have missed discovery.StaleThreshold worth of announces.
const staleSweepInterval = 5 * time.Second

// Node bundles the long-lived state a running listen session needs:
// the peer table discovery fills in, and the config it was started
// with.
type Node struct {
	Config *config.Config
	Table  *peertable.Table
}

// ListenOptions configures RunListen.
type ListenOptions struct {
	OnOffer    transfer.OfferDecisionFunc
	OnProgress transfer.ProgressFunc
	// OnPeerChange, if set, is invoked with the current snapshot after
	// each periodic stale-peer sweep (every staleSweepInterval). Inserts
	// made by the discovery listener do not trigger it on their own.
	OnPeerChange func([]peertable.Peer)
}

// RunListen starts the broadcaster, discovery listener, and transfer
// server, and blocks until ctx is canceled or a SIGINT/SIGTERM arrives.
// It returns only an error; callers observe the live peer table through
// opts.OnPeerChange.
func RunListen(ctx context.Context, cfg *config.Config, opts ListenOptions) error {
	log := logrus.WithField("component", "engine")

	table := peertable.New()
	node := &Node{Config: cfg, Table: table}

	dCfg := discovery.Config{
		DeviceID:   cfg.DeviceID,
		Alias:      cfg.Alias,
		ListenPort: cfg.ListenPort,
	}

	broadcaster, err := discovery.NewBroadcaster(dCfg)
	if err != nil {
		return fmt.Errorf("engine: start broadcaster: %w", err)
	}
	defer broadcaster.Close()

	listener, err := discovery.NewListener(dCfg, table)
	if err != nil {
		return fmt.Errorf("engine: start discovery listener: %w", err)
	}
	defer listener.Close()

	srv := transfer.NewServer(cfg.ListenPort, cfg.DownloadDir, opts.OnOffer, opts.OnProgress)
	ln, err := srv.Listen()
	if err != nil {
		return fmt.Errorf("engine: start transfer server: %w", err)
	}
	defer ln.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go broadcaster.Run(runCtx)
	go listener.Run(runCtx)
	go func() {
		if err := srv.Serve(runCtx, ln); err != nil {
			log.WithError(err).Error("transfer server stopped")
		}
	}()
	go sweepStalePeers(runCtx, node, opts.OnPeerChange)

	log.WithFields(logrus.Fields{
		"device_id":   cfg.DeviceID,
		"alias":       cfg.Alias,
		"listen_port": cfg.ListenPort,
	}).Info("bitshare node listening")

	waitForShutdown(runCtx)
	log.Info("shutting down")
	return nil
}

// sweepStalePeers periodically evicts peers that have gone quiet,
// per spec.md's three-missed-announce eviction rule.
func sweepStalePeers(ctx context.Context, node *Node, onChange func([]peertable.Peer)) {
	ticker := time.NewTicker(staleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			node.Table.RemoveStale(int64(discovery.StaleThreshold.Seconds()))
			if onChange != nil {
				onChange(node.Table.Snapshot())
			}
		}
	}
}

// waitForShutdown blocks until ctx is canceled or the process receives
// SIGINT/SIGTERM, mirroring the teacher's main.go signal-channel idiom.
func waitForShutdown(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
	case <-sigChan:
	}
}

// RunSend resolves paths into a flat file list and sends them to
// peerAddr (host:port) as a single transfer.
func RunSend(cfg *config.Config, peerAddr string, paths []string, onProgress transfer.ProgressFunc) error {
	var entries []transfer.FileEntry
	for _, p := range paths {
		found, err := localfs.WalkDirectory(p)
		if err != nil {
			return fmt.Errorf("engine: enumerate %s: %w", p, err)
		}
		entries = append(entries, found...)
	}
	if len(entries) == 0 {
		return fmt.Errorf("engine: no files found among %v", paths)
	}

	client := transfer.NewClient(cfg.DeviceID, cfg.Alias)
	return client.Send(peerAddr, entries, onProgress)
}
