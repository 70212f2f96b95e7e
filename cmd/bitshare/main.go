package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bitshare/internal/config"
	"bitshare/internal/engine"
	"bitshare/internal/peertable"
	"bitshare/internal/transfer"
	"bitshare/internal/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "bitshare",
		Short: "Peer-to-peer LAN file transfer",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newListenCmd(), newSendCmd(), newPeersCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func newListenCmd() *cobra.Command {
	var autoAccept bool

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Announce this device and accept incoming transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			opts := engine.ListenOptions{
				OnOffer: func(offer transfer.OfferSummary) bool {
					if autoAccept {
						return true
					}
					return promptAccept(offer)
				},
				OnProgress: printProgress,
			}

			fmt.Printf("listening as %q (%s) on port %d, saving to %s\n",
				cfg.Alias, cfg.DeviceID, cfg.ListenPort, cfg.DownloadDir)
			if ips, err := utils.GetAllLocalIPs(); err == nil {
				fmt.Printf("reachable at: %v\n", ips)
			}
			fmt.Println("press Ctrl+C to stop")

			return engine.RunListen(context.Background(), cfg, opts)
		},
	}
	cmd.Flags().BoolVar(&autoAccept, "yes", false, "accept every incoming transfer without prompting")
	return cmd
}

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <host:port> <path>...",
		Short: "Send one or more files or directories to a peer",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			addr, paths := args[0], args[1:]
			if err := engine.RunSend(cfg, addr, paths, printProgress); err != nil {
				return err
			}
			fmt.Println("\ntransfer complete")
			return nil
		},
	}
	return cmd
}

func newPeersCmd() *cobra.Command {
	var waitSeconds int

	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Listen for peer announcements for a short window and print what was found",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			fmt.Printf("watching for peers for %ds...\n", waitSeconds)

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(waitSeconds)*time.Second)
			defer cancel()

			return engine.RunListen(ctx, cfg, engine.ListenOptions{
				OnOffer: func(transfer.OfferSummary) bool { return false },
				OnPeerChange: func(peers []peertable.Peer) {
					printPeers(peers)
				},
			})
		},
	}
	cmd.Flags().IntVar(&waitSeconds, "seconds", 10, "how long to watch for announcements")
	return cmd
}

func printPeers(peers []peertable.Peer) {
	fmt.Printf("\n%d peer(s):\n", len(peers))
	for _, p := range peers {
		fmt.Printf("  %s (%s) at %s:%d\n", p.Alias, p.DeviceID, p.Address, p.Port)
	}
}

func printProgress(p transfer.Progress) {
	fmt.Printf("\r[%d/%d] %s: %s/%s", p.FileIndex+1, p.TotalFiles, p.FilePath,
		utils.FormatBytes(p.BytesDone), utils.FormatBytes(p.TotalSize))
}

func promptAccept(offer transfer.OfferSummary) bool {
	fmt.Printf("\nincoming transfer from %q (%d file(s), %s): accept? [y/N] ",
		offer.RemoteAlias, offer.TotalFiles, utils.FormatBytes(offer.TotalSize))
	var reply string
	fmt.Scanln(&reply)
	return reply == "y" || reply == "Y"
}
