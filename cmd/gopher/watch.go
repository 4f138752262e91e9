package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gophercall/gopher/internal/config"
	"github.com/gophercall/gopher/internal/registry"
	"github.com/gophercall/gopher/internal/util"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the registry's live directory feed",
	Long: `Follow the registry's live directory feed.

The registry must be started with --feed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		util.LogInfo("watching %s (Ctrl+C to stop)", watchURL)
		return registry.Watch(cmd.Context(), watchURL, func(peers []registry.Peer) {
			pterm.Println()
			pterm.Info.Println(fmt.Sprintf("%d peer(s)", len(peers)))
			if len(peers) > 0 {
				if err := renderPeers(peers); err != nil {
					util.LogDebug("render: %v", err)
				}
			}
		})
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", fmt.Sprintf("ws://127.0.0.1:%d/ws", config.FeedPort), "Feed WebSocket URL")
}
