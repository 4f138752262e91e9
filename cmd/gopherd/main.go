// gopherd is the gopher discovery registry daemon.
//
// Collects presence announcements broadcast by gopher peers on the LAN and
// answers directory queries from local peers. Optionally publishes the
// directory as JSON and over a WebSocket feed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gophercall/gopher/internal/config"
	"github.com/gophercall/gopher/internal/registry"
	"github.com/gophercall/gopher/internal/util"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		announcePort int
		queryPort    int
		feedAddr     string
		ttl          time.Duration
		debug        bool
	)

	cmd := &cobra.Command{
		Use:           "gopherd",
		Short:         "Gopher discovery registry",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				util.EnableDebug()
			}

			cfg := config.DefaultRegistry()
			cfg.AnnounceAddr = fmt.Sprintf(":%d", announcePort)
			cfg.QueryAddr = fmt.Sprintf(":%d", queryPort)
			cfg.FeedAddr = feedAddr
			cfg.TTL = ttl
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	cmd.Flags().IntVar(&announcePort, "announce-port", config.AnnouncePort, "UDP port presence announcements arrive on")
	cmd.Flags().IntVar(&queryPort, "query-port", config.QueryPort, "TCP port directory queries are answered on")
	cmd.Flags().StringVar(&feedAddr, "feed", "", fmt.Sprintf("HTTP address for the live directory feed, e.g. :%d (disabled if empty)", config.FeedPort))
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "forget peers not heard from for this long (0 keeps them forever)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func run(ctx context.Context, cfg config.Registry) error {
	r := registry.New(cfg)
	if err := r.Start(ctx); err != nil {
		return err
	}

	pterm.Info.Println(fmt.Sprintf("gopherd v%s", version))
	util.LogSuccess("listening for announcements on %s, queries on %s", r.AnnounceAddr(), r.QueryAddr())
	if addr := r.FeedAddr(); addr != nil {
		util.LogInfo("live feed on http://%s/peers and ws://%s/ws", addr, addr)
	}

	if err := r.Run(ctx); err != nil {
		return err
	}
	util.LogInfo("registry stopped")
	return nil
}
