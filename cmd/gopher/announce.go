package main

import (
	"github.com/spf13/cobra"

	"github.com/gophercall/gopher/internal/app"
	"github.com/gophercall/gopher/internal/config"
	"github.com/gophercall/gopher/internal/util"
)

var (
	announcePort      int
	announceBroadcast string
)

var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Broadcast this peer's presence until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultPeer()
		cfg.Name = resolveName()
		cfg.RegistryAddr = registryAddr
		cfg.ListenPort = announcePort
		cfg.BroadcastAddr = announceBroadcast

		p, err := app.NewPeer(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		util.LogSuccess("announcing %s (Ctrl+C to stop)", p.Identity())
		return p.Announce(cmd.Context())
	},
}

func init() {
	def := config.DefaultPeer()
	announceCmd.Flags().IntVarP(&announcePort, "port", "p", 0, "UDP listen port to advertise (0 picks one)")
	announceCmd.Flags().StringVar(&announceBroadcast, "broadcast", def.BroadcastAddr, "Broadcast destination")
}
