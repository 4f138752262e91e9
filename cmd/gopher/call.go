package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gophercall/gopher/internal/app"
	"github.com/gophercall/gopher/internal/config"
	"github.com/gophercall/gopher/internal/media"
	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/util"
)

var callCfg = config.DefaultPeer()

var (
	callTarget string
	callSource string
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Announce this peer, pick another one and start a video call",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg := callCfg
		cfg.Name = resolveName()
		cfg.RegistryAddr = registryAddr
		cfg.Source = config.SourceKind(callSource)

		p, err := app.NewPeer(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		pterm.Info.Println(fmt.Sprintf("gopher v%s", version))
		util.LogInfo("you are %s", p.Identity())

		announceCtx, stopAnnounce := context.WithCancel(ctx)
		defer stopAnnounce()
		go func() {
			if err := p.Announce(announceCtx); err != nil {
				util.LogWarning("presence: %v", err)
			}
		}()

		remote, err := pickTarget(ctx, p)
		if err != nil {
			return err
		}

		call, err := p.StartCall(ctx, remote, newRenderer(cfg))
		if err != nil {
			return err
		}
		util.LogSuccess("in call with %s (Ctrl+C to hang up)", remote)

		select {
		case <-ctx.Done():
			return call.Close()
		case <-call.Done():
			return call.Wait()
		}
	},
}

func init() {
	f := callCmd.Flags()
	f.StringVarP(&callTarget, "target", "t", "", "Peer to call as ip:port (skips selection)")
	f.IntVarP(&callCfg.ListenPort, "port", "p", 0, "UDP port to receive video on (0 picks one)")
	f.StringVar(&callCfg.BroadcastAddr, "broadcast", callCfg.BroadcastAddr, "Broadcast destination for presence")
	f.BoolVarP(&callCfg.DevMode, "dev", "d", false, "Dev mode: list yourself and allow self-calls")
	f.StringVar(&callSource, "source", string(config.SourcePattern), "What to send: pattern or screen")
	f.IntVar(&callCfg.Display, "display", 0, "Display index for --source screen")
	f.Float64Var(&callCfg.BaseFPS, "fps", callCfg.BaseFPS, "Target frame rate")
	f.Float64Var(&callCfg.MinFPS, "min-fps", callCfg.MinFPS, "Lowest frame rate adaptive pacing may fall to")
	f.IntVar(&callCfg.QueueSize, "queue", callCfg.QueueSize, "Decoded frames buffered for display")
	f.IntVar(&callCfg.JPEGQuality, "quality", callCfg.JPEGQuality, "JPEG quality 1~100")
	f.StringVar(&callCfg.SnapshotPath, "snapshot", "", "Write the latest received frame to this JPEG file")
}

func newRenderer(cfg config.Peer) media.Renderer {
	if cfg.SnapshotPath != "" {
		return media.NewSnapshotRenderer(cfg.SnapshotPath)
	}
	return &media.LogRenderer{}
}

// pickTarget resolves --target, or lets the user choose among the peers
// the registry knows.
func pickTarget(ctx context.Context, p *app.Peer) (protocol.PeerIdentity, error) {
	if callTarget != "" {
		return parseTarget(callTarget)
	}

	if !p.RegistryRunning(ctx) {
		return protocol.PeerIdentity{}, errors.New("registry not reachable: start gopherd or pass --target")
	}
	peers, err := p.Peers(ctx)
	if err != nil {
		return protocol.PeerIdentity{}, err
	}
	if len(peers) == 0 {
		return protocol.PeerIdentity{}, errors.New("no peers announced yet")
	}
	if !interactive() {
		renderIdentities(peers)
		return protocol.PeerIdentity{}, errors.New("not a terminal: pass --target ip:port")
	}

	options := make([]string, len(peers))
	byOption := make(map[string]protocol.PeerIdentity, len(peers))
	for i, id := range peers {
		options[i] = fmt.Sprintf("%s (%s)", id.Name, id.HostPort())
		byOption[options[i]] = id
	}

	choice, err := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithDefaultText("Select a gopher to call").
		Show()
	pterm.Println()
	if err != nil {
		return protocol.PeerIdentity{}, err
	}
	return byOption[choice], nil
}

func parseTarget(raw string) (protocol.PeerIdentity, error) {
	host, portStr, err := net.SplitHostPort(raw)
	if err != nil {
		return protocol.PeerIdentity{}, fmt.Errorf("invalid --target %q: %w", raw, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return protocol.PeerIdentity{}, fmt.Errorf("invalid --target port %q", portStr)
	}
	return protocol.PeerIdentity{Name: host, Address: host, Port: uint16(port)}, nil
}
