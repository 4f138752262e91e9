// Package app contains the top-level orchestration of a gopher peer:
// presence, peer listing and call legs.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/gophercall/gopher/internal/config"
	"github.com/gophercall/gopher/internal/delivery"
	"github.com/gophercall/gopher/internal/media"
	"github.com/gophercall/gopher/internal/presence"
	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/registry"
	"github.com/gophercall/gopher/internal/util"
)

// recvBufferSize asks the kernel for room to absorb a whole access-unit
// burst before the receiver drains it.
const recvBufferSize = 4 << 20

// Peer is one running gopher. It owns the listen socket that incoming
// video arrives on and the queue decoded frames wait in; only one call
// can use them at a time.
type Peer struct {
	cfg      config.Peer
	identity protocol.PeerIdentity
	conn     *net.UDPConn
	queue    *delivery.Queue[*media.Frame]

	// busy is held for the lifetime of a call.
	busy chan struct{}

	newSource  func() (media.Source, error)
	newEncoder func() media.Encoder
	newDecoder func() (media.Decoder, error)
}

// NewPeer binds the listen socket and derives the peer's identity from
// the primary local address.
func NewPeer(cfg config.Peer) (*Peer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: cfg.ListenPort})
	if err != nil {
		return nil, fmt.Errorf("bind listen port %d: %w", cfg.ListenPort, err)
	}
	if err := conn.SetReadBuffer(recvBufferSize); err != nil {
		util.LogDebug("set receive buffer: %v", err)
	}

	p := &Peer{
		cfg: cfg,
		identity: protocol.PeerIdentity{
			Name:    cfg.Name,
			Address: util.LocalIP(),
			Port:    uint16(conn.LocalAddr().(*net.UDPAddr).Port),
		},
		conn:  conn,
		queue: delivery.New[*media.Frame](cfg.QueueSize),
		busy:  make(chan struct{}, 1),
	}
	p.newSource = p.defaultSource
	p.newEncoder = func() media.Encoder { return media.NewJPEGCodec(cfg.JPEGQuality) }
	p.newDecoder = media.NewJPEGDecoder
	return p, nil
}

// Identity returns how this peer announces itself.
func (p *Peer) Identity() protocol.PeerIdentity { return p.identity }

// Close releases the listen socket and any queued frames.
func (p *Peer) Close() error {
	p.queue.Drain()
	return p.conn.Close()
}

// Announce broadcasts the peer's presence until ctx is cancelled.
func (p *Peer) Announce(ctx context.Context) error {
	b := presence.NewBroadcaster(p.identity, presence.WithDestination(p.cfg.BroadcastAddr))
	return b.Run(ctx)
}

// Peers lists the peers known to the registry. The peer itself is left
// out, except in dev mode where it comes first so it can call itself.
func (p *Peer) Peers(ctx context.Context) ([]protocol.PeerIdentity, error) {
	ids, err := registry.Query(ctx, p.cfg.RegistryAddr)
	if err != nil {
		return nil, err
	}

	others := make([]protocol.PeerIdentity, 0, len(ids)+1)
	if p.cfg.DevMode {
		others = append(others, p.identity)
	}
	for _, id := range ids {
		if !p.isSelf(id) {
			others = append(others, id)
		}
	}
	return others, nil
}

// RegistryRunning reports whether the configured registry answers.
func (p *Peer) RegistryRunning(ctx context.Context) bool {
	return registry.IsRunning(ctx, p.cfg.RegistryAddr)
}

func (p *Peer) isSelf(id protocol.PeerIdentity) bool {
	if id.Port != p.identity.Port {
		return false
	}
	if id.Address == p.identity.Address {
		return true
	}
	addr, err := netip.ParseAddr(id.Address)
	return err == nil && addr.IsLoopback()
}

func (p *Peer) defaultSource() (media.Source, error) {
	switch p.cfg.Source {
	case config.SourceScreen:
		return media.NewScreenSource(p.cfg.Display)
	case config.SourcePattern:
		return media.NewPatternSource(media.DefaultWidth, media.DefaultHeight), nil
	}
	return nil, errors.New("unknown source " + string(p.cfg.Source))
}
