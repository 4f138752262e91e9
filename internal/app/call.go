package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gophercall/gopher/internal/media"
	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/transport"
	"github.com/gophercall/gopher/internal/util"
)

// Call errors.
var (
	ErrSelfCall = errors.New("calling yourself requires dev mode")
	ErrBusy     = errors.New("peer is already in a call")
)

const renderPollInterval = 100 * time.Millisecond

// Call is one running call leg: a sender towards the remote peer, a
// receiver on the local listen socket and a render loop between the
// delivery queue and the renderer.
//
// The call ends when its context is cancelled, when the receive socket
// fails or when the renderer fails. A sender whose source runs dry stops
// sending but the call keeps receiving.
type Call struct {
	ID     uuid.UUID
	Remote protocol.PeerIdentity
	Stats  *util.Stats

	peer     *Peer
	sendConn *net.UDPConn

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	errOnce sync.Once
	err     error
}

// StartCall opens a call leg to remote and renders what arrives with r.
func (p *Peer) StartCall(ctx context.Context, remote protocol.PeerIdentity, r media.Renderer) (*Call, error) {
	if p.isSelf(remote) && !p.cfg.DevMode {
		return nil, ErrSelfCall
	}

	select {
	case p.busy <- struct{}{}:
	default:
		return nil, ErrBusy
	}

	c, err := p.startCall(ctx, remote, r)
	if err != nil {
		<-p.busy
		return nil, err
	}
	return c, nil
}

func (p *Peer) startCall(ctx context.Context, remote protocol.PeerIdentity, r media.Renderer) (*Call, error) {
	stats := &util.Stats{}

	// ── 1. Receive side: decoder must open before anything is sent ────
	recv, err := transport.NewReceiver(transport.ReceiverConfig{
		Conn:       p.conn,
		NewDecoder: p.newDecoder,
		Queue:      p.queue,
		Stats:      stats,
	})
	if err != nil {
		return nil, err
	}

	// ── 2. Send side ──────────────────────────────────────────────────
	src, err := p.newSource()
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	raddr, err := net.ResolveUDPAddr("udp4", remote.HostPort())
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", remote, err)
	}
	sendConn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", remote, err)
	}
	send, err := transport.NewSender(transport.SenderConfig{
		Conn:    sendConn,
		Source:  src,
		Encoder: p.newEncoder(),
		BaseFPS: p.cfg.BaseFPS,
		MinFPS:  p.cfg.MinFPS,
		Stats:   stats,
	})
	if err != nil {
		sendConn.Close()
		return nil, err
	}

	// ── 3. Run the three loops ────────────────────────────────────────
	cCtx, cancel := context.WithCancel(ctx)
	c := &Call{
		ID:       uuid.New(),
		Remote:   remote,
		Stats:    stats,
		peer:     p,
		sendConn: sendConn,
		ctx:      cCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	util.LogInfo("call %s: %s -> %s", c.ID, p.identity, remote)
	util.StartStatsReporter(cCtx, stats)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := send.Run(cCtx); err != nil {
			c.fail("send", err)
		} else if cCtx.Err() == nil {
			util.LogInfo("call %s: source ended, receiving only", c.ID)
		}
	}()
	go func() {
		defer wg.Done()
		if err := recv.Run(cCtx); err != nil {
			c.fail("receive", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := c.renderLoop(r); err != nil {
			c.fail("render", err)
		}
	}()

	go func() {
		wg.Wait()
		p.queue.Drain()
		c.sendConn.Close()
		<-p.busy
		close(c.done)
		util.LogInfo("call %s ended", c.ID)
	}()

	return c, nil
}

// renderLoop hands decoded frames to r as they become available.
func (c *Call) renderLoop(r media.Renderer) error {
	for c.ctx.Err() == nil {
		f, ok := c.peer.queue.Pop(c.ctx, renderPollInterval)
		if !ok {
			continue
		}
		if err := r.Render(f); err != nil {
			return err
		}
		c.Stats.AddRendered()
	}
	return nil
}

// fail records the first error and ends the call.
func (c *Call) fail(role string, err error) {
	c.errOnce.Do(func() {
		c.err = fmt.Errorf("%s: %w", role, err)
		util.LogWarning("call %s: %v", c.ID, c.err)
	})
	c.cancel()
}

// Done returns a channel that is closed once every loop of the call has
// stopped and its resources are released.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call ends and returns the error that ended it,
// or nil if it was cancelled.
func (c *Call) Wait() error {
	<-c.done
	return c.err
}

// Close hangs up and waits for the call to wind down.
func (c *Call) Close() error {
	c.cancel()
	return c.Wait()
}
