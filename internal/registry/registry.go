// Package registry implements the discovery daemon: it collects presence
// announcements into a directory and serves that directory to local
// peers over a one-shot TCP query and an optional live HTTP feed.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gophercall/gopher/internal/config"
	"github.com/gophercall/gopher/internal/util"
)

// PollInterval bounds every blocking read and accept, and therefore how
// long shutdown takes.
const PollInterval = time.Second

// State is the daemon lifecycle.
type State int32

const (
	StateInit State = iota
	StateListening
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateListening:
		return "listening"
	case StateShuttingDown:
		return "shutting down"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Registry owns the directory and the sockets that feed and serve it.
type Registry struct {
	cfg   config.Registry
	dir   *Directory
	poll  time.Duration
	noise *util.Throttled

	state atomic.Int32

	udp  *net.UDPConn
	tcp  *net.TCPListener
	feed *feedServer
}

// New creates a registry in StateInit. Nothing is bound until Start.
func New(cfg config.Registry) *Registry {
	return &Registry{
		cfg:   cfg,
		dir:   NewDirectory(cfg.TTL),
		poll:  PollInterval,
		noise: util.NewThrottled(time.Minute),
	}
}

// Directory exposes the registry's directory.
func (r *Registry) Directory() *Directory { return r.dir }

// State returns the current lifecycle state.
func (r *Registry) State() State { return State(r.state.Load()) }

// Start binds the announcement port, the query port and, when configured,
// the feed. A bind failure is returned and leaves nothing open.
func (r *Registry) Start(ctx context.Context) error {
	if r.State() != StateInit {
		return fmt.Errorf("registry already %s", r.State())
	}

	udp, err := util.ListenUDPReuse(ctx, r.cfg.AnnounceAddr)
	if err != nil {
		return fmt.Errorf("bind announcement port %s: %w", r.cfg.AnnounceAddr, err)
	}
	tcp, err := util.ListenTCPReuse(ctx, r.cfg.QueryAddr)
	if err != nil {
		udp.Close()
		return fmt.Errorf("bind query port %s: %w", r.cfg.QueryAddr, err)
	}
	if r.cfg.FeedAddr != "" {
		feed, err := startFeed(r.cfg.FeedAddr, r.dir)
		if err != nil {
			udp.Close()
			tcp.Close()
			return fmt.Errorf("bind feed %s: %w", r.cfg.FeedAddr, err)
		}
		r.feed = feed
	}

	r.udp, r.tcp = udp, tcp
	r.state.Store(int32(StateListening))
	return nil
}

// AnnounceAddr returns the bound announcement address.
func (r *Registry) AnnounceAddr() net.Addr { return r.udp.LocalAddr() }

// QueryAddr returns the bound query address.
func (r *Registry) QueryAddr() net.Addr { return r.tcp.Addr() }

// FeedAddr returns the bound feed address, or nil without a feed.
func (r *Registry) FeedAddr() net.Addr {
	if r.feed == nil {
		return nil
	}
	return r.feed.addr()
}

// Run serves until ctx is cancelled or either listener fails, then stops
// both, closes every socket and returns the first fatal error.
func (r *Registry) Run(ctx context.Context) error {
	if r.State() != StateListening {
		return errors.New("registry not started")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				util.LogError("%s stopped: %v", name, err)
				errOnce.Do(func() { firstErr = err })
				cancel()
			}
		}()
	}

	run("announcement listener", func(ctx context.Context) error { return r.listenAnnouncements(ctx, r.udp) })
	run("query responder", func(ctx context.Context) error { return r.serveQueries(ctx, r.tcp) })
	if r.feed != nil {
		run("feed", r.feed.run)
	}

	<-ctx.Done()
	r.state.Store(int32(StateShuttingDown))
	wg.Wait()

	closeErr := errors.Join(r.udp.Close(), r.tcp.Close())
	r.state.Store(int32(StateStopped))
	if firstErr != nil {
		return firstErr
	}
	if closeErr != nil {
		util.LogDebug("closing registry sockets: %v", closeErr)
	}
	return nil
}
