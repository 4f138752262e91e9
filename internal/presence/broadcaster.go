// Package presence announces a peer on the local network so registries
// can list it.
package presence

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/util"
)

// Defaults for the announcement channel.
const (
	AnnouncePort     = 43753
	DefaultDest      = "255.255.255.255:43753"
	DefaultInterval  = 5 * time.Second
	writeTimeout     = time.Second
	failureLogPeriod = time.Minute
)

// Broadcaster periodically sends the peer's announcement datagram.
// Delivery is fire-and-forget: failures are logged and the next tick
// tries again.
type Broadcaster struct {
	identity protocol.PeerIdentity
	dest     string
	interval time.Duration

	noise *util.Throttled
}

// Option customizes a Broadcaster.
type Option func(*Broadcaster)

// WithDestination overrides the broadcast address (host:port).
func WithDestination(addr string) Option {
	return func(b *Broadcaster) { b.dest = addr }
}

// WithInterval overrides the announcement period.
func WithInterval(d time.Duration) Option {
	return func(b *Broadcaster) { b.interval = d }
}

// NewBroadcaster returns a Broadcaster announcing id.
func NewBroadcaster(id protocol.PeerIdentity, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		identity: id,
		dest:     DefaultDest,
		interval: DefaultInterval,
		noise:    util.NewThrottled(failureLogPeriod),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Announcement returns the datagram payload.
func (b *Broadcaster) Announcement() []byte {
	return []byte(protocol.FormatAnnouncement(b.identity))
}

// Run announces immediately and then every interval until ctx is
// cancelled. Only failing to open the socket is returned.
func (b *Broadcaster) Run(ctx context.Context) error {
	dst, err := net.ResolveUDPAddr("udp4", b.dest)
	if err != nil {
		return fmt.Errorf("resolve broadcast address: %w", err)
	}

	// Go enables SO_BROADCAST on UDP sockets.
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return fmt.Errorf("open broadcast socket: %w", err)
	}
	defer conn.Close()

	msg := b.Announcement()
	util.LogDebug("announcing %s to %s every %v", b.identity, b.dest, b.interval)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		b.send(conn, dst, msg)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (b *Broadcaster) send(conn *net.UDPConn, dst *net.UDPAddr, msg []byte) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.WriteToUDP(msg, dst); err != nil {
		b.noise.Debug("announcement to %s failed: %v", dst, err)
	}
}
