package registry

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/util"
)

const queryTimeout = 3 * time.Second

// Query fetches the directory from the registry at addr. Malformed lines
// are skipped.
func Query(ctx context.Context, addr string) ([]protocol.PeerIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("query registry %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}

	ids, skipped, err := protocol.ParseDirectory(conn)
	if err != nil {
		return nil, fmt.Errorf("read directory from %s: %w", addr, err)
	}
	if skipped > 0 {
		util.LogDebug("skipped %d malformed directory lines from %s", skipped, addr)
	}
	return ids, nil
}

// IsRunning reports whether a registry accepts queries at addr.
func IsRunning(ctx context.Context, addr string) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Watch follows the live feed at url (ws://host:port/ws), calling fn
// with the full directory on every update until ctx is done or the
// connection drops.
func Watch(ctx context.Context, url string, fn func([]Peer)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to feed: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for {
		var peers []Peer
		if err := conn.ReadJSON(&peers); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		fn(peers)
	}
}
