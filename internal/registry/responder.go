package registry

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/util"
)

const responseWriteTimeout = 2 * time.Second

// serveQueries answers directory queries one connection at a time: the
// full directory as "name,ip,port\n" lines, then close. The request body
// is never read.
func (r *Registry) serveQueries(ctx context.Context, ln *net.TCPListener) error {
	for ctx.Err() == nil {
		if err := ln.SetDeadline(time.Now().Add(r.poll)); err != nil {
			return fmt.Errorf("query responder: %w", err)
		}
		conn, err := ln.AcceptTCP()
		if err != nil {
			if util.IsTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("query responder: %w", err)
		}
		r.respond(conn)
	}
	return nil
}

func (r *Registry) respond(conn *net.TCPConn) {
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(responseWriteTimeout))
	if _, err := conn.Write(protocol.FormatDirectory(r.dir.Snapshot())); err != nil {
		util.LogDebug("query from %s: %v", conn.RemoteAddr(), err)
	}
}
