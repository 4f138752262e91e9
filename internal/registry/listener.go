package registry

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/util"
)

// maxAnnouncementSize bounds one presence datagram.
const maxAnnouncementSize = 1024

// listenAnnouncements folds presence datagrams into the directory until
// ctx is done. Unparseable datagrams are dropped. Any read error other
// than the poll deadline is fatal.
func (r *Registry) listenAnnouncements(ctx context.Context, conn *net.UDPConn) error {
	buf := make([]byte, maxAnnouncementSize)

	for ctx.Err() == nil {
		if err := conn.SetReadDeadline(time.Now().Add(r.poll)); err != nil {
			return fmt.Errorf("announcement listener: %w", err)
		}
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if util.IsTimeout(err) {
				r.dir.Expire()
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("announcement listener: %w", err)
		}

		id, err := protocol.ParseAnnouncement(buf[:n])
		if err != nil {
			r.noise.Debug("dropping announcement from %s: %v", from, err)
			continue
		}
		if r.dir.Upsert(id) {
			util.LogInfo("peer %s announced", id)
		}
	}
	return nil
}
