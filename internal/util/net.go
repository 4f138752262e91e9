package util

import (
	"context"
	"errors"
	"net"
	"time"
)

// LocalIP returns the IPv4 address of the interface that would route to
// the public internet. No packet is sent: connecting a UDP socket only
// selects a route. Falls back to 127.0.0.1.
func LocalIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.To4() == nil {
		return "127.0.0.1"
	}
	return addr.IP.String()
}

// IsTimeout reports whether err is a deadline expiry on a net.Conn.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ListenUDPReuse binds a UDP socket with SO_REUSEADDR so several local
// processes can share the broadcast port.
func ListenUDPReuse(ctx context.Context, addr string) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}

// ListenTCPReuse binds a TCP listener with SO_REUSEADDR so a restarted
// daemon does not trip over TIME_WAIT sockets.
func ListenTCPReuse(ctx context.Context, addr string) (*net.TCPListener, error) {
	lc := net.ListenConfig{Control: reuseControl, KeepAlive: 30 * time.Second}
	l, err := lc.Listen(ctx, "tcp4", addr)
	if err != nil {
		return nil, err
	}
	return l.(*net.TCPListener), nil
}
