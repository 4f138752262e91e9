package presence

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gophercall/gopher/internal/protocol"
)

func TestBroadcasterAnnounces(t *testing.T) {
	rx, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer rx.Close()

	id := protocol.PeerIdentity{Name: "Alice", Address: "10.0.0.5", Port: 5000}
	b := NewBroadcaster(id,
		WithDestination(rx.LocalAddr().String()),
		WithInterval(20*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	buf := make([]byte, 512)
	for i := 0; i < 3; i++ {
		rx.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := rx.Read(buf)
		if err != nil {
			t.Fatalf("announcement %d: %v", i, err)
		}
		if got := string(buf[:n]); got != "name:Alice;ip:10.0.0.5;port:5000;" {
			t.Fatalf("announcement %d = %q", i, got)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not stop")
	}
}

func TestBroadcasterSendsImmediately(t *testing.T) {
	rx, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer rx.Close()

	b := NewBroadcaster(protocol.PeerIdentity{Name: "Bob", Address: "10.0.0.6", Port: 6000},
		WithDestination(rx.LocalAddr().String()),
		WithInterval(time.Hour),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	rx.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := rx.Read(make([]byte, 512)); err != nil {
		t.Fatalf("no announcement before first tick: %v", err)
	}
}

func TestBroadcasterBadDestination(t *testing.T) {
	b := NewBroadcaster(protocol.PeerIdentity{Name: "x", Address: "1.2.3.4", Port: 1},
		WithDestination("not an address"))
	if err := b.Run(context.Background()); err == nil {
		t.Fatal("Run with bad destination succeeded")
	}
}
