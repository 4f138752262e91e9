// Package config holds the parameters of a peer and of the registry
// daemon. Both are populated from CLI flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Well-known ports.
const (
	AnnouncePort = 43753 // UDP presence broadcasts
	QueryPort    = 43823 // TCP directory queries
	FeedPort     = 43824 // HTTP/WebSocket directory feed
)

// SourceKind selects what a peer transmits.
type SourceKind string

const (
	SourcePattern SourceKind = "pattern"
	SourceScreen  SourceKind = "screen"
)

// Peer configures one gopher peer.
type Peer struct {
	Name          string
	ListenPort    int    // local UDP port for incoming video; 0 picks one
	RegistryAddr  string // registry query address
	BroadcastAddr string // presence destination
	BaseFPS       float64
	MinFPS        float64
	QueueSize     int // decoded frames waiting for render
	DevMode       bool
	Source        SourceKind
	Display       int // display index for SourceScreen
	JPEGQuality   int
	SnapshotPath  string // if set, the latest received frame is written here
}

// DefaultPeer returns a peer configuration with the standard ports and
// pacing.
func DefaultPeer() Peer {
	return Peer{
		RegistryAddr:  fmt.Sprintf("127.0.0.1:%d", QueryPort),
		BroadcastAddr: fmt.Sprintf("255.255.255.255:%d", AnnouncePort),
		BaseFPS:       30,
		MinFPS:        15,
		QueueSize:     10,
		Source:        SourcePattern,
		JPEGQuality:   60,
	}
}

// Validate reports the first invalid field.
func (p Peer) Validate() error {
	if p.Name == "" {
		return errors.New("name must not be empty")
	}
	if err := checkPort("listen port", p.ListenPort, true); err != nil {
		return err
	}
	if err := checkAddr("registry address", p.RegistryAddr); err != nil {
		return err
	}
	if err := checkAddr("broadcast address", p.BroadcastAddr); err != nil {
		return err
	}
	if p.BaseFPS <= 0 || p.MinFPS <= 0 || p.MinFPS > p.BaseFPS {
		return fmt.Errorf("invalid frame rates: base %.1f, min %.1f", p.BaseFPS, p.MinFPS)
	}
	if p.QueueSize < 1 {
		return fmt.Errorf("queue size must be positive, got %d", p.QueueSize)
	}
	switch p.Source {
	case SourcePattern, SourceScreen:
	default:
		return fmt.Errorf("unknown source %q (want %q or %q)", p.Source, SourcePattern, SourceScreen)
	}
	if p.JPEGQuality < 1 || p.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be 1~100, got %d", p.JPEGQuality)
	}
	return nil
}

// Registry configures the discovery daemon.
type Registry struct {
	AnnounceAddr string // UDP bind address for announcements
	QueryAddr    string // TCP bind address for directory queries
	FeedAddr     string // HTTP bind address for the live feed; empty disables it
	TTL          time.Duration
}

// DefaultRegistry returns the daemon defaults: all interfaces, standard
// ports, no feed and entries that never expire.
func DefaultRegistry() Registry {
	return Registry{
		AnnounceAddr: fmt.Sprintf(":%d", AnnouncePort),
		QueryAddr:    fmt.Sprintf(":%d", QueryPort),
	}
}

// Validate reports the first invalid field.
func (r Registry) Validate() error {
	if err := checkAddr("announce address", r.AnnounceAddr); err != nil {
		return err
	}
	if err := checkAddr("query address", r.QueryAddr); err != nil {
		return err
	}
	if r.FeedAddr != "" {
		if err := checkAddr("feed address", r.FeedAddr); err != nil {
			return err
		}
	}
	if r.TTL < 0 {
		return fmt.Errorf("ttl must not be negative, got %v", r.TTL)
	}
	return nil
}

func checkPort(what string, port int, allowZero bool) error {
	if (port == 0 && allowZero) || (port >= 1 && port <= 65535) {
		return nil
	}
	return fmt.Errorf("invalid %s %d (must be 1~65535)", what, port)
}

func checkAddr(what, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid %s %q: %w", what, addr, err)
	}
	return nil
}
