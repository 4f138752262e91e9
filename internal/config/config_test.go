package config

import (
	"testing"
	"time"
)

func TestDefaultPeerNeedsName(t *testing.T) {
	p := DefaultPeer()
	if err := p.Validate(); err == nil {
		t.Fatal("default peer without name validated")
	}
	p.Name = "Alice"
	if err := p.Validate(); err != nil {
		t.Fatalf("default peer with name: %v", err)
	}
}

func TestPeerValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Peer)
	}{
		{"port too high", func(p *Peer) { p.ListenPort = 70000 }},
		{"negative port", func(p *Peer) { p.ListenPort = -1 }},
		{"bad registry", func(p *Peer) { p.RegistryAddr = "localhost" }},
		{"bad broadcast", func(p *Peer) { p.BroadcastAddr = "" }},
		{"min above base", func(p *Peer) { p.MinFPS = 40 }},
		{"zero base", func(p *Peer) { p.BaseFPS = 0 }},
		{"empty queue", func(p *Peer) { p.QueueSize = 0 }},
		{"unknown source", func(p *Peer) { p.Source = "webcam" }},
		{"quality", func(p *Peer) { p.JPEGQuality = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPeer()
			p.Name = "Alice"
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}

func TestRegistryValidate(t *testing.T) {
	r := DefaultRegistry()
	if err := r.Validate(); err != nil {
		t.Fatalf("default registry: %v", err)
	}
	if r.TTL != 0 || r.FeedAddr != "" {
		t.Errorf("defaults: ttl=%v feed=%q, want disabled", r.TTL, r.FeedAddr)
	}

	r.TTL = -time.Second
	if err := r.Validate(); err == nil {
		t.Error("negative TTL validated")
	}

	r = DefaultRegistry()
	r.FeedAddr = "nope"
	if err := r.Validate(); err == nil {
		t.Error("bad feed address validated")
	}
}
