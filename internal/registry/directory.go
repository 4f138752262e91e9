package registry

import (
	"sync"
	"time"

	"github.com/gophercall/gopher/internal/protocol"
)

// Entry is one known peer.
type Entry struct {
	Identity protocol.PeerIdentity
	LastSeen time.Time
}

// Directory is the registry's list of peers, in announcement order.
//
// A peer is keyed by (name, address): announcing from a new port replaces
// the previous entry, and repeating an identical announcement only
// refreshes LastSeen.
type Directory struct {
	mu      sync.Mutex
	entries []Entry
	ttl     time.Duration // 0 disables expiry
	now     func() time.Time

	// changed is closed and replaced on every mutation.
	changed chan struct{}
}

// NewDirectory returns an empty directory. Entries older than ttl are
// compacted away; ttl 0 keeps them forever.
func NewDirectory(ttl time.Duration) *Directory {
	return &Directory{
		ttl:     ttl,
		now:     time.Now,
		changed: make(chan struct{}),
	}
}

// Upsert records an announcement and reports whether the visible
// directory changed.
func (d *Directory) Upsert(id protocol.PeerIdentity) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	mutated := d.expireLocked(now) > 0

	kept := d.entries[:0]
	found := false
	for _, e := range d.entries {
		switch {
		case e.Identity == id:
			e.LastSeen = now
			found = true
		case e.Identity.Name == id.Name && e.Identity.Address == id.Address:
			mutated = true
			continue
		}
		kept = append(kept, e)
	}
	clear(d.entries[len(kept):])
	d.entries = kept

	if !found {
		d.entries = append(d.entries, Entry{Identity: id, LastSeen: now})
		mutated = true
	}
	if mutated {
		d.notifyLocked()
	}
	return mutated
}

// Expire drops entries older than the TTL and returns how many went.
func (d *Directory) Expire() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.expireLocked(d.now())
	if n > 0 {
		d.notifyLocked()
	}
	return n
}

// Snapshot returns the identities in announcement order.
func (d *Directory) Snapshot() []protocol.PeerIdentity {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]protocol.PeerIdentity, len(d.entries))
	for i, e := range d.entries {
		ids[i] = e.Identity
	}
	return ids
}

// Entries returns a copy of the entries.
func (d *Directory) Entries() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Entry(nil), d.entries...)
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Changed returns a channel closed at the next mutation.
func (d *Directory) Changed() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.changed
}

func (d *Directory) expireLocked(now time.Time) int {
	if d.ttl <= 0 {
		return 0
	}
	kept := d.entries[:0]
	for _, e := range d.entries {
		if now.Sub(e.LastSeen) <= d.ttl {
			kept = append(kept, e)
		}
	}
	n := len(d.entries) - len(kept)
	clear(d.entries[len(kept):])
	d.entries = kept
	return n
}

func (d *Directory) notifyLocked() {
	close(d.changed)
	d.changed = make(chan struct{})
}
