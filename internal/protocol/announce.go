package protocol

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// ErrMalformedAnnouncement is returned when a presence datagram does not
// follow the name/ip/port grammar.
var ErrMalformedAnnouncement = errors.New("malformed presence announcement")

// Announcement keys. The grammar is "name:<name>;ip:<ip>;port:<port>;".
// Values are not escaped, so a name containing ";ip:" cannot round-trip.
const (
	keyName = "name:"
	keyIP   = ";ip:"
	keyPort = ";port:"
)

// PeerIdentity is how a peer is known on the LAN. Two identities are equal
// when all three fields are equal.
type PeerIdentity struct {
	Name    string
	Address string // dotted-quad IPv4
	Port    uint16
}

// String returns "name@ip:port".
func (p PeerIdentity) String() string {
	return fmt.Sprintf("%s@%s", p.Name, p.HostPort())
}

// HostPort returns "ip:port", suitable for net.Dial.
func (p PeerIdentity) HostPort() string {
	return fmt.Sprintf("%s:%d", p.Address, p.Port)
}

// FormatAnnouncement renders the broadcast payload for id.
func FormatAnnouncement(id PeerIdentity) string {
	return fmt.Sprintf("name:%s;ip:%s;port:%d;", id.Name, id.Address, id.Port)
}

// ParseAnnouncement extracts the identity from a presence datagram.
// The name runs from "name:" to the first ";ip:", the address up to the
// first ";port:", and the port is the run of digits that follows.
func ParseAnnouncement(data []byte) (PeerIdentity, error) {
	msg := string(data)

	n1 := strings.Index(msg, keyName)
	n2 := strings.Index(msg, keyIP)
	n3 := strings.Index(msg, keyPort)
	if n1 < 0 || n2 < 0 || n3 < 0 || n1+len(keyName) > n2 || n2+len(keyIP) > n3 {
		return PeerIdentity{}, fmt.Errorf("%w: missing or misordered keys in %q", ErrMalformedAnnouncement, msg)
	}

	name := msg[n1+len(keyName) : n2]
	ip := msg[n2+len(keyIP) : n3]

	rest := msg[n3+len(keyPort):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	port, err := strconv.ParseUint(rest[:end], 10, 16)
	if err != nil {
		return PeerIdentity{}, fmt.Errorf("%w: bad port %q", ErrMalformedAnnouncement, rest[:end])
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return PeerIdentity{}, fmt.Errorf("%w: bad address %q", ErrMalformedAnnouncement, ip)
	}

	return PeerIdentity{Name: name, Address: ip, Port: uint16(port)}, nil
}
