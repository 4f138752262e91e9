package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedRecord is returned for a directory line that is not
// "name,ip,port".
var ErrMalformedRecord = errors.New("malformed directory record")

// FormatRecord renders one directory line, including the trailing newline.
func FormatRecord(id PeerIdentity) string {
	return fmt.Sprintf("%s,%s,%d\n", id.Name, id.Address, id.Port)
}

// FormatDirectory renders the full query response for ids.
func FormatDirectory(ids []PeerIdentity) []byte {
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(FormatRecord(id))
	}
	return []byte(sb.String())
}

// ParseRecord parses a single line (without newline). The name ends at the
// first comma and the address at the second.
func ParseRecord(line string) (PeerIdentity, error) {
	parts := strings.SplitN(strings.TrimRight(line, "\r"), ",", 3)
	if len(parts) != 3 {
		return PeerIdentity{}, fmt.Errorf("%w: %q", ErrMalformedRecord, line)
	}
	port, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 16)
	if err != nil {
		return PeerIdentity{}, fmt.Errorf("%w: bad port in %q", ErrMalformedRecord, line)
	}
	return PeerIdentity{Name: parts[0], Address: parts[1], Port: uint16(port)}, nil
}

// ParseDirectory reads newline-separated records until EOF. Malformed lines
// are skipped; the returned count says how many were.
func ParseDirectory(r io.Reader) ([]PeerIdentity, int, error) {
	var (
		ids     []PeerIdentity
		skipped int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		id, err := ParseRecord(line)
		if err != nil {
			skipped++
			continue
		}
		ids = append(ids, id)
	}
	return ids, skipped, sc.Err()
}
