// Package transport carries compressed video access-units between peers
// over plain UDP. An access-unit travels as three header datagrams (size,
// type, timestamp) followed by its payload in fixed-size chunks; the
// receiver reassembles by byte count only. Nothing is retransmitted.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/util"
)

// DefaultReadTimeout bounds every receive so loops can observe shutdown.
const DefaultReadTimeout = 100 * time.Millisecond

// Receive outcomes. Only ErrFatalSocket ends a receive loop; the rest
// abandon the current message and the caller polls again.
var (
	ErrTimeout     = errors.New("receive timeout")
	ErrMalformed   = errors.New("malformed message")
	ErrIncomplete  = errors.New("incomplete payload")
	ErrFatalSocket = errors.New("fatal socket error")
)

// DatagramReader is the receive side of a datagram socket. *net.UDPConn
// satisfies it.
type DatagramReader interface {
	Read(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
}

// Frame is one reassembled access-unit.
type Frame struct {
	Type      uint8
	Timestamp uint64 // sender clock, microseconds
	Payload   []byte
}

// NowMicros returns the wall clock in microseconds, as carried in the
// timestamp field.
func NowMicros() uint64 {
	return uint64(time.Now().UnixMicro())
}

// ---------------------------------------------------------------------------
// Send
// ---------------------------------------------------------------------------

// SendFrame writes payload as one access-unit: the three header datagrams
// followed by the payload chunks, each a separate Write. The first failed
// write aborts the access-unit and is returned.
func SendFrame(w io.Writer, payload []byte, typ uint8) error {
	h := protocol.NewHeader(len(payload), typ, NowMicros())
	if err := h.Validate(); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}

	for _, field := range protocol.EncodeHeader(h) {
		if _, err := w.Write(field); err != nil {
			return fmt.Errorf("send header: %w", err)
		}
	}
	for i, chunk := range protocol.Chunk(payload) {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("send chunk %d: %w", i, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Receive
// ---------------------------------------------------------------------------

// ReceiveFrame reads one access-unit from r. Every read is preceded by a
// fresh deadline of timeout.
//
// Header field buffers are exactly the field width: a larger datagram in
// that slot is truncated the way recvfrom truncates it. A size datagram
// shorter than 4 bytes is treated as a broken socket.
func ReceiveFrame(r DatagramReader, timeout time.Duration) (*Frame, error) {
	var (
		sizeBuf [protocol.SizeFieldLen]byte
		typeBuf [protocol.TypeFieldLen]byte
		tsBuf   [protocol.TimestampFieldLen]byte
	)

	n, err := readDatagram(r, sizeBuf[:], timeout)
	if err != nil {
		return nil, classify("size", err)
	}
	if n != len(sizeBuf) {
		return nil, fmt.Errorf("%w: size datagram of %d bytes", ErrFatalSocket, n)
	}
	size, _ := protocol.DecodeSize(sizeBuf[:])

	n, err = readDatagram(r, typeBuf[:], timeout)
	if err != nil {
		return nil, classify("type", err)
	}
	if n != len(typeBuf) {
		return nil, fmt.Errorf("%w: empty type datagram", ErrMalformed)
	}

	n, err = readDatagram(r, tsBuf[:], timeout)
	if err != nil {
		return nil, classify("timestamp", err)
	}
	if n != len(tsBuf) {
		return nil, fmt.Errorf("%w: timestamp datagram of %d bytes", ErrMalformed, n)
	}
	ts, _ := protocol.DecodeTimestamp(tsBuf[:])

	// Bound check before any allocation sized by the header.
	if err := protocol.ValidateTotalSize(size); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	h := protocol.Header{TotalSize: size, Type: typeBuf[0], Timestamp: ts}
	payload, err := reassemble(r, h.PayloadLen(), timeout)
	if err != nil {
		return nil, err
	}

	return &Frame{Type: h.Type, Timestamp: h.Timestamp, Payload: payload}, nil
}

// reassemble collects want payload bytes from consecutive datagrams.
// Each read takes up to MaxDatagramSize bytes but only the bytes still
// needed are kept.
func reassemble(r DatagramReader, want int, timeout time.Duration) ([]byte, error) {
	payload := make([]byte, 0, want)
	buf := make([]byte, protocol.MaxDatagramSize)

	for len(payload) < want {
		n, err := readDatagram(r, buf, timeout)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil, fmt.Errorf("%w: payload: %v", ErrFatalSocket, err)
			}
			return nil, fmt.Errorf("%w: got %d of %d bytes: %v", ErrIncomplete, len(payload), want, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("%w: got %d of %d bytes: empty datagram", ErrIncomplete, len(payload), want)
		}
		need := want - len(payload)
		payload = append(payload, buf[:min(n, need)]...)
	}
	return payload, nil
}

func readDatagram(r DatagramReader, buf []byte, timeout time.Duration) (int, error) {
	if err := r.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	return r.Read(buf)
}

// classify maps a header read error to ErrTimeout or ErrFatalSocket.
func classify(field string, err error) error {
	if util.IsTimeout(err) {
		return fmt.Errorf("%w: %s", ErrTimeout, field)
	}
	return fmt.Errorf("%w: %s: %v", ErrFatalSocket, field, err)
}
