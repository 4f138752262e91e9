// Package protocol defines the wire formats shared by gopher peers: the
// framed video datagram header, the presence announcement grammar and the
// directory record format served by the registry.
package protocol

import "fmt"

// Packet type constants.
const (
	TypeVideo uint8 = 0x01 // Compressed video access-unit
	TypeAudio uint8 = 0x02 // Reserved; receivers ignore it
)

// Framing constants.
const (
	SizeFieldLen      = 4 // leading total_size field, not counted in TotalSize
	TypeFieldLen      = 1
	TimestampFieldLen = 8

	// HeaderOverhead is what TotalSize counts besides the payload:
	// Type(1) + Timestamp(8).
	HeaderOverhead = TypeFieldLen + TimestampFieldLen

	// MaxTotalSize bounds TotalSize so a corrupt header cannot force a
	// huge allocation on the receiver.
	MaxTotalSize = 1 << 24

	MaxChunkSize    = 1400 // largest payload datagram a sender emits
	MaxDatagramSize = 2048 // largest datagram a receiver reads in one call
)

// Header is the logical wire header of one access-unit. On the wire it is
// sent as three separate datagrams, in field order.
type Header struct {
	TotalSize uint32 // payload length + HeaderOverhead
	Type      uint8  // TypeVideo, TypeAudio
	Timestamp uint64 // sender clock in microseconds
}

// NewHeader builds the header for a payload of payloadLen bytes.
func NewHeader(payloadLen int, typ uint8, timestampUS uint64) Header {
	return Header{
		TotalSize: uint32(payloadLen + HeaderOverhead),
		Type:      typ,
		Timestamp: timestampUS,
	}
}

// PayloadLen returns the number of payload bytes announced by the header.
// Only meaningful after Validate succeeded.
func (h Header) PayloadLen() int {
	return int(h.TotalSize) - HeaderOverhead
}

// Validate checks the size bound HeaderOverhead <= TotalSize <= MaxTotalSize.
func (h Header) Validate() error {
	return ValidateTotalSize(h.TotalSize)
}

// ValidateTotalSize reports whether size is an acceptable TotalSize.
func ValidateTotalSize(size uint32) error {
	if size < HeaderOverhead || size > MaxTotalSize {
		return fmt.Errorf("total size %d out of range [%d, %d]", size, HeaderOverhead, MaxTotalSize)
	}
	return nil
}
