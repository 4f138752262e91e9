package protocol

import (
	"encoding/binary"
	"fmt"
)

// EncodeSize serializes the total_size field (network order).
func EncodeSize(size uint32) []byte {
	buf := make([]byte, SizeFieldLen)
	binary.BigEndian.PutUint32(buf, size)
	return buf
}

// DecodeSize parses the total_size field.
func DecodeSize(data []byte) (uint32, error) {
	if len(data) != SizeFieldLen {
		return 0, fmt.Errorf("size field: got %d bytes, want %d", len(data), SizeFieldLen)
	}
	return binary.BigEndian.Uint32(data), nil
}

// EncodeTimestamp serializes the send_timestamp_us field (network order).
func EncodeTimestamp(ts uint64) []byte {
	buf := make([]byte, TimestampFieldLen)
	binary.BigEndian.PutUint64(buf, ts)
	return buf
}

// DecodeTimestamp parses the send_timestamp_us field.
func DecodeTimestamp(data []byte) (uint64, error) {
	if len(data) != TimestampFieldLen {
		return 0, fmt.Errorf("timestamp field: got %d bytes, want %d", len(data), TimestampFieldLen)
	}
	return binary.BigEndian.Uint64(data), nil
}

// EncodeHeader returns the three header datagrams in send order:
// size, type, timestamp.
func EncodeHeader(h Header) [3][]byte {
	return [3][]byte{
		EncodeSize(h.TotalSize),
		{h.Type},
		EncodeTimestamp(h.Timestamp),
	}
}

// Chunk splits payload into consecutive slices of at most MaxChunkSize
// bytes. The slices alias payload. An empty payload yields no chunks.
func Chunk(payload []byte) [][]byte {
	if len(payload) == 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(payload)+MaxChunkSize-1)/MaxChunkSize)
	for off := 0; off < len(payload); off += MaxChunkSize {
		end := min(off+MaxChunkSize, len(payload))
		chunks = append(chunks, payload[off:end])
	}
	return chunks
}
