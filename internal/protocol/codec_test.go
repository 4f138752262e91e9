package protocol_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/gophercall/gopher/internal/protocol"
)

// TestHeaderFieldsRoundTrip verifies that the three header datagrams decode
// back to the original header values.
func TestHeaderFieldsRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		header protocol.Header
	}{
		{"empty payload", protocol.NewHeader(0, protocol.TypeVideo, 0)},
		{"small payload", protocol.NewHeader(11, protocol.TypeVideo, 1_700_000_000_000_000)},
		{"max timestamp", protocol.NewHeader(3000, protocol.TypeAudio, ^uint64(0))},
		{"largest payload", protocol.NewHeader(protocol.MaxTotalSize-protocol.HeaderOverhead, protocol.TypeVideo, 42)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fields := protocol.EncodeHeader(tc.header)

			if len(fields[0]) != protocol.SizeFieldLen ||
				len(fields[1]) != protocol.TypeFieldLen ||
				len(fields[2]) != protocol.TimestampFieldLen {
				t.Fatalf("unexpected field lengths: %d/%d/%d", len(fields[0]), len(fields[1]), len(fields[2]))
			}

			size, err := protocol.DecodeSize(fields[0])
			if err != nil {
				t.Fatalf("DecodeSize failed: %v", err)
			}
			ts, err := protocol.DecodeTimestamp(fields[2])
			if err != nil {
				t.Fatalf("DecodeTimestamp failed: %v", err)
			}

			if size != tc.header.TotalSize {
				t.Errorf("TotalSize mismatch: got %d, want %d", size, tc.header.TotalSize)
			}
			if fields[1][0] != tc.header.Type {
				t.Errorf("Type mismatch: got %d, want %d", fields[1][0], tc.header.Type)
			}
			if ts != tc.header.Timestamp {
				t.Errorf("Timestamp mismatch: got %d, want %d", ts, tc.header.Timestamp)
			}
			if err := tc.header.Validate(); err != nil {
				t.Errorf("Validate failed on a valid header: %v", err)
			}
		})
	}
}

// TestSizeIsNetworkOrder pins the byte layout of the size field.
func TestSizeIsNetworkOrder(t *testing.T) {
	got := protocol.EncodeSize(3009)
	want := []byte{0x00, 0x00, 0x0B, 0xC1}
	if !bytes.Equal(got, want) {
		t.Fatalf("EncodeSize(3009) = % x, want % x", got, want)
	}
}

// TestNewHeaderCountsOverhead verifies TotalSize = payload + type + timestamp.
func TestNewHeaderCountsOverhead(t *testing.T) {
	h := protocol.NewHeader(3000, protocol.TypeVideo, 7)
	if h.TotalSize != 3009 {
		t.Fatalf("TotalSize = %d, want 3009", h.TotalSize)
	}
	if h.PayloadLen() != 3000 {
		t.Fatalf("PayloadLen = %d, want 3000", h.PayloadLen())
	}
}

// TestValidateTotalSizeBounds checks both edges of the accepted range.
func TestValidateTotalSizeBounds(t *testing.T) {
	testCases := []struct {
		size  uint32
		valid bool
	}{
		{0, false},
		{8, false},
		{9, true},
		{1 << 24, true},
		{1<<24 + 1, false},
		{0xFFFFFFFF, false},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d", tc.size), func(t *testing.T) {
			err := protocol.ValidateTotalSize(tc.size)
			if tc.valid && err != nil {
				t.Errorf("expected %d to be valid, got %v", tc.size, err)
			}
			if !tc.valid && err == nil {
				t.Errorf("expected %d to be rejected", tc.size)
			}
		})
	}
}

// TestDecodeWrongLength verifies that short fields are rejected.
func TestDecodeWrongLength(t *testing.T) {
	if _, err := protocol.DecodeSize([]byte{0x01, 0x02}); err == nil {
		t.Error("expected DecodeSize to fail on 2 bytes")
	}
	if _, err := protocol.DecodeTimestamp(make([]byte, 7)); err == nil {
		t.Error("expected DecodeTimestamp to fail on 7 bytes")
	}
}

// TestChunk verifies chunk count, chunk sizes and that concatenation
// reproduces the payload.
func TestChunk(t *testing.T) {
	sizes := []int{0, 1, 1399, 1400, 1401, 3000, 64 * 1024}

	for _, size := range sizes {
		t.Run(fmt.Sprintf("%d bytes", size), func(t *testing.T) {
			payload := make([]byte, size)
			for i := range payload {
				payload[i] = byte(i % 251)
			}

			chunks := protocol.Chunk(payload)

			wantChunks := (size + protocol.MaxChunkSize - 1) / protocol.MaxChunkSize
			if len(chunks) != wantChunks {
				t.Fatalf("got %d chunks, want %d", len(chunks), wantChunks)
			}

			var joined []byte
			for i, c := range chunks {
				if len(c) == 0 || len(c) > protocol.MaxChunkSize {
					t.Errorf("chunk %d has invalid size %d", i, len(c))
				}
				joined = append(joined, c...)
			}
			if !bytes.Equal(joined, payload) {
				t.Errorf("reassembled chunks do not match payload")
			}
		})
	}
}
