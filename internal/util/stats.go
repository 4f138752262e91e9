package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Per-call stats
// ──────────────────────────────────────────────────────────────────────────────

// Stats holds the traffic counters of one call leg. Each call owns its own
// value; there is no process-wide instance.
type Stats struct {
	FramesSent     atomic.Int64 // access-units fully handed to the socket
	FramesDropped  atomic.Int64 // captured frames skipped by the pacer
	FramesRecv     atomic.Int64 // access-units fully reassembled
	FramesRendered atomic.Int64 // decoded frames consumed by the renderer
	FramesEvicted  atomic.Int64 // decoded frames evicted from the delivery queue
	Malformed      atomic.Int64 // headers rejected or reassemblies abandoned
	BytesSent      atomic.Int64 // payload bytes written
	BytesRecv      atomic.Int64 // payload bytes reassembled
	LatencyUS      atomic.Int64 // last one-way latency sample, microseconds
}

func (s *Stats) AddSent(n int)       { s.FramesSent.Add(1); s.BytesSent.Add(int64(n)) }
func (s *Stats) AddRecv(n int)       { s.FramesRecv.Add(1); s.BytesRecv.Add(int64(n)) }
func (s *Stats) AddDropped()         { s.FramesDropped.Add(1) }
func (s *Stats) AddRendered()        { s.FramesRendered.Add(1) }
func (s *Stats) AddEvicted()         { s.FramesEvicted.Add(1) }
func (s *Stats) AddMalformed()       { s.Malformed.Add(1) }
func (s *Stats) SetLatency(us int64) { s.LatencyUS.Store(us) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs call statistics
// every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context, s *Stats) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevSent, prevRecv, prevOut, prevIn, prevDrop int64
		for {
			select {
			case <-ticker.C:
				sent := s.BytesSent.Load()
				recv := s.BytesRecv.Load()
				out := s.FramesSent.Load()
				in := s.FramesRendered.Load()
				drop := s.FramesDropped.Load()

				outS := float64(sent-prevSent) / 10.0
				inS := float64(recv-prevRecv) / 10.0
				outF := float64(out-prevOut) / 10.0
				inF := float64(in-prevIn) / 10.0

				if outF > 0 || inF > 0 || drop > prevDrop {
					pterm.DefaultLogger.Info(formatStats(outS, inS, outF, inF, drop-prevDrop, s.LatencyUS.Load()))
				}

				prevSent = sent
				prevRecv = recv
				prevOut = out
				prevIn = in
				prevDrop = drop

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(outS, inS, outF, inF float64, dropped, latencyUS int64) string {
	return fmt.Sprintf("Out: %s/s %4.1f fps | In: %s/s %4.1f fps | Dropped: %3d | Latency: %6.1f ms",
		formatBytes(outS),
		outF,
		formatBytes(inS),
		inF,
		dropped,
		float64(latencyUS)/1000.0,
	)
}
