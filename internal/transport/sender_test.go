package transport

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"testing"
	"time"

	"github.com/gophercall/gopher/internal/media"
	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/util"
)

// clockSource yields limit frames, advancing a fake clock by step before
// each one. Pulls listed in fail return a capture error instead.
type clockSource struct {
	clock *time.Time
	step  time.Duration
	limit int
	fail  map[int]bool
	n     int
}

func (s *clockSource) NextFrame() (*media.Frame, error) {
	if s.n >= s.limit {
		return nil, media.ErrEndOfStream
	}
	s.n++
	*s.clock = s.clock.Add(s.step)
	if s.fail[s.n] {
		return nil, errors.New("capture device busy")
	}
	return &media.Frame{Image: image.NewRGBA(image.Rect(0, 0, 1, 1))}, nil
}

// burstSource hands over frames stamped every step from start, as a
// capture device draining its backlog would.
type burstSource struct {
	start time.Time
	step  time.Duration
	limit int
	n     int
}

func (s *burstSource) NextFrame() (*media.Frame, error) {
	if s.n >= s.limit {
		return nil, media.ErrEndOfStream
	}
	captured := s.start.Add(time.Duration(s.n) * s.step)
	s.n++
	return &media.Frame{Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), Captured: captured}, nil
}

// untilSource yields frames instantly until the clock reaches end.
type untilSource struct {
	clock *time.Time
	end   time.Time
	n     int
}

func (s *untilSource) NextFrame() (*media.Frame, error) {
	if !s.clock.Before(s.end) {
		return nil, media.ErrEndOfStream
	}
	s.n++
	return &media.Frame{Image: image.NewRGBA(image.Rect(0, 0, 1, 1))}, nil
}

// countingSource yields frames instantly and counts pulls.
type countingSource struct{ n int }

func (s *countingSource) NextFrame() (*media.Frame, error) {
	s.n++
	return &media.Frame{Image: image.NewRGBA(image.Rect(0, 0, 1, 1))}, nil
}

// stubEncoder emits one unit per frame holding the frame number, failing
// with a CodecError on the frames listed in fail.
type stubEncoder struct {
	n       int
	fail    map[int]bool
	flushed [][]byte
}

func (e *stubEncoder) Encode(*media.Frame) ([][]byte, error) {
	e.n++
	if e.fail[e.n] {
		return nil, &media.CodecError{Op: "encode", Err: errors.New("bad frame")}
	}
	return [][]byte{{byte(e.n)}}, nil
}

func (e *stubEncoder) Flush() ([][]byte, error) { return e.flushed, nil }

// newFakeClockSender returns a sender whose clock only moves when it
// sleeps or when the source advances it.
func newFakeClockSender(t *testing.T, cfg SenderConfig, clock *time.Time) *Sender {
	t.Helper()
	s, err := NewSender(cfg)
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	s.now = func() time.Time { return *clock }
	s.sleep = func(_ context.Context, d time.Duration) { *clock = clock.Add(d) }
	return s
}

func newTestSender(t *testing.T, w *scriptedConn, src *clockSource, enc media.Encoder, stats *util.Stats) *Sender {
	t.Helper()
	cfg := SenderConfig{Conn: w, Source: src, Encoder: enc, BaseFPS: 30, MinFPS: 15, Stats: stats}
	return newFakeClockSender(t, cfg, src.clock)
}

// units decodes the one-byte payloads from recorded datagrams.
func units(t *testing.T, datagrams [][]byte) []byte {
	t.Helper()
	c := &scriptedConn{datagrams: datagrams}
	var out []byte
	for len(c.datagrams) > 0 {
		f, err := ReceiveFrame(c, time.Millisecond)
		if err != nil {
			t.Fatalf("decode recorded stream: %v", err)
		}
		if f.Type != protocol.TypeVideo {
			t.Fatalf("type = %d, want video", f.Type)
		}
		out = append(out, f.Payload...)
	}
	return out
}

func TestSenderFlushesOnEndOfStream(t *testing.T) {
	clock := time.Unix(1000, 0)
	src := &clockSource{clock: &clock, step: 40 * time.Millisecond, limit: 3}
	enc := &stubEncoder{flushed: [][]byte{{0xFF}}}
	w := &scriptedConn{}

	if err := newTestSender(t, w, src, enc, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := units(t, w.datagrams)
	want := []byte{1, 2, 3, 0xFF}
	if string(got) != string(want) {
		t.Errorf("sent units = %v, want %v", got, want)
	}
}

func TestSenderSkipsCodecErrors(t *testing.T) {
	clock := time.Unix(1000, 0)
	src := &clockSource{clock: &clock, step: 40 * time.Millisecond, limit: 4}
	enc := &stubEncoder{fail: map[int]bool{2: true}}
	w := &scriptedConn{}

	if err := newTestSender(t, w, src, enc, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := units(t, w.datagrams); string(got) != string([]byte{1, 3, 4}) {
		t.Errorf("sent units = %v, want [1 3 4]", got)
	}
}

func TestSenderSkipsCaptureErrors(t *testing.T) {
	clock := time.Unix(1000, 0)
	src := &clockSource{clock: &clock, step: 40 * time.Millisecond, limit: 4, fail: map[int]bool{2: true}}
	enc := &stubEncoder{}
	w := &scriptedConn{}

	if err := newTestSender(t, w, src, enc, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := units(t, w.datagrams); string(got) != string([]byte{1, 2, 3}) {
		t.Errorf("sent units = %v, want [1 2 3]", got)
	}
}

func TestSenderDropsEarlyFrames(t *testing.T) {
	clock := time.Unix(1000, 0)
	// A backlog stamped every 10ms against a 33ms budget: one in three
	// passes, at 0, 30, 60 ... 180ms.
	src := &burstSource{start: clock, step: 10 * time.Millisecond, limit: 20}
	stats := &util.Stats{}
	cfg := SenderConfig{Conn: &scriptedConn{}, Source: src, Encoder: &stubEncoder{}, BaseFPS: 30, MinFPS: 15, Stats: stats}

	if err := newFakeClockSender(t, cfg, &clock).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sent, dropped := stats.FramesSent.Load(), stats.FramesDropped.Load()
	if sent != 7 || dropped != 13 {
		t.Errorf("sent/dropped = %d/%d, want 7/13", sent, dropped)
	}
}

func TestSenderPacesCaptures(t *testing.T) {
	for _, fps := range []float64{15, 20, 30} {
		t.Run(fmt.Sprintf("%vfps", fps), func(t *testing.T) {
			clock := time.Unix(1000, 0)
			src := &untilSource{clock: &clock, end: clock.Add(time.Second)}
			stats := &util.Stats{}
			cfg := SenderConfig{Conn: &scriptedConn{}, Source: src, Encoder: &stubEncoder{}, BaseFPS: fps, MinFPS: 15, Stats: stats}
			s := newFakeClockSender(t, cfg, &clock)

			var longest time.Duration
			s.sleep = func(_ context.Context, d time.Duration) {
				longest = max(longest, d)
				clock = clock.Add(d)
			}

			if err := s.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}

			ceiling := int(1/(admitRatio*(1/fps))) + 1
			if src.n < int(fps) || src.n > ceiling {
				t.Errorf("captures in 1s = %d, want %v..%d", src.n, fps, ceiling)
			}
			if d := stats.FramesDropped.Load(); d != 0 {
				t.Errorf("dropped = %d, want 0", d)
			}
			if longest > maxPaceSleep {
				t.Errorf("longest sleep = %v, want <= %v", longest, maxPaceSleep)
			}
		})
	}
}

func TestSenderRecoversFromFloor(t *testing.T) {
	clock := time.Unix(1000, 0)
	src := &untilSource{clock: &clock, end: clock.Add(20 * time.Second)}
	cfg := SenderConfig{Conn: &scriptedConn{}, Source: src, Encoder: &stubEncoder{}, BaseFPS: 30, MinFPS: 15}
	s := newFakeClockSender(t, cfg, &clock)
	s.pacer.fps = 15

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := s.Pacer().FPS(); got != 30 {
		t.Errorf("fps after 20s without drops = %v, want 30", got)
	}
}

func TestSenderRealClockAtFloor(t *testing.T) {
	if testing.Short() {
		t.Skip("runs for a second")
	}
	src := &countingSource{}
	stats := &util.Stats{}
	s, err := NewSender(SenderConfig{Conn: io.Discard, Source: src, Encoder: &stubEncoder{}, BaseFPS: 15, MinFPS: 15, Stats: stats})
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if src.n < 8 || src.n > 19 {
		t.Errorf("captures in 1s = %d, want about 15", src.n)
	}
	if d := stats.FramesDropped.Load(); d != 0 {
		t.Errorf("dropped = %d, want 0", d)
	}
}

func TestSenderStopsOnClosedSocket(t *testing.T) {
	tx, _ := listenPair(t)
	tx.Close()

	clock := time.Unix(1000, 0)
	src := &clockSource{clock: &clock, step: 40 * time.Millisecond, limit: 10}
	s, err := NewSender(SenderConfig{Conn: tx, Source: src, Encoder: &stubEncoder{}})
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	s.sleep = func(context.Context, time.Duration) {}

	err = s.Run(context.Background())
	if !errors.Is(err, ErrFatalSocket) {
		t.Fatalf("Run = %v, want ErrFatalSocket", err)
	}
	if src.n != 1 {
		t.Errorf("frames pulled = %d, want 1", src.n)
	}
}

func TestSenderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	clock := time.Unix(1000, 0)
	src := &clockSource{clock: &clock, step: 40 * time.Millisecond, limit: 10}
	w := &scriptedConn{}
	if err := newTestSender(t, w, src, &stubEncoder{}, nil).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.n != 0 {
		t.Errorf("frames pulled after cancel = %d", src.n)
	}
}

func TestNewSenderRequiresCollaborators(t *testing.T) {
	if _, err := NewSender(SenderConfig{}); err == nil {
		t.Fatal("NewSender with empty config succeeded")
	}
}

var _ DatagramReader = (*net.UDPConn)(nil)
