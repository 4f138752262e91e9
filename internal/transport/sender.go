package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gophercall/gopher/internal/media"
	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/util"
)

// SenderConfig wires a Sender. Conn is usually a *net.UDPConn connected
// to the remote peer.
type SenderConfig struct {
	Conn    io.Writer
	Source  media.Source
	Encoder media.Encoder
	BaseFPS float64
	MinFPS  float64
	Stats   *util.Stats
}

// Sender runs the capture, pace, encode and send pipeline of one call leg.
type Sender struct {
	conn    io.Writer
	source  media.Source
	encoder media.Encoder
	pacer   *Pacer
	stats   *util.Stats
	warn    *util.Throttled

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewSender validates cfg and returns a Sender ready to Run.
func NewSender(cfg SenderConfig) (*Sender, error) {
	if cfg.Conn == nil || cfg.Source == nil || cfg.Encoder == nil {
		return nil, errors.New("sender: conn, source and encoder are required")
	}
	if cfg.Stats == nil {
		cfg.Stats = &util.Stats{}
	}
	return &Sender{
		conn:    cfg.Conn,
		source:  cfg.Source,
		encoder: cfg.Encoder,
		pacer:   NewPacer(cfg.BaseFPS, cfg.MinFPS),
		stats:   cfg.Stats,
		warn:    util.NewThrottled(5 * time.Second),
		now:     time.Now,
		sleep:   sleepCtx,
	}, nil
}

// Pacer exposes the sender's pacer for inspection.
func (s *Sender) Pacer() *Pacer { return s.pacer }

// Run pumps frames until ctx is cancelled, the source ends or the socket
// is closed. End of stream flushes the encoder and returns nil.
//
// The source is only pulled once the next frame is due, sleeping in
// slices of at most 50ms until then. Frames a source hands over with an
// earlier capture time are still subject to the admit rule.
func (s *Sender) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if d := s.pacer.Remaining(s.now()); d > 0 {
			s.sleep(ctx, d)
			continue
		}

		frame, err := s.source.NextFrame()
		if errors.Is(err, media.ErrEndOfStream) {
			return s.flush()
		}
		if err != nil {
			s.warn.Warning("capture failed: %v", err)
			s.sleep(ctx, min(s.pacer.Interval(), maxPaceSleep))
			continue
		}

		if !s.pacer.Admit(s.captureTime(frame)) {
			s.stats.AddDropped()
			continue
		}

		units, err := s.encoder.Encode(frame)
		if err != nil {
			var codecErr *media.CodecError
			if !errors.As(err, &codecErr) {
				return fmt.Errorf("encode: %w", err)
			}
			s.warn.Warning("dropping frame: %v", err)
			continue
		}

		if err := s.sendUnits(units); err != nil {
			return err
		}
	}
}

func (s *Sender) captureTime(f *media.Frame) time.Time {
	if f.Captured.IsZero() {
		return s.now()
	}
	return f.Captured
}

// sendUnits frames each unit. A failed unit is abandoned; only a closed
// socket is returned.
func (s *Sender) sendUnits(units [][]byte) error {
	for _, unit := range units {
		if err := SendFrame(s.conn, unit, protocol.TypeVideo); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("%w: %v", ErrFatalSocket, err)
			}
			s.warn.Warning("send failed: %v", err)
			continue
		}
		s.stats.AddSent(len(unit))
	}
	return nil
}

func (s *Sender) flush() error {
	units, err := s.encoder.Flush()
	if err != nil {
		util.LogDebug("encoder flush: %v", err)
	}
	return s.sendUnits(units)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
