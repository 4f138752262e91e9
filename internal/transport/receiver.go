package transport

import (
	"context"
	"errors"
	"time"

	"github.com/gophercall/gopher/internal/delivery"
	"github.com/gophercall/gopher/internal/media"
	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/util"
)

// ReceiverConfig wires a Receiver. Conn is the local socket bound to the
// peer's listen port.
type ReceiverConfig struct {
	Conn       DatagramReader
	NewDecoder func() (media.Decoder, error)
	Queue      *delivery.Queue[*media.Frame]
	Timeout    time.Duration
	Stats      *util.Stats
}

// Receiver reassembles access-units, decodes them and feeds the delivery
// queue.
type Receiver struct {
	conn    DatagramReader
	decoder media.Decoder
	queue   *delivery.Queue[*media.Frame]
	timeout time.Duration
	stats   *util.Stats
	noise   *util.Throttled
}

// NewReceiver opens the decoder. It fails when the decoder cannot be
// opened, in which case the call must not start.
func NewReceiver(cfg ReceiverConfig) (*Receiver, error) {
	if cfg.Conn == nil || cfg.NewDecoder == nil || cfg.Queue == nil {
		return nil, errors.New("receiver: conn, decoder and queue are required")
	}
	dec, err := cfg.NewDecoder()
	if err != nil {
		return nil, &media.CodecError{Op: "open", Err: err}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultReadTimeout
	}
	if cfg.Stats == nil {
		cfg.Stats = &util.Stats{}
	}
	return &Receiver{
		conn:    cfg.Conn,
		decoder: dec,
		queue:   cfg.Queue,
		timeout: cfg.Timeout,
		stats:   cfg.Stats,
		noise:   util.NewThrottled(5 * time.Second),
	}, nil
}

// Run receives until ctx is cancelled (observed within one read timeout)
// or the socket fails. Only a fatal socket error is returned.
func (r *Receiver) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		frame, err := ReceiveFrame(r.conn, r.timeout)
		switch {
		case err == nil:
		case errors.Is(err, ErrTimeout):
			continue
		case errors.Is(err, ErrMalformed), errors.Is(err, ErrIncomplete):
			r.stats.AddMalformed()
			r.noise.Debug("dropping message: %v", err)
			continue
		default:
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if frame.Type != protocol.TypeVideo {
			continue
		}
		r.stats.AddRecv(len(frame.Payload))
		r.stats.SetLatency(int64(NowMicros()) - int64(frame.Timestamp))

		decoded, err := r.decoder.Decode(frame.Payload)
		if err != nil {
			r.noise.Debug("dropping access-unit: %v", err)
			continue
		}
		for _, f := range decoded {
			if r.queue.Push(f) {
				r.stats.AddEvicted()
			}
		}
	}
	return nil
}
