package transport

import "time"

// Pacing constants.
const (
	DefaultBaseFPS = 30
	DefaultMinFPS  = 15

	pacerWindow  = time.Second
	admitRatio   = 0.8 // fraction of the frame interval that must elapse
	maxPaceSleep = 50 * time.Millisecond

	dropRateHigh = 0.10
	dropRateLow  = 0.02
	slowdown     = 0.90
	speedup      = 1.05
)

// Pacer decides which captured frames get encoded and adapts the target
// frame rate to how many it had to drop. It is owned by a single sender
// loop and is not safe for concurrent use.
type Pacer struct {
	base  float64
	floor float64
	fps   float64

	last        time.Time // last admitted frame
	windowStart time.Time
	offered     int
	dropped     int
}

// NewPacer returns a pacer starting at base fps that never drops below
// floor. Non-positive values fall back to the defaults.
func NewPacer(base, floor float64) *Pacer {
	if base <= 0 {
		base = DefaultBaseFPS
	}
	if floor <= 0 || floor > base {
		floor = min(DefaultMinFPS, base)
	}
	return &Pacer{base: base, floor: floor, fps: base}
}

// FPS returns the current target frame rate.
func (p *Pacer) FPS() float64 { return p.fps }

// Interval returns the current frame interval.
func (p *Pacer) Interval() time.Duration {
	return time.Duration(float64(time.Second) / p.fps)
}

// Admit reports whether a frame captured at now should be processed. A
// frame arriving before 80% of the interval has elapsed since the last
// admitted one is dropped. Once per second the window's drop rate is fed
// back into the target rate.
func (p *Pacer) Admit(now time.Time) bool {
	if p.windowStart.IsZero() {
		p.windowStart = now
	}
	if now.Sub(p.windowStart) >= pacerWindow {
		if p.offered > 0 {
			p.fps = adjust(p.fps, p.base, p.floor, float64(p.dropped)/float64(p.offered))
		}
		p.windowStart = now
		p.offered, p.dropped = 0, 0
	}

	p.offered++
	if !p.last.IsZero() && now.Sub(p.last) < time.Duration(admitRatio*float64(p.Interval())) {
		p.dropped++
		return false
	}
	p.last = now
	return true
}

// Wait returns how long until the next frame is due at now: the rest of
// the current interval since the last admitted frame.
func (p *Pacer) Wait(now time.Time) time.Duration {
	if p.last.IsZero() {
		return 0
	}
	return max(p.Interval()-now.Sub(p.last), 0)
}

// Remaining is Wait capped at 50ms, the longest single sleep the sender
// takes between checks for cancellation.
func (p *Pacer) Remaining(now time.Time) time.Duration {
	return min(p.Wait(now), maxPaceSleep)
}

// adjust applies one feedback step: back off when more than 10% of frames
// were dropped, recover slowly towards base when fewer than 2% were.
func adjust(fps, base, floor, dropRate float64) float64 {
	switch {
	case dropRate > dropRateHigh:
		return max(fps*slowdown, floor)
	case dropRate < dropRateLow && fps < base:
		return min(fps*speedup, base)
	}
	return fps
}
