package media

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gophercall/gopher/internal/util"
)

// LogRenderer reports the stream geometry when it first appears or
// changes. It displays nothing, which suits headless peers.
type LogRenderer struct {
	mu     sync.Mutex
	w, h   int
	frames int
}

// Render records f.
func (r *LogRenderer) Render(f *Frame) error {
	b := f.Image.Bounds()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames++
	if b.Dx() != r.w || b.Dy() != r.h {
		r.w, r.h = b.Dx(), b.Dy()
		util.LogInfo("receiving %dx%d video", r.w, r.h)
	}
	return nil
}

// Frames returns the number of frames rendered.
func (r *LogRenderer) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// SnapshotRenderer writes the latest frame to a JPEG file at most once
// per Interval. The file is replaced atomically so a viewer polling it
// never sees a partial image.
type SnapshotRenderer struct {
	Path     string
	Interval time.Duration
	Quality  int

	last time.Time
}

// NewSnapshotRenderer returns a renderer writing to path once a second.
func NewSnapshotRenderer(path string) *SnapshotRenderer {
	return &SnapshotRenderer{Path: path, Interval: time.Second, Quality: DefaultQuality}
}

// Render writes f if the interval has elapsed.
func (r *SnapshotRenderer) Render(f *Frame) error {
	now := time.Now()
	if !r.last.IsZero() && now.Sub(r.last) < r.Interval {
		return nil
	}
	r.last = now

	tmp, err := os.CreateTemp(filepath.Dir(r.Path), ".snapshot-*.jpg")
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := jpeg.Encode(tmp, f.Image, &jpeg.Options{Quality: r.Quality}); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), r.Path)
}
