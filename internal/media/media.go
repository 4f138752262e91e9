// Package media holds the collaborators at both ends of a call: frame
// sources, the access-unit codec and renderers. The transport only sees
// opaque payloads; everything that knows about pixels lives here.
package media

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// ErrEndOfStream is returned by a Source that has no more frames.
var ErrEndOfStream = errors.New("end of stream")

// Frame is one raw picture.
type Frame struct {
	Image    image.Image
	Captured time.Time
}

// Source produces raw frames. NextFrame blocks until a frame is available.
type Source interface {
	NextFrame() (*Frame, error)
}

// Encoder turns raw frames into access-units. A call may yield zero or
// more units; Flush drains whatever the encoder still buffers.
type Encoder interface {
	Encode(f *Frame) ([][]byte, error)
	Flush() ([][]byte, error)
}

// Decoder turns access-units back into raw frames.
type Decoder interface {
	Decode(unit []byte) ([]*Frame, error)
}

// Renderer displays a decoded frame.
type Renderer interface {
	Render(f *Frame) error
}

// CodecError reports an encoder or decoder failure. It costs the current
// access-unit only; the pipeline moves on to the next one.
type CodecError struct {
	Op  string // "encode", "decode", "flush", "open"
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec %s: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }
