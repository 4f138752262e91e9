package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Default output geometry and quality.
const (
	DefaultWidth   = 1280
	DefaultHeight  = 720
	DefaultQuality = 60
)

// JPEGCodec is an intra-only codec: every frame becomes one self-contained
// JPEG access-unit, so a lost unit never corrupts the ones after it.
// Frames are scaled to Width x Height before encoding.
type JPEGCodec struct {
	Width   int
	Height  int
	Quality int
}

// NewJPEGCodec returns a codec with the given quality (DefaultQuality if
// out of range) and the default geometry.
func NewJPEGCodec(quality int) *JPEGCodec {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &JPEGCodec{Width: DefaultWidth, Height: DefaultHeight, Quality: quality}
}

// Encode scales f and compresses it into a single access-unit.
func (c *JPEGCodec) Encode(f *Frame) ([][]byte, error) {
	if f == nil || f.Image == nil {
		return nil, &CodecError{Op: "encode", Err: fmt.Errorf("empty frame")}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, c.scale(f.Image), &jpeg.Options{Quality: c.Quality}); err != nil {
		return nil, &CodecError{Op: "encode", Err: err}
	}
	return [][]byte{buf.Bytes()}, nil
}

// Flush returns nothing: the codec holds no state between frames.
func (c *JPEGCodec) Flush() ([][]byte, error) {
	return nil, nil
}

// Decode decompresses one access-unit.
func (c *JPEGCodec) Decode(unit []byte) ([]*Frame, error) {
	img, err := jpeg.Decode(bytes.NewReader(unit))
	if err != nil {
		return nil, &CodecError{Op: "decode", Err: err}
	}
	return []*Frame{{Image: img}}, nil
}

func (c *JPEGCodec) scale(src image.Image) image.Image {
	b := src.Bounds()
	if c.Width <= 0 || c.Height <= 0 || (b.Dx() == c.Width && b.Dy() == c.Height) {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// NewJPEGDecoder opens a decoder; it has the shape the receiver expects.
func NewJPEGDecoder() (Decoder, error) {
	return NewJPEGCodec(DefaultQuality), nil
}
