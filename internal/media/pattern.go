package media

import (
	"image"
	"image/color"
	"time"
)

var bars = []color.RGBA{
	{192, 192, 192, 255},
	{192, 192, 0, 255},
	{0, 192, 192, 255},
	{0, 192, 0, 255},
	{192, 0, 192, 255},
	{192, 0, 0, 255},
	{0, 0, 192, 255},
}

// PatternSource generates colour bars with a white bar sweeping across
// them, one step per frame. Useful where no display can be captured.
type PatternSource struct {
	Width  int
	Height int
	Limit  int // frames before ErrEndOfStream; 0 means unlimited

	n int
}

// NewPatternSource returns an unlimited source of w x h frames.
func NewPatternSource(w, h int) *PatternSource {
	return &PatternSource{Width: w, Height: h}
}

// NextFrame renders the next pattern frame.
func (p *PatternSource) NextFrame() (*Frame, error) {
	if p.Limit > 0 && p.n >= p.Limit {
		return nil, ErrEndOfStream
	}

	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	barW := max(p.Width/len(bars), 1)
	sweep := (p.n * 8) % max(p.Width, 1)

	for x := 0; x < p.Width; x++ {
		c := bars[min(x/barW, len(bars)-1)]
		if x >= sweep && x < sweep+8 {
			c = color.RGBA{255, 255, 255, 255}
		}
		for y := 0; y < p.Height; y++ {
			img.SetRGBA(x, y, c)
		}
	}

	p.n++
	return &Frame{Image: img, Captured: time.Now()}, nil
}
