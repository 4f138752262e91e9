package media

import (
	"fmt"
	"time"

	"github.com/kbinani/screenshot"
)

// ScreenSource captures one display.
type ScreenSource struct {
	display int
}

// NewScreenSource validates the display index against the active displays.
func NewScreenSource(display int) (*ScreenSource, error) {
	n := screenshot.NumActiveDisplays()
	if display < 0 || display >= n {
		return nil, fmt.Errorf("invalid display %d, have %d displays", display, n)
	}
	return &ScreenSource{display: display}, nil
}

// NextFrame captures the whole display.
func (s *ScreenSource) NextFrame() (*Frame, error) {
	bounds := screenshot.GetDisplayBounds(s.display)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", s.display, err)
	}
	return &Frame{Image: img, Captured: time.Now()}, nil
}
