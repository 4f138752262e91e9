// Package util provides logging, traffic statistics and socket helpers
// shared by the peer and the registry.
package util

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/time/rate"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

// Leveled logging functions backed by pterm prefixed printers.
// All output goes to stderr by default (pterm's default).

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogSuccess(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// Throttled logs at most once per interval; the rest are dropped. Used for
// messages that fire per datagram in steady state (malformed input,
// broadcast failures).
type Throttled struct {
	s rate.Sometimes
}

// NewThrottled returns a Throttled that lets one message through per interval.
func NewThrottled(interval time.Duration) *Throttled {
	return &Throttled{s: rate.Sometimes{First: 1, Interval: interval}}
}

// Debug logs at debug level, subject to throttling.
func (t *Throttled) Debug(format string, args ...interface{}) {
	t.s.Do(func() { LogDebug(format, args...) })
}

// Warning logs at warn level, subject to throttling.
func (t *Throttled) Warning(format string, args ...interface{}) {
	t.s.Do(func() { LogWarning(format, args...) })
}
