package output

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/decred/slog"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

// StreamConfig describes a negotiated output stream. Samples exchanged with
// the device are interleaved 32-bit floats.
type StreamConfig struct {
	SampleRate   int
	Channels     int
	BufferFrames int // 0 lets the backend pick
}

// FillFunc fills out with the next interleaved samples. It is invoked on the
// device's real-time context and must not block.
type FillFunc func(out []float32)

// ErrorFunc receives errors raised by the device while streaming.
type ErrorFunc func(err error)

// Device opens output streams on one audio backend
type Device interface {
	// Name identifies the backend and, when selected, the hardware device
	Name() string

	// Config negotiates a usable stream configuration. Zero fields in want
	// are filled with the device defaults.
	Config(want StreamConfig) (StreamConfig, error)

	// OpenStream creates a paused stream that pulls samples from fill
	OpenStream(cfg StreamConfig, fill FillFunc, onErr ErrorFunc) (Stream, error)

	// Close releases backend resources
	Close() error
}

// Stream is an open device-level audio path. Once Pause or Close returns no
// further buffer fills are requested.
type Stream interface {
	Play() error
	Pause() error
	Close() error
}

// Lister is implemented by backends that can enumerate hardware devices
type Lister interface {
	Devices() ([]string, error)
}

// callback guards a FillFunc for use from a device context
type callback struct {
	device  string
	fill    FillFunc
	onErr   ErrorFunc
	stopped atomic.Bool
	failed  atomic.Bool // set once fill has panicked
}

func newCallback(device string, fill FillFunc, onErr ErrorFunc) *callback {
	return &callback{device: device, fill: fill, onErr: onErr}
}

// run fills out, writing silence once the stream is paused or closed. A
// panicking fill is reported once as fatal and never invoked again.
func (c *callback) run(out []float32) {
	if c.stopped.Load() || c.failed.Load() {
		clear(out)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			clear(out)
			c.failed.Store(true)
			c.report(fmt.Errorf("fill callback panic: %v", r), true)
		}
	}()
	c.fill(out)
}

func (c *callback) report(err error, fatal bool) {
	if c.onErr == nil {
		return
	}
	c.onErr(&playerrors.CallbackError{Device: c.device, Err: err, Fatal: fatal})
}

// float32View reinterprets a little-endian byte buffer as float32 samples
// without copying.
func float32View(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/4)
}

func loggerOrDisabled(log slog.Logger) slog.Logger {
	if log == nil {
		return slog.Disabled
	}
	return log
}

func withDefaults(want StreamConfig, rate, channels int) StreamConfig {
	if want.SampleRate <= 0 {
		want.SampleRate = rate
	}
	if want.Channels <= 0 {
		want.Channels = channels
	}
	if want.BufferFrames < 0 {
		want.BufferFrames = 0
	}
	return want
}
