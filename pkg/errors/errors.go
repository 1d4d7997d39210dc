package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNoOutputConfig = errors.New("no usable output configuration")
	ErrDeviceNotFound = errors.New("output device not found")
	ErrStreamOpen     = errors.New("output stream could not be opened")
	ErrStreamFailed   = errors.New("output stream failed")
	ErrInvalidFormat  = errors.New("unsupported audio format")
	ErrNoTrack        = errors.New("no usable audio track")
	ErrEmptyInput     = errors.New("empty input")
	ErrEngineStopped  = errors.New("engine stopped")
	ErrNilBuffer      = errors.New("nil audio buffer")
	ErrInvalidBuffer  = errors.New("invalid audio buffer")
)

// ConfigurationError reports that no usable output device or format was found
type ConfigurationError struct {
	Device string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("configure output %s: %v", e.Device, e.Err)
	}
	return fmt.Sprintf("configure output: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// StreamError reports that the device rejected stream creation or start
type StreamError struct {
	Device string
	Err    error
}

func (e *StreamError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("open stream on %s: %v", e.Device, e.Err)
	}
	return fmt.Sprintf("open stream: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// DecodeError reports malformed or unsupported input bytes
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// CallbackError is raised asynchronously by a device while streaming.
// Fatal errors mean the stream can no longer deliver audio.
type CallbackError struct {
	Device string
	Err    error
	Fatal  bool
}

func (e *CallbackError) Error() string {
	kind := "stream error"
	if e.Fatal {
		kind = "fatal stream error"
	}
	if e.Device != "" {
		return fmt.Sprintf("%s on %s: %v", kind, e.Device, e.Err)
	}
	return fmt.Sprintf("%s: %v", kind, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// EngineError wraps a failure while handling a command
type EngineError struct {
	Op  string // Command that failed
	Err error  // Underlying error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError
func NewEngineError(op string, err error) *EngineError {
	return &EngineError{Op: op, Err: err}
}
