package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/jscyril/golang_playback_engine/api"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

// Buffer is a decoded track ready for playback. Samples hold a single
// logical channel; Channels is the count the decoder reported. Samples are
// read-only once the buffer is handed to the engine.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int

	// Position is the fractional read cursor into Samples
	Position float64

	Track *api.Track
}

// NewBuffer creates a buffer positioned at the first sample
func NewBuffer(samples []float32, sampleRate, channels int) (*Buffer, error) {
	b := &Buffer{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Buffer) validate() error {
	if b == nil {
		return playerrors.ErrNilBuffer
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", playerrors.ErrInvalidBuffer, b.SampleRate)
	}
	if b.Channels <= 0 {
		return fmt.Errorf("%w: channel count %d", playerrors.ErrInvalidBuffer, b.Channels)
	}
	if b.Position < 0 || math.IsNaN(b.Position) {
		return fmt.Errorf("%w: position %v", playerrors.ErrInvalidBuffer, b.Position)
	}
	return nil
}

// Len returns the number of samples
func (b *Buffer) Len() int {
	return len(b.Samples)
}

// Exhausted reports whether the cursor has passed the last sample
func (b *Buffer) Exhausted() bool {
	return b.Position >= float64(len(b.Samples))
}

// Duration returns the length of the source material at its sample rate
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Elapsed converts a cursor position into source time
func (b *Buffer) Elapsed(position float64) time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(position * float64(time.Second) / float64(b.SampleRate))
}
