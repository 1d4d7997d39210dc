package audio

import (
	"math"
	"sync/atomic"
)

const (
	// VolumeScale is the volume value that plays samples unchanged. Larger
	// values boost.
	VolumeScale = 1000

	// DefaultVolume is half scale
	DefaultVolume = 500
)

// PlaybackState is shared between the control side and the real-time
// callback. Every access is a single atomic load or store.
type PlaybackState struct {
	volume   atomic.Uint32
	position atomic.Uint64 // math.Float64bits of the active cursor
}

// NewPlaybackState creates state with the given starting volume
func NewPlaybackState(volume uint32) *PlaybackState {
	s := &PlaybackState{}
	s.volume.Store(volume)
	return s
}

// Volume returns the current volume on the VolumeScale
func (s *PlaybackState) Volume() uint32 {
	return s.volume.Load()
}

// SetVolume stores v and reports whether it differed from the previous value
func (s *PlaybackState) SetVolume(v uint32) bool {
	return s.volume.Swap(v) != v
}

// Gain returns the volume as a sample multiplier
func (s *PlaybackState) Gain() float32 {
	return float32(s.volume.Load()) / VolumeScale
}

// Position returns the last cursor published by the callback
func (s *PlaybackState) Position() float64 {
	return math.Float64frombits(s.position.Load())
}

func (s *PlaybackState) setPosition(p float64) {
	s.position.Store(math.Float64bits(p))
}
