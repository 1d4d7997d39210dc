package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

// Beep plays streams through the beep speaker mixer. The speaker is
// always stereo.
type Beep struct {
	log slog.Logger

	mu          sync.Mutex
	initialized bool
}

// NewBeep creates a beep speaker device
func NewBeep(log slog.Logger) *Beep {
	return &Beep{log: loggerOrDisabled(log)}
}

func (b *Beep) Name() string { return "beep" }

func (b *Beep) Config(want StreamConfig) (StreamConfig, error) {
	if want.Channels > 0 && want.Channels != 2 {
		return StreamConfig{}, &playerrors.ConfigurationError{
			Device: b.Name(),
			Err:    fmt.Errorf("%w: speaker is stereo, %d channels requested", playerrors.ErrNoOutputConfig, want.Channels),
		}
	}
	cfg := withDefaults(want, 44100, 2)
	if cfg.BufferFrames == 0 {
		cfg.BufferFrames = beep.SampleRate(cfg.SampleRate).N(time.Second / 10)
	}
	return cfg, nil
}

func (b *Beep) OpenStream(cfg StreamConfig, fill FillFunc, onErr ErrorFunc) (Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Init replaces any previous speaker setup
	if err := speaker.Init(beep.SampleRate(cfg.SampleRate), cfg.BufferFrames); err != nil {
		return nil, &playerrors.StreamError{Device: b.Name(), Err: fmt.Errorf("speaker init: %w", err)}
	}
	b.initialized = true

	cb := newCallback(b.Name(), fill, onErr)
	cb.stopped.Store(true)
	ctrl := &beep.Ctrl{
		Streamer: &beepStreamer{cb: cb, scratch: make([]float32, cfg.BufferFrames*2)},
		Paused:   true,
	}
	speaker.Play(ctrl)

	b.log.Infof("Speaker initialized: %dHz, buffer %d frames", cfg.SampleRate, cfg.BufferFrames)
	return &beepStream{ctrl: ctrl, cb: cb}, nil
}

// Close shuts the speaker down
func (b *Beep) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		speaker.Close()
		b.initialized = false
	}
	return nil
}

// beepStreamer adapts the fill callback to beep's stereo frames
type beepStreamer struct {
	cb      *callback
	scratch []float32
}

func (s *beepStreamer) Stream(samples [][2]float64) (int, bool) {
	need := len(samples) * 2
	if need > len(s.scratch) {
		s.scratch = make([]float32, need)
	}
	buf := s.scratch[:need]
	s.cb.run(buf)
	for i := range samples {
		samples[i][0] = float64(buf[2*i])
		samples[i][1] = float64(buf[2*i+1])
	}
	return len(samples), true
}

func (s *beepStreamer) Err() error { return nil }

type beepStream struct {
	ctrl *beep.Ctrl
	cb   *callback
}

func (s *beepStream) Play() error {
	speaker.Lock()
	s.cb.stopped.Store(false)
	s.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (s *beepStream) Pause() error {
	speaker.Lock()
	s.cb.stopped.Store(true)
	s.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (s *beepStream) Close() error {
	if err := s.Pause(); err != nil {
		return err
	}
	speaker.Clear()
	return nil
}
