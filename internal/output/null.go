package output

import (
	"sync"
	"sync/atomic"
	"time"

	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

// Null is an in-memory device. Streams are driven by Pull, or by a ticker
// goroutine pacing fills at the configured sample rate when realtime is set.
type Null struct {
	mu        sync.Mutex
	config    StreamConfig
	realtime  bool
	configErr error
	openErr   error
	streams   []*NullStream
}

// NewNull creates an in-memory device with the given default configuration
func NewNull(cfg StreamConfig, realtime bool) *Null {
	return &Null{
		config:   withDefaults(cfg, 48000, 2),
		realtime: realtime,
	}
}

func (n *Null) Name() string { return "null" }

// FailConfig makes subsequent Config calls fail with err (nil restores)
func (n *Null) FailConfig(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.configErr = err
}

// FailOpen makes subsequent OpenStream calls fail with err (nil restores)
func (n *Null) FailOpen(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.openErr = err
}

func (n *Null) Config(want StreamConfig) (StreamConfig, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.configErr != nil {
		return StreamConfig{}, &playerrors.ConfigurationError{Device: n.Name(), Err: n.configErr}
	}
	return withDefaults(want, n.config.SampleRate, n.config.Channels), nil
}

func (n *Null) OpenStream(cfg StreamConfig, fill FillFunc, onErr ErrorFunc) (Stream, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.openErr != nil {
		return nil, &playerrors.StreamError{Device: n.Name(), Err: n.openErr}
	}
	if cfg.BufferFrames <= 0 {
		cfg.BufferFrames = 512
	}
	s := &NullStream{
		cfg:      cfg,
		cb:       newCallback(n.Name(), fill, onErr),
		realtime: n.realtime,
	}
	s.cb.stopped.Store(true)
	n.streams = append(n.streams, s)
	return s, nil
}

// Opened returns the number of streams opened so far
func (n *Null) Opened() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.streams)
}

// Open returns the streams that have not been closed
func (n *Null) Open() []*NullStream {
	n.mu.Lock()
	defer n.mu.Unlock()

	var open []*NullStream
	for _, s := range n.streams {
		if !s.Closed() {
			open = append(open, s)
		}
	}
	return open
}

// Active returns the most recently opened stream that is still open
func (n *Null) Active() *NullStream {
	open := n.Open()
	if len(open) == 0 {
		return nil
	}
	return open[len(open)-1]
}

func (n *Null) Close() error { return nil }

// NullStream is a stream on a Null device
type NullStream struct {
	cfg      StreamConfig
	cb       *callback
	realtime bool

	fillMu  sync.Mutex // serializes Pull with the pacing goroutine
	playing atomic.Bool
	closed  atomic.Bool

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// Config returns the stream's configuration
func (s *NullStream) Config() StreamConfig { return s.cfg }

func (s *NullStream) Play() error {
	if s.closed.Load() {
		return &playerrors.StreamError{Device: "null", Err: playerrors.ErrStreamFailed}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing.Swap(true) {
		return nil
	}
	s.cb.stopped.Store(false)
	if s.realtime {
		s.stop = make(chan struct{})
		s.wg.Add(1)
		go s.pace(s.stop)
	}
	return nil
}

func (s *NullStream) Pause() error {
	s.mu.Lock()
	if !s.playing.Swap(false) {
		s.mu.Unlock()
		return nil
	}
	s.cb.stopped.Store(true)
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		s.wg.Wait()
	}

	// Wait out a Pull in flight
	s.fillMu.Lock()
	s.fillMu.Unlock()
	return nil
}

func (s *NullStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.Pause()
}

// Playing reports whether the stream is requesting fills
func (s *NullStream) Playing() bool { return s.playing.Load() }

// Closed reports whether the stream was closed
func (s *NullStream) Closed() bool { return s.closed.Load() }

// Pull requests one buffer fill of n interleaved samples. It returns nil
// when the stream is not playing.
func (s *NullStream) Pull(n int) []float32 {
	if !s.playing.Load() {
		return nil
	}
	out := make([]float32, n)
	s.fillMu.Lock()
	s.cb.run(out)
	s.fillMu.Unlock()
	return out
}

// RaiseError simulates an asynchronous device error
func (s *NullStream) RaiseError(err error, fatal bool) {
	s.cb.report(err, fatal)
}

// pace requests fills at the configured rate until stop is closed
func (s *NullStream) pace(stop <-chan struct{}) {
	defer s.wg.Done()

	period := time.Duration(s.cfg.BufferFrames) * time.Second / time.Duration(s.cfg.SampleRate)
	buf := make([]float32, s.cfg.BufferFrames*s.cfg.Channels)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.fillMu.Lock()
			s.cb.run(buf)
			s.fillMu.Unlock()
		}
	}
}
