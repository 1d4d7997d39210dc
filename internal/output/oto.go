package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/ebitengine/oto/v3"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

// Oto opens pull-model streams through oto. oto allows a single context
// per process, so the first negotiated format sticks.
type Oto struct {
	log slog.Logger

	mu     sync.Mutex
	otoCtx *oto.Context
	cfg    StreamConfig
}

// NewOto creates an oto device
func NewOto(log slog.Logger) *Oto {
	return &Oto{log: loggerOrDisabled(log)}
}

func (o *Oto) Name() string { return "oto" }

func (o *Oto) Config(want StreamConfig) (StreamConfig, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx == nil {
		return withDefaults(want, 48000, 2), nil
	}

	// Format changes would need a second context
	if (want.SampleRate > 0 && want.SampleRate != o.cfg.SampleRate) ||
		(want.Channels > 0 && want.Channels != o.cfg.Channels) {
		return StreamConfig{}, &playerrors.ConfigurationError{
			Device: o.Name(),
			Err: fmt.Errorf("%w: context fixed at %dHz %dch", playerrors.ErrNoOutputConfig,
				o.cfg.SampleRate, o.cfg.Channels),
		}
	}
	return o.cfg, nil
}

// context lazily creates the oto context (must hold o.mu)
func (o *Oto) context(cfg StreamConfig) (*oto.Context, error) {
	if o.otoCtx != nil {
		return o.otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
	}
	if cfg.BufferFrames > 0 {
		op.BufferSize = time.Duration(cfg.BufferFrames) * time.Second / time.Duration(cfg.SampleRate)
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.cfg = cfg
	o.log.Infof("Audio output initialized: %dHz, %d channels (oto)", cfg.SampleRate, cfg.Channels)
	return ctx, nil
}

func (o *Oto) OpenStream(cfg StreamConfig, fill FillFunc, onErr ErrorFunc) (Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, err := o.context(cfg)
	if err != nil {
		return nil, &playerrors.StreamError{Device: o.Name(), Err: err}
	}
	if err := ctx.Resume(); err != nil {
		return nil, &playerrors.StreamError{Device: o.Name(), Err: fmt.Errorf("failed to resume oto context: %w", err)}
	}

	cb := newCallback(o.Name(), fill, onErr)
	cb.stopped.Store(true)
	s := &otoStream{
		ctx:  ctx,
		cb:   cb,
		done: make(chan struct{}),
	}
	s.player = ctx.NewPlayer(&otoReader{cb: cb})
	go s.monitor()
	return s, nil
}

// Close suspends the shared context
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	return nil
}

// otoReader adapts the fill callback to the io.Reader oto pulls from
type otoReader struct {
	cb *callback
}

func (r *otoReader) Read(p []byte) (int, error) {
	n := len(p) &^ 3
	r.cb.run(float32View(p[:n]))
	clear(p[n:])
	return len(p), nil
}

type otoStream struct {
	ctx       *oto.Context
	player    *oto.Player
	cb        *callback
	done      chan struct{}
	closeOnce sync.Once
}

// monitor polls the context for asynchronous device errors
func (s *otoStream) monitor() {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.ctx.Err(); err != nil {
				s.cb.report(err, true)
				return
			}
			if err := s.player.Err(); err != nil {
				s.cb.report(err, false)
			}
		}
	}
}

func (s *otoStream) Play() error {
	s.cb.stopped.Store(false)
	s.player.Play()
	return nil
}

func (s *otoStream) Pause() error {
	s.cb.stopped.Store(true)
	s.player.Pause()
	return nil
}

func (s *otoStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cb.stopped.Store(true)
		close(s.done)
		err = s.player.Close()
	})
	return err
}
