package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/decred/slog"
	"github.com/jscyril/golang_playback_engine/api"
	"github.com/jscyril/golang_playback_engine/internal/output"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
	"github.com/jscyril/golang_playback_engine/pkg/events"
)

// Ensure Engine implements Player interface at compile time
var _ api.Player = (*Engine)(nil)

// Config holds engine construction options
type Config struct {
	// InitialVolume is on the VolumeScale
	InitialVolume uint32

	// Stream is the requested output configuration. Zero fields take the
	// device defaults.
	Stream output.StreamConfig

	Logger slog.Logger

	// Bus receives engine events. A nil Bus gives the engine a private
	// bus that is closed when the engine stops.
	Bus *events.EventBus
}

// DefaultConfig returns the configuration used when nothing is specified
func DefaultConfig() Config {
	return Config{InitialVolume: DefaultVolume}
}

// streamFault is a device error tagged with the session that raised it
type streamFault struct {
	session uint64
	err     error
}

// Engine plays decoded buffers on an output device. Commands are handled in
// order by a single goroutine started with Start.
type Engine struct {
	cfg     Config
	dev     output.Device
	log     slog.Logger
	bus     *events.EventBus
	ownsBus bool
	queue   *Queue
	state   *PlaybackState

	mu     sync.RWMutex
	status api.Status
	track  *api.Track
	length int
	negotiated output.StreamConfig

	// owned by the run goroutine
	stream output.Stream

	session atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
	faults  chan streamFault
	ended   chan uint64

	started atomic.Bool
	done    chan struct{}
}

// NewEngine creates an idle engine bound to dev
func NewEngine(cfg Config, dev output.Device) *Engine {
	e := &Engine{
		cfg:    cfg,
		dev:    dev,
		log:    cfg.Logger,
		bus:    cfg.Bus,
		queue:  NewQueue(),
		state:  NewPlaybackState(cfg.InitialVolume),
		status: api.StatusIdle,
		faults: make(chan streamFault, 16),
		ended:  make(chan uint64, 4),
		done:   make(chan struct{}),
	}
	if e.log == nil {
		e.log = slog.Disabled
	}
	if e.bus == nil {
		e.bus = events.NewEventBus()
		e.ownsBus = true
	}
	return e
}

// Start begins the engine goroutines. Later calls do nothing.
func (e *Engine) Start(ctx context.Context) {
	if e.started.Swap(true) {
		return
	}
	go e.run(ctx)
	go e.relay()
}

// Events subscribes to every event the engine publishes
func (e *Engine) Events() <-chan api.Event {
	return e.bus.SubscribeAll()
}

// Bus returns the event bus the engine publishes on
func (e *Engine) Bus() *events.EventBus {
	return e.bus
}

// Done is closed once the command loop has exited and the stream is released
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// run is the main command processing loop
func (e *Engine) run(ctx context.Context) {
	defer e.cleanup()

	for {
		cmd, ok := e.queue.Receive(ctx)
		if !ok {
			return
		}

		e.releaseFailed()

		switch cmd.Type {
		case api.CmdPlay:
			err := e.playBuffer(cmd.Payload)
			reply(cmd, err)
			if err != nil {
				e.log.Errorf("Play failed: %v", err)
				e.publish(api.EventError, err)
			}

		case api.CmdSetVolume:
			if e.state.SetVolume(cmd.Volume) {
				e.log.Debugf("Volume set to %d", cmd.Volume)
				e.publish(api.EventVolumeChange, cmd.Volume)
			}
			reply(cmd, nil)

		case api.CmdStop:
			e.log.Infof("Stop received")
			reply(cmd, nil)
			return

		default:
			err := playerrors.NewEngineError("command", fmt.Errorf("unknown command %v", cmd.Type))
			reply(cmd, err)
			e.publish(api.EventError, err)
		}
	}
}

// relay forwards device errors and end-of-track notices from the
// real-time path to the log and the event bus
func (e *Engine) relay() {
	for {
		select {
		case <-e.done:
			return

		case f := <-e.faults:
			if n := e.dropped.Swap(0); n > 0 {
				e.log.Warnf("%d stream errors dropped", n)
			}
			var cbErr *playerrors.CallbackError
			fatal := errors.As(f.err, &cbErr) && cbErr.Fatal
			if fatal && f.session == e.session.Load() {
				e.failed.Store(f.session)
			}
			e.log.Errorf("Stream error: %v", f.err)
			e.publish(api.EventError, f.err)

		case id := <-e.ended:
			if id != e.session.Load() {
				continue
			}
			e.log.Debugf("Track ended")
			e.mu.RLock()
			track := e.track
			e.mu.RUnlock()
			e.publish(api.EventTrackEnded, track)
		}
	}
}

// playBuffer replaces the active stream with one playing payload
func (e *Engine) playBuffer(payload any) error {
	buf, ok := payload.(*Buffer)
	if !ok || buf == nil {
		return playerrors.NewEngineError("play", playerrors.ErrNilBuffer)
	}
	if err := buf.validate(); err != nil {
		return playerrors.NewEngineError("play", err)
	}

	// Only one device handle at a time
	e.releaseStream()
	e.setStatus(api.StatusIdle, nil, 0)

	cfg, err := e.dev.Config(e.cfg.Stream)
	if err != nil {
		return playerrors.NewEngineError("play", err)
	}

	local := *buf
	id := e.session.Add(1)
	src := newSource(&local, e.state, id, e.ended)
	e.state.setPosition(local.Position)

	stream, err := e.dev.OpenStream(cfg, src.fill, e.onStreamError(id))
	if err != nil {
		return playerrors.NewEngineError("play", err)
	}
	if err := stream.Play(); err != nil {
		if cerr := stream.Close(); cerr != nil {
			e.log.Warnf("Closing unstarted stream: %v", cerr)
		}
		return playerrors.NewEngineError("play", err)
	}

	e.stream = stream
	e.mu.Lock()
	e.negotiated = cfg
	e.mu.Unlock()
	e.setStatus(api.StatusPlaying, local.Track, local.Len())
	e.log.Infof("Playing %d samples at %dHz on %s (%dHz, %d channels)",
		local.Len(), local.SampleRate, e.dev.Name(), cfg.SampleRate, cfg.Channels)
	return nil
}

// onStreamError returns the device error sink for one session. It runs on
// the device context and must not block.
func (e *Engine) onStreamError(session uint64) output.ErrorFunc {
	return func(err error) {
		select {
		case e.faults <- streamFault{session: session, err: err}:
		default:
			e.dropped.Add(1)
		}
	}
}

// releaseFailed drops a stream the device reported as failed
func (e *Engine) releaseFailed() {
	id := e.failed.Swap(0)
	if id == 0 || e.stream == nil || id != e.session.Load() {
		return
	}
	e.log.Warnf("Releasing failed stream")
	e.releaseStream()
	e.setStatus(api.StatusIdle, nil, 0)
}

// releaseStream pauses and closes the active stream
func (e *Engine) releaseStream() {
	if e.stream == nil {
		return
	}
	if err := e.stream.Pause(); err != nil {
		e.log.Warnf("Pausing stream: %v", err)
	}
	if err := e.stream.Close(); err != nil {
		e.log.Warnf("Closing stream: %v", err)
	}
	e.stream = nil
}

func (e *Engine) setStatus(status api.Status, track *api.Track, length int) {
	e.mu.Lock()
	changed := e.status != status || e.track != track
	e.status = status
	e.track = track
	e.length = length
	e.mu.Unlock()

	if changed {
		e.publish(api.EventStateChange, e.Snapshot())
	}
}

func (e *Engine) publish(t api.EventType, payload any) {
	e.bus.Publish(api.Event{Type: t, Payload: payload})
}

// cleanup releases resources
func (e *Engine) cleanup() {
	e.queue.Close()
	for {
		cmd, ok := e.queue.Receive(context.Background())
		if !ok {
			break
		}
		reply(cmd, playerrors.ErrEngineStopped)
	}

	e.releaseStream()
	e.setStatus(api.StatusStopped, nil, 0)
	close(e.done)

	if e.ownsBus {
		e.bus.Close()
	}
}

// reply delivers a command's result without blocking
func reply(cmd api.Command, err error) {
	if cmd.Reply == nil {
		return
	}
	select {
	case cmd.Reply <- err:
	default:
	}
}

// Play starts playing buf, replacing any current playback
func (e *Engine) Play(buf *Buffer) error {
	if buf == nil {
		return playerrors.ErrNilBuffer
	}
	return e.queue.Send(api.Command{Type: api.CmdPlay, Payload: buf})
}

// PlayWait is Play that waits for the command to be handled and returns
// its result.
func (e *Engine) PlayWait(ctx context.Context, buf *Buffer) error {
	if buf == nil {
		return playerrors.ErrNilBuffer
	}
	result := make(chan error, 1)
	if err := e.queue.Send(api.Command{Type: api.CmdPlay, Payload: buf, Reply: result}); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		select {
		case err := <-result:
			return err
		default:
			return playerrors.ErrEngineStopped
		}
	}
}

// SetVolume sets the volume on the VolumeScale
func (e *Engine) SetVolume(volume uint32) error {
	return e.queue.Send(api.Command{Type: api.CmdSetVolume, Volume: volume})
}

// Stop stops playback and ends the engine. Stopping a stopped engine is a
// no-op.
func (e *Engine) Stop() error {
	err := e.queue.Send(api.Command{Type: api.CmdStop})
	if errors.Is(err, playerrors.ErrEngineStopped) {
		return nil
	}
	return err
}

// Close closes the command queue. Pending commands are still handled, then
// the engine ends as if stopped.
func (e *Engine) Close() {
	e.queue.Close()
}

// Status returns the current lifecycle state
func (e *Engine) Status() api.Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Volume returns the stored volume
func (e *Engine) Volume() uint32 {
	return e.state.Volume()
}

// Position returns the cursor of the active buffer in source samples
func (e *Engine) Position() float64 {
	return e.state.Position()
}

// StreamConfig returns the configuration negotiated for the most recent
// successful Play
func (e *Engine) StreamConfig() output.StreamConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.negotiated
}

// Snapshot returns a copy of the observable state
func (e *Engine) Snapshot() api.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := api.Snapshot{
		Status:   e.status,
		Volume:   e.state.Volume(),
		Position: e.state.Position(),
		Length:   e.length,
	}
	if e.track != nil {
		track := *e.track
		snap.Track = &track
	}
	return snap
}
