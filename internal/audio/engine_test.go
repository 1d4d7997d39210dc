package audio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jscyril/golang_playback_engine/api"
	"github.com/jscyril/golang_playback_engine/internal/output"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

func newTestEngine(t *testing.T) (*Engine, *output.Null) {
	t.Helper()

	dev := output.NewNull(output.StreamConfig{SampleRate: 44100, Channels: 2}, false)
	engine := NewEngine(DefaultConfig(), dev)
	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)

	t.Cleanup(func() {
		cancel()
		select {
		case <-engine.Done():
		case <-time.After(2 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return engine, dev
}

func constBuffer(t *testing.T, v float32, n int) *Buffer {
	t.Helper()

	samples := make([]float32, n)
	for i := range samples {
		samples[i] = v
	}
	buf, err := NewBuffer(samples, 44100, 1)
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	return buf
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitEvent(t *testing.T, ch <-chan api.Event, want api.EventType) api.Event {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed waiting for %v", want)
			}
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for event %v", want)
		}
	}
}

func TestNewEngine(t *testing.T) {
	engine := NewEngine(DefaultConfig(), output.NewNull(output.StreamConfig{}, false))

	if engine == nil {
		t.Fatal("NewEngine returned nil")
	}
	if engine.Status() != api.StatusIdle {
		t.Errorf("Expected status StatusIdle, got %v", engine.Status())
	}
	if engine.Volume() != DefaultVolume {
		t.Errorf("Expected volume %d, got %d", DefaultVolume, engine.Volume())
	}
	if engine.Bus() == nil {
		t.Error("Engine bus is nil")
	}
}

func TestEngineScenarioHalfVolume(t *testing.T) {
	engine, dev := newTestEngine(t)

	buf, _ := NewBuffer([]float32{1, 1, 1, 1}, 44100, 1)
	if err := engine.PlayWait(context.Background(), buf); err != nil {
		t.Fatalf("PlayWait() error = %v", err)
	}
	if engine.Status() != api.StatusPlaying {
		t.Fatalf("Status() = %v, want playing", engine.Status())
	}
	if cfg := engine.StreamConfig(); cfg.SampleRate != 44100 || cfg.Channels != 2 {
		t.Errorf("StreamConfig() = %+v, want the negotiated 44100Hz stereo", cfg)
	}

	stream := dev.Active()
	out := stream.Pull(8)
	for i, v := range out {
		if v != 0.5 {
			t.Errorf("out[%d] = %v, want 0.5", i, v)
		}
	}
	for i, v := range stream.Pull(8) {
		if v != 0 {
			t.Errorf("after exhaustion out[%d] = %v, want 0", i, v)
		}
	}

	if engine.Position() != 4 {
		t.Errorf("Position() = %v, want 4", engine.Position())
	}
	if buf.Position != 0 {
		t.Errorf("caller's buffer Position = %v, engine must play its own copy", buf.Position)
	}
}

func TestEngineTrackEndedOnce(t *testing.T) {
	engine, dev := newTestEngine(t)
	ended := engine.Bus().Subscribe(api.EventTrackEnded)

	buf := constBuffer(t, 1, 2)
	buf.Track = &api.Track{Title: "Short"}
	if err := engine.PlayWait(context.Background(), buf); err != nil {
		t.Fatalf("PlayWait() error = %v", err)
	}

	stream := dev.Active()
	for i := 0; i < 5; i++ {
		stream.Pull(16)
	}

	ev := waitEvent(t, ended, api.EventTrackEnded)
	if track, ok := ev.Payload.(*api.Track); !ok || track.Title != "Short" {
		t.Errorf("payload = %#v, want the played track", ev.Payload)
	}

	select {
	case ev := <-ended:
		t.Errorf("unexpected second track ended event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEngineSetVolume(t *testing.T) {
	engine, dev := newTestEngine(t)

	if err := engine.PlayWait(context.Background(), constBuffer(t, 1, 64)); err != nil {
		t.Fatalf("PlayWait() error = %v", err)
	}

	tests := []struct {
		name   string
		volume uint32
	}{
		{"mute", 0},
		{"quarter", 250},
		{"full", 1000},
		{"boost", 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := engine.SetVolume(tt.volume); err != nil {
				t.Fatalf("SetVolume(%d) error = %v", tt.volume, err)
			}
			waitFor(t, "volume", func() bool { return engine.Volume() == tt.volume })

			want := float32(1) * (float32(tt.volume) / VolumeScale)
			for i, v := range dev.Active().Pull(2) {
				if v != want {
					t.Errorf("out[%d] = %v, want %v", i, v, want)
				}
			}
		})
	}
}

func TestEngineSetVolumeIdempotent(t *testing.T) {
	engine, dev := newTestEngine(t)
	changes := engine.Bus().Subscribe(api.EventVolumeChange)

	if err := engine.PlayWait(context.Background(), constBuffer(t, 0.8, 32)); err != nil {
		t.Fatalf("PlayWait() error = %v", err)
	}

	engine.SetVolume(300)
	waitFor(t, "volume", func() bool { return engine.Volume() == 300 })
	first := dev.Active().Pull(4)

	engine.SetVolume(300)
	waitFor(t, "queue drained", func() bool { return engine.queue.Len() == 0 })
	second := dev.Active().Pull(4)

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("out[%d]: %v then %v", i, first[i], second[i])
		}
	}

	waitEvent(t, changes, api.EventVolumeChange)
	select {
	case ev := <-changes:
		t.Errorf("repeated volume should not publish again, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEngineReplacement(t *testing.T) {
	engine, dev := newTestEngine(t)
	engine.SetVolume(1000)

	if err := engine.PlayWait(context.Background(), constBuffer(t, 0.1, 1000)); err != nil {
		t.Fatalf("PlayWait(b1) error = %v", err)
	}
	first := dev.Active()
	for _, v := range first.Pull(8) {
		if v != 0.1 {
			t.Fatalf("b1 sample = %v, want 0.1", v)
		}
	}

	if err := engine.PlayWait(context.Background(), constBuffer(t, 0.2, 1000)); err != nil {
		t.Fatalf("PlayWait(b2) error = %v", err)
	}

	if !first.Closed() {
		t.Error("first stream should be closed before the second is used")
	}
	if first.Pull(8) != nil {
		t.Error("replaced stream should not fill")
	}
	if n := len(dev.Open()); n != 1 {
		t.Errorf("open streams = %d, want 1", n)
	}

	second := dev.Active()
	for i := 0; i < 10; i++ {
		for j, v := range second.Pull(32) {
			if v != 0.2 {
				t.Fatalf("pull %d: out[%d] = %v, want only b2 samples", i, j, v)
			}
		}
	}
	if engine.Position() != 160 {
		t.Errorf("Position() = %v, want 160 in the new buffer", engine.Position())
	}
}

func TestEngineStopTerminates(t *testing.T) {
	dev := output.NewNull(output.StreamConfig{}, false)
	engine := NewEngine(DefaultConfig(), dev)
	events := engine.Events()
	engine.Start(context.Background())

	if err := engine.PlayWait(context.Background(), constBuffer(t, 1, 100)); err != nil {
		t.Fatalf("PlayWait() error = %v", err)
	}
	stream := dev.Active()

	if err := engine.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case <-engine.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}

	if engine.Status() != api.StatusStopped {
		t.Errorf("Status() = %v, want stopped", engine.Status())
	}
	if !stream.Closed() {
		t.Error("stream should be closed after Stop")
	}

	if err := engine.SetVolume(900); !errors.Is(err, playerrors.ErrEngineStopped) {
		t.Errorf("SetVolume() after Stop error = %v, want ErrEngineStopped", err)
	}
	if engine.Volume() != DefaultVolume {
		t.Errorf("Volume() = %d, SetVolume after Stop must have no effect", engine.Volume())
	}
	if err := engine.PlayWait(context.Background(), constBuffer(t, 1, 4)); !errors.Is(err, playerrors.ErrEngineStopped) {
		t.Errorf("PlayWait() after Stop error = %v, want ErrEngineStopped", err)
	}
	if err := engine.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if dev.Opened() != 1 {
		t.Errorf("Opened() = %d, want 1", dev.Opened())
	}

	// the private bus is closed with the engine
	for range events {
	}
}

func TestEngineCommandsAfterStopAreDiscarded(t *testing.T) {
	dev := output.NewNull(output.StreamConfig{}, false)
	engine := NewEngine(DefaultConfig(), dev)

	engine.Stop()
	engine.SetVolume(100)
	result := make(chan error, 1)
	engine.queue.Send(api.Command{Type: api.CmdPlay, Payload: constBuffer(t, 1, 4), Reply: result})

	engine.Start(context.Background())
	<-engine.Done()

	if engine.Volume() != DefaultVolume {
		t.Errorf("Volume() = %d, command after Stop must not apply", engine.Volume())
	}
	if err := <-result; !errors.Is(err, playerrors.ErrEngineStopped) {
		t.Errorf("pending play result = %v, want ErrEngineStopped", err)
	}
	if dev.Opened() != 0 {
		t.Errorf("Opened() = %d, want 0", dev.Opened())
	}
}

func TestEngineConfigurationErrorThenSetVolume(t *testing.T) {
	engine, dev := newTestEngine(t)

	dev.FailConfig(playerrors.ErrNoOutputConfig)
	err := engine.PlayWait(context.Background(), constBuffer(t, 1, 16))
	var cfgErr *playerrors.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("PlayWait() error = %v, want ConfigurationError", err)
	}
	if engine.Status() != api.StatusIdle {
		t.Errorf("Status() = %v, want idle", engine.Status())
	}

	if err := engine.SetVolume(800); err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	waitFor(t, "volume", func() bool { return engine.Volume() == 800 })

	dev.FailConfig(nil)
	if err := engine.PlayWait(context.Background(), constBuffer(t, 1, 16)); err != nil {
		t.Fatalf("PlayWait() after recovery error = %v", err)
	}
	want := float32(1) * (float32(800) / VolumeScale)
	for i, v := range dev.Active().Pull(4) {
		if v != want {
			t.Errorf("out[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestEngineFailedPlayStopsPriorAudio(t *testing.T) {
	engine, dev := newTestEngine(t)
	errs := engine.Bus().Subscribe(api.EventError)

	if err := engine.PlayWait(context.Background(), constBuffer(t, 1, 64)); err != nil {
		t.Fatalf("PlayWait() error = %v", err)
	}
	prior := dev.Active()

	dev.FailOpen(playerrors.ErrStreamOpen)
	err := engine.PlayWait(context.Background(), constBuffer(t, 1, 64))
	var streamErr *playerrors.StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("PlayWait() error = %v, want StreamError", err)
	}

	if !prior.Closed() {
		t.Error("prior stream should be released")
	}
	if engine.Status() != api.StatusIdle {
		t.Errorf("Status() = %v, want idle", engine.Status())
	}
	waitEvent(t, errs, api.EventError)

	// the loop keeps serving commands
	dev.FailOpen(nil)
	if err := engine.PlayWait(context.Background(), constBuffer(t, 1, 64)); err != nil {
		t.Fatalf("PlayWait() after failure error = %v", err)
	}
	if engine.Status() != api.StatusPlaying {
		t.Errorf("Status() = %v, want playing", engine.Status())
	}
}

func TestEngineInvalidBuffer(t *testing.T) {
	engine, dev := newTestEngine(t)

	if err := engine.Play(nil); !errors.Is(err, playerrors.ErrNilBuffer) {
		t.Errorf("Play(nil) error = %v, want ErrNilBuffer", err)
	}
	if err := engine.PlayWait(context.Background(), nil); !errors.Is(err, playerrors.ErrNilBuffer) {
		t.Errorf("PlayWait(nil) error = %v, want ErrNilBuffer", err)
	}

	bad := &Buffer{Samples: []float32{1}, SampleRate: 0, Channels: 1}
	err := engine.PlayWait(context.Background(), bad)
	if !errors.Is(err, playerrors.ErrInvalidBuffer) {
		t.Errorf("PlayWait(bad) error = %v, want ErrInvalidBuffer", err)
	}
	var engErr *playerrors.EngineError
	if !errors.As(err, &engErr) || engErr.Op != "play" {
		t.Errorf("PlayWait(bad) error = %v, want play EngineError", err)
	}
	if dev.Opened() != 0 {
		t.Errorf("Opened() = %d, invalid buffers must not open a stream", dev.Opened())
	}
}

func TestEngineFatalStreamErrorFallsBackToIdle(t *testing.T) {
	engine, dev := newTestEngine(t)
	errs := engine.Bus().Subscribe(api.EventError)

	if err := engine.PlayWait(context.Background(), constBuffer(t, 1, 64)); err != nil {
		t.Fatalf("PlayWait() error = %v", err)
	}
	stream := dev.Active()

	stream.RaiseError(errors.New("underrun"), false)
	ev := waitEvent(t, errs, api.EventError)
	var cbErr *playerrors.CallbackError
	if err, _ := ev.Payload.(error); !errors.As(err, &cbErr) || cbErr.Fatal {
		t.Errorf("payload = %v, want non-fatal CallbackError", ev.Payload)
	}

	engine.SetVolume(400)
	waitFor(t, "volume", func() bool { return engine.Volume() == 400 })
	if engine.Status() != api.StatusPlaying || stream.Closed() {
		t.Fatal("non-fatal errors must not stop playback")
	}

	stream.RaiseError(playerrors.ErrStreamFailed, true)
	waitEvent(t, errs, api.EventError)

	engine.SetVolume(600)
	waitFor(t, "idle after fatal error", func() bool {
		return engine.Status() == api.StatusIdle && engine.Volume() == 600
	})
	if !stream.Closed() {
		t.Error("failed stream should be released")
	}
}

// panickingDevice opens Null streams whose fill always panics
type panickingDevice struct {
	*output.Null
}

func (d panickingDevice) OpenStream(cfg output.StreamConfig, _ output.FillFunc, onErr output.ErrorFunc) (output.Stream, error) {
	return d.Null.OpenStream(cfg, func([]float32) { panic("fill exploded") }, onErr)
}

func TestEngineFillPanicFallsBackToIdle(t *testing.T) {
	dev := output.NewNull(output.StreamConfig{SampleRate: 44100, Channels: 2}, false)
	engine := NewEngine(DefaultConfig(), panickingDevice{dev})
	errs := engine.Bus().Subscribe(api.EventError)
	engine.Start(context.Background())
	t.Cleanup(func() {
		engine.Stop()
		<-engine.Done()
	})

	if err := engine.PlayWait(context.Background(), constBuffer(t, 1, 64)); err != nil {
		t.Fatalf("PlayWait() error = %v", err)
	}
	stream := dev.Active()

	for range 3 {
		for i, v := range stream.Pull(8) {
			if v != 0 {
				t.Fatalf("sample %d = %v, want silence from a panicking fill", i, v)
			}
		}
	}

	ev := waitEvent(t, errs, api.EventError)
	var cbErr *playerrors.CallbackError
	if err, _ := ev.Payload.(error); !errors.As(err, &cbErr) || !cbErr.Fatal {
		t.Fatalf("payload = %v, want fatal CallbackError", ev.Payload)
	}

	engine.SetVolume(700)
	waitFor(t, "idle after fill panic", func() bool {
		return engine.Status() == api.StatusIdle && engine.Volume() == 700
	})
	if !stream.Closed() {
		t.Error("panicked stream should be released")
	}

	select {
	case ev := <-errs:
		t.Errorf("unexpected second error event: %v", ev.Payload)
	default:
	}
}

func TestEngineCloseEndsLoop(t *testing.T) {
	dev := output.NewNull(output.StreamConfig{}, false)
	engine := NewEngine(DefaultConfig(), dev)
	engine.Start(context.Background())

	engine.SetVolume(700)
	engine.Close()

	select {
	case <-engine.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after Close")
	}
	if engine.Volume() != 700 {
		t.Errorf("Volume() = %d, commands queued before Close must be handled", engine.Volume())
	}
	if engine.Status() != api.StatusStopped {
		t.Errorf("Status() = %v, want stopped", engine.Status())
	}
}

func TestEngineContextCancel(t *testing.T) {
	dev := output.NewNull(output.StreamConfig{}, false)
	engine := NewEngine(DefaultConfig(), dev)
	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)

	if err := engine.PlayWait(ctx, constBuffer(t, 1, 8)); err != nil {
		t.Fatalf("PlayWait() error = %v", err)
	}
	stream := dev.Active()
	cancel()

	select {
	case <-engine.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after cancel")
	}
	if !stream.Closed() {
		t.Error("stream should be closed on cancel")
	}
}

func TestEngineSnapshot(t *testing.T) {
	engine, dev := newTestEngine(t)

	buf := constBuffer(t, 1, 10)
	buf.Track = &api.Track{Title: "Song", Artist: "Band"}
	if err := engine.PlayWait(context.Background(), buf); err != nil {
		t.Fatalf("PlayWait() error = %v", err)
	}
	dev.Active().Pull(6)

	snap := engine.Snapshot()
	if snap.Status != api.StatusPlaying || snap.Length != 10 || snap.Position != 3 {
		t.Errorf("Snapshot() = %+v", snap)
	}
	if snap.Track == nil || snap.Track.Title != "Song" {
		t.Fatalf("Snapshot().Track = %+v", snap.Track)
	}

	// Verify it's a copy, not the original
	snap.Track.Title = "Changed"
	if engine.Snapshot().Track.Title != "Song" {
		t.Error("Snapshot should return a copy, not the original")
	}
}

func TestEngineRealtimeDevice(t *testing.T) {
	dev := output.NewNull(output.StreamConfig{SampleRate: 8000, Channels: 1, BufferFrames: 80}, true)
	engine := NewEngine(Config{InitialVolume: 1000}, dev)
	ended := engine.Bus().Subscribe(api.EventTrackEnded)
	engine.Start(context.Background())
	defer engine.Stop()

	if err := engine.PlayWait(context.Background(), constBuffer(t, 0.5, 200)); err != nil {
		t.Fatalf("PlayWait() error = %v", err)
	}
	waitEvent(t, ended, api.EventTrackEnded)
	if engine.Position() != 200 {
		t.Errorf("Position() = %v, want 200", engine.Position())
	}
}
