package output

import (
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/gen2brain/malgo"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

// Malgo opens callback-driven streams through miniaudio
type Malgo struct {
	log        slog.Logger
	deviceName string

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
}

// NewMalgo creates a miniaudio device. An empty deviceName selects the
// system default output.
func NewMalgo(deviceName string, log slog.Logger) *Malgo {
	return &Malgo{
		log:        loggerOrDisabled(log),
		deviceName: deviceName,
	}
}

func (m *Malgo) Name() string {
	if m.deviceName != "" {
		return "malgo:" + m.deviceName
	}
	return "malgo"
}

// context lazily initializes miniaudio (must hold m.mu)
func (m *Malgo) context() (*malgo.AllocatedContext, error) {
	if m.malgoCtx != nil {
		return m.malgoCtx, nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.log.Debugf("miniaudio: %s", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx
	return ctx, nil
}

// Devices lists playback device names
func (m *Malgo) Devices() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := m.context()
	if err != nil {
		return nil, err
	}
	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

// lookup finds the selected device; nil means the system default (must hold m.mu)
func (m *Malgo) lookup(ctx *malgo.AllocatedContext) (*malgo.DeviceInfo, error) {
	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	if len(infos) == 0 {
		return nil, playerrors.ErrNoOutputConfig
	}
	if m.deviceName == "" {
		return nil, nil
	}
	for i := range infos {
		if infos[i].Name() == m.deviceName {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", playerrors.ErrDeviceNotFound, m.deviceName)
}

func (m *Malgo) Config(want StreamConfig) (StreamConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := m.context()
	if err != nil {
		return StreamConfig{}, &playerrors.ConfigurationError{Device: m.Name(), Err: err}
	}
	if _, err := m.lookup(ctx); err != nil {
		return StreamConfig{}, &playerrors.ConfigurationError{Device: m.Name(), Err: err}
	}

	// miniaudio converts to the hardware format, so any rate/channel pair is usable
	return withDefaults(want, 48000, 2), nil
}

func (m *Malgo) OpenStream(cfg StreamConfig, fill FillFunc, onErr ErrorFunc) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, err := m.context()
	if err != nil {
		return nil, &playerrors.StreamError{Device: m.Name(), Err: err}
	}
	info, err := m.lookup(ctx)
	if err != nil {
		return nil, &playerrors.StreamError{Device: m.Name(), Err: err}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if cfg.BufferFrames > 0 {
		deviceConfig.PeriodSizeInFrames = uint32(cfg.BufferFrames)
	}
	if info != nil {
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
	}

	cb := newCallback(m.Name(), fill, onErr)
	cb.stopped.Store(true)
	channels := cfg.Channels

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			n := int(frameCount) * channels * 4
			if n > len(pOutput) {
				n = len(pOutput)
			}
			cb.run(float32View(pOutput[:n]))
		},
		Stop: func() {
			// miniaudio stops devices on its own when the backend fails
			if !cb.stopped.Load() {
				cb.report(playerrors.ErrStreamFailed, true)
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return nil, &playerrors.StreamError{Device: m.Name(), Err: fmt.Errorf("failed to initialize playback device: %w", err)}
	}

	m.log.Infof("Stream opened on %s: %dHz, %d channels, f32", m.Name(), cfg.SampleRate, cfg.Channels)
	return &malgoStream{name: m.Name(), device: device, cb: cb}, nil
}

// Close releases the miniaudio context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.log.Warnf("malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

type malgoStream struct {
	name   string
	device *malgo.Device
	cb     *callback
	closed bool
}

func (s *malgoStream) Play() error {
	s.cb.stopped.Store(false)
	if err := s.device.Start(); err != nil {
		s.cb.stopped.Store(true)
		return &playerrors.StreamError{Device: s.name, Err: fmt.Errorf("failed to start device: %w", err)}
	}
	return nil
}

func (s *malgoStream) Pause() error {
	s.cb.stopped.Store(true)
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

func (s *malgoStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cb.stopped.Store(true)
	s.device.Uninit()
	return nil
}
