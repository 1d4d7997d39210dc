//go:build portaudio

package output

import (
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/gordonklaus/portaudio"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

// PortAudio opens callback streams through PortAudio
type PortAudio struct {
	log        slog.Logger
	deviceName string

	mu          sync.Mutex
	initialized bool
}

// NewPortAudio creates a PortAudio device. An empty deviceName selects the
// default output device.
func NewPortAudio(deviceName string, log slog.Logger) *PortAudio {
	return &PortAudio{log: loggerOrDisabled(log), deviceName: deviceName}
}

func (p *PortAudio) Name() string {
	if p.deviceName != "" {
		return "portaudio:" + p.deviceName
	}
	return "portaudio"
}

// init initializes the library once (must hold p.mu)
func (p *PortAudio) init() error {
	if p.initialized {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	p.initialized = true
	return nil
}

// Devices lists devices with output channels
func (p *PortAudio) Devices() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.init(); err != nil {
		return nil, err
	}
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	var names []string
	for _, info := range infos {
		if info.MaxOutputChannels > 0 {
			names = append(names, info.Name)
		}
	}
	return names, nil
}

// lookup resolves the selected device (must hold p.mu)
func (p *PortAudio) lookup() (*portaudio.DeviceInfo, error) {
	if p.deviceName == "" {
		info, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", playerrors.ErrNoOutputConfig, err)
		}
		return info, nil
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, info := range infos {
		if info.Name == p.deviceName && info.MaxOutputChannels > 0 {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", playerrors.ErrDeviceNotFound, p.deviceName)
}

func (p *PortAudio) Config(want StreamConfig) (StreamConfig, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.init(); err != nil {
		return StreamConfig{}, &playerrors.ConfigurationError{Device: p.Name(), Err: err}
	}
	info, err := p.lookup()
	if err != nil {
		return StreamConfig{}, &playerrors.ConfigurationError{Device: p.Name(), Err: err}
	}

	channels := min(2, info.MaxOutputChannels)
	if want.Channels > info.MaxOutputChannels {
		return StreamConfig{}, &playerrors.ConfigurationError{
			Device: p.Name(),
			Err: fmt.Errorf("%w: %d channels requested, device has %d", playerrors.ErrNoOutputConfig,
				want.Channels, info.MaxOutputChannels),
		}
	}
	return withDefaults(want, int(info.DefaultSampleRate), channels), nil
}

func (p *PortAudio) OpenStream(cfg StreamConfig, fill FillFunc, onErr ErrorFunc) (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.init(); err != nil {
		return nil, &playerrors.StreamError{Device: p.Name(), Err: err}
	}
	info, err := p.lookup()
	if err != nil {
		return nil, &playerrors.StreamError{Device: p.Name(), Err: err}
	}

	params := portaudio.HighLatencyParameters(nil, info)
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.BufferFrames

	cb := newCallback(p.Name(), fill, onErr)
	cb.stopped.Store(true)
	stream, err := portaudio.OpenStream(params, func(out []float32) {
		cb.run(out)
	})
	if err != nil {
		return nil, &playerrors.StreamError{Device: p.Name(), Err: fmt.Errorf("failed to open stream: %w", err)}
	}

	p.log.Infof("Stream opened on %s: %dHz, %d channels", info.Name, cfg.SampleRate, cfg.Channels)
	return &portAudioStream{name: p.Name(), stream: stream, cb: cb}, nil
}

// Close terminates the library
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}
	p.initialized = false
	return portaudio.Terminate()
}

type portAudioStream struct {
	name    string
	stream  *portaudio.Stream
	cb      *callback
	running bool
	closed  bool
}

func (s *portAudioStream) Play() error {
	if s.running {
		return nil
	}
	s.cb.stopped.Store(false)
	if err := s.stream.Start(); err != nil {
		s.cb.stopped.Store(true)
		return &playerrors.StreamError{Device: s.name, Err: err}
	}
	s.running = true
	return nil
}

func (s *portAudioStream) Pause() error {
	s.cb.stopped.Store(true)
	if !s.running {
		return nil
	}
	s.running = false
	return s.stream.Stop()
}

func (s *portAudioStream) Close() error {
	if s.closed {
		return nil
	}
	if err := s.Pause(); err != nil {
		s.cb.report(err, false)
	}
	s.closed = true
	return s.stream.Close()
}
