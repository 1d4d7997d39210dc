//go:build !portaudio

package output

import (
	"errors"

	"github.com/decred/slog"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct {
	deviceName string
}

// NewPortAudio creates a PortAudio device
func NewPortAudio(deviceName string, _ slog.Logger) *PortAudio {
	return &PortAudio{deviceName: deviceName}
}

func (p *PortAudio) Name() string {
	if p.deviceName != "" {
		return "portaudio:" + p.deviceName
	}
	return "portaudio"
}

func (p *PortAudio) Devices() ([]string, error) {
	return nil, errPortAudioDisabled
}

func (p *PortAudio) Config(StreamConfig) (StreamConfig, error) {
	return StreamConfig{}, &playerrors.ConfigurationError{Device: p.Name(), Err: errPortAudioDisabled}
}

func (p *PortAudio) OpenStream(StreamConfig, FillFunc, ErrorFunc) (Stream, error) {
	return nil, &playerrors.StreamError{Device: p.Name(), Err: errPortAudioDisabled}
}

func (p *PortAudio) Close() error {
	return nil
}
