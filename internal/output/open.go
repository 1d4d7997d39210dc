package output

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/decred/slog"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

// Backends lists the names accepted by Open
var Backends = []string{"auto", "malgo", "oto", "beep", "portaudio", "null"}

// Open resolves a device spec of the form "backend" or "backend:device".
// "auto" (or an empty spec) tries malgo, then oto, then the beep speaker.
func Open(spec string, log slog.Logger) (Device, error) {
	backend, name, _ := strings.Cut(strings.TrimSpace(spec), ":")
	backend = strings.ToLower(backend)

	if name != "" && backend != "malgo" && backend != "portaudio" {
		return nil, &playerrors.ConfigurationError{
			Device: spec,
			Err:    fmt.Errorf("%w: backend %s does not select devices by name", playerrors.ErrDeviceNotFound, backend),
		}
	}

	switch backend {
	case "", "auto":
		return NewAuto(log, NewMalgo("", log), NewOto(log), NewBeep(log)), nil
	case "malgo":
		return NewMalgo(name, log), nil
	case "oto":
		return NewOto(log), nil
	case "beep":
		return NewBeep(log), nil
	case "portaudio":
		return NewPortAudio(name, log), nil
	case "null":
		return NewNull(StreamConfig{}, true), nil
	default:
		return nil, &playerrors.ConfigurationError{
			Device: spec,
			Err:    fmt.Errorf("%w: unknown backend %q", playerrors.ErrDeviceNotFound, backend),
		}
	}
}

// Auto delegates to the first candidate whose configuration succeeds and
// sticks with it afterwards.
type Auto struct {
	log        slog.Logger
	candidates []Device

	mu     sync.Mutex
	chosen Device
}

// NewAuto creates a device that picks among candidates in order
func NewAuto(log slog.Logger, candidates ...Device) *Auto {
	return &Auto{log: loggerOrDisabled(log), candidates: candidates}
}

func (a *Auto) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.chosen != nil {
		return "auto(" + a.chosen.Name() + ")"
	}
	return "auto"
}

// Chosen returns the selected backend, or nil before the first Config
func (a *Auto) Chosen() Device {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chosen
}

func (a *Auto) Config(want StreamConfig) (StreamConfig, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config(want)
}

// config must hold a.mu
func (a *Auto) config(want StreamConfig) (StreamConfig, error) {
	if a.chosen != nil {
		return a.chosen.Config(want)
	}

	var errs []error
	for _, dev := range a.candidates {
		cfg, err := dev.Config(want)
		if err != nil {
			a.log.Debugf("Output %s unavailable: %v", dev.Name(), err)
			errs = append(errs, err)
			continue
		}
		a.chosen = dev
		a.log.Infof("Selected output backend %s", dev.Name())
		return cfg, nil
	}

	return StreamConfig{}, &playerrors.ConfigurationError{
		Device: "auto",
		Err:    fmt.Errorf("%w: %w", playerrors.ErrNoOutputConfig, errors.Join(errs...)),
	}
}

func (a *Auto) OpenStream(cfg StreamConfig, fill FillFunc, onErr ErrorFunc) (Stream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.chosen == nil {
		if _, err := a.config(cfg); err != nil {
			return nil, &playerrors.StreamError{Device: "auto", Err: err}
		}
	}
	return a.chosen.OpenStream(cfg, fill, onErr)
}

// Devices lists devices of the chosen backend when it supports enumeration
func (a *Auto) Devices() ([]string, error) {
	a.mu.Lock()
	dev := a.chosen
	a.mu.Unlock()

	if l, ok := dev.(Lister); ok {
		return l.Devices()
	}
	return nil, nil
}

func (a *Auto) Close() error {
	var errs []error
	for _, dev := range a.candidates {
		if err := dev.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", dev.Name(), err))
		}
	}
	return errors.Join(errs...)
}
