package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"
	"github.com/jscyril/golang_playback_engine/api"
	"github.com/jscyril/golang_playback_engine/internal/audio"
	"github.com/jscyril/golang_playback_engine/internal/config"
	"github.com/jscyril/golang_playback_engine/internal/decode"
	"github.com/jscyril/golang_playback_engine/internal/logging"
	"github.com/jscyril/golang_playback_engine/internal/output"
	"github.com/jscyril/golang_playback_engine/internal/ui"
	"golang.org/x/sync/errgroup"
)

// minDrain covers backends that buffer more than one period, such as oto
const minDrain = 250 * time.Millisecond

var errUsage = errors.New("usage: player [-config path] [-device name] [-volume n] [-no-tui] [-list-devices] file")

type options struct {
	configPath  string
	device      string
	volume      int
	noTUI       bool
	listDevices bool
	file        string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("player", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "config file path (default from "+config.EnvConfigPath+" or the XDG config dir)")
	fs.StringVar(&opts.device, "device", "", "output device: auto, malgo[:name], oto, beep, portaudio[:name], null")
	fs.IntVar(&opts.volume, "volume", -1, fmt.Sprintf("initial volume, %d is unity gain", audio.VolumeScale))
	fs.BoolVar(&opts.noTUI, "no-tui", false, "play without the terminal UI and exit when the track ends")
	fs.BoolVar(&opts.listDevices, "list-devices", false, "list output devices and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.listDevices {
		return opts, nil
	}
	if fs.NArg() != 1 {
		return nil, errUsage
	}
	opts.file = fs.Arg(0)
	return opts, nil
}

// loadConfig layers the config file, .env, environment and flags
func loadConfig(opts *options) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}

	path := opts.configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if opts.device != "" {
		cfg.Device = opts.device
	}
	if opts.volume >= 0 {
		cfg.InitialVolume = uint32(opts.volume)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run() error {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so console logging is headless only
	var console io.Writer
	if opts.noTUI || opts.listDevices {
		console = os.Stderr
	}
	logs, err := logging.Open(cfg.LogFile, console, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logs.Close()
	log := logs.Logger(logging.SubsystemPlayer)

	if opts.listDevices {
		return listDevices(os.Stdout, logs.Logger(logging.SubsystemOutput))
	}

	decoder := decode.New(decode.Options{Channel: cfg.Channel, Downmix: cfg.Downmix}, logs.Logger(logging.SubsystemDecode))
	load := func(path string) (*audio.Buffer, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return decoder.Decode(data)
	}

	buf, err := load(opts.file)
	if err != nil {
		return fmt.Errorf("decode %s: %w", opts.file, err)
	}
	log.Infof("Decoded %s: %d samples at %d Hz, %d channel(s), %v",
		opts.file, buf.Len(), buf.SampleRate, buf.Channels, buf.Duration())

	dev, err := output.Open(cfg.Device, logs.Logger(logging.SubsystemOutput))
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warnf("Closing output device: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCfg := audio.DefaultConfig()
	engineCfg.InitialVolume = cfg.InitialVolume
	engineCfg.Stream = output.StreamConfig{SampleRate: cfg.SampleRate, BufferFrames: cfg.BufferFrames}
	engineCfg.Logger = logs.Logger(logging.SubsystemEngine)

	engine := audio.NewEngine(engineCfg, dev)
	events := engine.Events()
	engine.Start(ctx)

	if err := engine.PlayWait(ctx, buf); err != nil {
		engine.Stop()
		<-engine.Done()
		return fmt.Errorf("play %s: %w", opts.file, err)
	}
	log.Infof("Playing %s on %s", opts.file, dev.Name())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer engine.Stop()
		if opts.noTUI {
			return watch(gctx, engine, events, log)
		}
		model := ui.NewModel(engine, events, load, decode.Extensions())
		model.SetCurrent(opts.file, buf)
		return ui.Run(gctx, model)
	})
	g.Go(func() error {
		select {
		case <-engine.Done():
		case <-gctx.Done():
			engine.Stop()
			<-engine.Done()
		}
		return nil
	})
	return g.Wait()
}

// watch logs engine events until the track ends, the engine stops or ctx
// is cancelled
func watch(ctx context.Context, engine *audio.Engine, events <-chan api.Event, log slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-engine.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case api.EventTrackEnded:
				// The cursor ran out; let the device play what it holds
				drain := drainTime(engine.StreamConfig())
				log.Infof("Track ended, draining output for %v", drain)
				select {
				case <-time.After(drain):
				case <-ctx.Done():
				case <-engine.Done():
				}
				return nil
			case api.EventError:
				log.Warnf("Engine error: %v", ev.Payload)
			case api.EventStateChange:
				if snap, ok := ev.Payload.(api.Snapshot); ok {
					log.Debugf("State: %v", snap.Status)
				}
			case api.EventVolumeChange:
				log.Debugf("Volume: %v", ev.Payload)
			}
		}
	}
}

// drainTime is how long to keep a stream open after the source is exhausted:
// two buffer periods, and never less than minDrain
func drainTime(cfg output.StreamConfig) time.Duration {
	if cfg.SampleRate <= 0 || cfg.BufferFrames <= 0 {
		return minDrain
	}
	period := time.Duration(cfg.BufferFrames) * time.Second / time.Duration(cfg.SampleRate)
	return max(2*period, minDrain)
}

// listDevices prints the hardware devices of every backend that can
// enumerate them
func listDevices(w io.Writer, log slog.Logger) error {
	for _, name := range output.Backends {
		if name == "auto" || name == "null" {
			continue
		}
		dev, err := output.Open(name, log)
		if err != nil {
			return err
		}

		lister, ok := dev.(output.Lister)
		if !ok {
			fmt.Fprintf(w, "%s: default device only\n", name)
			dev.Close()
			continue
		}

		names, err := lister.Devices()
		dev.Close()
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(w, "%s:\n", name)
		for _, n := range names {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
	return nil
}
