// Package decode turns encoded audio bytes into playable buffers.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/decred/slog"
	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	"github.com/jscyril/golang_playback_engine/internal/audio"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

// Options controls how multichannel sources collapse to one channel
type Options struct {
	// Channel selects the source channel (0 left, 1 right)
	Channel int

	// Downmix averages the first two channels instead of selecting one
	Downmix bool
}

// Decoder builds audio buffers from encoded bytes
type Decoder struct {
	opts Options
	log  slog.Logger
}

// New creates a decoder
func New(opts Options, log slog.Logger) *Decoder {
	if log == nil {
		log = slog.Disabled
	}
	return &Decoder{opts: opts, log: log}
}

// Decode decodes data with default options
func Decode(data []byte) (*audio.Buffer, error) {
	return New(Options{}, nil).Decode(data)
}

// Decode identifies the container in data and decodes it. Identical input
// always yields identical samples. A truncated stream ends the track
// rather than failing it.
func (d *Decoder) Decode(data []byte) (*audio.Buffer, error) {
	if len(data) == 0 {
		return nil, &playerrors.DecodeError{Err: playerrors.ErrEmptyInput}
	}
	if d.opts.Channel < 0 || d.opts.Channel > 1 {
		return nil, &playerrors.DecodeError{Err: fmt.Errorf("channel %d out of range", d.opts.Channel)}
	}

	format := Sniff(data)

	var (
		samples  []float32
		rate     int
		channels int
		err      error
	)
	switch format {
	case FormatWAV, FormatMP3, FormatFLAC:
		samples, rate, channels, err = d.decodeBeep(format, data)
	case FormatOpus:
		samples, rate, channels, err = d.decodeOpus(data)
	default:
		return nil, &playerrors.DecodeError{Err: playerrors.ErrInvalidFormat}
	}
	if err != nil {
		return nil, &playerrors.DecodeError{Format: string(format), Err: err}
	}
	if len(samples) == 0 {
		return nil, &playerrors.DecodeError{Format: string(format), Err: playerrors.ErrNoTrack}
	}

	buf, err := audio.NewBuffer(samples, rate, channels)
	if err != nil {
		return nil, &playerrors.DecodeError{Format: string(format), Err: err}
	}
	buf.Track = ReadMetadata(data, format)

	d.log.Debugf("Decoded %s: %d samples, %dHz, %d channels (%v)",
		format, len(samples), rate, channels, buf.Duration())
	return buf, nil
}

// decodeBeep drains one of beep's decoders into a single channel
func (d *Decoder) decodeBeep(format Format, data []byte) ([]float32, int, int, error) {
	var (
		streamer beep.StreamSeekCloser
		f        beep.Format
		err      error
	)
	switch format {
	case FormatMP3:
		streamer, f, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case FormatWAV:
		streamer, f, err = wav.Decode(bytes.NewReader(data))
	case FormatFLAC:
		streamer, f, err = flac.Decode(bytes.NewReader(data))
	default:
		return nil, 0, 0, fmt.Errorf("%w: %s", playerrors.ErrInvalidFormat, format)
	}
	if err != nil {
		return nil, 0, 0, err
	}
	defer streamer.Close()

	gain := 1.0
	if format == FormatWAV {
		gain = wavGain(f.Precision)
	}

	samples := make([]float32, 0, max(streamer.Len(), 0))
	chunk := make([][2]float64, 512)
	for {
		n, ok := streamer.Stream(chunk)
		for _, frame := range chunk[:n] {
			samples = append(samples, d.pick(frame[0]*gain, frame[1]*gain))
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil && !isEndOfStream(err) {
		return nil, 0, 0, err
	}

	return samples, int(f.SampleRate), f.NumChannels, nil
}

// wavGain corrects beep's WAV decoder, which divides 16 and 24-bit PCM by
// 2^n-1 instead of 2^(n-1) and so yields half-scale samples.
func wavGain(precision int) float64 {
	switch precision {
	case 2:
		return float64(1<<16-1) / (1 << 15)
	case 3:
		return float64(1<<24-1) / (1 << 23)
	default:
		return 1
	}
}

// pick collapses one frame. beep duplicates mono sources onto both sides.
func (d *Decoder) pick(left, right float64) float32 {
	switch {
	case d.opts.Downmix:
		return float32((left + right) / 2)
	case d.opts.Channel == 1:
		return float32(right)
	default:
		return float32(left)
	}
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
