//go:build opus

package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
	"gopkg.in/hraban/opus.v2"
)

// opusRate is the fixed output rate of libopusfile
const opusRate = 48000

// decodeOpus decodes an Ogg Opus file through libopusfile
func (d *Decoder) decodeOpus(data []byte) ([]float32, int, int, error) {
	channels := opusChannels(data)
	if channels == 0 {
		return nil, 0, 0, fmt.Errorf("%w: missing OpusHead", playerrors.ErrInvalidFormat)
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open opus stream: %w", err)
	}
	defer stream.Close()

	// 120ms at 48kHz is the largest Opus frame
	pcm := make([]float32, 5760*channels)
	var samples []float32
	for {
		n, err := stream.ReadFloat32(pcm)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, 0, 0, err
		}
		if n == 0 {
			break
		}
		for i := 0; i < n; i++ {
			frame := pcm[i*channels : (i+1)*channels]
			right := frame[0]
			if channels > 1 {
				right = frame[1]
			}
			samples = append(samples, d.pick(float64(frame[0]), float64(right)))
		}
	}

	return samples, opusRate, channels, nil
}
