//go:build !opus

package decode

import (
	"fmt"

	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

func (d *Decoder) decodeOpus([]byte) ([]float32, int, int, error) {
	return nil, 0, 0, fmt.Errorf("%w: Ogg Opus support not enabled (build with -tags opus)", playerrors.ErrInvalidFormat)
}
