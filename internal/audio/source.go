package audio

import "sync/atomic"

// CursorStep is how far the read cursor advances per output sample. With
// stereo output each source sample lands on both channels of one frame.
const CursorStep = 0.5

// source feeds one Play session's buffer to an output stream. fill runs on
// the device context: it takes no locks and does not allocate.
type source struct {
	buf     *Buffer
	state   *PlaybackState
	session uint64

	ended     chan<- uint64
	endedSent atomic.Bool
}

func newSource(buf *Buffer, state *PlaybackState, session uint64, ended chan<- uint64) *source {
	return &source{
		buf:     buf,
		state:   state,
		session: session,
		ended:   ended,
	}
}

// fill writes the next scaled samples into out, then silence once the
// buffer is exhausted. Volume is sampled once per fill.
func (s *source) fill(out []float32) {
	gain := s.state.Gain()
	samples := s.buf.Samples
	n := float64(len(samples))
	pos := s.buf.Position

	for i := range out {
		if pos < n {
			out[i] = samples[int(pos)] * gain
			pos += CursorStep
		} else {
			out[i] = 0
		}
	}

	s.buf.Position = pos
	s.state.setPosition(pos)

	if pos >= n && !s.endedSent.Swap(true) && s.ended != nil {
		select {
		case s.ended <- s.session:
		default:
		}
	}
}
