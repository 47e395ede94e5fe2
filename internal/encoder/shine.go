package encoder

import (
	"bytes"
	"fmt"

	"github.com/braheezy/shine-mp3/pkg/mp3"
)

// shineEncoder feeds the shine codec whole frames. Partial input is held until
// Flush, which zero-pads it to a full codec pass.
type shineEncoder struct {
	enc      *mp3.Encoder
	channels int
	pass     int
	pending  []int16
}

// NewShine creates a shine-backed FrameEncoder.
func NewShine(sampleRate, channels int) (FrameEncoder, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("shine supports 1 or 2 channels, got %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	enc := mp3.NewEncoder(sampleRate, channels)
	return &shineEncoder{
		enc:      enc,
		channels: channels,
		pass:     codecPass(enc, channels),
	}, nil
}

// codecPass is the number of interleaved samples one MP3 frame consumes:
// 576 per channel below 32 kHz (MPEG-2 and 2.5), 1152 otherwise.
func codecPass(enc *mp3.Encoder, channels int) int {
	return int(enc.Mpeg.GranulesPerFrame) * mp3.GRANULE_SIZE * channels
}

func (s *shineEncoder) frameLen() int {
	return FrameSamples * s.channels
}

func (s *shineEncoder) EncodeBuffer(samples []int16) ([]byte, error) {
	s.pending = append(s.pending, samples...)
	n := len(s.pending) - len(s.pending)%s.frameLen()
	if n == 0 {
		return nil, nil
	}

	out, err := s.write(s.pending[:n])
	if err != nil {
		return nil, err
	}
	s.pending = append(s.pending[:0], s.pending[n:]...)
	return out, nil
}

func (s *shineEncoder) Flush() ([]byte, error) {
	if len(s.pending) == 0 {
		return nil, nil
	}

	n := (len(s.pending) + s.pass - 1) / s.pass * s.pass
	padded := make([]int16, n)
	copy(padded, s.pending)
	s.pending = s.pending[:0]

	return s.write(padded)
}

// write hands the codec one pass at a time. mp3.Encoder.Write strides two
// passes per iteration for mono input, so larger slices lose every other pass.
func (s *shineEncoder) write(samples []int16) ([]byte, error) {
	var buf bytes.Buffer
	for i := 0; i+s.pass <= len(samples); i += s.pass {
		if err := s.enc.Write(&buf, samples[i:i+s.pass]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
