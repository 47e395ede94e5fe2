package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dgnsrekt/blockvox/internal/pcm"
)

// Buffer is decoded audio ready for rendering. Samples are normalised to [-1, 1).
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int

	// data keeps the serialized stream alive while a player reads from it.
	data []byte
}

// Decode turns a base64 PCM payload into a Buffer with one float sample per
// input sample.
func Decode(b64 string) (*Buffer, error) {
	samples, err := pcm.DecodeSamples(b64)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}

	f := pcm.DefaultFormat()
	buf := &Buffer{
		Samples:    make([]float32, len(samples)),
		SampleRate: f.SampleRate,
		Channels:   f.Channels,
	}
	for i, s := range samples {
		buf.Samples[i] = float32(s) / 32768.0
	}
	return buf, nil
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	return len(b.Samples)
}

// Duration returns the play time of the buffer.
func (b *Buffer) Duration() time.Duration {
	return pcm.Format{SampleRate: b.SampleRate, Channels: b.Channels}.Duration(len(b.Samples))
}

// Reader returns the samples as a float32 little-endian stream. The backing
// bytes are retained by the buffer for as long as the buffer is referenced.
func (b *Buffer) Reader() io.ReadSeeker {
	if b.data == nil {
		b.data = make([]byte, len(b.Samples)*4)
		for i, s := range b.Samples {
			binary.LittleEndian.PutUint32(b.data[4*i:], math.Float32bits(s))
		}
	}
	return bytes.NewReader(b.data)
}
