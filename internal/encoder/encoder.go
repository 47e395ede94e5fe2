// Package encoder converts base64 PCM payloads into MP3 streams.
package encoder

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/blockvox/internal/cache"
	"github.com/dgnsrekt/blockvox/internal/pcm"
	"github.com/dgnsrekt/blockvox/internal/tts"
)

const (
	// FrameSamples is the number of samples handed to the codec per call.
	FrameSamples = 1152

	// YieldInterval is the number of frames encoded between scheduler yields.
	YieldInterval = 50

	// MimeType tags encoder output.
	MimeType = "audio/mpeg"
)

// Encode modes reported to the observer.
const (
	ModeAsync = "async"
	ModeSync  = "sync"
)

// FrameEncoder is an MP3 codec fed one frame at a time.
type FrameEncoder interface {
	// EncodeBuffer encodes samples and returns any bytes the codec emitted.
	EncodeBuffer(samples []int16) ([]byte, error)
	// Flush returns the codec's trailing bytes.
	Flush() ([]byte, error)
}

// Factory creates a codec for the given stream layout.
type Factory func(sampleRate, channels int) (FrameEncoder, error)

// Encoder turns base64 PCM into MP3 bytes.
type Encoder struct {
	factory Factory
	cache   cache.Cache
	observe func(mode string, d time.Duration)
	yield   func(ctx context.Context) error
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithFactory replaces the codec factory. A nil factory makes every encode
// fail as unavailable.
func WithFactory(f Factory) Option {
	return func(e *Encoder) { e.factory = f }
}

// WithCache stores successful output keyed by the payload hash.
func WithCache(c cache.Cache) Option {
	return func(e *Encoder) { e.cache = c }
}

// WithObserver receives the duration of every encode that reached the codec.
func WithObserver(fn func(mode string, d time.Duration)) Option {
	return func(e *Encoder) { e.observe = fn }
}

// New creates an Encoder backed by the shine codec.
func New(opts ...Option) *Encoder {
	e := &Encoder{
		factory: NewShine,
		yield:   gosched,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode converts a base64 PCM payload to MP3, yielding to the scheduler every
// YieldInterval frames. Cancelling ctx aborts at the next yield.
func (e *Encoder) Encode(ctx context.Context, b64 string) ([]byte, error) {
	return e.run(ctx, b64, ModeAsync)
}

// EncodeSync performs the same conversion as Encode without yielding.
// Use it for short clips or offline tools.
func (e *Encoder) EncodeSync(b64 string) ([]byte, error) {
	return e.run(context.Background(), b64, ModeSync)
}

func (e *Encoder) run(ctx context.Context, b64, mode string) ([]byte, error) {
	var key string
	if e.cache != nil && b64 != "" {
		key = cache.Key("mp3", b64)
		if data, ok := e.cache.Get(key); ok {
			log.Debug("mp3 cache hit", "bytes", len(data))
			return data, nil
		}
	}

	samples, err := pcm.DecodeSamples(b64)
	if err != nil {
		return nil, decodeError(err)
	}

	start := time.Now()
	out, err := e.encodeSamples(ctx, samples, mode == ModeAsync)
	if err != nil {
		return nil, err
	}
	if e.observe != nil {
		e.observe(mode, time.Since(start))
	}
	log.Debug("encoded mp3", "mode", mode, "audio", pcm.DefaultFormat().Duration(len(samples)),
		"bytes", len(out), "took", time.Since(start))

	if key != "" {
		if err := e.cache.Put(key, out); err != nil {
			log.Debug("mp3 not cached", "err", err)
		}
	}
	return out, nil
}

func (e *Encoder) encodeSamples(ctx context.Context, samples []int16, yield bool) ([]byte, error) {
	if e.factory == nil {
		return nil, tts.EncodingError("mp3 encoder is unavailable", nil)
	}
	f := pcm.DefaultFormat()
	codec, err := e.factory(f.SampleRate, f.Channels)
	if err != nil || codec == nil {
		return nil, tts.EncodingError("mp3 encoder is unavailable", err)
	}

	var out bytes.Buffer
	for i := 0; i < len(samples); i += FrameSamples {
		end := min(i+FrameSamples, len(samples))
		chunk, err := codec.EncodeBuffer(samples[i:end])
		if err != nil {
			return nil, tts.EncodingError("mp3 frame encoding failed", err)
		}
		out.Write(chunk)

		if yield && (i/FrameSamples)%YieldInterval == 0 {
			if err := e.yield(ctx); err != nil {
				return nil, err
			}
		}
	}

	tail, err := codec.Flush()
	if err != nil {
		return nil, tts.EncodingError("mp3 flush failed", err)
	}
	out.Write(tail)

	if out.Len() == 0 {
		return nil, tts.EncodingError("mp3 output is empty", nil)
	}
	return out.Bytes(), nil
}

func decodeError(err error) error {
	switch {
	case errors.Is(err, pcm.ErrEmptyPayload):
		return tts.EncodingError("audio data is empty", err)
	case errors.Is(err, pcm.ErrNoSamples):
		return tts.EncodingError("pcm contains no samples", err)
	default:
		return tts.EncodingError("audio data is not valid base64", err)
	}
}

func gosched(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}
