//go:build !nocgo

package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/dgnsrekt/blockvox/internal/pcm"
)

const readyTimeout = 5 * time.Second

// oto permits one context per process. Devices share it and model close and
// reopen as suspend and resume.
var otoContext = &lazyContext[*oto.Context]{
	open:    openOtoContext,
	timeout: readyTimeout,
}

func openOtoContext() (*oto.Context, <-chan struct{}, error) {
	options := &oto.NewContextOptions{
		SampleRate:   pcm.SampleRate,
		ChannelCount: pcm.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   100 * time.Millisecond,
	}
	log.Debug("Initializing audio context", "sample_rate", options.SampleRate, "channels", options.ChannelCount)
	return oto.NewContext(options)
}

func sharedContext() (*oto.Context, error) {
	return otoContext.get()
}

type otoDevice struct {
	ctx    *oto.Context
	mu     sync.Mutex
	closed bool
}

// NewOtoDevice opens the speaker output. It resumes the shared context if a
// previous device suspended it.
func NewOtoDevice() (Device, error) {
	c, err := sharedContext()
	if err != nil {
		return nil, err
	}
	if err := c.Resume(); err != nil {
		return nil, fmt.Errorf("resume audio context: %w", err)
	}
	return &otoDevice{ctx: c}, nil
}

func (d *otoDevice) NewStream(r io.Reader) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}
	return &otoStream{player: d.ctx.NewPlayer(r)}, nil
}

func (d *otoDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	return d.ctx.Resume()
}

func (d *otoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.ctx.Suspend()
}

func (d *otoDevice) State() DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return DeviceClosed
	}
	return DeviceRunning
}

type otoStream struct {
	player *oto.Player
}

func (s *otoStream) Play()                    { s.player.Play() }
func (s *otoStream) Pause()                   { s.player.Pause() }
func (s *otoStream) IsPlaying() bool          { return s.player.IsPlaying() }
func (s *otoStream) SetVolume(volume float64) { s.player.SetVolume(volume) }
func (s *otoStream) Close() error             { return s.player.Close() }
