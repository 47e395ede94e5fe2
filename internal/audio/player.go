package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Player owns the single playback session. Starting a session always tears
// down the previous one first.
type Player struct {
	newDevice    DeviceFactory
	pollInterval time.Duration
	volume       float64
	onChange     func(activeID string)

	mu      sync.Mutex
	device  Device
	session *session
}

// session is one playing block. buffer is retained so its bytes outlive the
// stream reading them.
type session struct {
	id     string
	stream Stream
	buffer *Buffer
	done   chan struct{}
	once   sync.Once
}

func (s *session) finish() {
	s.once.Do(func() { close(s.done) })
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithPollInterval sets how often the player checks for natural completion.
func WithPollInterval(d time.Duration) PlayerOption {
	return func(p *Player) { p.pollInterval = d }
}

// WithVolume sets the stream volume in [0, 1].
func WithVolume(v float64) PlayerOption {
	return func(p *Player) { p.volume = v }
}

// WithOnChange registers a listener called with the active block ID after
// every session change. An empty ID means silence.
func WithOnChange(fn func(activeID string)) PlayerOption {
	return func(p *Player) { p.onChange = fn }
}

// NewPlayer creates a player that opens devices with factory on demand.
func NewPlayer(factory DeviceFactory, opts ...PlayerOption) *Player {
	p := &Player{
		newDevice:    factory,
		pollInterval: 20 * time.Millisecond,
		volume:       1.0,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play stops any current session and starts playing b64 as block id.
func (p *Player) Play(ctx context.Context, id, b64 string) error {
	p.mu.Lock()
	err := p.playLocked(ctx, id, b64)
	p.mu.Unlock()

	p.notify()
	return err
}

// Toggle stops playback if id is the active block, otherwise plays it.
func (p *Player) Toggle(ctx context.Context, id, b64 string) error {
	p.mu.Lock()
	var err error
	if p.session != nil && p.session.id == id {
		p.stopLocked()
	} else {
		err = p.playLocked(ctx, id, b64)
	}
	p.mu.Unlock()

	p.notify()
	return err
}

// Stop ends the current session, if any, and releases its stream.
func (p *Player) Stop() {
	p.mu.Lock()
	stopped := p.stopLocked()
	p.mu.Unlock()

	if stopped {
		p.notify()
	}
}

// ActiveBlockID returns the playing block or "" when silent.
func (p *Player) ActiveBlockID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return ""
	}
	return p.session.id
}

// Done returns a channel closed when the current session ends for any reason.
// It returns a closed channel when nothing is playing.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.session.done
}

// Close stops playback and closes the device. A later Play opens a new device.
func (p *Player) Close() error {
	p.mu.Lock()
	stopped := p.stopLocked()
	var err error
	if p.device != nil {
		err = p.device.Close()
	}
	p.mu.Unlock()

	if stopped {
		p.notify()
	}
	return err
}

func (p *Player) playLocked(ctx context.Context, id, b64 string) error {
	p.stopLocked()

	if err := ctx.Err(); err != nil {
		return err
	}

	dev, err := p.ensureDeviceLocked()
	if err != nil {
		return err
	}

	buf, err := Decode(b64)
	if err != nil {
		return err
	}

	stream, err := dev.NewStream(buf.Reader())
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	stream.SetVolume(p.volume)
	stream.Play()

	s := &session{
		id:     id,
		stream: stream,
		buffer: buf,
		done:   make(chan struct{}),
	}
	p.session = s
	go p.watch(s)

	log.Debug("playback started", "block", id, "duration", buf.Duration())
	return nil
}

// ensureDeviceLocked returns a running device, replacing a closed one.
func (p *Player) ensureDeviceLocked() (Device, error) {
	if p.device == nil || p.device.State() == DeviceClosed {
		if p.newDevice == nil {
			return nil, ErrDeviceUnavailable
		}
		dev, err := p.newDevice()
		if err != nil {
			return nil, err
		}
		if dev == nil {
			return nil, ErrDeviceUnavailable
		}
		p.device = dev
	}

	if p.device.State() == DeviceSuspended {
		if err := p.device.Resume(); err != nil {
			if errors.Is(err, ErrDeviceClosed) {
				p.device = nil
			}
			return nil, fmt.Errorf("resume device: %w", err)
		}
	}
	return p.device, nil
}

// stopLocked pauses and closes the stream before clearing the session.
func (p *Player) stopLocked() bool {
	s := p.session
	if s == nil {
		return false
	}

	s.stream.Pause()
	if err := s.stream.Close(); err != nil {
		log.Debug("closing stream", "block", s.id, "err", err)
	}
	p.session = nil
	s.finish()

	log.Debug("playback stopped", "block", s.id)
	return true
}

// watch clears s once its stream stops playing on its own.
func (p *Player) watch(s *session) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.stream.IsPlaying() {
				continue
			}

			p.mu.Lock()
			current := p.session == s
			if current {
				if err := s.stream.Close(); err != nil {
					log.Debug("closing finished stream", "block", s.id, "err", err)
				}
				p.session = nil
				s.finish()
			}
			p.mu.Unlock()

			if current {
				log.Debug("playback finished", "block", s.id)
				p.notify()
			}
			return
		}
	}
}

func (p *Player) notify() {
	if p.onChange != nil {
		p.onChange(p.ActiveBlockID())
	}
}
