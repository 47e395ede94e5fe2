package audio

import (
	"io"
	"sync"
)

// MockDevice is a silent Device for tests and CI. Streams stay playing until
// Finish or Close is called.
type MockDevice struct {
	mu      sync.Mutex
	state   DeviceState
	streams []*MockStream
	resumes int
}

// NewMockDevice creates a running mock device.
func NewMockDevice() *MockDevice {
	return &MockDevice{state: DeviceRunning}
}

func (d *MockDevice) NewStream(r io.Reader) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == DeviceClosed {
		return nil, ErrDeviceClosed
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s := &MockStream{size: len(data), volume: 1}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *MockDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == DeviceClosed {
		return ErrDeviceClosed
	}
	d.resumes++
	d.state = DeviceRunning
	return nil
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state = DeviceClosed
	return nil
}

func (d *MockDevice) State() DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

// Suspend moves the device to the suspended state.
func (d *MockDevice) Suspend() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != DeviceClosed {
		d.state = DeviceSuspended
	}
}

// Streams returns every stream created so far, oldest first.
func (d *MockDevice) Streams() []*MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]*MockStream(nil), d.streams...)
}

// Resumes returns how often Resume was called.
func (d *MockDevice) Resumes() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.resumes
}

// MockStream records what the player did with it.
type MockStream struct {
	mu      sync.Mutex
	size    int
	playing bool
	closed  bool
	pauses  int
	volume  float64
}

func (s *MockStream) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.playing = true
	}
}

func (s *MockStream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses++
	s.playing = false
}

func (s *MockStream) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *MockStream) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
}

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.closed = true
	return nil
}

// Finish simulates the clip reaching its end.
func (s *MockStream) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

// Closed reports whether the stream was released.
func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Pauses returns how often Pause was called.
func (s *MockStream) Pauses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pauses
}

// Size returns the number of bytes the stream was created with.
func (s *MockStream) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Volume returns the last volume set.
func (s *MockStream) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}
