package audio

import (
	"fmt"
	"sync"
	"time"
)

// lazyContext opens a backend context on first use and hands it out once its
// ready channel closes. Only success is memoised: a failed open is retried,
// and a context that is slow to become ready is waited on again by the next
// caller instead of being opened twice.
type lazyContext[T any] struct {
	open    func() (T, <-chan struct{}, error)
	timeout time.Duration

	mu     sync.Mutex
	val    T
	ready  <-chan struct{}
	opened bool
	done   bool
}

func (l *lazyContext[T]) get() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	if l.done {
		return l.val, nil
	}
	if !l.opened {
		v, ready, err := l.open()
		if err != nil {
			return zero, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		l.val, l.ready, l.opened = v, ready, true
	}

	select {
	case <-l.ready:
		l.done = true
		return l.val, nil
	case <-time.After(l.timeout):
		return zero, fmt.Errorf("%w: context not ready after %s", ErrDeviceUnavailable, l.timeout)
	}
}
