// Package lock provides the per-vendor mutual exclusion used around
// availability mutations. Both implementations give up after a bounded
// wait and report availability.ErrTransient instead of queueing.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/marketplace-availability/internal/availability"
)

// LocalLocker serialises callers inside one process. It is used when Redis
// is not configured.
type LocalLocker struct {
	timeout time.Duration

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker returns a LocalLocker that waits at most timeout.
func NewLocalLocker(timeout time.Duration) *LocalLocker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &LocalLocker{timeout: timeout, slots: map[string]*slot{}}
}

// Acquire blocks until key is free, the timeout elapses or ctx ends.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	s := l.ref(key)
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(key)
			})
		}, nil
	case <-timer.C:
		l.unref(key)
		return nil, fmt.Errorf("%w: lock %s not acquired within %s", availability.ErrTransient, key, l.timeout)
	case <-ctx.Done():
		l.unref(key)
		return nil, fmt.Errorf("%w: %v", availability.ErrTransient, ctx.Err())
	}
}

func (l *LocalLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[key]; ok {
		s.refs--
		if s.refs == 0 {
			delete(l.slots, key)
		}
	}
}
