// Package lock serialises work per key, in process or across instances through Redis.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotAcquired = errors.New("lock is held by another owner")

// Release gives a held lock back. Releasing twice is a no-op.
type Release func(ctx context.Context) error

const pollInterval = 50 * time.Millisecond

type options struct {
	wait time.Duration
	ttl  time.Duration
}

type Option func(*options)

// WithWait keeps retrying a held lock for up to d before giving up.
func WithWait(d time.Duration) Option {
	return func(o *options) {
		o.wait = d
	}
}

// WithTTL bounds how long a crashed owner can keep a Redis lock.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		o.ttl = d
	}
}

func newOptions(opts []Option) options {
	o := options{wait: 0, ttl: 30 * time.Second} //nolint:gomnd
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// acquire calls try until it succeeds, fails hard, the wait elapses or ctx ends.
func acquire(ctx context.Context, wait time.Duration, try func() (bool, error)) error {
	deadline := time.Now().Add(wait)

	for {
		ok, err := try()
		if err != nil {
			return err
		}

		if ok {
			return nil
		}

		if !time.Now().Before(deadline) {
			return ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err() //nolint:wrapcheck
		case <-time.After(pollInterval):
		}
	}
}

func newToken() string {
	return uuid.NewString()
}

// Memory is a process-local lock table.
type Memory struct {
	mu     sync.Mutex
	owners map[string]string
	opts   options
}

func NewMemory(opts ...Option) *Memory {
	return &Memory{owners: make(map[string]string), opts: newOptions(opts)} //nolint:exhaustruct
}

func (m *Memory) Acquire(ctx context.Context, key string) (Release, error) {
	token := newToken()

	err := acquire(ctx, m.opts.wait, func() (bool, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, held := m.owners[key]; held {
			return false, nil
		}

		m.owners[key] = token

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.owners[key] == token {
			delete(m.owners, key)
		}

		return nil
	}, nil
}
