// ABOUTME: Single-goroutine host loop
// ABOUTME: Serialises commands, poll callbacks and async completions
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Loop runs posted functions one at a time on the goroutine calling Run
type Loop struct {
	clock clockwork.Clock

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	stats Stats
}

// Stats tracks loop metrics
type Stats struct {
	Posted int64
	Ran    int64
}

// New creates a loop. A nil clock uses the real clock.
func New(clock clockwork.Clock) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loop{
		clock: clock,
		wake:  make(chan struct{}, 1),
	}
}

// Post queues fn. Safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.stats.Posted++
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes posted work until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			l.RunPending()
		}
	}
}

// RunPending executes everything queued so far on the calling goroutine and
// returns how many functions ran
func (l *Loop) RunPending() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}

	l.mu.Lock()
	l.stats.Ran += int64(len(batch))
	l.mu.Unlock()

	return len(batch)
}

// Every posts fn every d until stop is called. A tick already queued when
// stop runs is discarded.
func (l *Loop) Every(d time.Duration, fn func()) (stop func()) {
	ticker := l.clock.NewTicker(d)
	done := make(chan struct{})
	var stopped atomic.Bool

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.Chan():
				l.Post(func() {
					if !stopped.Load() {
						fn()
					}
				})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			close(done)
		})
	}
}

// Stats returns loop statistics
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}
