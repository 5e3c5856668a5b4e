// ABOUTME: Tests for the host loop
// ABOUTME: Verifies ordering, Run shutdown and periodic work cancellation
package loop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestRunPendingOrder(t *testing.T) {
	l := New(nil)

	var got []int
	for i := 0; i < 3; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}

	if n := l.RunPending(); n != 3 {
		t.Fatalf("expected 3 functions to run, got %d", n)
	}
	for i, v := range got {
		if v != i {
			t.Errorf("position %d: expected %d, got %d", i, i, v)
		}
	}
	if n := l.RunPending(); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}

	stats := l.Stats()
	if stats.Posted != 3 || stats.Ran != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestPostFromRunningWorkRunsLater(t *testing.T) {
	l := New(nil)

	ran := false
	l.Post(func() {
		l.Post(func() { ran = true })
	})

	l.RunPending()
	if ran {
		t.Fatal("nested post should wait for the next batch")
	}
	l.RunPending()
	if !ran {
		t.Error("nested post never ran")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- l.Run(ctx)
	}()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("posted work never ran")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEveryPostsUntilStopped(t *testing.T) {
	l := New(clockwork.NewRealClock())

	var count atomic.Int32
	stop := l.Every(5*time.Millisecond, func() { count.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for count.Load() < 3 && time.Now().Before(deadline) {
		l.RunPending()
		time.Sleep(time.Millisecond)
	}
	if count.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", count.Load())
	}

	stop()
	stop()
	time.Sleep(20 * time.Millisecond)
	before := count.Load()
	l.RunPending()
	time.Sleep(20 * time.Millisecond)
	l.RunPending()

	if count.Load() != before {
		t.Errorf("ticks ran after stop: %d -> %d", before, count.Load())
	}
}
