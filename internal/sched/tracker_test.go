package sched

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSinceLastSendNeverSent(t *testing.T) {
	tracker := NewTracker()

	if got := tracker.SinceLastSend(42); got < time.Hour {
		t.Fatalf("expected a very large elapsed time for an unseen user, got %s", got)
	}
}

func TestMarkSentRestartsWindow(t *testing.T) {
	tracker := NewTracker()

	current := time.Unix(1000, 0)
	tracker.now = func() time.Time { return current }

	tracker.MarkSent(42)
	current = current.Add(30 * time.Second)

	if got := tracker.SinceLastSend(42); got != 30*time.Second {
		t.Fatalf("expected 30s since last send, got %s", got)
	}

	tracker.MarkSent(42)
	if got := tracker.SinceLastSend(42); got != 0 {
		t.Fatalf("expected window restart on send, got %s", got)
	}
}

func TestRotationSlotIsExclusive(t *testing.T) {
	tracker := NewTracker()

	if !tracker.TryAcquireRotation(42) {
		t.Fatalf("expected first acquire to succeed")
	}
	if tracker.TryAcquireRotation(42) {
		t.Fatalf("expected second acquire to fail while held")
	}
	if !tracker.RotationActive(42) {
		t.Fatalf("expected rotation to report active")
	}

	// Another user's slot is independent.
	if !tracker.TryAcquireRotation(43) {
		t.Fatalf("expected an unrelated user's acquire to succeed")
	}

	tracker.ReleaseRotation(42)
	if tracker.RotationActive(42) {
		t.Fatalf("expected rotation to be released")
	}
	if !tracker.TryAcquireRotation(42) {
		t.Fatalf("expected re-acquire after release")
	}
}

func TestRotationSlotUnderContention(t *testing.T) {
	tracker := NewTracker()

	const goroutines = 16
	wins := make(chan struct{}, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.TryAcquireRotation(42) {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one winner, got %d", count)
	}
}

func TestWaitQuietReturnsAfterSilence(t *testing.T) {
	tracker := NewTracker()
	tracker.MarkSent(42)

	start := time.Now()
	if err := tracker.WaitQuiet(context.Background(), 42, 30*time.Millisecond); err != nil {
		t.Fatalf("WaitQuiet returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("expected to wait out the window, returned after %s", elapsed)
	}
}

func TestWaitQuietRestartsOnMidWaitSend(t *testing.T) {
	tracker := NewTracker()
	tracker.MarkSent(42)

	go func() {
		time.Sleep(20 * time.Millisecond)
		tracker.MarkSent(42)
	}()

	start := time.Now()
	if err := tracker.WaitQuiet(context.Background(), 42, 50*time.Millisecond); err != nil {
		t.Fatalf("WaitQuiet returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 65*time.Millisecond {
		t.Fatalf("expected the mid-wait send to restart the window, returned after %s", elapsed)
	}
}

func TestWaitQuietHonorsCancellation(t *testing.T) {
	tracker := NewTracker()
	tracker.MarkSent(42)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := tracker.WaitQuiet(ctx, 42, time.Hour)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitQuietImmediateForQuietUser(t *testing.T) {
	tracker := NewTracker()

	start := time.Now()
	if err := tracker.WaitQuiet(context.Background(), 42, time.Hour); err != nil {
		t.Fatalf("WaitQuiet returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("expected immediate return for an unseen user, took %s", elapsed)
	}
}
