// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	fake := Fake(epoch)
	if got := fake.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	fake.Advance(5 * time.Second)
	want := epoch.Add(5 * time.Second)
	if got := fake.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfter(t *testing.T) {
	fake := Fake(epoch)
	channel := fake.After(3 * time.Second)

	fake.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	fake.Advance(1 * time.Second)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire at its deadline")
	}

	if pending := fake.PendingTimers(); pending != 0 {
		t.Errorf("PendingTimers() = %d after one-shot fired, want 0", pending)
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	fake := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-fake.After(d):
		default:
			t.Errorf("After(%v) should be ready immediately", d)
		}
	}
}

func TestFakeClockTicker(t *testing.T) {
	fake := Fake(epoch)
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	for i := 0; i < 3; i++ {
		fake.Advance(time.Second)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d missing", i+1)
		}
	}
}

func TestFakeClockTickerDropsOverflow(t *testing.T) {
	fake := Fake(epoch)
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	fake.Advance(5 * time.Second)

	received := 0
	for {
		select {
		case <-ticker.C:
			received++
			continue
		default:
		}
		break
	}
	if received != 1 {
		t.Errorf("received %d ticks, want 1 (buffer holds one)", received)
	}
}

func TestFakeClockTickerStopAndReset(t *testing.T) {
	fake := Fake(epoch)
	ticker := fake.NewTicker(5 * time.Second)

	ticker.Stop()
	fake.Advance(10 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
	if pending := fake.PendingTimers(); pending != 0 {
		t.Fatalf("PendingTimers() = %d after Stop, want 0", pending)
	}

	ticker.Reset(time.Second)
	if pending := fake.PendingTimers(); pending != 1 {
		t.Fatalf("PendingTimers() = %d after Reset, want 1", pending)
	}
	fake.Advance(time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after Reset")
	}
}

func TestFakeClockTickerPanicsOnNonPositive(t *testing.T) {
	fake := Fake(epoch)
	defer func() {
		if recover() == nil {
			t.Fatal("NewTicker(0) should panic")
		}
	}()
	fake.NewTicker(0)
}

func TestFakeClockSleep(t *testing.T) {
	fake := Fake(epoch)

	done := make(chan struct{})
	go func() {
		fake.Sleep(3 * time.Second)
		close(done)
	}()

	fake.WaitForTimers(1)
	fake.Advance(3 * time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestFakeClockAdvanceFiresAllDue(t *testing.T) {
	fake := Fake(epoch)
	late := fake.After(3 * time.Second)
	early := fake.After(1 * time.Second)

	fake.Advance(3 * time.Second)

	earlyTime := <-early
	lateTime := <-late
	if !earlyTime.Equal(lateTime) {
		t.Errorf("both waiters should observe the advanced time, got %v and %v", earlyTime, lateTime)
	}
}

func TestClockImplementations(t *testing.T) {
	var _ Clock = Fake(epoch)
	var _ Clock = Real()
}
