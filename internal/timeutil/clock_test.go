package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_NewTimer(t *testing.T) {
	clock := RealClock{}
	timer := clock.NewTimer(10 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C():
		// Timer fired as expected
	case <-time.After(time.Second):
		t.Error("timer did not fire")
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(2 * time.Second)

	if got := clock.Now(); !got.Equal(start.Add(2 * time.Second)) {
		t.Errorf("Now() after Advance = %v, want %v", got, start.Add(2*time.Second))
	}
}

func TestMockClock_Timer(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	timer := clock.NewTimer(2 * time.Second)

	if clock.ActiveTimers() != 1 {
		t.Errorf("ActiveTimers = %d, want 1", clock.ActiveTimers())
	}

	// one nanosecond short of the deadline
	clock.Advance(2*time.Second - time.Nanosecond)
	select {
	case <-timer.C():
		t.Error("timer fired too early")
	default:
	}

	clock.Advance(time.Nanosecond)
	select {
	case got := <-timer.C():
		if !got.Equal(start.Add(2 * time.Second)) {
			t.Errorf("timer delivered %v, want %v", got, start.Add(2*time.Second))
		}
	default:
		t.Error("timer did not fire at its deadline")
	}

	if clock.ActiveTimers() != 0 {
		t.Errorf("ActiveTimers after firing = %d, want 0", clock.ActiveTimers())
	}
	if timer.Stop() {
		t.Error("Stop should return false for a fired timer")
	}
}

func TestMockClock_Timer_Stop(t *testing.T) {
	clock := NewMockClock(time.Now())
	timer := clock.NewTimer(time.Minute)
	wasActive := timer.Stop()

	if !wasActive {
		t.Error("Stop should return true for active timer")
	}
	if clock.ActiveTimers() != 0 {
		t.Errorf("ActiveTimers after Stop = %d, want 0", clock.ActiveTimers())
	}

	// Advance and verify timer doesn't fire
	clock.Advance(2 * time.Minute)

	select {
	case <-timer.C():
		t.Error("stopped timer should not fire")
	default:
		// Expected
	}
}
