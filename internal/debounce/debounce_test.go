package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleCoalesces(t *testing.T) {
	k := New()
	defer k.Stop()

	var calls atomic.Int32
	var last atomic.Int32
	for i := 1; i <= 5; i++ {
		v := int32(i)
		k.Schedule("a", 30*time.Millisecond, func() {
			calls.Add(1)
			last.Store(v)
		})
	}

	time.Sleep(120 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
	if last.Load() != 5 {
		t.Errorf("last = %d, want the most recent schedule", last.Load())
	}
}

func TestKeysAreIndependent(t *testing.T) {
	k := New()
	defer k.Stop()

	var calls atomic.Int32
	k.Schedule("a", 10*time.Millisecond, func() { calls.Add(1) })
	k.Schedule("b", 10*time.Millisecond, func() { calls.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestCancel(t *testing.T) {
	k := New()
	defer k.Stop()

	var calls atomic.Int32
	k.Schedule("a", 20*time.Millisecond, func() { calls.Add(1) })
	if !k.Pending("a") {
		t.Fatal("expected pending")
	}
	k.Cancel("a")
	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("cancelled function ran")
	}
}

func TestFlushRunsImmediately(t *testing.T) {
	k := New()
	defer k.Stop()

	var calls atomic.Int32
	k.Schedule("a", time.Hour, func() { calls.Add(1) })
	if !k.Flush("a") {
		t.Fatal("Flush reported nothing pending")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
	if k.Flush("a") {
		t.Error("second Flush should find nothing")
	}
}

func TestStopRejectsSchedule(t *testing.T) {
	k := New()
	k.Stop()

	var calls atomic.Int32
	k.Schedule("a", time.Millisecond, func() { calls.Add(1) })
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("scheduled after Stop")
	}
}
