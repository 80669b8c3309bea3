// Package debounce coalesces rapid calls into a single trailing call per key.
package debounce

import (
	"sync"
	"time"
)

// Keyed runs at most one pending function per key. Scheduling a key again
// before its delay elapses cancels the earlier function.
type Keyed struct {
	mu      sync.Mutex
	timers  map[string]*entry
	seq     uint64
	stopped bool
}

type entry struct {
	timer *time.Timer
	fn    func()
	gen   uint64
}

// New returns an empty debouncer.
func New() *Keyed {
	return &Keyed{timers: make(map[string]*entry)}
}

// Schedule arranges for fn to run after delay unless key is rescheduled or
// cancelled first.
func (k *Keyed) Schedule(key string, delay time.Duration, fn func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stopped {
		return
	}

	if e, ok := k.timers[key]; ok {
		e.timer.Stop()
	}
	k.seq++
	gen := k.seq
	e := &entry{fn: fn, gen: gen}
	e.timer = time.AfterFunc(delay, func() { k.fire(key, gen) })
	k.timers[key] = e
}

func (k *Keyed) fire(key string, gen uint64) {
	k.mu.Lock()
	e, ok := k.timers[key]
	if !ok || e.gen != gen {
		// Superseded between the timer firing and acquiring the lock.
		k.mu.Unlock()
		return
	}
	delete(k.timers, key)
	k.mu.Unlock()

	e.fn()
}

// Cancel drops the pending function for key, if any.
func (k *Keyed) Cancel(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.timers[key]; ok {
		e.timer.Stop()
		delete(k.timers, key)
	}
}

// Flush runs the pending function for key immediately. It reports whether
// anything was pending.
func (k *Keyed) Flush(key string) bool {
	k.mu.Lock()
	e, ok := k.timers[key]
	if ok {
		e.timer.Stop()
		delete(k.timers, key)
	}
	k.mu.Unlock()

	if ok {
		e.fn()
	}
	return ok
}

// Pending reports whether key has a scheduled function.
func (k *Keyed) Pending(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.timers[key]
	return ok
}

// Stop cancels everything and rejects further scheduling.
func (k *Keyed) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopped = true
	for key, e := range k.timers {
		e.timer.Stop()
		delete(k.timers, key)
	}
}
