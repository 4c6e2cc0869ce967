package application

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid triggers per key, running only the last function
// once the quiet window elapses. A zero window runs functions synchronously.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timers map[string]*time.Timer
}

// NewDebouncer creates a Debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		timers: make(map[string]*time.Timer),
	}
}

// Trigger schedules fn to run after the quiet window, cancelling any
// previously scheduled function for the same key.
func (d *Debouncer) Trigger(key string, fn func()) {
	if d.window <= 0 {
		d.Cancel(key)
		fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops any pending function for the key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// Stop cancels every pending function.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
