package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of events per path and hands the latest
// event for each path to onFlush once the window passes without new input.
type Debouncer struct {
	window  time.Duration
	events  map[string]FileEvent
	mu      sync.Mutex
	timer   *time.Timer
	onFlush func([]FileEvent)
	stopped bool
}

func NewDebouncer(window time.Duration, onFlush func([]FileEvent)) *Debouncer {
	return &Debouncer{
		window:  window,
		events:  make(map[string]FileEvent),
		onFlush: onFlush,
	}
}

func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.events[event.Path] = event

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.events) == 0 {
		d.mu.Unlock()
		return
	}
	events := d.drainLocked()
	d.mu.Unlock()

	if d.onFlush != nil {
		d.onFlush(events)
	}
}

func (d *Debouncer) drainLocked() []FileEvent {
	events := make([]FileEvent, 0, len(d.events))
	for _, event := range d.events {
		events = append(events, event)
	}
	d.events = make(map[string]FileEvent)
	d.timer = nil
	return events
}

// Stop cancels the pending timer. Events still queued are dropped.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.events = make(map[string]FileEvent)
}
