package eventloop

import (
	"fmt"
	"sync"
	"time"

	"github.com/cryguy/mermaid/internal/core"
)

// timerEntry represents a pending setTimeout or setInterval callback.
// The actual callback is stored in globalThis.__timerCallbacks[id] on the
// JS side. Go only tracks scheduling metadata.
type timerEntry struct {
	deadline time.Time
	interval time.Duration // 0 for setTimeout, >0 for setInterval
	id       int
	cleared  bool
}

// EventLoop manages Go-backed timers for setTimeout/setInterval. Layout
// libraries use zero-delay timers to defer work; the loop fires them in
// deadline order while a render is waiting for its promise to settle.
type EventLoop struct {
	mu     sync.Mutex
	timers map[int]*timerEntry
	nextID int
}

// New creates a new EventLoop.
func New() *EventLoop {
	return &EventLoop{
		timers: make(map[int]*timerEntry),
	}
}

// RegisterTimer creates a timer entry and returns its ID.
func (el *EventLoop) RegisterTimer(delay time.Duration, isInterval bool) int {
	el.mu.Lock()
	defer el.mu.Unlock()
	if delay < 0 {
		delay = 0
	}
	el.nextID++
	id := el.nextID
	entry := &timerEntry{
		deadline: time.Now().Add(delay),
		id:       id,
	}
	if isInterval {
		if delay < 10*time.Millisecond {
			delay = 10 * time.Millisecond // minimum interval
		}
		entry.interval = delay
	}
	el.timers[id] = entry
	return id
}

// ClearTimer cancels a timer by ID.
func (el *EventLoop) ClearTimer(id int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if t, ok := el.timers[id]; ok {
		t.cleared = true
		delete(el.timers, id)
	}
}

// next returns the earliest live timer, or nil.
func (el *EventLoop) next() *timerEntry {
	el.mu.Lock()
	defer el.mu.Unlock()
	var next *timerEntry
	for _, t := range el.timers {
		if t.cleared {
			continue
		}
		if next == nil || t.deadline.Before(next.deadline) {
			next = t
		}
	}
	return next
}

// fireTimer invokes the JS-side callback registered for id.
func (el *EventLoop) fireTimer(rt core.JSRuntime, id int) error {
	js := fmt.Sprintf(`(function() {
		var entry = globalThis.__timerCallbacks[%d];
		if (!entry) return;
		if (!entry.interval) delete globalThis.__timerCallbacks[%d];
		entry.fn.apply(null, entry.args || []);
	})()`, id, id)
	return rt.Eval(js)
}

// Drain fires pending timers in deadline order until none remain or the
// deadline is reached. Errors thrown by callbacks are collected into the
// returned slice; they never stop the loop, matching how a browser reports
// an uncaught exception in a timer and keeps going.
// Must be called on the runtime's goroutine (JS engines are single-threaded).
func (el *EventLoop) Drain(rt core.JSRuntime, deadline time.Time) []error {
	var errs []error
	for {
		next := el.next()
		if next == nil {
			return errs
		}

		if wait := time.Until(next.deadline); wait > 0 {
			if time.Now().Add(wait).After(deadline) {
				return errs
			}
			time.Sleep(wait)
		}
		if time.Now().After(deadline) {
			return errs
		}

		el.mu.Lock()
		if next.cleared {
			el.mu.Unlock()
			continue
		}
		timerID := next.id
		if next.interval > 0 {
			next.deadline = time.Now().Add(next.interval)
		} else {
			delete(el.timers, next.id)
		}
		el.mu.Unlock()

		if err := el.fireTimer(rt, timerID); err != nil {
			errs = append(errs, err)
		}
		rt.RunMicrotasks()
	}
}

// HasPending returns true if there are any active timers.
func (el *EventLoop) HasPending() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.timers) > 0
}

// Reset clears all timers. Called between renders so an interval left
// behind by one diagram cannot fire during the next.
func (el *EventLoop) Reset() {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.timers = make(map[int]*timerEntry)
	el.nextID = 0
}
