package watcher

import (
	"sync"
	"time"
)

// KeyedDebouncer keeps at most one pending function per key. Triggering a
// key replaces whatever was pending for it.
type KeyedDebouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*keyedEntry
	closed  bool
}

type keyedEntry struct {
	timer *time.Timer
	fn    func()
}

// NewKeyedDebouncer creates a keyed debouncer with the specified delay
func NewKeyedDebouncer(delay time.Duration) *KeyedDebouncer {
	return &KeyedDebouncer{
		delay:   delay,
		pending: make(map[string]*keyedEntry),
	}
}

// Trigger schedules fn for key, cancelling the previous pending function
func (k *KeyedDebouncer) Trigger(key string, fn func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return
	}
	if old, ok := k.pending[key]; ok {
		old.timer.Stop()
	}
	e := &keyedEntry{fn: fn}
	e.timer = time.AfterFunc(k.delay, func() { k.fire(key, e) })
	k.pending[key] = e
}

// fire runs e only if it is still the current entry for key; a timer that
// fired while being replaced finds a newer entry and does nothing.
func (k *KeyedDebouncer) fire(key string, e *keyedEntry) {
	k.mu.Lock()
	if k.pending[key] != e {
		k.mu.Unlock()
		return
	}
	delete(k.pending, key)
	k.mu.Unlock()
	e.fn()
}

// Cancel drops the pending function for key. Returns false if none was pending.
func (k *KeyedDebouncer) Cancel(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(k.pending, key)
	return true
}

// Close cancels everything; later triggers are ignored
func (k *KeyedDebouncer) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	for key, e := range k.pending {
		e.timer.Stop()
		delete(k.pending, key)
	}
}

// Debouncer delays a single function until a quiet period has passed.
type Debouncer struct {
	keyed *KeyedDebouncer
}

// NewDebouncer creates a debouncer with the specified delay
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{keyed: NewKeyedDebouncer(delay)}
}

// Trigger schedules fn, replacing anything still pending
func (d *Debouncer) Trigger(fn func()) { d.keyed.Trigger("", fn) }

// Cancel drops the pending function, if any
func (d *Debouncer) Cancel() { d.keyed.Cancel("") }

// BatchDebouncer collects events and hands them to emit once no event has
// arrived for the delay.
type BatchDebouncer struct {
	timer *Debouncer
	emit  func([]Event)

	mu     sync.Mutex
	events []Event
}

// NewBatchDebouncer creates a new batch debouncer
func NewBatchDebouncer(delay time.Duration, emit func([]Event)) *BatchDebouncer {
	return &BatchDebouncer{timer: NewDebouncer(delay), emit: emit}
}

// Add queues event and restarts the quiet period
func (b *BatchDebouncer) Add(event Event) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
	b.timer.Trigger(b.flush)
}

func (b *BatchDebouncer) flush() {
	b.mu.Lock()
	events := b.events
	b.events = nil
	b.mu.Unlock()

	if len(events) > 0 && b.emit != nil {
		b.emit(events)
	}
}

// Cancel drops the queued events
func (b *BatchDebouncer) Cancel() {
	b.timer.Cancel()
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}
