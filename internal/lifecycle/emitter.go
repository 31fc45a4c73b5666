package lifecycle

import (
	"sync"
)

// Emitter fans an event out to its listeners synchronously, in subscription
// order. Listeners added or removed during Fire take effect on the next Fire.
type Emitter[T any] struct {
	mu        sync.Mutex
	next      int
	listeners []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

// Subscribe adds fn and returns a disposable that removes it.
func (e *Emitter[T]) Subscribe(fn func(T)) Disposable {
	e.mu.Lock()
	id := e.next
	e.next++
	e.listeners = append(e.listeners, listener[T]{id: id, fn: fn})
	e.mu.Unlock()

	return DisposableFunc(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	})
}

// Fire calls every listener with v.
func (e *Emitter[T]) Fire(v T) {
	e.mu.Lock()
	snapshot := make([]listener[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(v)
	}
}

// Len returns the number of listeners.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}
