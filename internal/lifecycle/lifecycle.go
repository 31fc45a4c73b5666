// Package lifecycle holds the disposable and event primitives shared by the
// editor surface, the configuration surface and the adapters.
package lifecycle

import (
	"sync"
)

// Disposable releases a registration or resource. Dispose must be safe to
// call more than once.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a function to Disposable. The function runs at most once.
func DisposableFunc(fn func()) Disposable {
	return &onceDisposable{fn: fn}
}

type onceDisposable struct {
	once sync.Once
	fn   func()
}

func (d *onceDisposable) Dispose() {
	d.once.Do(func() {
		if d.fn != nil {
			d.fn()
		}
	})
}

// Nop is a Disposable that does nothing.
var Nop Disposable = DisposableFunc(nil)

// Group disposes a set of disposables in reverse order of addition.
type Group struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add registers d with the group. If the group is already disposed, d is
// disposed immediately.
func (g *Group) Add(d ...Disposable) {
	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		for _, x := range d {
			x.Dispose()
		}
		return
	}
	g.items = append(g.items, d...)
	g.mu.Unlock()
}

// Dispose disposes every member. Later calls are no-ops.
func (g *Group) Dispose() {
	g.mu.Lock()
	if g.disposed {
		g.mu.Unlock()
		return
	}
	g.disposed = true
	items := g.items
	g.items = nil
	g.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}

// Disposed reports whether Dispose has been called.
func (g *Group) Disposed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disposed
}
