package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tsbridge/internal/slogutil"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.DebounceMs != 200 {
		t.Errorf("DebounceMs = %d, want 200", config.DebounceMs)
	}
	if len(config.Extensions) != 3 {
		t.Errorf("Extensions = %v, want .ts .js .es6", config.Extensions)
	}
}

func TestWatcherIsIgnored(t *testing.T) {
	w, err := New(t.TempDir(), DefaultConfig(), slogutil.NewDiscardLogger(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	tests := []struct {
		path string
		want bool
	}{
		{"/src/app.log", true},
		{"/src/app.ts", false},
		{"/src/node_modules", true},
		{"/src/node_modules/lib/index.js", true},
		{"/src/.git/HEAD", true},
		{"/src/main.js", false},
		{"/src/.main.ts.swp", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := w.IsIgnored(tt.path); got != tt.want {
				t.Errorf("IsIgnored(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestDedupeKeepsLastEventPerPath(t *testing.T) {
	events := []Event{
		{Type: EventCreate, Path: "a.ts"},
		{Type: EventModify, Path: "b.ts"},
		{Type: EventModify, Path: "a.ts"},
		{Type: EventDelete, Path: "b.ts"},
	}
	got := Dedupe(events)
	if len(got) != 2 {
		t.Fatalf("Dedupe() returned %d events, want 2", len(got))
	}
	if got[0].Path != "a.ts" || got[0].Type != EventModify {
		t.Errorf("got[0] = %+v, want modify a.ts", got[0])
	}
	if got[1].Path != "b.ts" || got[1].Type != EventDelete {
		t.Errorf("got[1] = %+v, want delete b.ts", got[1])
	}
}

func TestWatcherReportsSourceChanges(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	var received []Event

	config := DefaultConfig()
	config.DebounceMs = 20
	w, err := New(dir, config, slogutil.NewDiscardLogger(), func(events []Event) {
		mu.Lock()
		received = append(received, events...)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "main.ts")
	if err := os.WriteFile(src, []byte("let a = 1;"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) == 0 {
		t.Fatal("no events received for main.ts")
	}
	for _, ev := range received {
		if ev.Path != src {
			t.Errorf("unexpected event for %s", ev.Path)
		}
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), DefaultConfig(), slogutil.NewDiscardLogger(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestDebouncerTrigger(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called int
	var mu sync.Mutex
	for i := 0; i < 5; i++ {
		d.Trigger(func() {
			mu.Lock()
			called++
			mu.Unlock()
		})
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if called != 1 {
		t.Errorf("Function should be called once, got %d", called)
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32

	d.Trigger(func() { calls.Add(1) })
	d.Cancel()
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 0 {
		t.Error("Function should not run after cancel")
	}

	d.Trigger(func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 after re-trigger", calls.Load())
	}
}

func TestBatchDebouncerCollects(t *testing.T) {
	got := make(chan []Event, 2)
	b := NewBatchDebouncer(40*time.Millisecond, func(events []Event) { got <- events })

	b.Add(Event{Type: EventCreate, Path: "a.ts"})
	b.Add(Event{Type: EventModify, Path: "b.ts"})

	select {
	case events := <-got:
		if len(events) != 2 {
			t.Errorf("Should have received 2 events, got %d", len(events))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("batch was not emitted")
	}

	select {
	case events := <-got:
		t.Errorf("unexpected second batch %v", events)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBatchDebouncerCancel(t *testing.T) {
	var calls atomic.Int32
	b := NewBatchDebouncer(30*time.Millisecond, func([]Event) { calls.Add(1) })

	b.Add(Event{Type: EventCreate, Path: "a.ts"})
	b.Cancel()
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("calls = %d, want 0 after Cancel", calls.Load())
	}
}

func TestKeyedDebouncerLatestWins(t *testing.T) {
	k := NewKeyedDebouncer(40 * time.Millisecond)
	defer k.Close()

	var mu sync.Mutex
	var ran []int
	for i := 1; i <= 3; i++ {
		i := i
		k.Trigger("a.ts", func() {
			mu.Lock()
			ran = append(ran, i)
			mu.Unlock()
		})
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(ran) != 1 || ran[0] != 3 {
		t.Errorf("ran = %v, want [3]", ran)
	}
	if k.Cancel("a.ts") {
		t.Error("a.ts should not be pending after firing")
	}
}

func TestKeyedDebouncerKeysAreIndependent(t *testing.T) {
	k := NewKeyedDebouncer(40 * time.Millisecond)
	defer k.Close()

	var a, b atomic.Int32
	k.Trigger("a", func() { a.Add(1) })
	k.Trigger("b", func() { b.Add(1) })

	if !k.Cancel("a") {
		t.Error("Cancel(a) = false, want true")
	}
	if k.Cancel("a") {
		t.Error("second Cancel(a) = true, want false")
	}
	time.Sleep(150 * time.Millisecond)

	if a.Load() != 0 || b.Load() != 1 {
		t.Errorf("a=%d b=%d, want a=0 b=1", a.Load(), b.Load())
	}
}

func TestKeyedDebouncerClose(t *testing.T) {
	k := NewKeyedDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	k.Trigger("a", func() { calls.Add(1) })
	k.Close()
	k.Trigger("b", func() { calls.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("calls = %d, want 0 after Close", calls.Load())
	}
	if k.Cancel("b") {
		t.Error("trigger after Close should not be pending")
	}
}
