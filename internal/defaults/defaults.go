// Package defaults holds the per-language configuration a worker is created
// from: compiler options, extra sources and diagnostics switches. Every
// mutation notifies subscribers, which is what tears a worker down.
package defaults

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"tsbridge/internal/engine"
	"tsbridge/internal/lifecycle"
)

// DiagnosticsOptions switches validation passes off.
type DiagnosticsOptions struct {
	NoSemanticValidation bool `json:"noSemanticValidation" mapstructure:"noSemanticValidation"`
	NoSyntaxValidation   bool `json:"noSyntaxValidation" mapstructure:"noSyntaxValidation"`
}

// Defaults is safe for concurrent use.
type Defaults struct {
	mu          sync.RWMutex
	options     engine.CompilerOptions
	extraLibs   map[string]string
	diagnostics DiagnosticsOptions

	changed lifecycle.Emitter[struct{}]
}

// New returns defaults with the given compiler options and diagnostics switches.
func New(options engine.CompilerOptions, diagnostics DiagnosticsOptions) *Defaults {
	return &Defaults{
		options:     options.Clone(),
		extraLibs:   make(map[string]string),
		diagnostics: diagnostics,
	}
}

// CompilerOptions returns a copy of the current options.
func (d *Defaults) CompilerOptions() engine.CompilerOptions {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.options.Clone()
}

// ExtraLibs returns a copy of the extra sources keyed by path.
func (d *Defaults) ExtraLibs() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string, len(d.extraLibs))
	for k, v := range d.extraLibs {
		out[k] = v
	}
	return out
}

// ExtraLibPaths returns the extra source paths in sorted order.
func (d *Defaults) ExtraLibPaths() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.extraLibs))
	for k := range d.extraLibs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (d *Defaults) DiagnosticsOptions() DiagnosticsOptions {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.diagnostics
}

// SetCompilerOptions replaces the compiler options.
func (d *Defaults) SetCompilerOptions(options engine.CompilerOptions) {
	d.mu.Lock()
	d.options = options.Clone()
	d.mu.Unlock()
	d.changed.Fire(struct{}{})
}

// SetDiagnosticsOptions replaces the diagnostics switches.
func (d *Defaults) SetDiagnosticsOptions(options DiagnosticsOptions) {
	d.mu.Lock()
	d.diagnostics = options
	d.mu.Unlock()
	d.changed.Fire(struct{}{})
}

// AddExtraLib registers content under path, or under a generated name when
// path is empty. Disposing the result removes the source again unless it
// has been replaced in the meantime.
func (d *Defaults) AddExtraLib(content, path string) lifecycle.Disposable {
	if path == "" {
		path = "extralib-" + uuid.NewString() + ".d.ts"
	}
	d.mu.Lock()
	d.extraLibs[path] = content
	d.mu.Unlock()
	d.changed.Fire(struct{}{})

	return lifecycle.DisposableFunc(func() {
		d.mu.Lock()
		cur, ok := d.extraLibs[path]
		if !ok || cur != content {
			d.mu.Unlock()
			return
		}
		delete(d.extraLibs, path)
		d.mu.Unlock()
		d.changed.Fire(struct{}{})
	})
}

// Replace swaps every setting at once and fires a single change.
func (d *Defaults) Replace(options engine.CompilerOptions, extraLibs map[string]string, diagnostics DiagnosticsOptions) {
	libs := make(map[string]string, len(extraLibs))
	for k, v := range extraLibs {
		libs[k] = v
	}
	d.mu.Lock()
	d.options = options.Clone()
	d.extraLibs = libs
	d.diagnostics = diagnostics
	d.mu.Unlock()
	d.changed.Fire(struct{}{})
}

// OnDidChange subscribes fn to every mutation. fn runs synchronously on the
// mutating goroutine.
func (d *Defaults) OnDidChange(fn func()) lifecycle.Disposable {
	return d.changed.Subscribe(func(struct{}) { fn() })
}
