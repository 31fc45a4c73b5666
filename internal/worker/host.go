package worker

import (
	"sort"
	"strconv"
	"sync"

	"tsbridge/internal/engine"
)

// Host adapts the mirror, the extra sources and the bundled default
// libraries to engine.Host.
type Host struct {
	mirror *Mirror

	// mu protects options and extraLibs
	mu        sync.RWMutex
	options   engine.CompilerOptions
	extraLibs map[string]string
}

var _ engine.Host = (*Host)(nil)

// NewHost creates a host over mirror with empty configuration.
func NewHost(mirror *Mirror) *Host {
	return &Host{
		mirror:    mirror,
		options:   engine.CompilerOptions{},
		extraLibs: map[string]string{},
	}
}

// SetDefaults replaces the compiler options and extra sources.
func (h *Host) SetDefaults(options engine.CompilerOptions, extraLibs map[string]string) {
	if options == nil {
		options = engine.CompilerOptions{}
	}
	libs := make(map[string]string, len(extraLibs))
	for k, v := range extraLibs {
		libs[k] = v
	}
	h.mu.Lock()
	h.options = options.Clone()
	h.extraLibs = libs
	h.mu.Unlock()
}

// CompilationSettings returns the last accepted compiler options.
func (h *Host) CompilationSettings() engine.CompilerOptions {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.options
}

// ScriptFileNames is the union of mirrored documents and extra sources.
func (h *Host) ScriptFileNames() []string {
	names := h.mirror.URIs()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	h.mu.RLock()
	var extra []string
	for n := range h.extraLibs {
		if !seen[n] {
			extra = append(extra, n)
		}
	}
	h.mu.RUnlock()
	sort.Strings(extra)
	return append(names, extra...)
}

// ScriptVersion is the document version for mirrored documents and "1" for
// extra sources and the active default library.
func (h *Host) ScriptVersion(fileName string) (string, bool) {
	if v, ok := h.mirror.Version(fileName); ok {
		return strconv.Itoa(v), true
	}
	if h.isExtraLib(fileName) || h.IsDefaultLibFileName(fileName) {
		return "1", true
	}
	return "", false
}

// ScriptSnapshot resolves a document, then an extra source, then the active
// default library. Unknown names return nil.
func (h *Host) ScriptSnapshot(fileName string) engine.Snapshot {
	if s := h.mirror.Snapshot(fileName); s != nil {
		return s
	}
	h.mu.RLock()
	text, ok := h.extraLibs[fileName]
	h.mu.RUnlock()
	if ok {
		return engine.NewStringSnapshot(text)
	}
	if h.IsDefaultLibFileName(fileName) {
		if text, ok := DefaultLibText(fileName); ok {
			return engine.NewStringSnapshot(text)
		}
	}
	return nil
}

// DefaultLibFileName depends only on options.
func (h *Host) DefaultLibFileName(options engine.CompilerOptions) string {
	return DefaultLibFileName(options)
}

// IsDefaultLibFileName reports whether fileName is the default library for
// the current options.
func (h *Host) IsDefaultLibFileName(fileName string) bool {
	return fileName == DefaultLibFileName(h.CompilationSettings())
}

// CurrentDirectory is always empty; documents are addressed by URI.
func (h *Host) CurrentDirectory() string { return "" }

// Known reports whether any source answers for fileName.
func (h *Host) Known(fileName string) bool {
	_, ok := h.ScriptVersion(fileName)
	return ok
}

func (h *Host) isExtraLib(fileName string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.extraLibs[fileName]
	return ok
}
