package worker

import (
	"sort"
	"sync"

	"tsbridge/internal/engine"
	"tsbridge/internal/model"
)

type mirrorModel struct {
	state    model.State
	snapshot *engine.StringSnapshot
}

// Mirror is the worker's copy of the open documents, updated by resource sync.
type Mirror struct {
	mu     sync.RWMutex
	models map[string]*mirrorModel
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{models: make(map[string]*mirrorModel)}
}

// Sync applies updated documents and removals. A state that is not newer
// than the mirrored one is ignored unless its text differs.
func (m *Mirror) Sync(states []model.State, removed []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, uri := range removed {
		delete(m.models, uri)
	}
	for _, st := range states {
		if cur, ok := m.models[st.URI]; ok && cur.state.Version >= st.Version && cur.state.Text == st.Text {
			continue
		}
		m.models[st.URI] = &mirrorModel{state: st, snapshot: engine.NewStringSnapshot(st.Text)}
	}
}

// Version returns the mirrored version of uri.
func (m *Mirror) Version(uri string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mm, ok := m.models[uri]
	if !ok {
		return 0, false
	}
	return mm.state.Version, true
}

// Snapshot returns the mirrored text of uri, or nil.
func (m *Mirror) Snapshot(uri string) *engine.StringSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mm, ok := m.models[uri]; ok {
		return mm.snapshot
	}
	return nil
}

// URIs returns the mirrored document URIs in sorted order.
func (m *Mirror) URIs() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.models))
	for uri := range m.models {
		out = append(out, uri)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Versions returns uri → version for all mirrored documents.
func (m *Mirror) Versions() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.models))
	for uri, mm := range m.models {
		out[uri] = mm.state.Version
	}
	return out
}
