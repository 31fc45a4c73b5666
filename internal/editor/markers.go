package editor

import (
	"sort"
	"sync"

	"tsbridge/internal/lifecycle"
)

// Severity of a marker.
type Severity int

const (
	SeverityIgnore Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "ignore"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Marker is one published diagnostic.
type Marker struct {
	Severity Severity `json:"severity"`
	Range    Range    `json:"range"`
	Message  string   `json:"message"`
	Code     int      `json:"code,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// MarkerChange names the document and owner whose set was replaced.
type MarkerChange struct {
	URI   string
	Owner string
}

// Markers stores marker sets by document and owner. Sets are only ever
// replaced whole.
type Markers struct {
	mu   sync.RWMutex
	sets map[string]map[string][]Marker // uri -> owner -> markers

	changed lifecycle.Emitter[MarkerChange]
}

func NewMarkers() *Markers {
	return &Markers{sets: make(map[string]map[string][]Marker)}
}

// Set replaces the markers owner published for uri. An empty set removes them.
func (m *Markers) Set(uri, owner string, markers []Marker) {
	m.mu.Lock()
	byOwner := m.sets[uri]
	if len(markers) == 0 {
		if byOwner != nil {
			delete(byOwner, owner)
			if len(byOwner) == 0 {
				delete(m.sets, uri)
			}
		}
	} else {
		if byOwner == nil {
			byOwner = make(map[string][]Marker)
			m.sets[uri] = byOwner
		}
		byOwner[owner] = append([]Marker(nil), markers...)
	}
	m.mu.Unlock()
	m.changed.Fire(MarkerChange{URI: uri, Owner: owner})
}

// Get returns the markers owner published for uri.
func (m *Markers) Get(uri, owner string) []Marker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Marker(nil), m.sets[uri][owner]...)
}

// ForDocument returns every owner's markers for uri ordered by position.
func (m *Markers) ForDocument(uri string) []Marker {
	m.mu.RLock()
	var out []Marker
	for _, ms := range m.sets[uri] {
		out = append(out, ms...)
	}
	m.mu.RUnlock()
	SortMarkers(out)
	return out
}

// URIs returns the documents that have markers, sorted.
func (m *Markers) URIs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sets))
	for uri := range m.sets {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

func (m *Markers) OnDidChange(fn func(MarkerChange)) lifecycle.Disposable {
	return m.changed.Subscribe(fn)
}

// SortMarkers orders markers by start position, then by severity descending.
func SortMarkers(ms []Marker) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i].Range.Start(), ms[j].Range.Start()
		if a != b {
			return a.Before(b)
		}
		return ms[i].Severity > ms[j].Severity
	})
}
