package model

import (
	"sort"
	"sync"

	"tsbridge/internal/errors"
	"tsbridge/internal/lifecycle"
)

// LanguageChange is fired when a document is re-classified.
type LanguageChange struct {
	Document    *Document
	OldLanguage string
}

// Store tracks open documents by URI. It is safe for concurrent access.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document

	onDidCreate         lifecycle.Emitter[*Document]
	onWillDispose       lifecycle.Emitter[*Document]
	onDidChangeLanguage lifecycle.Emitter[LanguageChange]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// Create opens a document. Opening a URI twice is an error.
func (s *Store) Create(uri, languageID, text string) (*Document, error) {
	s.mu.Lock()
	if _, ok := s.docs[uri]; ok {
		s.mu.Unlock()
		return nil, errors.Newf(errors.InvalidParams, "document %s is already open", uri)
	}
	d := newDocument(uri, languageID, text)
	s.docs[uri] = d
	s.mu.Unlock()

	s.onDidCreate.Fire(d)
	return d, nil
}

// Get returns the open document for uri, or nil.
func (s *Store) Get(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// Documents returns all open documents ordered by URI.
func (s *Store) Documents() []*Document {
	s.mu.RLock()
	out := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].uri < out[j].uri })
	return out
}

// Dispose closes the document. Listeners of OnWillDispose run before it is
// removed. Returns false when uri is not open.
func (s *Store) Dispose(uri string) bool {
	d := s.Get(uri)
	if d == nil {
		return false
	}
	s.onWillDispose.Fire(d)

	s.mu.Lock()
	if s.docs[uri] == d {
		delete(s.docs, uri)
	}
	s.mu.Unlock()
	d.markDisposed()
	return true
}

// SetLanguage re-classifies a document. No event fires if nothing changes.
func (s *Store) SetLanguage(uri, languageID string) bool {
	d := s.Get(uri)
	if d == nil {
		return false
	}
	old := d.setLanguage(languageID)
	if old != languageID {
		s.onDidChangeLanguage.Fire(LanguageChange{Document: d, OldLanguage: old})
	}
	return true
}

func (s *Store) OnDidCreate(fn func(*Document)) lifecycle.Disposable {
	return s.onDidCreate.Subscribe(fn)
}

func (s *Store) OnWillDispose(fn func(*Document)) lifecycle.Disposable {
	return s.onWillDispose.Subscribe(fn)
}

func (s *Store) OnDidChangeLanguage(fn func(LanguageChange)) lifecycle.Disposable {
	return s.onDidChangeLanguage.Subscribe(fn)
}
