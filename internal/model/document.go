// Package model keeps the in-memory text documents the editor surface has open.
package model

import (
	"strings"
	"sync"
	"unicode/utf16"

	"tsbridge/internal/lifecycle"
)

// ContentChange is fired after a document's text changes.
type ContentChange struct {
	Document *Document
	Version  int
}

// State is a consistent copy of a document at one version.
type State struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// Document is an open text document. Line endings are normalized to a single
// EOL sequence, "\r\n" when the initial text contains one and "\n" otherwise.
type Document struct {
	uri string

	mu         sync.RWMutex
	languageID string
	version    int
	eol        string
	lines      []string
	disposed   bool

	onDidChange lifecycle.Emitter[ContentChange]
}

func newDocument(uri, languageID, text string) *Document {
	d := &Document{uri: uri, languageID: languageID, version: 1, eol: detectEOL(text)}
	d.lines = splitLines(text)
	return d
}

func detectEOL(text string) string {
	if strings.Contains(text, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// URI returns the document identifier.
func (d *Document) URI() string { return d.uri }

// LanguageID returns the language the document is currently classified as.
func (d *Document) LanguageID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.languageID
}

// Version increases by one on every content change.
func (d *Document) Version() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// EOL returns the line separator.
func (d *Document) EOL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.eol
}

// Text returns the full text joined with EOL.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return strings.Join(d.lines, d.eol)
}

// State returns uri, language, version and text read under one lock.
func (d *Document) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return State{
		URI:        d.uri,
		LanguageID: d.languageID,
		Version:    d.version,
		Text:       strings.Join(d.lines, d.eol),
	}
}

// LineCount returns the number of lines; an empty document has one line.
func (d *Document) LineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.lines)
}

// LineContent returns line n (1-based) without its terminator, or "" when n
// is out of range.
func (d *Document) LineContent(n int) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n < 1 || n > len(d.lines) {
		return ""
	}
	return d.lines[n-1]
}

// LineLength returns the length of line n in UTF-16 code units.
func (d *Document) LineLength(n int) int {
	return UTF16Len(d.LineContent(n))
}

// Disposed reports whether the store has dropped the document.
func (d *Document) Disposed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.disposed
}

// SetText replaces the content, bumps the version and notifies listeners.
func (d *Document) SetText(text string) int {
	d.mu.Lock()
	if d.disposed {
		v := d.version
		d.mu.Unlock()
		return v
	}
	d.lines = splitLines(text)
	d.version++
	v := d.version
	d.mu.Unlock()

	d.onDidChange.Fire(ContentChange{Document: d, Version: v})
	return v
}

// OnDidChangeContent subscribes to content changes.
func (d *Document) OnDidChangeContent(fn func(ContentChange)) lifecycle.Disposable {
	return d.onDidChange.Subscribe(fn)
}

func (d *Document) setLanguage(id string) (old string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	old = d.languageID
	d.languageID = id
	return old
}

func (d *Document) markDisposed() {
	d.mu.Lock()
	d.disposed = true
	d.mu.Unlock()
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
