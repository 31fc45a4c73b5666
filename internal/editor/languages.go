package editor

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"tsbridge/internal/errors"
	"tsbridge/internal/lifecycle"
)

const (
	LanguageTypeScript = "typescript"
	LanguageJavaScript = "javascript"
)

// Language describes how documents are classified into a language id.
type Language struct {
	ID         string   `json:"id"`
	Extensions []string `json:"extensions,omitempty"`
	Filenames  []string `json:"filenames,omitempty"`
	// FirstLine is a regular expression matched against the first line.
	FirstLine string   `json:"firstLine,omitempty"`
	Aliases   []string `json:"aliases,omitempty"`
	MimeTypes []string `json:"mimetypes,omitempty"`

	firstLine *regexp.Regexp
}

// DefaultLanguages are the two languages served by the analysis engine.
func DefaultLanguages() []Language {
	return []Language{
		{
			ID:         LanguageTypeScript,
			Extensions: []string{".ts"},
			Aliases:    []string{"TypeScript", "ts", "typescript"},
			MimeTypes:  []string{"text/typescript"},
		},
		{
			ID:         LanguageJavaScript,
			Extensions: []string{".js", ".es6"},
			FirstLine:  `^#!.*\bnode`,
			Filenames:  []string{"jakefile"},
			Aliases:    []string{"JavaScript", "javascript", "js"},
			MimeTypes:  []string{"text/javascript"},
		},
	}
}

// Languages maps file names to language ids and announces the first use of
// each language.
type Languages struct {
	mu        sync.RWMutex
	langs     []Language
	activated map[string]bool
	listeners map[string]*lifecycle.Emitter[string]
}

func NewLanguages() *Languages {
	return &Languages{
		activated: make(map[string]bool),
		listeners: make(map[string]*lifecycle.Emitter[string]),
	}
}

// Register adds lang. Registering an id twice is an error.
func (l *Languages) Register(lang Language) error {
	if lang.ID == "" {
		return errors.Newf(errors.InvalidParams, "language id is empty")
	}
	if lang.FirstLine != "" {
		re, err := regexp.Compile(lang.FirstLine)
		if err != nil {
			return errors.New(errors.InvalidParams, "invalid firstLine for "+lang.ID, err)
		}
		lang.firstLine = re
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, cur := range l.langs {
		if cur.ID == lang.ID {
			return errors.Newf(errors.InvalidParams, "language %q already registered", lang.ID)
		}
	}
	l.langs = append(l.langs, lang)
	return nil
}

func (l *Languages) Get(id string) (Language, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, cur := range l.langs {
		if cur.ID == id {
			return cur, true
		}
	}
	return Language{}, false
}

// IDs returns the registered language ids, sorted.
func (l *Languages) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.langs))
	for _, cur := range l.langs {
		out = append(out, cur.ID)
	}
	sort.Strings(out)
	return out
}

// ForPath classifies a file by name, then extension, then first line.
// Returns "" when nothing matches.
func (l *Languages) ForPath(path, firstLine string) string {
	base := strings.ToLower(filepath.Base(path))
	ext := strings.ToLower(filepath.Ext(path))

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, lang := range l.langs {
		for _, name := range lang.Filenames {
			if base == strings.ToLower(name) {
				return lang.ID
			}
		}
	}
	for _, lang := range l.langs {
		for _, e := range lang.Extensions {
			if ext == e {
				return lang.ID
			}
		}
	}
	if firstLine != "" {
		for _, lang := range l.langs {
			if lang.firstLine != nil && lang.firstLine.MatchString(firstLine) {
				return lang.ID
			}
		}
	}
	return ""
}

// OnLanguage runs fn the first time id is activated, or right away if it
// already was.
func (l *Languages) OnLanguage(id string, fn func()) lifecycle.Disposable {
	l.mu.Lock()
	if l.activated[id] {
		l.mu.Unlock()
		fn()
		return lifecycle.Nop
	}
	em, ok := l.listeners[id]
	if !ok {
		em = &lifecycle.Emitter[string]{}
		l.listeners[id] = em
	}
	l.mu.Unlock()
	return em.Subscribe(func(string) { fn() })
}

// Activate marks id as in use. Listeners fire once per id.
func (l *Languages) Activate(id string) {
	l.mu.Lock()
	if l.activated[id] {
		l.mu.Unlock()
		return
	}
	l.activated[id] = true
	em := l.listeners[id]
	delete(l.listeners, id)
	l.mu.Unlock()
	if em != nil {
		em.Fire(id)
	}
}
