package editor

import (
	"context"
	"sync"

	"tsbridge/internal/errors"
	"tsbridge/internal/lifecycle"
	"tsbridge/internal/model"
)

// Capability tags a provider with the editor feature it serves.
type Capability string

const (
	CapabilityHover              Capability = "hover"
	CapabilitySignatureHelp      Capability = "signatureHelp"
	CapabilityDocumentHighlight  Capability = "documentHighlight"
	CapabilityDefinition         Capability = "definition"
	CapabilityReferences         Capability = "references"
	CapabilityDocumentSymbol     Capability = "documentSymbol"
	CapabilityDocumentFormatting Capability = "documentFormatting"
	CapabilityRangeFormatting    Capability = "rangeFormatting"
	CapabilityOnTypeFormatting   Capability = "onTypeFormatting"
	CapabilityCompletion         Capability = "completion"
)

// Provider is one handler record registered for a selector.
type Provider interface {
	Capability() Capability
}

type HoverProvider struct {
	Provide func(ctx context.Context, doc *model.Document, pos Position) (*Hover, error)
}

type SignatureHelpProvider struct {
	TriggerCharacters []string
	Provide           func(ctx context.Context, doc *model.Document, pos Position) (*SignatureHelp, error)
}

type DocumentHighlightProvider struct {
	Provide func(ctx context.Context, doc *model.Document, pos Position) ([]DocumentHighlight, error)
}

type DefinitionProvider struct {
	Provide func(ctx context.Context, doc *model.Document, pos Position) ([]Location, error)
}

type ReferenceProvider struct {
	Provide func(ctx context.Context, doc *model.Document, pos Position) ([]Location, error)
}

type DocumentSymbolProvider struct {
	Provide func(ctx context.Context, doc *model.Document) ([]SymbolInformation, error)
}

type DocumentFormattingProvider struct {
	Provide func(ctx context.Context, doc *model.Document, opts FormattingOptions) ([]TextEdit, error)
}

type RangeFormattingProvider struct {
	Provide func(ctx context.Context, doc *model.Document, r Range, opts FormattingOptions) ([]TextEdit, error)
}

type OnTypeFormattingProvider struct {
	TriggerCharacters []string
	Provide           func(ctx context.Context, doc *model.Document, pos Position, ch string, opts FormattingOptions) ([]TextEdit, error)
}

type CompletionProvider struct {
	TriggerCharacters []string
	Provide           func(ctx context.Context, doc *model.Document, pos Position) (*CompletionList, error)
	Resolve           func(ctx context.Context, doc *model.Document, item CompletionItem) (CompletionItem, error)
}

func (HoverProvider) Capability() Capability              { return CapabilityHover }
func (SignatureHelpProvider) Capability() Capability      { return CapabilitySignatureHelp }
func (DocumentHighlightProvider) Capability() Capability  { return CapabilityDocumentHighlight }
func (DefinitionProvider) Capability() Capability         { return CapabilityDefinition }
func (ReferenceProvider) Capability() Capability          { return CapabilityReferences }
func (DocumentSymbolProvider) Capability() Capability     { return CapabilityDocumentSymbol }
func (DocumentFormattingProvider) Capability() Capability { return CapabilityDocumentFormatting }
func (RangeFormattingProvider) Capability() Capability    { return CapabilityRangeFormatting }
func (OnTypeFormattingProvider) Capability() Capability   { return CapabilityOnTypeFormatting }
func (CompletionProvider) Capability() Capability         { return CapabilityCompletion }

// Registration is a provider bound to a language selector.
type Registration struct {
	ID       int
	Selector string
	Provider Provider
}

// Registry holds the registered providers. Later registrations win.
type Registry struct {
	mu     sync.RWMutex
	nextID int
	regs   []Registration

	changed lifecycle.Emitter[Registration]
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds p for documents whose language id equals selector.
func (r *Registry) Register(selector string, p Provider) lifecycle.Disposable {
	r.mu.Lock()
	r.nextID++
	reg := Registration{ID: r.nextID, Selector: selector, Provider: p}
	r.regs = append(r.regs, reg)
	r.mu.Unlock()
	r.changed.Fire(reg)

	return lifecycle.DisposableFunc(func() {
		r.mu.Lock()
		for i, cur := range r.regs {
			if cur.ID == reg.ID {
				r.regs = append(r.regs[:i:i], r.regs[i+1:]...)
				break
			}
		}
		r.mu.Unlock()
		r.changed.Fire(reg)
	})
}

// Providers returns the providers of capability for selector, newest first.
func (r *Registry) Providers(selector string, capability Capability) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Provider
	for i := len(r.regs) - 1; i >= 0; i-- {
		reg := r.regs[i]
		if reg.Selector == selector && reg.Provider.Capability() == capability {
			out = append(out, reg.Provider)
		}
	}
	return out
}

// Registrations returns a snapshot of all registrations in order.
func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Registration(nil), r.regs...)
}

// OnDidChange fires with the registration that was added or removed.
func (r *Registry) OnDidChange(fn func(Registration)) lifecycle.Disposable {
	return r.changed.Subscribe(fn)
}

func lookup[P Provider](r *Registry, doc *model.Document, capability Capability) (P, error) {
	var zero P
	for _, p := range r.Providers(doc.LanguageID(), capability) {
		if typed, ok := p.(P); ok {
			return typed, nil
		}
	}
	return zero, errors.Newf(errors.UnknownDocument, "no %s provider for language %q", capability, doc.LanguageID())
}

// Hover asks the newest hover provider for doc's language.
func (r *Registry) Hover(ctx context.Context, doc *model.Document, pos Position) (*Hover, error) {
	p, err := lookup[HoverProvider](r, doc, CapabilityHover)
	if err != nil {
		return nil, err
	}
	return p.Provide(ctx, doc, pos)
}

func (r *Registry) SignatureHelp(ctx context.Context, doc *model.Document, pos Position) (*SignatureHelp, error) {
	p, err := lookup[SignatureHelpProvider](r, doc, CapabilitySignatureHelp)
	if err != nil {
		return nil, err
	}
	return p.Provide(ctx, doc, pos)
}

func (r *Registry) DocumentHighlights(ctx context.Context, doc *model.Document, pos Position) ([]DocumentHighlight, error) {
	p, err := lookup[DocumentHighlightProvider](r, doc, CapabilityDocumentHighlight)
	if err != nil {
		return nil, err
	}
	return p.Provide(ctx, doc, pos)
}

func (r *Registry) Definition(ctx context.Context, doc *model.Document, pos Position) ([]Location, error) {
	p, err := lookup[DefinitionProvider](r, doc, CapabilityDefinition)
	if err != nil {
		return nil, err
	}
	return p.Provide(ctx, doc, pos)
}

func (r *Registry) References(ctx context.Context, doc *model.Document, pos Position) ([]Location, error) {
	p, err := lookup[ReferenceProvider](r, doc, CapabilityReferences)
	if err != nil {
		return nil, err
	}
	return p.Provide(ctx, doc, pos)
}

func (r *Registry) DocumentSymbols(ctx context.Context, doc *model.Document) ([]SymbolInformation, error) {
	p, err := lookup[DocumentSymbolProvider](r, doc, CapabilityDocumentSymbol)
	if err != nil {
		return nil, err
	}
	return p.Provide(ctx, doc)
}

func (r *Registry) FormatDocument(ctx context.Context, doc *model.Document, opts FormattingOptions) ([]TextEdit, error) {
	p, err := lookup[DocumentFormattingProvider](r, doc, CapabilityDocumentFormatting)
	if err != nil {
		return nil, err
	}
	return p.Provide(ctx, doc, opts)
}

func (r *Registry) FormatRange(ctx context.Context, doc *model.Document, rng Range, opts FormattingOptions) ([]TextEdit, error) {
	p, err := lookup[RangeFormattingProvider](r, doc, CapabilityRangeFormatting)
	if err != nil {
		return nil, err
	}
	return p.Provide(ctx, doc, rng, opts)
}

// FormatOnType returns no edits when ch is not a trigger character.
func (r *Registry) FormatOnType(ctx context.Context, doc *model.Document, pos Position, ch string, opts FormattingOptions) ([]TextEdit, error) {
	p, err := lookup[OnTypeFormattingProvider](r, doc, CapabilityOnTypeFormatting)
	if err != nil {
		return nil, err
	}
	if !containsString(p.TriggerCharacters, ch) {
		return nil, nil
	}
	return p.Provide(ctx, doc, pos, ch, opts)
}

func (r *Registry) Completions(ctx context.Context, doc *model.Document, pos Position) (*CompletionList, error) {
	p, err := lookup[CompletionProvider](r, doc, CapabilityCompletion)
	if err != nil {
		return nil, err
	}
	return p.Provide(ctx, doc, pos)
}

// ResolveCompletion fills in detail and documentation; without a resolver
// the item is returned unchanged.
func (r *Registry) ResolveCompletion(ctx context.Context, doc *model.Document, item CompletionItem) (CompletionItem, error) {
	p, err := lookup[CompletionProvider](r, doc, CapabilityCompletion)
	if err != nil {
		return item, err
	}
	if p.Resolve == nil {
		return item, nil
	}
	return p.Resolve(ctx, doc, item)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
