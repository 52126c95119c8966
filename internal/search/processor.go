package search

import (
	"iter"
	"sync"

	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/source"
)

// SelectorProcessor finds every block whose selector text equals a query
// selector after whitespace normalization. The project-wide search runs once,
// on first use, and the result is reused until the processor is discarded.
type SelectorProcessor struct {
	tree     source.Tree
	selector string
	word     string

	once   sync.Once
	blocks []source.Block
}

// NewSelectorProcessor creates a processor for the given selector text
func NewSelectorProcessor(tree source.Tree, selector string) *SelectorProcessor {
	normalized := NormalizeWhitespace(selector)
	return &SelectorProcessor{
		tree:     tree,
		selector: normalized,
		word:     ExtractSearchWord(normalized),
	}
}

// Selector returns the normalized selector this processor matches
func (p *SelectorProcessor) Selector() string {
	return p.selector
}

// SearchWord returns the token used against the word index
func (p *SelectorProcessor) SearchWord() string {
	return p.word
}

// Blocks returns the matching blocks in search order
func (p *SelectorProcessor) Blocks() []source.Block {
	p.once.Do(p.run)
	return p.blocks
}

// All yields the matching blocks; iteration can be restarted and stopped early
func (p *SelectorProcessor) All() iter.Seq[source.Block] {
	return func(yield func(source.Block) bool) {
		for _, b := range p.Blocks() {
			if !yield(b) {
				return
			}
		}
	}
}

func (p *SelectorProcessor) run() {
	seen := make(map[source.Block]struct{})
	verify := func(e source.Element) bool {
		b, ok := e.(source.Block)
		return ok && e.IsValid() && NormalizeWhitespace(b.Selector()) == p.selector
	}
	for e := range p.tree.FindByWord(p.word, verify) {
		b, ok := e.(source.Block)
		if !ok {
			continue
		}
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		p.blocks = append(p.blocks, b)
	}
	debug.LogResolve("selector search %q (word %q): %d blocks\n", p.selector, p.word, len(p.blocks))
}

// MediaProcessor finds every media scope whose query text equals a given
// media text after whitespace normalization.
type MediaProcessor struct {
	tree  source.Tree
	media string
	word  string

	once   sync.Once
	scopes []source.MediaScope
}

// NewMediaProcessor creates a processor for the given media query text
func NewMediaProcessor(tree source.Tree, media string) *MediaProcessor {
	normalized := NormalizeWhitespace(media)
	return &MediaProcessor{
		tree:  tree,
		media: normalized,
		word:  ExtractSearchWord(normalized),
	}
}

// Media returns the normalized media text this processor matches
func (p *MediaProcessor) Media() string {
	return p.media
}

// SearchWord returns the token used against the word index
func (p *MediaProcessor) SearchWord() string {
	return p.word
}

// MediaScopes returns the distinct matching media scopes in search order
func (p *MediaProcessor) MediaScopes() []source.MediaScope {
	p.once.Do(p.run)
	return p.scopes
}

// All yields the matching media scopes
func (p *MediaProcessor) All() iter.Seq[source.MediaScope] {
	return func(yield func(source.MediaScope) bool) {
		for _, m := range p.MediaScopes() {
			if !yield(m) {
				return
			}
		}
	}
}

func (p *MediaProcessor) run() {
	seen := make(map[source.MediaScope]struct{})
	verify := func(e source.Element) bool {
		m := source.EnclosingMedia(e)
		return m != nil && m.IsValid() && NormalizeWhitespace(m.Query()) == p.media
	}
	for e := range p.tree.FindByWord(p.word, verify) {
		m := source.EnclosingMedia(e)
		if m == nil {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		p.scopes = append(p.scopes, m)
	}
	debug.LogResolve("media search %q (word %q): %d scopes\n", p.media, p.word, len(p.scopes))
}
