package memtree

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/standardbeagle/stylefire/internal/source"
)

// Dir is an in-memory project directory
type Dir struct {
	path  string
	valid atomic.Bool
}

func (d *Dir) Path() string { return d.path }
func (d *Dir) IsValid() bool { return d.valid.Load() }

// File is an in-memory stylesheet
type File struct {
	tree    *Tree
	name    string
	path    string
	dir     *Dir
	dialect source.Dialect
	valid   atomic.Bool

	// guarded by tree.mu
	top   []source.Element
	rules *RuleList
	media map[string]*Media
}

func (f *File) Name() string { return f.name }
func (f *File) CanonicalPath() string { return f.path }
func (f *File) IsValid() bool { return f.valid.Load() }
func (f *File) Parent() source.Directory { return f.dir }
func (f *File) Dialect() source.Dialect { return f.dialect }
func (f *File) String() string { return f.path }

// RuleList is a file's top-level rule container
type RuleList struct {
	file   *File
	valid  atomic.Bool
	blocks []*Block
}

func (r *RuleList) File() source.File { return r.file }
func (r *RuleList) Text() string { return "<rules " + r.file.name + ">" }
func (r *RuleList) IsValid() bool { return r.valid.Load() && r.file.IsValid() }

// Block is a rule set
type Block struct {
	file     *File
	selector string
	media    *Media
	valid    atomic.Bool

	// guarded by tree.mu
	decls []*Decl
}

func (b *Block) File() source.File { return b.file }
func (b *Block) Text() string { return b.selector }
func (b *Block) Selector() string { return b.selector }
func (b *Block) IsValid() bool { return b.valid.Load() && b.file.IsValid() }

// Media returns the enclosing media scope or nil
func (b *Block) Media() source.MediaScope {
	if b.media == nil {
		return nil
	}
	return b.media
}

// Decl is a single declaration inside a block
type Decl struct {
	block    *Block
	property string
	valid    atomic.Bool

	// guarded by tree.mu
	value     string
	important bool
}

func (d *Decl) File() source.File { return d.block.file }
func (d *Decl) Property() string { return d.property }
func (d *Decl) IsValid() bool { return d.valid.Load() && d.block.IsValid() }
func (d *Decl) Block() source.Block { return d.block }

func (d *Decl) Value() string {
	d.block.file.tree.mu.RLock()
	defer d.block.file.tree.mu.RUnlock()
	return d.value
}

func (d *Decl) Important() bool {
	d.block.file.tree.mu.RLock()
	defer d.block.file.tree.mu.RUnlock()
	return d.important
}

func (d *Decl) Text() string {
	d.block.file.tree.mu.RLock()
	defer d.block.file.tree.mu.RUnlock()
	return declText(d.property, d.value, d.important)
}

func declText(property, value string, important bool) string {
	if important {
		return fmt.Sprintf("%s: %s !important", property, value)
	}
	return fmt.Sprintf("%s: %s", property, value)
}

// Media is a media-query scope
type Media struct {
	file   *File
	query  string
	valid  atomic.Bool
	blocks []*Block
}

func (m *Media) File() source.File { return m.file }
func (m *Media) Query() string { return m.query }
func (m *Media) Text() string { return "@media " + m.query }
func (m *Media) IsValid() bool { return m.valid.Load() && m.file.IsValid() }

// Import is an import statement
type Import struct {
	file  *File
	uris  []string
	valid atomic.Bool
}

func (i *Import) File() source.File { return i.file }
func (i *Import) URIs() []string { return append([]string(nil), i.uris...) }
func (i *Import) IsValid() bool { return i.valid.Load() && i.file.IsValid() }

func (i *Import) Text() string {
	quoted := make([]string, len(i.uris))
	for n, u := range i.uris {
		quoted[n] = fmt.Sprintf("%q", u)
	}
	return "@import " + strings.Join(quoted, ", ")
}

// Def is a top-level variable assignment or mixin
type Def struct {
	file  *File
	name  string
	kind  source.SymbolKind
	valid atomic.Bool

	// guarded by tree.mu
	value string
}

func (d *Def) File() source.File { return d.file }
func (d *Def) Name() string { return d.name }
func (d *Def) Kind() source.SymbolKind { return d.kind }
func (d *Def) IsValid() bool { return d.valid.Load() && d.file.IsValid() }

func (d *Def) Value() string {
	d.file.tree.mu.RLock()
	defer d.file.tree.mu.RUnlock()
	return d.value
}

func (d *Def) Text() string {
	if d.kind == source.SymbolMixin {
		return d.name + " { }"
	}
	d.file.tree.mu.RLock()
	defer d.file.tree.mu.RUnlock()
	return d.name + ": " + d.value
}

var (
	_ source.File          = (*File)(nil)
	_ source.Directory     = (*Dir)(nil)
	_ source.RuleContainer = (*RuleList)(nil)
	_ source.Block         = (*Block)(nil)
	_ source.Declaration   = (*Decl)(nil)
	_ source.MediaScope    = (*Media)(nil)
	_ source.Import        = (*Import)(nil)
	_ source.Definition    = (*Def)(nil)
)
