// Package memtree is an in-memory source tree. It implements the query service
// the resolution engine consumes, plus the write-back operations used when an
// accepted change is applied. Projects are built programmatically or loaded from
// TOML snapshots; nothing here parses stylesheet syntax.
package memtree

import (
	"iter"
	"path"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/stylefire/internal/search"
	"github.com/standardbeagle/stylefire/internal/source"
	"github.com/standardbeagle/stylefire/pkg/pathutil"
)

// Tree is an in-memory project. All structural state is guarded by mu;
// validity flags are atomics so readers can check them without locking.
type Tree struct {
	root string

	mu     sync.RWMutex
	dirs   map[string]*Dir
	files  []*File
	byPath map[string]*File

	// word index: xxhash(word) -> elements, in insertion order
	index map[uint64][]source.Element
}

// New creates an empty tree rooted at root
func New(root string) *Tree {
	return &Tree{
		root:   pathutil.Canonical(root),
		dirs:   make(map[string]*Dir),
		byPath: make(map[string]*File),
		index:  make(map[uint64][]source.Element),
	}
}

// Root returns the canonical project root
func (t *Tree) Root() string {
	return t.root
}

// BaseURL returns the file URL of the project root
func (t *Tree) BaseURL() string {
	return pathutil.FileURL(t.root)
}

// AddFile creates a file at a path relative to the root (or absolute).
// Adding an existing path returns the existing file.
func (t *Tree) AddFile(relPath string) *File {
	full := relPath
	if !strings.HasPrefix(pathutil.Canonical(relPath), "/") {
		full = path.Join(t.root, relPath)
	}
	full = pathutil.Canonical(full)

	t.mu.Lock()
	defer t.mu.Unlock()

	if f, ok := t.byPath[full]; ok {
		return f
	}

	dirPath := path.Dir(full)
	dir, ok := t.dirs[dirPath]
	if !ok {
		dir = &Dir{path: dirPath}
		dir.valid.Store(true)
		t.dirs[dirPath] = dir
	}

	name := path.Base(full)
	f := &File{
		tree:    t,
		name:    name,
		path:    full,
		dir:     dir,
		dialect: source.DialectForName(name),
		media:   make(map[string]*Media),
	}
	f.valid.Store(true)
	t.files = append(t.files, f)
	t.byPath[full] = f
	return f
}

// File returns the file at a relative or absolute path, or nil
func (t *Tree) File(p string) *File {
	full := p
	if !strings.HasPrefix(pathutil.Canonical(p), "/") {
		full = path.Join(t.root, p)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byPath[pathutil.Canonical(full)]
}

// Files returns every valid file in insertion order
func (t *Tree) Files() []*File {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*File, 0, len(t.files))
	for _, f := range t.files {
		if f.IsValid() {
			out = append(out, f)
		}
	}
	return out
}

// RemoveFile invalidates a file and everything in it
func (t *Tree) RemoveFile(p string) bool {
	f := t.File(p)
	if f == nil {
		return false
	}
	f.valid.Store(false)
	return true
}

// RestoreFile marks a removed file, and its directory, live again. Elements
// inside keep their own validity.
func (t *Tree) RestoreFile(p string) bool {
	f := t.File(p)
	if f == nil {
		return false
	}
	f.dir.valid.Store(true)
	f.valid.Store(true)
	return true
}

// RemoveDir invalidates a directory; files inside keep their own validity
// but can no longer produce candidate paths.
func (t *Tree) RemoveDir(p string) bool {
	full := p
	if !strings.HasPrefix(pathutil.Canonical(p), "/") {
		full = path.Join(t.root, p)
	}
	t.mu.RLock()
	dir := t.dirs[pathutil.Canonical(full)]
	t.mu.RUnlock()
	if dir == nil {
		return false
	}
	dir.valid.Store(false)
	return true
}

// indexLocked registers an element under each word. Caller holds mu.
func (t *Tree) indexLocked(e source.Element, words ...string) {
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		h := xxhash.Sum64String(w)
		t.index[h] = append(t.index[h], e)
	}
}

// indexWords returns the tokens text is indexed under. Text without any
// identifier-like token is indexed whole, matching what ExtractSearchWord
// produces for it.
func indexWords(text string) []string {
	if words := search.Words(text); len(words) > 0 {
		return words
	}
	return []string{search.NormalizeWhitespace(text)}
}

// FindByWord implements source.Tree. The bucket is copied under the read lock
// and the lock is released before yielding, so consumers may call back into
// the tree.
func (t *Tree) FindByWord(word string, verify func(source.Element) bool) iter.Seq[source.Element] {
	return func(yield func(source.Element) bool) {
		t.mu.RLock()
		bucket := append([]source.Element(nil), t.index[xxhash.Sum64String(word)]...)
		t.mu.RUnlock()

		for _, e := range bucket {
			if verify != nil && !verify(e) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// FindFilesByName implements source.Tree
func (t *Tree) FindFilesByName(name string) []source.File {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []source.File
	for _, f := range t.files {
		if f.name == name && f.IsValid() {
			out = append(out, f)
		}
	}
	return out
}

// Declarations implements source.Tree
func (t *Tree) Declarations(block source.Block) []source.Declaration {
	b, ok := block.(*Block)
	if !ok {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]source.Declaration, 0, len(b.decls))
	for _, d := range b.decls {
		if d.valid.Load() {
			out = append(out, d)
		}
	}
	return out
}

// FirstRuleContainer implements source.Tree
func (t *Tree) FirstRuleContainer(file source.File) source.RuleContainer {
	f, ok := file.(*File)
	if !ok {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if f.rules == nil {
		return nil
	}
	return f.rules
}

// TopLevel implements source.Tree
func (t *Tree) TopLevel(file source.File) iter.Seq[source.Element] {
	return func(yield func(source.Element) bool) {
		f, ok := file.(*File)
		if !ok {
			return
		}
		t.mu.RLock()
		top := append([]source.Element(nil), f.top...)
		t.mu.RUnlock()
		for _, e := range top {
			if !e.IsValid() {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Imports implements source.Tree
func (t *Tree) Imports(file source.File) []source.Import {
	var out []source.Import
	for e := range t.TopLevel(file) {
		if imp, ok := e.(*Import); ok {
			out = append(out, imp)
		}
	}
	return out
}

// ResolveImport implements source.Tree. Each URI is resolved relative to the
// importing file; extensionless URIs also try the importing file's dialect
// extension and the underscore-prefixed partial form.
func (t *Tree) ResolveImport(imp source.Import) []source.File {
	i, ok := imp.(*Import)
	if !ok {
		return nil
	}
	baseDir := path.Dir(i.file.path)
	ext := "." + string(i.file.dialect)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []source.File
	seen := make(map[*File]struct{})
	for _, uri := range i.uris {
		target := uri
		if !strings.HasPrefix(uri, "/") {
			target = path.Join(baseDir, uri)
		} else {
			target = path.Join(t.root, uri)
		}
		candidates := []string{target}
		if path.Ext(target) == "" {
			dir, base := path.Split(target)
			candidates = append(candidates, target+ext, path.Join(dir, "_"+base+ext))
		}
		for _, c := range candidates {
			f, ok := t.byPath[pathutil.Canonical(c)]
			if !ok || !f.IsValid() {
				continue
			}
			if _, dup := seen[f]; dup {
				break
			}
			seen[f] = struct{}{}
			out = append(out, f)
			break
		}
	}
	return out
}

// RuleList returns the file's rule container, creating it if needed
func (f *File) RuleList() *RuleList {
	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()
	return f.ruleListLocked()
}

func (f *File) ruleListLocked() *RuleList {
	if f.rules == nil {
		f.rules = &RuleList{file: f}
		f.rules.valid.Store(true)
		f.top = append(f.top, f.rules)
	}
	return f.rules
}

// AddBlock appends a top-level block to the file's rule list
func (f *File) AddBlock(selector string) *Block {
	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()
	return f.addBlockLocked(selector, nil)
}

func (f *File) addBlockLocked(selector string, media *Media) *Block {
	b := &Block{file: f, selector: selector, media: media}
	b.valid.Store(true)
	if media != nil {
		media.blocks = append(media.blocks, b)
	} else {
		rules := f.ruleListLocked()
		rules.blocks = append(rules.blocks, b)
	}
	f.tree.indexLocked(b, indexWords(selector)...)
	return b
}

// AddMedia returns the file's media scope for a query, creating it if needed
func (f *File) AddMedia(query string) *Media {
	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()
	return f.mediaLocked(query)
}

func (f *File) mediaLocked(query string) *Media {
	key := search.NormalizeWhitespace(query)
	if m, ok := f.media[key]; ok {
		return m
	}
	f.ruleListLocked()
	m := &Media{file: f, query: query}
	m.valid.Store(true)
	f.media[key] = m
	f.top = append(f.top, m)
	f.tree.indexLocked(m, indexWords(query)...)
	return m
}

// AddImport appends an import statement
func (f *File) AddImport(uris ...string) *Import {
	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()
	imp := &Import{file: f, uris: append([]string(nil), uris...)}
	imp.valid.Store(true)
	f.top = append(f.top, imp)
	words := make([]string, 0, len(uris)*2)
	for _, u := range uris {
		words = append(words, search.Words(u)...)
		words = append(words, path.Base(u))
	}
	f.tree.indexLocked(imp, words...)
	return imp
}

// AddVariable appends a top-level variable assignment
func (f *File) AddVariable(name, value string) *Def {
	return f.addDef(name, value, source.SymbolVariable)
}

// AddMixin appends a top-level mixin definition
func (f *File) AddMixin(name string) *Def {
	return f.addDef(name, "", source.SymbolMixin)
}

func (f *File) addDef(name, value string, kind source.SymbolKind) *Def {
	f.tree.mu.Lock()
	defer f.tree.mu.Unlock()
	d := &Def{file: f, name: name, kind: kind, value: value}
	d.valid.Store(true)
	f.top = append(f.top, d)
	f.tree.indexLocked(d, search.Words(name)...)
	return d
}

// AddBlock appends a block inside the media scope
func (m *Media) AddBlock(selector string) *Block {
	m.file.tree.mu.Lock()
	defer m.file.tree.mu.Unlock()
	return m.file.addBlockLocked(selector, m)
}

// AddDecl appends a declaration to the block
func (b *Block) AddDecl(property, value string, important bool) *Decl {
	b.file.tree.mu.Lock()
	defer b.file.tree.mu.Unlock()
	return b.addDeclLocked(property, value, important)
}

func (b *Block) addDeclLocked(property, value string, important bool) *Decl {
	d := &Decl{block: b, property: property, value: value, important: important}
	d.valid.Store(true)
	b.decls = append(b.decls, d)
	return d
}

var _ source.Tree = (*Tree)(nil)
