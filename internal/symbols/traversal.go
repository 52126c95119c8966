package symbols

import (
	"strings"
	"sync"

	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/source"
)

// VisitedSet records the canonical paths processed by one resolve request
type VisitedSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewVisitedSet creates an empty set
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{paths: make(map[string]struct{})}
}

// Visit inserts path and reports whether it was absent. The test and the
// insert happen under one lock acquisition.
func (v *VisitedSet) Visit(path string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.paths[path]; ok {
		return false
	}
	v.paths[path] = struct{}{}
	return true
}

// Contains reports whether path has been visited
func (v *VisitedSet) Contains(path string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.paths[path]
	return ok
}

// Len returns the number of visited paths
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.paths)
}

// traversal is the state of one top-level resolve request
type traversal struct {
	tree    source.Tree
	kind    source.SymbolKind
	name    string
	visited *VisitedSet
	result  source.Definition
}

func newTraversal(tree source.Tree, kind source.SymbolKind, name string) *traversal {
	return &traversal{
		tree:    tree,
		kind:    kind,
		name:    symbolName(kind, name),
		visited: NewVisitedSet(),
	}
}

// visit admits a file into the traversal. Plain stylesheets, invalid files
// and files already seen are refused.
func (t *traversal) visit(file source.File) bool {
	if file == nil || !file.IsValid() || !file.Dialect().IsDynamic() {
		return false
	}
	return t.visited.Visit(file.CanonicalPath())
}

// processFile searches file, its imports, then its importers. It returns
// false once a definition has been found, which unwinds every caller.
func (t *traversal) processFile(file source.File) bool {
	if !t.visit(file) {
		return true
	}
	debug.LogSymbols("scan %s for %s %q\n", file.CanonicalPath(), t.kind, t.name)

	for e := range t.tree.TopLevel(file) {
		def, ok := e.(source.Definition)
		if !ok || !def.IsValid() || def.Kind() != t.kind {
			continue
		}
		if symbolName(t.kind, def.Name()) == t.name {
			t.result = def
			return false
		}
	}

	for _, imp := range t.tree.Imports(file) {
		for _, target := range t.tree.ResolveImport(imp) {
			if !t.processFile(target) {
				return false
			}
		}
	}

	for _, importer := range t.importersOf(file) {
		if !t.processFile(importer) {
			return false
		}
	}
	return true
}

// importersOf finds files importing file. Candidates come from a word search
// on the bare file name; an import qualifies when one of its URIs ends with
// that name and resolves to exactly this file.
func (t *traversal) importersOf(file source.File) []source.File {
	name := file.Name()
	isImport := func(e source.Element) bool {
		_, ok := e.(source.Import)
		return ok && e.IsValid()
	}

	var importers []source.File
	for e := range t.tree.FindByWord(name, isImport) {
		imp := e.(source.Import)
		if !importsFile(t.tree, imp, name, file) {
			continue
		}
		importers = append(importers, imp.File())
	}
	return importers
}

func importsFile(tree source.Tree, imp source.Import, name string, file source.File) bool {
	for _, uri := range imp.URIs() {
		if !strings.HasSuffix(uri, name) {
			continue
		}
		for _, target := range tree.ResolveImport(imp) {
			if target == file {
				return true
			}
		}
	}
	return false
}
