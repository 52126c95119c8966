// Package symbols resolves preprocessor variables and mixins across files.
//
// Resolution starts in the file containing the usage and walks the import
// graph depth-first: first the file's own top-level definitions, then
// everything it imports, then every file that imports it. The first
// definition found wins. Each top-level request owns a traversal context whose
// visited set guarantees every file is scanned at most once, which makes
// import cycles harmless.
package symbols

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/source"
)

// Resolver answers definition lookups against a source tree. It holds no
// per-request state and is safe for concurrent use.
type Resolver struct {
	tree source.Tree
}

// NewResolver creates a resolver for a source tree
func NewResolver(tree source.Tree) *Resolver {
	return &Resolver{tree: tree}
}

// ResolveVariable finds the definition of a variable used at usage
func (r *Resolver) ResolveVariable(usage source.Element, name string) (source.Definition, bool) {
	return r.resolve(usage, source.SymbolVariable, name)
}

// ResolveMixin finds the definition of a mixin used at usage
func (r *Resolver) ResolveMixin(usage source.Element, name string) (source.Definition, bool) {
	return r.resolve(usage, source.SymbolMixin, name)
}

// ReferencedDefinition resolves the variable a declaration's value is a plain
// reference to, such as "color: @primary".
func (r *Resolver) ReferencedDefinition(decl source.Declaration) (source.Definition, bool) {
	name, ok := ReferencedVariable(decl)
	if !ok {
		return nil, false
	}
	return r.ResolveVariable(decl, name)
}

func (r *Resolver) resolve(usage source.Element, kind source.SymbolKind, name string) (source.Definition, bool) {
	if usage == nil || !usage.IsValid() || strings.TrimSpace(name) == "" {
		return nil, false
	}
	t := newTraversal(r.tree, kind, name)
	t.processFile(usage.File())

	if t.result == nil {
		debug.LogSymbols("%s %q not found (%d files visited)\n", kind, name, t.visited.Len())
		return nil, false
	}
	debug.LogSymbols("%s %q resolved in %s (%d files visited)\n", kind, name, t.result.File().CanonicalPath(), t.visited.Len())
	return t.result, true
}

var variableRef = regexp.MustCompile(`^[@$][A-Za-z_][A-Za-z0-9_-]*$`)

// ReferencedVariable returns the variable name when the declaration lives in
// a preprocessor file and its whole value is a single variable reference
// using that dialect's sigil.
func ReferencedVariable(decl source.Declaration) (string, bool) {
	if decl == nil {
		return "", false
	}
	f := decl.File()
	if f == nil || !f.Dialect().IsDynamic() {
		return "", false
	}
	sigil := f.Dialect().VariableSigil()
	value := strings.TrimSpace(decl.Value())
	if sigil == "" || !strings.HasPrefix(value, sigil) || !variableRef.MatchString(value) {
		return "", false
	}
	return value, true
}

// symbolName strips a leading variable sigil so "@x", "$x" and "x" compare equal
func symbolName(kind source.SymbolKind, name string) string {
	name = strings.TrimSpace(name)
	if kind == source.SymbolVariable {
		name = strings.TrimLeft(name, "@$")
	}
	return name
}
