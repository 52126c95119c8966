// Package source defines the document model and the source-tree query service
// the resolution engine runs against. The engine never parses stylesheets itself;
// everything it knows about a project comes through these interfaces, which keeps
// the pipeline and the symbol resolver testable against in-memory trees.
package source

import (
	"iter"
	"path/filepath"
	"strings"
)

// Dialect identifies the stylesheet language a file is written in
type Dialect string

const (
	DialectCSS    Dialect = "css"
	DialectLess   Dialect = "less"
	DialectSCSS   Dialect = "scss"
	DialectSass   Dialect = "sass"
	DialectStylus Dialect = "styl"
)

// IsDynamic reports whether the dialect supports variables, mixins and imports
// with preprocessor semantics.
func (d Dialect) IsDynamic() bool {
	switch d {
	case DialectLess, DialectSCSS, DialectSass, DialectStylus:
		return true
	}
	return false
}

// VariableSigil returns the prefix used for variable references in the dialect
func (d Dialect) VariableSigil() string {
	switch d {
	case DialectLess:
		return "@"
	case DialectSCSS, DialectSass:
		return "$"
	}
	return ""
}

// DialectForName infers the dialect from a file name extension.
// Unknown extensions are treated as plain CSS.
func DialectForName(name string) Dialect {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".less":
		return DialectLess
	case ".scss":
		return DialectSCSS
	case ".sass":
		return DialectSass
	case ".styl":
		return DialectStylus
	}
	return DialectCSS
}

// Directory is a file-system directory inside the project
type Directory interface {
	Path() string
	IsValid() bool
}

// File is a stylesheet inside the project
type File interface {
	Name() string
	CanonicalPath() string
	IsValid() bool
	Parent() Directory
	Dialect() Dialect
}

// Element is any located node of a stylesheet. Implementations must be
// comparable by identity: two Element values are the same node iff ==.
type Element interface {
	File() File
	Text() string
	IsValid() bool
}

// Block is a rule set: a selector plus its declarations
type Block interface {
	Element
	Selector() string
	// Media returns the enclosing media scope, or nil at top level.
	Media() MediaScope
}

// Declaration is a single "property: value" entry in a block
type Declaration interface {
	Element
	Property() string
	Value() string
	Important() bool
}

// MediaScope is a parsed media query descriptor scoping a set of rules
type MediaScope interface {
	Element
	Query() string
}

// RuleContainer is a top-level list of rules where new blocks can be inserted
type RuleContainer interface {
	Element
}

// Import is an import statement (@import / @use)
type Import interface {
	Element
	URIs() []string
}

// SymbolKind distinguishes the definitions the resolver can look up
type SymbolKind uint8

const (
	SymbolVariable SymbolKind = iota
	SymbolMixin
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolVariable:
		return "variable"
	case SymbolMixin:
		return "mixin"
	}
	return "unknown"
}

// Definition is a top-level variable assignment or mixin declaration
type Definition interface {
	Element
	Name() string
	Kind() SymbolKind
	// Value is the assigned value for variables, empty for mixins.
	Value() string
}

// Tree is the source-tree query service. Implementations answer from a
// read-only snapshot; sequences are lazy, finite and restartable, and
// consumers may stop pulling early.
type Tree interface {
	// FindByWord yields elements whose text contains word as an indexed token
	// and for which verify returns true. Word-index hits are a superset;
	// verify is where exact matching happens.
	FindByWord(word string, verify func(Element) bool) iter.Seq[Element]

	// FindFilesByName returns every project file with exactly this name
	FindFilesByName(name string) []File

	// Declarations returns the block's own declarations in document order
	Declarations(block Block) []Declaration

	// FirstRuleContainer returns the file's first top-level rule list, or nil
	FirstRuleContainer(file File) RuleContainer

	// TopLevel yields the file's top-level elements in document order
	TopLevel(file File) iter.Seq[Element]

	// Imports returns the file's import statements in document order
	Imports(file File) []Import

	// ResolveImport returns the files an import statement points at
	ResolveImport(imp Import) []File
}

// EnclosingMedia returns the media scope an element belongs to, or nil.
// A media scope encloses itself.
func EnclosingMedia(e Element) MediaScope {
	switch v := e.(type) {
	case MediaScope:
		return v
	case Block:
		return v.Media()
	}
	return nil
}

// IsValidFile reports whether f is non-nil, valid and sits in a valid directory
func IsValidFile(f File) bool {
	if f == nil || !f.IsValid() {
		return false
	}
	dir := f.Parent()
	return dir != nil && dir.IsValid()
}
