// Package tree holds the persistent declaration-path model: a fixed four-level
// tree Directory -> File -> Selector -> Declaration into which resolved change
// candidates are merged.
package tree

import (
	"fmt"

	"github.com/standardbeagle/stylefire/internal/search"
	"github.com/standardbeagle/stylefire/internal/source"
)

// Node is the behavior shared by every level of the model
type Node interface {
	Text() string
	IsValid() bool
}

// DeclarationPath is one candidate location for a change
type DeclarationPath struct {
	Directory   *DirectoryNode
	File        *FileNode
	Selector    *SelectorNode
	Declaration DeclarationNode
}

// NewDeclarationPath builds a path for a leaf located in file under selector.
// The selector node's anchor is the leaf's anchor block, media scope or rule
// container.
func NewDeclarationPath(file source.File, selector, media string, anchor source.Element, leaf DeclarationNode) DeclarationPath {
	return DeclarationPath{
		Directory:   NewDirectoryNode(file.Parent()),
		File:        NewFileNode(file),
		Selector:    NewSelectorNode(selector, media, anchor),
		Declaration: leaf,
	}
}

// IsValid reports whether every level of the path still points at live source
func (p DeclarationPath) IsValid() bool {
	return p.Directory != nil && p.Directory.IsValid() &&
		p.File != nil && p.File.IsValid() &&
		p.Selector != nil && p.Selector.IsValid() &&
		p.Declaration != nil && p.Declaration.IsValid()
}

func (p DeclarationPath) String() string {
	return fmt.Sprintf("%s > %s > %s", p.File.File().CanonicalPath(), p.Selector.Text(), p.Declaration.Text())
}

// DirectoryNode groups files by directory
type DirectoryNode struct {
	dir   source.Directory
	files []*FileNode
	stale bool
}

// NewDirectoryNode creates a detached directory node
func NewDirectoryNode(dir source.Directory) *DirectoryNode {
	return &DirectoryNode{dir: dir}
}

func (d *DirectoryNode) Directory() source.Directory { return d.dir }
func (d *DirectoryNode) Text() string { return d.dir.Path() }
func (d *DirectoryNode) IsValid() bool { return !d.stale && d.dir.IsValid() }

// Files returns the child file nodes
func (d *DirectoryNode) Files() []*FileNode { return d.files }

// Equal matches the same file-system directory
func (d *DirectoryNode) Equal(other *DirectoryNode) bool {
	return other != nil && d.dir.Path() == other.dir.Path()
}

// CountLeafs counts the declaration leaves below this directory
func (d *DirectoryNode) CountLeafs() int {
	n := 0
	for _, f := range d.files {
		n += f.CountLeafs()
	}
	return n
}

// FileNode groups selectors by stylesheet
type FileNode struct {
	file      source.File
	selectors []*SelectorNode
	stale     bool
}

// NewFileNode creates a detached file node
func NewFileNode(file source.File) *FileNode {
	return &FileNode{file: file}
}

func (f *FileNode) File() source.File { return f.file }
func (f *FileNode) IsValid() bool { return !f.stale && source.IsValidFile(f.file) }

// Selectors returns the child selector nodes
func (f *FileNode) Selectors() []*SelectorNode { return f.selectors }

// Text is the file name followed by the number of changes in it
func (f *FileNode) Text() string {
	return fmt.Sprintf("%s (%d)", f.file.Name(), f.CountLeafs())
}

// Equal matches the same file-system file
func (f *FileNode) Equal(other *FileNode) bool {
	return other != nil && f.file.CanonicalPath() == other.file.CanonicalPath()
}

// CountLeafs counts the declaration leaves below this file
func (f *FileNode) CountLeafs() int {
	n := 0
	for _, s := range f.selectors {
		n += len(s.decls)
	}
	return n
}

// SelectorNode is a rule location: a matched block, or a media scope or rule
// container new rules will be inserted into.
type SelectorNode struct {
	selector string
	media    string
	anchor   source.Element
	decls    []DeclarationNode
	stale    bool
}

// NewSelectorNode creates a detached selector node
func NewSelectorNode(selector, media string, anchor source.Element) *SelectorNode {
	return &SelectorNode{
		selector: search.NormalizeWhitespace(selector),
		media:    search.NormalizeWhitespace(media),
		anchor:   anchor,
	}
}

func (s *SelectorNode) Selector() string { return s.selector }
func (s *SelectorNode) Media() string { return s.media }
func (s *SelectorNode) Anchor() source.Element { return s.anchor }
func (s *SelectorNode) IsValid() bool { return !s.stale && s.anchor.IsValid() }

// Declarations returns the child leaves
func (s *SelectorNode) Declarations() []DeclarationNode { return s.decls }

func (s *SelectorNode) Text() string {
	if s.media == "" {
		return s.selector
	}
	return fmt.Sprintf("@media %s { %s }", s.media, s.selector)
}

// Equal matches the same selector and media text at the same anchor
func (s *SelectorNode) Equal(other *SelectorNode) bool {
	return other != nil &&
		s.selector == other.selector &&
		s.media == other.media &&
		s.anchor == other.anchor
}
