package tree

import (
	"sync"

	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/errors"
	"github.com/standardbeagle/stylefire/internal/source"
)

// Model is the long-lived tree of pending changes. Writers are expected to be
// serialized by the caller; the lock only protects readers such as display.
type Model struct {
	mu   sync.RWMutex
	dirs []*DirectoryNode
}

// NewModel creates an empty model
func NewModel() *Model {
	return &Model{}
}

// Intersect merges a path into the model. Each level reuses an equal child
// when there is one; the first level without a match and everything below it
// is appended as fresh nodes copied from the path, so the caller's path never
// shares children with the model. Re-intersecting an equal leaf overwrites its
// pending state in place. The leaf now held by the model is returned.
func (m *Model) Intersect(path DeclarationPath) DeclarationNode {
	m.mu.Lock()
	defer m.mu.Unlock()

	var dir *DirectoryNode
	for _, d := range m.dirs {
		if d.Equal(path.Directory) {
			dir = d
			break
		}
	}
	if dir == nil {
		dir = &DirectoryNode{dir: path.Directory.dir}
		m.dirs = append(m.dirs, dir)
	}

	var file *FileNode
	for _, f := range dir.files {
		if f.Equal(path.File) {
			file = f
			break
		}
	}
	if file == nil {
		file = &FileNode{file: path.File.file}
		dir.files = append(dir.files, file)
	}

	var sel *SelectorNode
	for _, s := range file.selectors {
		if s.Equal(path.Selector) {
			sel = s
			break
		}
	}
	if sel == nil {
		sel = &SelectorNode{
			selector: path.Selector.selector,
			media:    path.Selector.media,
			anchor:   path.Selector.anchor,
		}
		file.selectors = append(file.selectors, sel)
	}

	for _, leaf := range sel.decls {
		if leaf.Equal(path.Declaration) {
			if leaf != path.Declaration {
				leaf.update(path.Declaration)
			}
			debug.LogTree("intersect: updated %s\n", leaf.Text())
			return leaf
		}
	}
	sel.decls = append(sel.decls, path.Declaration)
	debug.LogTree("intersect: added %s\n", path.Declaration.Text())
	return path.Declaration
}

// Directories returns a snapshot of the top level
func (m *Model) Directories() []*DirectoryNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*DirectoryNode(nil), m.dirs...)
}

// Paths returns every leaf as a path, in tree order
func (m *Model) Paths() []DeclarationPath {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []DeclarationPath
	for _, d := range m.dirs {
		for _, f := range d.files {
			for _, s := range f.selectors {
				for _, leaf := range s.decls {
					out = append(out, DeclarationPath{Directory: d, File: f, Selector: s, Declaration: leaf})
				}
			}
		}
	}
	return out
}

// CountLeafs counts all declaration leaves
func (m *Model) CountLeafs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, d := range m.dirs {
		n += d.CountLeafs()
	}
	return n
}

// Clear drops every node
func (m *Model) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs = nil
	debug.LogTree("model cleared\n")
}

// RefreshLeafs re-reads validity of every node from source. Nodes whose
// element is gone are marked invalid but kept; nodes whose element is live
// again are marked valid. Returns the number of invalid leaves.
func (m *Model) RefreshLeafs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	invalid := 0
	for _, d := range m.dirs {
		d.stale = !d.dir.IsValid()
		for _, f := range d.files {
			f.stale = d.stale || !source.IsValidFile(f.file)
			for _, s := range f.selectors {
				s.stale = f.stale || !s.anchor.IsValid()
				for _, leaf := range s.decls {
					if !leaf.refresh() || s.stale {
						invalid++
					}
				}
			}
		}
	}
	debug.LogTree("refresh: %d invalid leaves\n", invalid)
	return invalid
}

// Remove drops a leaf and any parents left empty by its removal
func (m *Model) Remove(leaf DeclarationNode) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for di, d := range m.dirs {
		for fi, f := range d.files {
			for si, s := range f.selectors {
				for li, l := range s.decls {
					if l != leaf {
						continue
					}
					s.decls = append(s.decls[:li], s.decls[li+1:]...)
					if len(s.decls) == 0 {
						f.selectors = append(f.selectors[:si], f.selectors[si+1:]...)
					}
					if len(f.selectors) == 0 {
						d.files = append(d.files[:fi], d.files[fi+1:]...)
					}
					if len(d.files) == 0 {
						m.dirs = append(m.dirs[:di], m.dirs[di+1:]...)
					}
					return true
				}
			}
		}
	}
	return false
}

// Apply writes every valid leaf back to source. Each leaf is replaced by the
// node ApplyToSource returns. Failures are collected and do not stop the
// remaining leaves.
func (m *Model) Apply(editor SourceEditor, resolver VariableResolver) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	applied := 0
	for _, d := range m.dirs {
		for _, f := range d.files {
			for _, s := range f.selectors {
				if !f.IsValid() || !s.IsValid() {
					continue
				}
				for i, leaf := range s.decls {
					if !leaf.IsValid() {
						continue
					}
					next, err := leaf.ApplyToSource(editor, resolver)
					if err != nil {
						errs = append(errs, errors.NewApplyError(leaf.Property(), f.file.CanonicalPath(), err))
						continue
					}
					s.decls[i] = next
					applied++
				}
			}
		}
	}
	debug.LogTree("apply: %d written, %d failed\n", applied, len(errs))
	return errors.NewMultiError(errs).ErrOrNil()
}
