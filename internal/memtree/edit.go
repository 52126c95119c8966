package memtree

import (
	"fmt"

	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/errors"
	"github.com/standardbeagle/stylefire/internal/source"
)

// SetValue rewrites the value of a declaration or a variable definition
func (t *Tree) SetValue(target source.Element, value string) error {
	if target == nil || !target.IsValid() {
		return errors.NewStaleReferenceError("set value", "element", elementPath(target))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch v := target.(type) {
	case *Decl:
		v.value = value
	case *Def:
		if v.kind != source.SymbolVariable {
			return fmt.Errorf("cannot set value of %s %q", v.kind, v.name)
		}
		v.value = value
	default:
		return fmt.Errorf("cannot set value on %T", target)
	}
	debug.LogTree("set %s = %q\n", target.File().CanonicalPath(), value)
	return nil
}

// Replace swaps a declaration for a new one at the same position. The old
// declaration becomes invalid.
func (t *Tree) Replace(decl source.Declaration, value string, important bool) (source.Declaration, error) {
	d, ok := decl.(*Decl)
	if !ok {
		return nil, fmt.Errorf("cannot replace %T", decl)
	}
	if !d.IsValid() {
		return nil, errors.NewStaleReferenceError("replace", "declaration", elementPath(decl))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b := d.block
	for n, existing := range b.decls {
		if existing != d {
			continue
		}
		repl := &Decl{block: b, property: d.property, value: value, important: important}
		repl.valid.Store(true)
		b.decls[n] = repl
		d.valid.Store(false)
		debug.LogTree("replaced %s in %s\n", d.property, b.selector)
		return repl, nil
	}
	return nil, errors.NewStaleReferenceError("replace", "declaration", b.file.path)
}

// Delete removes a declaration from its block
func (t *Tree) Delete(decl source.Declaration) error {
	d, ok := decl.(*Decl)
	if !ok {
		return fmt.Errorf("cannot delete %T", decl)
	}
	if !d.IsValid() {
		return errors.NewStaleReferenceError("delete", "declaration", elementPath(decl))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b := d.block
	for n, existing := range b.decls {
		if existing == d {
			b.decls = append(b.decls[:n], b.decls[n+1:]...)
			break
		}
	}
	d.valid.Store(false)
	debug.LogTree("deleted %s from %s\n", d.property, b.selector)
	return nil
}

// Insert adds a declaration at an anchor. A block anchor receives the
// declaration directly; a media scope or rule list anchor receives a new
// block for selector holding it.
func (t *Tree) Insert(anchor source.Element, selector, property, value string, important bool) (source.Declaration, error) {
	if anchor == nil || !anchor.IsValid() {
		return nil, errors.NewStaleReferenceError("insert", "anchor", elementPath(anchor))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var b *Block
	switch a := anchor.(type) {
	case *Block:
		b = a
	case *Media:
		b = a.file.addBlockLocked(selector, a)
	case *RuleList:
		b = a.file.addBlockLocked(selector, nil)
	default:
		return nil, fmt.Errorf("cannot insert into %T", anchor)
	}
	d := b.addDeclLocked(property, value, important)
	debug.LogTree("inserted %s into %s (%s)\n", property, b.selector, b.file.path)
	return d, nil
}

func elementPath(e source.Element) string {
	if e == nil {
		return ""
	}
	if f := e.File(); f != nil {
		return f.CanonicalPath()
	}
	return ""
}
