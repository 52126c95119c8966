package tree

import (
	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/source"
	"github.com/standardbeagle/stylefire/internal/types"
)

// SourceEditor writes accepted changes back to the project
type SourceEditor interface {
	SetValue(target source.Element, value string) error
	Replace(decl source.Declaration, value string, important bool) (source.Declaration, error)
	Delete(decl source.Declaration) error
	Insert(anchor source.Element, selector, property, value string, important bool) (source.Declaration, error)
}

// VariableResolver finds the variable definition a declaration's value is a
// plain reference to. A nil resolver disables redirection.
type VariableResolver interface {
	ReferencedDefinition(decl source.Declaration) (source.Definition, bool)
}

// DeclarationNode is the leaf of a declaration path. It is exactly one of
// *ExistingDeclaration or *NewDeclaration.
type DeclarationNode interface {
	Node

	Property() string
	// Value is the pending value reported by the browser
	Value() string
	Important() bool
	Deleted() bool

	// Element is the located declaration for Existing, the anchor for New
	Element() source.Element

	// Equal reports whether two leaves denote the same source location
	Equal(other DeclarationNode) bool

	// ApplyToSource writes the pending change and returns the node that
	// represents the result in the model.
	ApplyToSource(editor SourceEditor, resolver VariableResolver) (DeclarationNode, error)

	// update overwrites the pending state from an equal leaf
	update(from DeclarationNode)
	// refresh re-reads validity from source and reports it
	refresh() bool
}

// pending is the browser-reported state shared by both variants
type pending struct {
	property  string
	value     string
	important bool
	deleted   bool
	stale     bool
}

func pendingFrom(change types.ChangeEvent) pending {
	return pending{
		property:  change.Property,
		value:     change.Value,
		important: change.Important,
		deleted:   change.Deleted,
	}
}

func (p *pending) Property() string { return p.property }
func (p *pending) Value() string { return p.value }
func (p *pending) Important() bool { return p.important }
func (p *pending) Deleted() bool { return p.deleted }

func (p *pending) update(from DeclarationNode) {
	p.value = from.Value()
	p.important = from.Important()
	p.deleted = from.Deleted()
}

func (p *pending) text() string {
	return types.ChangeEvent{Property: p.property, Value: p.value, Important: p.important}.DeclarationText()
}

// ExistingDeclaration is a change to a declaration already present in source
type ExistingDeclaration struct {
	pending
	decl source.Declaration
}

// NewExistingDeclaration wraps a located declaration with the pending change
func NewExistingDeclaration(decl source.Declaration, change types.ChangeEvent) *ExistingDeclaration {
	p := pendingFrom(change)
	p.property = decl.Property()
	return &ExistingDeclaration{pending: p, decl: decl}
}

// Declaration returns the located source declaration
func (e *ExistingDeclaration) Declaration() source.Declaration { return e.decl }

func (e *ExistingDeclaration) Element() source.Element { return e.decl }
func (e *ExistingDeclaration) Text() string { return e.text() }

func (e *ExistingDeclaration) IsValid() bool {
	return !e.stale && e.decl.IsValid()
}

func (e *ExistingDeclaration) refresh() bool {
	e.stale = !e.decl.IsValid()
	return !e.stale
}

// Equal matches another Existing leaf wrapping the same declaration
func (e *ExistingDeclaration) Equal(other DeclarationNode) bool {
	o, ok := other.(*ExistingDeclaration)
	return ok && o.decl == e.decl
}

// ApplyToSource deletes, rewrites or replaces the declaration. A value that is
// a plain variable reference is written to the variable's definition instead
// when resolver is set.
func (e *ExistingDeclaration) ApplyToSource(editor SourceEditor, resolver VariableResolver) (DeclarationNode, error) {
	if e.deleted {
		debug.LogTree("apply: delete %s\n", e.decl.Text())
		return e, editor.Delete(e.decl)
	}

	if e.important == e.decl.Important() {
		if resolver != nil {
			if def, ok := resolver.ReferencedDefinition(e.decl); ok {
				debug.LogTree("apply: %s redirected to %s\n", e.property, def.Name())
				return e, editor.SetValue(def, e.value)
			}
		}
		return e, editor.SetValue(e.decl, e.value)
	}

	replaced, err := editor.Replace(e.decl, e.value, e.important)
	if err != nil {
		return e, err
	}
	e.decl = replaced
	return e, nil
}

// NewDeclaration is a change that has no declaration in source yet and will
// be inserted at its anchor: a block, a media scope or a rule container.
type NewDeclaration struct {
	pending
	anchor   source.Element
	selector string
}

// NewNewDeclaration creates an insertion leaf anchored at anchor
func NewNewDeclaration(anchor source.Element, change types.ChangeEvent) *NewDeclaration {
	return &NewDeclaration{pending: pendingFrom(change), anchor: anchor, selector: change.Selector}
}

// Anchor returns the element the declaration will be inserted into
func (n *NewDeclaration) Anchor() source.Element { return n.anchor }

// Selector returns the selector a new block is created for when the anchor
// is not a block
func (n *NewDeclaration) Selector() string { return n.selector }

func (n *NewDeclaration) Element() source.Element { return n.anchor }
func (n *NewDeclaration) Text() string { return n.text() }

func (n *NewDeclaration) IsValid() bool {
	return !n.stale && n.anchor.IsValid()
}

func (n *NewDeclaration) refresh() bool {
	n.stale = !n.anchor.IsValid()
	return !n.stale
}

// Equal is identity: every insertion is distinct
func (n *NewDeclaration) Equal(other DeclarationNode) bool {
	o, ok := other.(*NewDeclaration)
	return ok && o == n
}

// ApplyToSource inserts the declaration and returns an Existing leaf for it.
// A deleted insertion has nothing to write.
func (n *NewDeclaration) ApplyToSource(editor SourceEditor, _ VariableResolver) (DeclarationNode, error) {
	if n.deleted {
		return n, nil
	}
	decl, err := editor.Insert(n.anchor, n.selector, n.property, n.value, n.important)
	if err != nil {
		return n, err
	}
	debug.LogTree("apply: inserted %s\n", decl.Text())
	existing := &ExistingDeclaration{pending: n.pending, decl: decl}
	return existing, nil
}

var (
	_ DeclarationNode = (*ExistingDeclaration)(nil)
	_ DeclarationNode = (*NewDeclaration)(nil)
)
