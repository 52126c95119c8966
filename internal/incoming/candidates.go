// Package incoming turns change events reported by the browser into merged
// declaration candidates. Candidates finds every source location one event
// could refer to; Component queues events, reduces their candidates and
// merges the survivors into the declaration model.
package incoming

import (
	"github.com/standardbeagle/stylefire/internal/cache"
	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/errors"
	"github.com/standardbeagle/stylefire/internal/source"
	"github.com/standardbeagle/stylefire/internal/tree"
	"github.com/standardbeagle/stylefire/internal/types"
)

// orderedSet keeps insertion order and supports removal by identity
type orderedSet[T comparable] struct {
	items   []T
	removed map[T]bool
}

func newOrderedSet[T comparable](items []T) *orderedSet[T] {
	s := &orderedSet[T]{removed: make(map[T]bool)}
	seen := make(map[T]bool, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		s.items = append(s.items, it)
	}
	return s
}

func (s *orderedSet[T]) remove(it T) { s.removed[it] = true }

func (s *orderedSet[T]) remaining() []T {
	out := make([]T, 0, len(s.items))
	for _, it := range s.items {
		if !s.removed[it] {
			out = append(out, it)
		}
	}
	return out
}

// Candidates returns every declaration path the event may refer to, in three
// groups: blocks matching the selector, then media scopes matching the media
// query that hold no such block, then files with the event's file name that
// hold no such block or media scope.
func Candidates(tr source.Tree, processors *cache.ProcessorCache, event types.ChangeEvent) []tree.DeclarationPath {
	var mediaScopes []source.MediaScope
	if event.HasMedia() {
		mp := processors.Media(event.Media)
		mediaScopes = mp.MediaScopes()
		debug.LogResolve("searched media for %q (%q), got %d results\n", mp.SearchWord(), mp.Media(), len(mediaScopes))
	}
	media := newOrderedSet(mediaScopes)

	var fileList []source.File
	if event.HasFilename() {
		fileList = tr.FindFilesByName(event.Filename)
	}
	files := newOrderedSet(fileList)

	sp := processors.Selector(event.Selector)
	blocks := sp.Blocks()
	debug.LogResolve("searched selectors for %q (%q), got %d results\n", sp.SearchWord(), sp.Selector(), len(blocks))

	var out []tree.DeclarationPath
	emit := func(p tree.DeclarationPath, ok bool) {
		if ok {
			out = append(out, p)
		}
	}

	for _, block := range blocks {
		file := block.File()
		if decl := firstDeclaration(tr, block, event.Property); decl != nil {
			emit(existingPath(decl, block, event))
		} else {
			emit(newPath(file, block, event))
		}

		files.remove(file)
		if m := block.Media(); m != nil {
			media.remove(m)
		}
	}

	for _, m := range media.remaining() {
		file := m.File()
		files.remove(file)
		emit(newPath(file, m, event))
	}

	for _, file := range files.remaining() {
		if rules := tr.FirstRuleContainer(file); rules != nil {
			emit(newPath(file, rules, event))
		}
	}

	return out
}

func firstDeclaration(tr source.Tree, block source.Block, property string) source.Declaration {
	for _, d := range tr.Declarations(block) {
		if d.Property() == property {
			return d
		}
	}
	return nil
}

func existingPath(decl source.Declaration, block source.Block, event types.ChangeEvent) (tree.DeclarationPath, bool) {
	file := decl.File()
	if !checkFile("existing path", file) {
		return tree.DeclarationPath{}, false
	}
	leaf := tree.NewExistingDeclaration(decl, event)
	return tree.NewDeclarationPath(file, event.Selector, mediaText(block), block, leaf), true
}

func newPath(file source.File, anchor source.Element, event types.ChangeEvent) (tree.DeclarationPath, bool) {
	if !checkFile("new path", file) {
		return tree.DeclarationPath{}, false
	}
	leaf := tree.NewNewDeclaration(anchor, event)
	return tree.NewDeclarationPath(file, event.Selector, mediaText(anchor), anchor, leaf), true
}

// checkFile drops paths whose file or directory went away during the search
func checkFile(op string, file source.File) bool {
	if source.IsValidFile(file) {
		return true
	}
	var err *errors.StaleReferenceError
	switch {
	case file == nil:
		err = errors.NewStaleReferenceError(op, "file", "")
	case !file.IsValid():
		err = errors.NewStaleReferenceError(op, "file", file.CanonicalPath())
	case file.Parent() == nil:
		err = errors.NewStaleReferenceError(op, "directory", "")
	default:
		err = errors.NewStaleReferenceError(op, "directory", file.Parent().Path())
	}
	debug.Warn("RESOLVE", "%v\n", err)
	return false
}

func mediaText(anchor source.Element) string {
	if m := source.EnclosingMedia(anchor); m != nil {
		return m.Query()
	}
	return ""
}
