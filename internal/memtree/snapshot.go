package memtree

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/stylefire/internal/errors"
	"github.com/standardbeagle/stylefire/internal/source"
	"github.com/standardbeagle/stylefire/pkg/pathutil"
)

// MarshalTOML writes the tree's valid content in the snapshot layout read by
// LoadTOML. Blocks of a file are written top-level first, then per media
// scope, so a round trip keeps declarations but not block interleaving.
func (t *Tree) MarshalTOML() ([]byte, error) {
	t.mu.RLock()
	snap := snapshot{Root: t.root}
	for _, f := range t.files {
		if !f.IsValid() || !f.dir.IsValid() {
			continue
		}
		snap.Files = append(snap.Files, t.snapshotFileLocked(f))
	}
	t.mu.RUnlock()

	return toml.Marshal(snap)
}

// SaveTOML writes the snapshot to path
func (t *Tree) SaveTOML(path string) error {
	data, err := t.MarshalTOML()
	if err != nil {
		return errors.NewFixtureError(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewFixtureError(path, err)
	}
	return nil
}

func (t *Tree) snapshotFileLocked(f *File) snapshotFile {
	sf := snapshotFile{Path: pathutil.ToRelative(f.path, t.root)}
	for _, e := range f.top {
		if !e.IsValid() {
			continue
		}
		switch v := e.(type) {
		case *Import:
			sf.Imports = append(sf.Imports, v.uris...)
		case *Def:
			def := snapshotDef{Name: v.name, Value: v.value}
			if v.kind == source.SymbolMixin {
				sf.Mixins = append(sf.Mixins, snapshotDef{Name: v.name})
			} else {
				sf.Variables = append(sf.Variables, def)
			}
		case *RuleList:
			sf.RuleContainer = true
			for _, b := range v.blocks {
				if b.valid.Load() {
					sf.Blocks = append(sf.Blocks, snapshotBlockOf(b, ""))
				}
			}
		case *Media:
			for _, b := range v.blocks {
				if b.valid.Load() {
					sf.Blocks = append(sf.Blocks, snapshotBlockOf(b, v.query))
				}
			}
		}
	}
	return sf
}

func snapshotBlockOf(b *Block, media string) snapshotBlock {
	sb := snapshotBlock{Selector: b.selector, Media: media}
	for _, d := range b.decls {
		if !d.valid.Load() {
			continue
		}
		sb.Declarations = append(sb.Declarations, snapshotDecl{
			Property:  d.property,
			Value:     d.value,
			Important: d.important,
		})
	}
	return sb
}
