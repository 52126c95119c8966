package memtree

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/errors"
)

// snapshot is the on-disk TOML layout of a project
type snapshot struct {
	Root    string         `toml:"root"`
	Exclude []string       `toml:"exclude"`
	Files   []snapshotFile `toml:"file"`
}

type snapshotFile struct {
	Path          string          `toml:"path"`
	Imports       []string        `toml:"imports"`
	RuleContainer bool            `toml:"rule_container"`
	Variables     []snapshotDef   `toml:"variable"`
	Mixins        []snapshotDef   `toml:"mixin"`
	Blocks        []snapshotBlock `toml:"block"`
}

type snapshotDef struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

type snapshotBlock struct {
	Selector     string         `toml:"selector"`
	Media        string         `toml:"media"`
	Declarations []snapshotDecl `toml:"declarations"`
}

type snapshotDecl struct {
	Property  string `toml:"property"`
	Value     string `toml:"value"`
	Important bool   `toml:"important"`
}

// LoadTOML reads a project snapshot. A snapshot without a root is rooted at
// the directory containing the file.
func LoadTOML(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFixtureError(path, err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		abs = filepath.Dir(path)
	}
	t, err := parse(data, abs)
	if err != nil {
		return nil, errors.NewFixtureError(path, err)
	}
	return t, nil
}

// Parse builds a tree from snapshot bytes. defaultRoot is used when the
// snapshot does not name one.
func Parse(data []byte, defaultRoot string) (*Tree, error) {
	t, err := parse(data, defaultRoot)
	if err != nil {
		return nil, errors.NewFixtureError("<inline>", err)
	}
	return t, nil
}

func parse(data []byte, defaultRoot string) (*Tree, error) {
	var snap snapshot
	if err := toml.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	for _, pattern := range snap.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	root := snap.Root
	if root == "" {
		root = defaultRoot
	}
	t := New(filepath.ToSlash(root))

	for i, sf := range snap.Files {
		if sf.Path == "" {
			return nil, fmt.Errorf("file entry %d has no path", i)
		}
		if excluded(snap.Exclude, sf.Path) {
			debug.LogTree("snapshot: excluded %s\n", sf.Path)
			continue
		}
		if err := loadFile(t, sf); err != nil {
			return nil, fmt.Errorf("%s: %w", sf.Path, err)
		}
	}
	debug.LogTree("snapshot: loaded %d files under %s\n", len(t.Files()), t.Root())
	return t, nil
}

func loadFile(t *Tree, sf snapshotFile) error {
	f := t.AddFile(sf.Path)
	for _, uri := range sf.Imports {
		f.AddImport(uri)
	}
	for _, v := range sf.Variables {
		if v.Name == "" {
			return fmt.Errorf("variable without name")
		}
		f.AddVariable(v.Name, v.Value)
	}
	for _, m := range sf.Mixins {
		if m.Name == "" {
			return fmt.Errorf("mixin without name")
		}
		f.AddMixin(m.Name)
	}
	if sf.RuleContainer {
		f.RuleList()
	}
	for _, sb := range sf.Blocks {
		if sb.Selector == "" {
			return fmt.Errorf("block without selector")
		}
		var b *Block
		if sb.Media != "" {
			b = f.AddMedia(sb.Media).AddBlock(sb.Selector)
		} else {
			b = f.AddBlock(sb.Selector)
		}
		for _, d := range sb.Declarations {
			if d.Property == "" {
				return fmt.Errorf("declaration without property in %q", sb.Selector)
			}
			b.AddDecl(d.Property, d.Value, d.Important)
		}
	}
	return nil
}

func excluded(patterns []string, relPath string) bool {
	slashed := filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return true
		}
	}
	return false
}
