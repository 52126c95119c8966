package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/stylefire/internal/config"
	"github.com/standardbeagle/stylefire/internal/memtree"
	"github.com/standardbeagle/stylefire/internal/tree"
	"github.com/standardbeagle/stylefire/internal/types"
)

const mobile = "screen and (max-width: 600px)"

type candidates struct {
	tree    *memtree.Tree
	paths   []tree.DeclarationPath
	matched tree.DeclarationPath
}

// newCandidates builds three .foo { color } candidates: app.css at top level,
// app.css inside the mobile media query, and theme.css inside the same query.
func newCandidates() candidates {
	tr := memtree.New("/srv/site")
	ev := types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red"}

	app := tr.AddFile("css/app.css")
	top := app.AddBlock(".foo")
	inMedia := app.AddMedia(mobile).AddBlock(".foo")
	theme := tr.AddFile("css/theme.css")
	themed := theme.AddMedia(mobile).AddBlock(".foo")

	path := func(f *memtree.File, b *memtree.Block, media string) tree.DeclarationPath {
		d := b.AddDecl("color", "blue", false)
		return tree.NewDeclarationPath(f, ".foo", media, b, tree.NewExistingDeclaration(d, ev))
	}
	matched := path(app, inMedia, mobile)
	return candidates{
		tree:    tr,
		paths:   []tree.DeclarationPath{path(app, top, ""), matched, path(theme, themed, mobile)},
		matched: matched,
	}
}

func TestMediaAndFileReduceKeepSingleMatch(t *testing.T) {
	c := newCandidates()
	event := types.ChangeEvent{Media: "screen  and\n(max-width: 600px)", Filename: "app.css"}
	settings := config.Settings{MediaReduce: true, FileReduce: true}

	got := Build(settings, event, nil, "").Reduce(c.paths)
	require.Len(t, got, 1)
	assert.Same(t, c.matched.Declaration, got[0].Declaration)
}

func TestReduceIsSubset(t *testing.T) {
	events := []types.ChangeEvent{
		{},
		{Media: mobile},
		{Filename: "theme.css"},
		{Media: mobile, Filename: "missing.css"},
		{Path: "/css/app.css"},
	}
	for mask := range 16 {
		settings := config.Settings{
			MediaReduce:            mask&1 != 0,
			FileReduce:             mask&2 != 0,
			CurrentDocumentsReduce: mask&4 != 0,
			UseRoutes:              mask&8 != 0,
		}
		for i, ev := range events {
			t.Run(fmt.Sprintf("mask%d/event%d", mask, i), func(t *testing.T) {
				c := newCandidates()
				original := append([]tree.DeclarationPath(nil), c.paths...)
				docs := NewDocuments("/srv/site/css/theme.css")

				got := Build(settings, ev, docs, c.tree.BaseURL()).Reduce(c.paths)
				assert.LessOrEqual(t, len(got), len(original))
				for _, p := range got {
					assert.Contains(t, original, p)
				}
			})
		}
	}
}

func TestReducePreservesOrder(t *testing.T) {
	c := newCandidates()
	got := NewMediaReduce(mobile).Reduce(c.paths)
	require.Len(t, got, 2)
	assert.Equal(t, "app.css", got[0].File.File().Name())
	assert.Equal(t, "theme.css", got[1].File.File().Name())
}

func TestEmptyInputIsNoOp(t *testing.T) {
	strategies := []ReduceStrategy{
		NewMediaReduce(mobile),
		NewFileReduce("app.css"),
		NewCurrentDocumentsReduce(nil),
		NewURLReduce("file:///srv/site", "/css/app.css"),
		NewChain(NewMediaReduce("")),
	}
	for _, s := range strategies {
		t.Run(s.Name(), func(t *testing.T) {
			assert.Empty(t, s.Reduce(nil))
			assert.Empty(t, s.Reduce([]tree.DeclarationPath{}))
		})
	}
}

func TestMediaReduceWithoutMediaKeepsTopLevel(t *testing.T) {
	c := newCandidates()
	got := NewMediaReduce("").Reduce(c.paths)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Selector.Media())
}

func TestFileReduceWithoutFilenameIsNoOp(t *testing.T) {
	c := newCandidates()
	assert.Len(t, NewFileReduce("").Reduce(c.paths), 3)
}

func TestCurrentDocumentsReduce(t *testing.T) {
	c := newCandidates()
	got := NewCurrentDocumentsReduce(NewDocuments("/srv/site/css/./theme.css")).Reduce(c.paths)
	require.Len(t, got, 1)
	assert.Equal(t, "theme.css", got[0].File.File().Name())

	c = newCandidates()
	assert.Empty(t, NewCurrentDocumentsReduce(nil).Reduce(c.paths))
}

func TestURLReduce(t *testing.T) {
	u := NewURLReduce("file:///srv/site/", "/css/app.css")
	assert.Equal(t, "file:///srv/site/css/app.css", u.URL())

	c := newCandidates()
	got := u.Reduce(c.paths)
	require.Len(t, got, 2)
	for _, p := range got {
		assert.Equal(t, "app.css", p.File.File().Name())
	}
}

func TestBuildOrder(t *testing.T) {
	all := config.Settings{MediaReduce: true, FileReduce: true, CurrentDocumentsReduce: true, UseRoutes: true}
	chain := Build(all, types.ChangeEvent{}, nil, "file:///srv/site")
	assert.Equal(t, []string{"media", "file", "current-documents", "url"}, chain.Strategies())

	chain = Build(all, types.ChangeEvent{}, nil, "")
	assert.Equal(t, []string{"media", "file", "current-documents"}, chain.Strategies(), "url needs a base")

	chain = Build(config.Settings{}, types.ChangeEvent{}, nil, "file:///srv/site")
	assert.Zero(t, chain.Len())

	c := newCandidates()
	assert.Len(t, chain.Reduce(c.paths), 3, "an empty chain keeps everything")
}
