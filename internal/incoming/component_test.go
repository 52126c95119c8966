package incoming

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/stylefire/internal/config"
	"github.com/standardbeagle/stylefire/internal/filter"
	"github.com/standardbeagle/stylefire/internal/memtree"
	"github.com/standardbeagle/stylefire/internal/tree"
	"github.com/standardbeagle/stylefire/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingView struct{ expanded atomic.Int32 }

func (v *countingView) ExpandAll() { v.expanded.Add(1) }

func newComponent(t *testing.T, tr *memtree.Tree, mutate func(*config.Config)) *Component {
	t.Helper()
	cfg := config.Default(tr.Root())
	cfg.Cache.CleanupIntervalSeconds = 3600
	if mutate != nil {
		mutate(cfg)
	}
	c := NewComponent(cfg, tr, tr)
	t.Cleanup(c.Stop)
	return c
}

// mediaProject has .foo { color } at top level in app.css and theme.css and
// inside a print media query in app.css.
func mediaProject() *memtree.Tree {
	tr := memtree.New("/srv/site")
	app := tr.AddFile("css/app.css")
	app.AddBlock(".foo").AddDecl("color", "blue", false)
	app.AddMedia("print").AddBlock(".foo").AddDecl("color", "black", false)
	tr.AddFile("css/theme.css").AddBlock(".foo").AddDecl("color", "navy", false)
	return tr
}

func TestProcessChangeReducesByMediaAndFile(t *testing.T) {
	c := newComponent(t, mediaProject(), nil)

	event := types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red", Media: "print", Filename: "app.css"}
	survivors := c.ProcessChange(event)
	require.Len(t, survivors, 1)
	assert.Equal(t, "print", survivors[0].Selector.Media())
	assert.Equal(t, "app.css", survivors[0].File.File().Name())
	assert.Equal(t, 1, c.Model().CountLeafs())
}

func TestProcessChangeWithoutFilters(t *testing.T) {
	c := newComponent(t, mediaProject(), func(cfg *config.Config) {
		cfg.Settings.MediaReduce = false
		cfg.Settings.FileReduce = false
	})

	survivors := c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red"})
	assert.Len(t, survivors, 3)
	assert.Equal(t, 3, c.Model().CountLeafs())

	c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "green"})
	assert.Equal(t, 3, c.Model().CountLeafs(), "existing leaves are updated in place")
	for _, p := range c.Model().Paths() {
		assert.Equal(t, "green", p.Declaration.Value())
	}
}

func TestProcessChangeUsesRoutes(t *testing.T) {
	c := newComponent(t, mediaProject(), func(cfg *config.Config) {
		cfg.Settings.MediaReduce = false
		cfg.Settings.FileReduce = false
		cfg.Settings.UseRoutes = true
		cfg.Routes = []config.Route{{URLPrefix: "/static/", PathPrefix: "/css/"}}
	})

	survivors := c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red", Path: "/static/theme.css"})
	require.Len(t, survivors, 1)
	assert.Equal(t, "theme.css", survivors[0].File.File().Name())
}

func TestProcessChangeCurrentDocuments(t *testing.T) {
	c := newComponent(t, mediaProject(), func(cfg *config.Config) {
		cfg.Settings.MediaReduce = false
		cfg.Settings.CurrentDocumentsReduce = true
	})
	c.SetDocuments(filter.NewDocuments("/srv/site/css/theme.css"))

	survivors := c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red"})
	require.Len(t, survivors, 1)
	assert.Equal(t, "theme.css", survivors[0].File.File().Name())
}

func TestAutoExpand(t *testing.T) {
	view := &countingView{}
	c := newComponent(t, mediaProject(), nil)
	c.SetView(view)

	c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red"})
	assert.EqualValues(t, 1, view.expanded.Load())

	next := *c.Config()
	next.Settings.AutoExpand = false
	c.UpdateConfig(&next)
	c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red"})
	assert.EqualValues(t, 1, view.expanded.Load())
}

func TestQueueProcessesInOrder(t *testing.T) {
	c := newComponent(t, mediaProject(), nil)

	done := make(chan string, 3)
	c.SetOnProcessed(func(event types.ChangeEvent, _ []tree.DeclarationPath) {
		done <- event.Value
	})
	c.Start()
	c.Start()

	ctx := context.Background()
	for _, v := range []string{"red", "green", "blue"} {
		require.NoError(t, c.Submit(ctx, types.ChangeEvent{Selector: ".foo", Property: "color", Value: v}))
	}

	var order []string
	for range 3 {
		select {
		case v := <-done:
			order = append(order, v)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for queued events")
		}
	}
	assert.Equal(t, []string{"red", "green", "blue"}, order)
	assert.EqualValues(t, 3, c.Processed())

	paths := c.Model().Paths()
	require.Len(t, paths, 2, "top-level .foo in app.css and theme.css")
	for _, p := range paths {
		assert.Equal(t, "blue", p.Declaration.Value(), "the last event wins")
	}
}

func TestSubmitAfterStop(t *testing.T) {
	c := newComponent(t, mediaProject(), nil)
	c.Start()
	c.Stop()
	c.Stop()

	err := c.Submit(context.Background(), types.ChangeEvent{Selector: ".foo"})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestSubmitBlocksWhenFull(t *testing.T) {
	c := newComponent(t, mediaProject(), func(cfg *config.Config) { cfg.Queue.Size = 1 })

	require.NoError(t, c.Submit(context.Background(), types.ChangeEvent{Selector: ".foo"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Submit(ctx, types.ChangeEvent{Selector: ".foo"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProcessBatchMatchesSequential(t *testing.T) {
	var events []types.ChangeEvent
	for i := range 20 {
		events = append(events, types.ChangeEvent{Selector: ".foo", Property: "color", Value: fmt.Sprintf("#%03d", i)})
		events = append(events, types.ChangeEvent{Selector: ".foo", Property: fmt.Sprintf("--p%d", i%4), Value: "1"})
	}
	noFilters := func(cfg *config.Config) {
		cfg.Settings.MediaReduce = false
		cfg.Settings.FileReduce = false
		cfg.Queue.Workers = 4
	}

	batch := newComponent(t, mediaProject(), noFilters)
	require.NoError(t, batch.ProcessBatch(context.Background(), events))

	seq := newComponent(t, mediaProject(), noFilters)
	for _, ev := range events {
		seq.ProcessChange(ev)
	}

	assert.Equal(t, seq.Model().CountLeafs(), batch.Model().CountLeafs())
	var want, got []string
	for _, p := range seq.Model().Paths() {
		want = append(want, p.String())
	}
	for _, p := range batch.Model().Paths() {
		got = append(got, p.String())
	}
	assert.Equal(t, want, got)
}

func TestProcessBatchCancelled(t *testing.T) {
	c := newComponent(t, mediaProject(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.ProcessBatch(ctx, []types.ChangeEvent{{Selector: ".foo", Property: "color"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, c.Model().CountLeafs())
}

func TestRefreshClearsWhenAutoClear(t *testing.T) {
	c := newComponent(t, mediaProject(), nil)
	c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red"})
	require.NotZero(t, c.Model().CountLeafs())

	c.HandleEvent(types.Event{Name: "reload"})
	assert.NotZero(t, c.Model().CountLeafs(), "only refresh clears")

	c.HandleEvent(types.Event{Name: types.EventRefresh})
	assert.Zero(t, c.Model().CountLeafs())
}

func TestRefreshKeepsModelWithoutAutoClear(t *testing.T) {
	c := newComponent(t, mediaProject(), func(cfg *config.Config) { cfg.Settings.AutoClear = false })
	c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red"})

	c.HandleEvent(types.Event{Name: types.EventRefresh})
	assert.NotZero(t, c.Model().CountLeafs())
}

func TestSourceChangedRefreshesLeavesAndCache(t *testing.T) {
	tr := mediaProject()
	c := newComponent(t, tr, func(cfg *config.Config) {
		cfg.Settings.MediaReduce = false
		cfg.Settings.FileReduce = false
	})
	c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red"})
	before := c.Processors().Stats()

	require.True(t, tr.RemoveFile("css/theme.css"))
	assert.Equal(t, 1, c.SourceChanged())
	assert.Greater(t, c.Processors().Stats().Invalidations, before.Invalidations)

	survivors := c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red"})
	assert.Len(t, survivors, 2, "the removed file is no longer searched")
}

func TestApplyWritesBack(t *testing.T) {
	tr := memtree.New("/srv/site")
	vars := tr.AddFile("styles/vars.less")
	primary := vars.AddVariable("@primary", "#333")
	base := tr.AddFile("styles/base.less")
	base.AddImport("vars.less")
	block := base.AddBlock(".foo")
	ref := block.AddDecl("color", "@primary", false)
	margin := block.AddDecl("margin", "0", false)

	c := newComponent(t, tr, nil)
	c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "#f00", Filename: "base.less"})
	c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "margin", Value: "4px", Filename: "base.less"})
	c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "padding", Value: "2px", Filename: "base.less"})

	require.NoError(t, c.Apply())
	assert.Equal(t, "#f00", primary.Value(), "the referenced variable receives the value")
	assert.Equal(t, "@primary", ref.Value())
	assert.Equal(t, "4px", margin.Value())

	decls := tr.Declarations(block)
	require.Len(t, decls, 3)
	assert.Equal(t, "padding", decls[2].Property())
	assert.Equal(t, "2px", decls[2].Value())
}

func TestApplyWithoutVariableResolution(t *testing.T) {
	tr := memtree.New("/srv/site")
	primary := tr.AddFile("vars.less").AddVariable("@primary", "#333")
	main := tr.AddFile("main.less")
	main.AddImport("vars.less")
	ref := main.AddBlock(".foo").AddDecl("color", "@primary", false)

	c := newComponent(t, tr, func(cfg *config.Config) { cfg.Settings.ResolveVariables = false })
	c.ProcessChange(types.ChangeEvent{Selector: ".foo", Property: "color", Value: "#f00"})

	require.NoError(t, c.Apply())
	assert.Equal(t, "#333", primary.Value())
	assert.Equal(t, "#f00", ref.Value())
}

func TestApplyWithoutEditor(t *testing.T) {
	cfg := config.Default("/srv/site")
	c := NewComponent(cfg, memtree.New("/srv/site"), nil)
	defer c.Stop()
	assert.Error(t, c.Apply())
}

func TestUpdateConfigAppliesToLaterEvents(t *testing.T) {
	c := newComponent(t, mediaProject(), nil)
	event := types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red", Filename: "theme.css"}
	require.Len(t, c.Resolve(event), 1)

	next := *c.Config()
	next.Settings.FileReduce = false
	c.UpdateConfig(&next)
	assert.Same(t, &next, c.Config())
	assert.Len(t, c.Resolve(event), 2, "both top-level candidates survive without the file filter")

	c.UpdateConfig(nil)
	assert.Same(t, &next, c.Config())
}

func TestDrainWaitsForQueuedEvents(t *testing.T) {
	c := newComponent(t, mediaProject(), nil)
	c.Start()

	ctx := context.Background()
	for _, v := range []string{"red", "green"} {
		require.NoError(t, c.Submit(ctx, types.ChangeEvent{Selector: ".foo", Property: "color", Value: v}))
	}
	require.NoError(t, c.Drain(ctx))
	assert.EqualValues(t, 2, c.Processed())

	c.HandleEvent(types.Event{Name: types.EventRefresh})
	assert.Equal(t, 0, c.Model().CountLeafs())
}

func TestDrainAfterStop(t *testing.T) {
	c := newComponent(t, mediaProject(), nil)
	require.NoError(t, c.Submit(context.Background(), types.ChangeEvent{Selector: ".foo", Property: "color", Value: "red"}))
	c.Stop()
	assert.ErrorIs(t, c.Drain(context.Background()), ErrStopped)
}
