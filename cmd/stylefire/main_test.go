package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/stylefire/internal/memtree"
	"github.com/standardbeagle/stylefire/internal/source"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// run executes the CLI in-process with stdin and returns stdout
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root, err := filepath.Abs("testdata/site")
	require.NoError(t, err)

	var out bytes.Buffer
	app := newApp(strings.NewReader(stdin), &out)
	err = app.Run(append([]string{"stylefire", "--root", root}, args...))
	return out.String(), err
}

func TestResolveListsAllCandidates(t *testing.T) {
	out, err := run(t, "", "--format", "compact", "resolve", "--selector", ".foo", "--property", "color", "--value", "red")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, out, "css/app.css → .foo → color: red [existing]")
	assert.Contains(t, out, "css/app.css → @media print { .foo } → color: red [existing]")
	assert.Contains(t, out, "css/theme.css → .foo → color: red [existing]")
}

func TestResolveNoCandidates(t *testing.T) {
	out, err := run(t, "", "resolve", "--selector", ".missing", "--property", "color")
	require.NoError(t, err)
	assert.Equal(t, "No candidates\n", out)
}

func TestReduceAppliesFilters(t *testing.T) {
	out, err := run(t, "", "reduce", "--selector", ".foo", "--property", "color", "--value", "red", "--file", "theme.css")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Filters: media, file\n"), out)
	assert.Contains(t, out, "Incoming changes: 1 in 1 files")
	assert.Contains(t, out, "theme.css (1)")
	assert.NotContains(t, out, "app.css")
}

func TestReduceJSON(t *testing.T) {
	out, err := run(t, "", "--format", "json", "reduce", "--selector", ".foo", "--property", "color", "--value", "red", "--media", "print")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{"), "json output has no filter header")
	assert.Contains(t, out, `"changes": 1`)
	assert.Contains(t, out, "@media print { .foo }")
}

func TestSymbolResolvesThroughImports(t *testing.T) {
	out, err := run(t, "", "symbol", "--file", "styles/main.less", "--name", "@primary")
	require.NoError(t, err)
	assert.Equal(t, "variable @primary → styles/vars.less: @primary: #336699\n", out)

	out, err = run(t, "", "symbol", "--file", "styles/main.less", "--name", ".rounded", "--mixin")
	require.NoError(t, err)
	assert.Contains(t, out, "mixin .rounded → styles/vars.less")
}

func TestSymbolErrors(t *testing.T) {
	_, err := run(t, "", "symbol", "--file", "styles/main.less", "--name", "@nope")
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, "", "symbol", "--file", "nope.less", "--name", "@primary")
	assert.ErrorContains(t, err, "not part of the project")
}

func TestReplayAppliesAndSaves(t *testing.T) {
	events := strings.Join([]string{
		`{"selector":".foo","property":"color","value":"green","filename":"theme.css"}`,
		`{"event":"refresh"}`,
		``,
		`{"selector":".foo","property":"color","value":"red","media":"print","filename":"app.css"}`,
	}, "\n")
	snapshot := filepath.Join(t.TempDir(), "out.toml")

	out, err := run(t, events, "replay", "--apply", "--out", snapshot)
	require.NoError(t, err)
	assert.Contains(t, out, "Incoming changes: 1 in 1 files", "refresh cleared the first edit")
	assert.Contains(t, out, "Applied 1 changes")

	back, err := memtree.LoadTOML(snapshot)
	require.NoError(t, err)
	app := back.File("css/app.css")
	require.NotNil(t, app)

	values := map[string]string{}
	for e := range back.FindByWord("foo", nil) {
		block := e.(source.Block)
		if block.File() != source.File(app) {
			continue
		}
		decls := back.Declarations(block)
		require.Len(t, decls, 1)
		key := "top"
		if block.Media() != nil {
			key = block.Media().Query()
		}
		values[key] = decls[0].Value()
	}
	assert.Equal(t, map[string]string{"top": "blue", "print": "red"}, values)
}

func TestReplayFromFile(t *testing.T) {
	log := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(log, []byte(`{"selector":".btn","property":"padding","value":"4px"}`+"\n"), 0o644))

	out, err := run(t, "", "--format", "compact", "replay", log)
	require.NoError(t, err)
	assert.Equal(t, "styles/main.less → .btn → padding: 4px [new]\n", out)
}

func TestReplayRejectsBadInput(t *testing.T) {
	_, err := run(t, "{not json", "replay")
	assert.ErrorContains(t, err, "line 1")

	_, err = run(t, `{"value":"red"}`, "replay")
	assert.ErrorContains(t, err, "selector and property are required")
}

func TestUnknownFormat(t *testing.T) {
	_, err := run(t, "", "--format", "yaml", "resolve", "--selector", ".foo", "--property", "color")
	assert.ErrorContains(t, err, "unknown format")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "stylefire "))
}
