package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentIsStable(t *testing.T) {
	b := Current()
	assert.Equal(t, Version, b.Version)
	assert.Len(t, b.ID, 16)
	assert.Equal(t, b, Current())
	assert.True(t, strings.HasPrefix(FullInfo(), "stylefire "+Version+" ("))
}

func TestFromBuildInfoReadsVCSSettings(t *testing.T) {
	info := &debug.BuildInfo{
		GoVersion: "go1.24.2",
		Main:      debug.Module{Path: "github.com/standardbeagle/stylefire", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "GOOS", Value: "linux"},
		},
	}

	b := fromBuildInfo(info, true)
	assert.Equal(t, "0123456789abcdef0123", b.Commit)
	assert.True(t, b.Modified)
	assert.Equal(t, "2026-10-01T12:00:00Z", b.Date)
	assert.Equal(t, "github.com/standardbeagle/stylefire", b.Module)
	assert.Equal(t, "stylefire "+Version+" (commit 0123456789ab+dirty, built 2026-10-01T12:00:00Z, go1.24.2, id "+b.ID+")", b.String())

	clean := *info
	clean.Settings = []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef0123"}}
	other := fromBuildInfo(&clean, true)
	require.NotEqual(t, b.ID, other.ID)
	assert.False(t, other.Modified)
}

func TestFromBuildInfoWithoutInfo(t *testing.T) {
	b := fromBuildInfo(nil, false)
	assert.Empty(t, b.Commit)
	assert.Empty(t, b.GoVersion)
	assert.Equal(t, "stylefire "+Version+" (id "+b.ID+")", b.String())
	assert.Equal(t, b.ID, fromBuildInfo(nil, false).ID)
}
