package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Version is the release of stylefire. Commit and BuildDate are overridden at
// link time with -ldflags "-X".
var (
	Version   = "0.3.0"
	Commit    = ""
	BuildDate = ""
)

// Build describes the running binary.
type Build struct {
	Version   string
	Commit    string
	Modified  bool
	Date      string
	GoVersion string
	Module    string
	ID        string
}

// String renders the build on one line, leaving out unknown parts.
func (b Build) String() string {
	var sb strings.Builder
	sb.WriteString("stylefire ")
	sb.WriteString(b.Version)
	var parts []string
	if b.Commit != "" {
		commit := b.Commit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		if b.Modified {
			commit += "+dirty"
		}
		parts = append(parts, "commit "+commit)
	}
	if b.Date != "" {
		parts = append(parts, "built "+b.Date)
	}
	if b.GoVersion != "" {
		parts = append(parts, b.GoVersion)
	}
	parts = append(parts, "id "+b.ID)
	fmt.Fprintf(&sb, " (%s)", strings.Join(parts, ", "))
	return sb.String()
}

var current = sync.OnceValue(func() Build {
	info, ok := debug.ReadBuildInfo()
	return fromBuildInfo(info, ok)
})

// Current returns the build of the running binary, read once.
func Current() Build {
	return current()
}

// FullInfo is Current().String().
func FullInfo() string {
	return Current().String()
}

func fromBuildInfo(info *debug.BuildInfo, ok bool) Build {
	b := Build{Version: Version, Commit: Commit, Date: BuildDate}
	h := xxhash.New()
	_, _ = h.WriteString(b.Version)
	if ok && info != nil {
		b.GoVersion = info.GoVersion
		b.Module = info.Main.Path
		_, _ = h.WriteString(info.GoVersion)
		_, _ = h.WriteString(info.Main.Path)
		_, _ = h.WriteString(info.Main.Version)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.modified":
				b.Modified = s.Value == "true"
			case "vcs.time":
				if b.Date == "" {
					b.Date = s.Value
				}
			default:
				continue
			}
			_, _ = h.WriteString(s.Key)
			_, _ = h.WriteString(s.Value)
		}
	}
	_, _ = h.WriteString(b.Commit)
	b.ID = fmt.Sprintf("%016x", h.Sum64())
	return b
}
