package config

import (
	"strings"

	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/types"
	"github.com/standardbeagle/stylefire/pkg/pathutil"
)

// ApplyRoutes rewrites the event's served path through the route with the
// longest matching URL prefix. Unmatched paths are returned as they are.
func (c *Config) ApplyRoutes(event types.ChangeEvent) types.ChangeEvent {
	if event.Path == "" || len(c.Routes) == 0 {
		return event
	}

	best := -1
	for i, r := range c.Routes {
		if !strings.HasPrefix(event.Path, r.URLPrefix) {
			continue
		}
		if best < 0 || len(r.URLPrefix) > len(c.Routes[best].URLPrefix) {
			best = i
		}
	}
	if best < 0 {
		return event
	}

	r := c.Routes[best]
	routed := r.PathPrefix + strings.TrimPrefix(event.Path, r.URLPrefix)
	debug.LogResolve("route %s -> %s\n", event.Path, routed)
	return event.WithPath(routed)
}

// BaseURL is the location routed paths are appended to. Unless configured it
// is the file URL of the project root.
func (c *Config) BaseURL() string {
	if c.Project.BaseURL != "" {
		return c.Project.BaseURL
	}
	return pathutil.FileURL(c.Project.Root)
}
