package types

import (
	"fmt"
	"strings"
)

// Common system-wide constants
const (
	// EventRefresh is sent by the browser side when the inspected page reloads.
	EventRefresh = "refresh"

	// DefaultQueueSize bounds the number of pending change events per project.
	DefaultQueueSize = 64
)

// ChangeEvent is one decoded style edit reported by the browser.
// Values are immutable once built; use the With* helpers to derive copies.
type ChangeEvent struct {
	Media     string `json:"media,omitempty"`    // raw media query text
	Filename  string `json:"filename,omitempty"` // target file name hint
	Selector  string `json:"selector"`
	Property  string `json:"property"`
	Value     string `json:"value"`
	Deleted   bool   `json:"deleted,omitempty"`
	Important bool   `json:"important,omitempty"`
	Path      string `json:"path,omitempty"` // route hint (served URL path)
}

// WithPath returns a copy of the event with a different route path
func (e ChangeEvent) WithPath(path string) ChangeEvent {
	e.Path = path
	return e
}

// HasMedia reports whether the edit was made inside a media query
func (e ChangeEvent) HasMedia() bool {
	return strings.TrimSpace(e.Media) != ""
}

// HasFilename reports whether the browser named the stylesheet file
func (e ChangeEvent) HasFilename() bool {
	return e.Filename != ""
}

// DeclarationText renders the edit as it would appear in a stylesheet
func (e ChangeEvent) DeclarationText() string {
	if e.Important {
		return fmt.Sprintf("%s: %s !important", e.Property, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Property, e.Value)
}

func (e ChangeEvent) String() string {
	var sb strings.Builder
	sb.WriteString("ChangeEvent{")
	if e.Media != "" {
		fmt.Fprintf(&sb, "media=%q ", e.Media)
	}
	if e.Filename != "" {
		fmt.Fprintf(&sb, "file=%q ", e.Filename)
	}
	fmt.Fprintf(&sb, "selector=%q %s", e.Selector, e.DeclarationText())
	if e.Deleted {
		sb.WriteString(" deleted")
	}
	if e.Path != "" {
		fmt.Fprintf(&sb, " path=%q", e.Path)
	}
	sb.WriteString("}")
	return sb.String()
}

// Event is a generic named notification from the browser side (e.g. "refresh")
type Event struct {
	Name string `json:"event"`
}

// IsRefresh reports whether the event signals a page reload
func (e Event) IsRefresh() bool {
	return e.Name == EventRefresh
}
