// Package filter narrows a set of candidate declaration paths. Strategies are
// assembled per change event from the enabled settings and applied in a fixed
// order; every strategy keeps an exact-match subset of what it is given.
package filter

import (
	"slices"

	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/search"
	"github.com/standardbeagle/stylefire/internal/tree"
	"github.com/standardbeagle/stylefire/pkg/pathutil"
)

// ReduceStrategy narrows candidates in place and returns the shortened slice.
// The result is always a subset of the input, in input order. An empty input
// is returned unchanged.
type ReduceStrategy interface {
	Name() string
	Reduce(candidates []tree.DeclarationPath) []tree.DeclarationPath
}

func keep(candidates []tree.DeclarationPath, match func(tree.DeclarationPath) bool) []tree.DeclarationPath {
	if len(candidates) == 0 {
		return candidates
	}
	return slices.DeleteFunc(candidates, func(p tree.DeclarationPath) bool {
		return !match(p)
	})
}

// MediaReduce keeps candidates whose selector lives in the event's media
// query. An event without media keeps only candidates outside any media scope.
type MediaReduce struct {
	media string
}

// NewMediaReduce creates a media strategy
func NewMediaReduce(media string) *MediaReduce {
	return &MediaReduce{media: search.NormalizeWhitespace(media)}
}

func (m *MediaReduce) Name() string { return "media" }

func (m *MediaReduce) Reduce(candidates []tree.DeclarationPath) []tree.DeclarationPath {
	debug.LogFilter("reducing %d candidates for media %q\n", len(candidates), m.media)
	return keep(candidates, func(p tree.DeclarationPath) bool {
		return search.EqualsNormalizeWhitespace(m.media, p.Selector.Media())
	})
}

// FileReduce keeps candidates in files with the event's file name. An event
// without a file name leaves the candidates untouched.
type FileReduce struct {
	filename string
}

// NewFileReduce creates a file name strategy
func NewFileReduce(filename string) *FileReduce {
	return &FileReduce{filename: filename}
}

func (f *FileReduce) Name() string { return "file" }

func (f *FileReduce) Reduce(candidates []tree.DeclarationPath) []tree.DeclarationPath {
	debug.LogFilter("reducing %d candidates for file %q\n", len(candidates), f.filename)
	if f.filename == "" {
		return candidates
	}
	return keep(candidates, func(p tree.DeclarationPath) bool {
		return p.File.File().Name() == f.filename
	})
}

// DocumentSet answers whether a file is currently open in an editor
type DocumentSet interface {
	Contains(canonicalPath string) bool
}

// Documents is a DocumentSet over a fixed list of paths
type Documents map[string]struct{}

// NewDocuments creates a set from file paths
func NewDocuments(paths ...string) Documents {
	d := make(Documents, len(paths))
	for _, p := range paths {
		d[pathutil.Canonical(p)] = struct{}{}
	}
	return d
}

// Contains implements DocumentSet
func (d Documents) Contains(canonicalPath string) bool {
	_, ok := d[pathutil.Canonical(canonicalPath)]
	return ok
}

// CurrentDocumentsReduce keeps candidates in files that are open
type CurrentDocumentsReduce struct {
	docs DocumentSet
}

// NewCurrentDocumentsReduce creates an open-documents strategy. A nil set
// counts as no open documents.
func NewCurrentDocumentsReduce(docs DocumentSet) *CurrentDocumentsReduce {
	if docs == nil {
		docs = Documents(nil)
	}
	return &CurrentDocumentsReduce{docs: docs}
}

func (c *CurrentDocumentsReduce) Name() string { return "current-documents" }

func (c *CurrentDocumentsReduce) Reduce(candidates []tree.DeclarationPath) []tree.DeclarationPath {
	debug.LogFilter("reducing %d candidates to open documents\n", len(candidates))
	return keep(candidates, func(p tree.DeclarationPath) bool {
		return c.docs.Contains(p.File.File().CanonicalPath())
	})
}

// URLReduce keeps candidates whose file URL equals the routed URL
type URLReduce struct {
	url string
}

// NewURLReduce computes the target URL from the project base URL and the
// event's routed path
func NewURLReduce(baseURL, routePath string) *URLReduce {
	return &URLReduce{url: pathutil.JoinURL(baseURL, routePath)}
}

// URL returns the target URL
func (u *URLReduce) URL() string { return u.url }

func (u *URLReduce) Name() string { return "url" }

func (u *URLReduce) Reduce(candidates []tree.DeclarationPath) []tree.DeclarationPath {
	debug.LogFilter("reducing %d candidates for url %s\n", len(candidates), u.url)
	return keep(candidates, func(p tree.DeclarationPath) bool {
		return pathutil.FileURL(p.File.File().CanonicalPath()) == u.url
	})
}
