// Package pathutil provides utilities for converting between absolute paths,
// project-relative paths and file URLs.
//
// Architecture Pattern:
// stylefire keeps canonical absolute paths internally so that the same file is
// always recognised as the same entry. Output shown to users uses paths relative
// to the project root, and route matching compares file URLs.
package pathutil

import (
	"path"
	"path/filepath"
	"strings"
)

// FileScheme is the URL scheme used for local project files
const FileScheme = "file://"

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/srv/site/css/app.css", "/srv/site") → "css/app.css"
//   - ToRelative("/other/location/base.less", "/srv/site") → "/other/location/base.less" (outside root)
//   - ToRelative("css/app.css", "/srv/site") → "css/app.css" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}

	// Outside the root the absolute path is clearer
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// Canonical cleans a path and converts it to forward slashes so that paths
// coming from different sources compare equal.
func Canonical(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(filepath.ToSlash(p))
}

// FileURL returns the file:// URL of a canonical path
func FileURL(p string) string {
	if p == "" {
		return ""
	}
	p = Canonical(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return FileScheme + p
}

// JoinURL appends a route path to a base location URL without doubling or
// dropping the separating slash.
//
// Examples:
//   - JoinURL("file:///srv/site", "/css/app.css") → "file:///srv/site/css/app.css"
//   - JoinURL("file:///srv/site/", "css/app.css") → "file:///srv/site/css/app.css"
func JoinURL(base, routePath string) string {
	if routePath == "" {
		return base
	}
	if base == "" {
		return routePath
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(routePath, "/")
}
