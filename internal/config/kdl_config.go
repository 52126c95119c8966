package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/stylefire/internal/debug"
)

// LoadKDL loads dir/.stylefire.kdl. A missing file is not an error: it
// returns nil, nil and the caller falls back to defaults.
func LoadKDL(dir string) (*Config, error) {
	kdlPath := filepath.Join(dir, ConfigFileName)

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}

	cfg, err := parseKDL(string(content), absOr(dir))
	if err != nil {
		return nil, err
	}

	// Relative roots are relative to the directory holding the config file
	if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Join(absOr(dir), cfg.Project.Root)
	}
	cfg.Project.Root = filepath.Clean(cfg.Project.Root)
	return cfg, nil
}

// parseKDL reads a config document on top of the defaults for defaultRoot.
//
//	project { root "."; name "site"; base_url "file:///srv/site/"; }
//	settings { media_reduce true; use_routes true; }
//	routes { route "/static/" "web/assets/"; }
//	cache { max_entries 512; ttl_seconds 300; }
//	queue { size 256; workers 8; }
//	watch { enabled true; debounce_ms 150; }
//	exclude "**/dist/**" "**/*.min.css"
func parseKDL(content, defaultRoot string) (*Config, error) {
	cfg := Default(defaultRoot)

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
				assignSimpleString(cn, "base_url", func(v string) { cfg.Project.BaseURL = v })
			}
		case "settings":
			parseSettings(n, &cfg.Settings)
		case "routes":
			for _, rn := range n.Children {
				if nodeName(rn) != "route" {
					continue
				}
				args := collectStringArgs(rn)
				if len(args) != 2 {
					return nil, fmt.Errorf("route expects a URL prefix and a path prefix, got %d arguments", len(args))
				}
				cfg.Routes = append(cfg.Routes, Route{URLPrefix: args[0], PathPrefix: args[1]})
			}
		case "cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_entries":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.MaxEntries = v
					}
				case "ttl_seconds":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.TTLSeconds = v
					}
				case "cleanup_interval_seconds":
					if v, ok := firstIntArg(cn); ok {
						cfg.Cache.CleanupIntervalSeconds = v
					}
				}
			}
		case "queue":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Queue.Size = v
					}
				case "workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Queue.Workers = v
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				}
			}
		case "exclude":
			// An exclude node replaces the default exclusions
			cfg.Exclude = collectStringArgs(n)
		default:
			debug.Warn("CONFIG", "unknown config node %q ignored\n", nodeName(n))
		}
	}

	return cfg, nil
}

func parseSettings(n *document.Node, s *Settings) {
	flags := map[string]*bool{
		"media_reduce":             &s.MediaReduce,
		"file_reduce":              &s.FileReduce,
		"current_documents_reduce": &s.CurrentDocumentsReduce,
		"use_routes":               &s.UseRoutes,
		"auto_expand":              &s.AutoExpand,
		"auto_clear":               &s.AutoClear,
		"resolve_variables":        &s.ResolveVariables,
	}
	for _, cn := range n.Children {
		target, ok := flags[nodeName(cn)]
		if !ok {
			debug.Warn("CONFIG", "unknown setting %q ignored\n", nodeName(cn))
			continue
		}
		if b, ok := firstBoolArg(cn); ok {
			*target = b
		}
	}
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// collectStringArgs accepts both the inline form (exclude "a" "b") and the
// block form (exclude { "a"; "b" }), where each child's name is the value.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
