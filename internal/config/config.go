package config

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/standardbeagle/stylefire/internal/types"
)

// ConfigFileName is the per-project (and per-user, in $HOME) config file
const ConfigFileName = ".stylefire.kdl"

type Config struct {
	Version  int
	Project  Project
	Settings Settings
	Routes   []Route
	Cache    Cache
	Queue    Queue
	Watch    Watch
	Exclude  []string
}

type Project struct {
	Root    string
	Name    string
	BaseURL string // location routed URL paths are resolved against; defaults to file://<root>
}

// Settings are the switches that shape how an incoming change is resolved
// and merged.
type Settings struct {
	MediaReduce            bool // keep candidates in the event's media query only
	FileReduce             bool // keep candidates in the event's file only
	CurrentDocumentsReduce bool // keep candidates in open documents only
	UseRoutes              bool // keep candidates whose file URL equals the routed URL
	AutoExpand             bool // expand the view after every processed change
	AutoClear              bool // clear the model on page refresh
	ResolveVariables       bool // write values to the variable a declaration references
}

// Route maps a served URL prefix onto a project path prefix
type Route struct {
	URLPrefix  string
	PathPrefix string
}

type Cache struct {
	MaxEntries             int
	TTLSeconds             int
	CleanupIntervalSeconds int
}

type Queue struct {
	Size    int // pending change events before senders block
	Workers int // parallelism for batch resolution
}

type Watch struct {
	Enabled    bool
	DebounceMs int
}

// Default returns the configuration used when no config file exists
func Default(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{
			Root: root,
			Name: filepath.Base(root),
		},
		Settings: Settings{
			MediaReduce:      true,
			FileReduce:       true,
			AutoExpand:       true,
			AutoClear:        true,
			ResolveVariables: true,
		},
		Cache: Cache{
			MaxEntries:             256,
			TTLSeconds:             600,
			CleanupIntervalSeconds: 60,
		},
		Queue: Queue{
			Size:    types.DefaultQueueSize,
			Workers: 4,
		},
		Watch: Watch{
			Enabled:    true,
			DebounceMs: 200,
		},
		Exclude: []string{
			"**/.git/**",
			"**/node_modules/**",
			"**/bower_components/**",
			"**/*.min.css",
			"**/*.css.map",
		},
	}
}

// Load reads ~/.stylefire.kdl and <rootDir>/.stylefire.kdl. The project file
// overrides the user file except for exclusions, which are combined. Without
// either file the defaults are used.
func Load(rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	projectConfig, err := LoadKDL(searchDir)
	if err != nil {
		return nil, err
	}

	var cfg *Config
	switch {
	case baseConfig != nil && projectConfig != nil:
		cfg = mergeConfigs(baseConfig, projectConfig)
	case projectConfig != nil:
		cfg = projectConfig
	case baseConfig != nil:
		// The user file never names the project
		baseConfig.Project.Root = absOr(searchDir)
		baseConfig.Project.Name = filepath.Base(baseConfig.Project.Root)
		cfg = baseConfig
	default:
		cfg = Default(absOr(searchDir))
	}

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func absOr(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// mergeConfigs merges a base config with a project config. Project values
// win; exclusions from both are kept, base first, without duplicates.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		merged.Exclude = DeduplicatePatterns(append(slices.Clone(base.Exclude), project.Exclude...))
	}
	if len(project.Routes) == 0 && len(base.Routes) > 0 {
		merged.Routes = slices.Clone(base.Routes)
	}
	return &merged
}

// DeduplicatePatterns removes repeated patterns, keeping first occurrences
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
