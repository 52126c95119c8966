package config

import (
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	stylefireerrors "github.com/standardbeagle/stylefire/internal/errors"
)

// Validator validates configuration and sets defaults for unset values
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates cfg in place, filling in zero values first
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	v.setDefaults(cfg)

	if err := v.validateProject(&cfg.Project); err != nil {
		return stylefireerrors.NewConfigError("project", cfg.Project.Root, err)
	}
	if err := v.validateCache(&cfg.Cache); err != nil {
		return stylefireerrors.NewConfigError("cache", "", err)
	}
	if err := v.validateQueue(&cfg.Queue); err != nil {
		return stylefireerrors.NewConfigError("queue", "", err)
	}
	if cfg.Watch.DebounceMs < 0 {
		return stylefireerrors.NewConfigError("watch.debounce_ms", fmt.Sprint(cfg.Watch.DebounceMs),
			errors.New("debounce cannot be negative"))
	}
	for _, r := range cfg.Routes {
		if err := v.validateRoute(r); err != nil {
			return stylefireerrors.NewConfigError("routes", r.URLPrefix, err)
		}
	}
	for _, p := range cfg.Exclude {
		if !doublestar.ValidatePattern(p) {
			return stylefireerrors.NewConfigError("exclude", p, errors.New("invalid glob pattern"))
		}
	}
	return nil
}

func (v *Validator) validateProject(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}
	if project.BaseURL != "" {
		u, err := url.Parse(project.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
		if u.Scheme == "" {
			return fmt.Errorf("base_url %q has no scheme", project.BaseURL)
		}
		// candidates are matched by the file URL of their stylesheet
		if u.Scheme != "file" {
			return fmt.Errorf("base_url %q must be a file:// location", project.BaseURL)
		}
	}
	return nil
}

func (v *Validator) validateCache(c *Cache) error {
	if c.MaxEntries < 0 {
		return fmt.Errorf("MaxEntries cannot be negative, got %d", c.MaxEntries)
	}
	if c.TTLSeconds < 0 {
		return fmt.Errorf("TTLSeconds cannot be negative, got %d", c.TTLSeconds)
	}
	if c.CleanupIntervalSeconds < 0 {
		return fmt.Errorf("CleanupIntervalSeconds cannot be negative, got %d", c.CleanupIntervalSeconds)
	}
	return nil
}

func (v *Validator) validateQueue(q *Queue) error {
	if q.Size <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", q.Size)
	}
	if q.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", q.Workers)
	}
	return nil
}

func (v *Validator) validateRoute(r Route) error {
	if !strings.HasPrefix(r.URLPrefix, "/") {
		return fmt.Errorf("route URL prefix %q must start with /", r.URLPrefix)
	}
	if r.PathPrefix == "" {
		return fmt.Errorf("route %q has an empty path prefix", r.URLPrefix)
	}
	return nil
}

func (v *Validator) setDefaults(cfg *Config) {
	if cfg.Project.Name == "" && cfg.Project.Root != "" {
		cfg.Project.Name = Default(cfg.Project.Root).Project.Name
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = max(1, runtime.NumCPU()-1)
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
