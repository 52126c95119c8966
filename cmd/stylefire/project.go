package main

import (
	"fmt"
	"path/filepath"

	"github.com/standardbeagle/stylefire/internal/config"
	"github.com/standardbeagle/stylefire/internal/display"
	"github.com/standardbeagle/stylefire/internal/incoming"
	"github.com/standardbeagle/stylefire/internal/memtree"
	"github.com/standardbeagle/stylefire/internal/types"

	"github.com/urfave/cli/v2"
)

const defaultSnapshot = "stylefire.toml"

// project is one loaded session: configuration, source tree and the
// component driving it
type project struct {
	cfg       *config.Config
	tree      *memtree.Tree
	component *incoming.Component
	formatter *display.TreeFormatter
}

// loadProject reads the configuration under --root and the project snapshot.
// The snapshot's root becomes the project root so file URLs line up with
// the loaded files.
func loadProject(c *cli.Context) (*project, error) {
	root, err := filepath.Abs(c.String("root"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", c.String("root"), err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", root, err)
	}

	snapshot := c.String("snapshot")
	if snapshot == "" {
		snapshot = filepath.Join(root, defaultSnapshot)
	}
	tr, err := memtree.LoadTOML(snapshot)
	if err != nil {
		return nil, err
	}
	cfg.Project.Root = tr.Root()

	p := &project{
		cfg:       cfg,
		tree:      tr,
		component: incoming.NewComponent(cfg, tr, tr),
		formatter: display.NewTreeFormatter(display.FormatterOptions{
			Format:   c.String("format"),
			Root:     tr.Root(),
			ShowKind: true,
		}),
	}
	return p, nil
}

func (p *project) close() {
	p.component.Stop()
}

func eventFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "selector", Usage: "Selector of the edited rule", Required: true},
		&cli.StringFlag{Name: "property", Usage: "Edited property", Required: true},
		&cli.StringFlag{Name: "value", Usage: "New value"},
		&cli.StringFlag{Name: "media", Usage: "Media query enclosing the rule"},
		&cli.StringFlag{Name: "file", Usage: "Stylesheet file name reported by the browser"},
		&cli.StringFlag{Name: "path", Usage: "Served URL path of the stylesheet"},
		&cli.BoolFlag{Name: "important", Usage: "The value carries !important"},
		&cli.BoolFlag{Name: "deleted", Usage: "The declaration was removed"},
	}
}

func eventFromFlags(c *cli.Context) types.ChangeEvent {
	return types.ChangeEvent{
		Selector:  c.String("selector"),
		Property:  c.String("property"),
		Value:     c.String("value"),
		Media:     c.String("media"),
		Filename:  c.String("file"),
		Path:      c.String("path"),
		Important: c.Bool("important"),
		Deleted:   c.Bool("deleted"),
	}
}
