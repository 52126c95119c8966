package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/standardbeagle/stylefire/internal/filter"
	"github.com/standardbeagle/stylefire/internal/incoming"
	"github.com/standardbeagle/stylefire/internal/source"
	"github.com/standardbeagle/stylefire/internal/types"
	"github.com/standardbeagle/stylefire/pkg/pathutil"

	"github.com/urfave/cli/v2"
)

// resolveCommand prints every candidate for one edit without filtering
func resolveCommand(c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}
	defer p.close()

	candidates := incoming.Candidates(p.tree, p.component.Processors(), eventFromFlags(c))
	fmt.Fprintln(c.App.Writer, p.formatter.FormatCandidates(candidates))
	return nil
}

// reduceCommand prints the filters that apply to one edit and the survivors
func reduceCommand(c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}
	defer p.close()

	var docs filter.DocumentSet
	if paths := c.StringSlice("document"); len(paths) > 0 {
		docs = documents(p, paths)
		p.component.SetDocuments(docs)
	}

	event := eventFromFlags(c)
	if c.String("format") != "json" {
		chain := filter.Build(p.cfg.Settings, p.cfg.ApplyRoutes(event), docs, p.cfg.BaseURL())
		names := chain.Strategies()
		if len(names) == 0 {
			names = []string{"none"}
		}
		fmt.Fprintf(c.App.Writer, "Filters: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintln(c.App.Writer, p.formatter.FormatCandidates(p.component.Resolve(event)))
	return nil
}

// documents resolves open document paths against the project root
func documents(p *project, paths []string) filter.Documents {
	abs := make([]string, len(paths))
	for i, path := range paths {
		if f := p.tree.File(path); f != nil {
			abs[i] = f.CanonicalPath()
		} else {
			abs[i] = path
		}
	}
	return filter.NewDocuments(abs...)
}

// symbolCommand resolves a variable or mixin from the first element of a file
func symbolCommand(c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}
	defer p.close()

	file := p.tree.File(c.String("file"))
	if file == nil {
		return fmt.Errorf("file %q is not part of the project", c.String("file"))
	}

	var usage source.Element
	for e := range p.tree.TopLevel(file) {
		usage = e
		break
	}
	if usage == nil {
		usage = file.RuleList()
	}

	name := c.String("name")
	resolve := p.component.Resolver().ResolveVariable
	if c.Bool("mixin") {
		resolve = p.component.Resolver().ResolveMixin
	}
	def, ok := resolve(usage, name)
	if !ok {
		return fmt.Errorf("%q not found from %s", name, c.String("file"))
	}

	rel := pathutil.ToRelative(def.File().CanonicalPath(), p.tree.Root())
	if c.String("format") == "json" {
		out, err := json.Marshal(map[string]string{
			"name": def.Name(),
			"kind": def.Kind().String(),
			"file": rel,
			"text": def.Text(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, string(out))
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s %s → %s: %s\n", def.Kind(), def.Name(), rel, def.Text())
	return nil
}

// record is one line of a replay log: either a style edit or a named
// notification such as {"event":"refresh"}
type record struct {
	types.ChangeEvent
	Event string `json:"event,omitempty"`
}

// readRecords decodes JSON lines, skipping blank lines
func readRecords(r io.Reader, fn func(line int, rec record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Event == "" && (rec.Selector == "" || rec.Property == "") {
			return fmt.Errorf("line %d: selector and property are required", line)
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// replayCommand feeds recorded events through the component. Edits between
// notifications are resolved as one batch and merged in recorded order.
func replayCommand(c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}
	defer p.close()

	if paths := c.StringSlice("document"); len(paths) > 0 {
		p.component.SetDocuments(documents(p, paths))
	}

	in := c.App.Reader
	if c.Args().Present() {
		f, err := os.Open(c.Args().First())
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}
		defer f.Close()
		in = f
	}

	var batch []types.ChangeEvent
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := p.component.ProcessBatch(c.Context, batch)
		batch = nil
		return err
	}

	err = readRecords(in, func(_ int, rec record) error {
		if rec.Event != "" {
			if err := flush(); err != nil {
				return err
			}
			p.component.HandleEvent(types.Event{Name: rec.Event})
			return nil
		}
		batch = append(batch, rec.ChangeEvent)
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, p.formatter.Format(p.component.Model()))

	if c.Bool("apply") {
		pending := p.component.Model().CountLeafs()
		if err := p.component.Apply(); err != nil {
			return fmt.Errorf("write-back failed: %w", err)
		}
		if c.String("format") != "json" {
			fmt.Fprintf(c.App.Writer, "Applied %d changes\n", pending)
		}
	}
	if out := c.String("out"); out != "" {
		if err := p.tree.SaveTOML(out); err != nil {
			return err
		}
	}
	return nil
}
