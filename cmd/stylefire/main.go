package main

import (
	"fmt"
	"io"
	"os"

	"github.com/standardbeagle/stylefire/internal/debug"
	"github.com/standardbeagle/stylefire/internal/version"

	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp(os.Stdin, os.Stdout)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command line application reading events from in and
// writing results to out
func newApp(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:                   "stylefire",
		Usage:                  "Map browser style edits back to stylesheet sources",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Reader:                 in,
		Writer:                 out,
		ErrWriter:              os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (holds .stylefire.kdl)",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:    "snapshot",
				Aliases: []string{"s"},
				Usage:   "Project snapshot (TOML); defaults to " + defaultSnapshot + " under the root",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text, json or compact",
				Value: "text",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug output to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			switch c.String("format") {
			case "text", "json", "compact":
			default:
				return fmt.Errorf("unknown format %q", c.String("format"))
			}
			if c.Bool("debug") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(os.Stderr)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "resolve",
				Usage:     "List every candidate location for a style edit, before filtering",
				ArgsUsage: " ",
				Flags:     eventFlags(),
				Action:    resolveCommand,
			},
			{
				Name:      "reduce",
				Usage:     "Resolve a style edit and apply the enabled filters",
				ArgsUsage: " ",
				Flags: append(eventFlags(), &cli.StringSliceFlag{
					Name:  "document",
					Usage: "Path of a document open in the editor (repeatable)",
				}),
				Action: reduceCommand,
			},
			{
				Name:      "symbol",
				Usage:     "Find the definition of a variable or mixin as seen from a file",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "File containing the usage", Required: true},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Variable or mixin name", Required: true},
					&cli.BoolFlag{Name: "mixin", Usage: "Look up a mixin instead of a variable"},
				},
				Action: symbolCommand,
			},
			{
				Name:      "replay",
				Usage:     "Replay recorded browser events (JSON lines) into the change model",
				ArgsUsage: "[events.jsonl]",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "document", Usage: "Path of a document open in the editor (repeatable)"},
					&cli.BoolFlag{Name: "apply", Usage: "Write the accepted changes back into the project"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the updated project snapshot to this file"},
				},
				Action: replayCommand,
			},
			{
				Name:      "watch",
				Usage:     "Process events from stdin while watching the project for changes",
				ArgsUsage: " ",
				Action:    watchCommand,
			},
			{
				Name:  "version",
				Usage: "Show detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version.FullInfo())
					return nil
				},
			},
		},
	}
}
