package display

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/standardbeagle/stylefire/internal/tree"
	"github.com/standardbeagle/stylefire/pkg/pathutil"
)

// TreeFormatter formats the declaration model and candidate lists for display
type TreeFormatter struct {
	options FormatterOptions
}

// FormatterOptions controls tree formatting
type FormatterOptions struct {
	Format      string // "text", "json", "compact"
	Root        string // project root; directories are shown relative to it
	ShowKind    bool   // tag leaves as existing or new
	ShowInvalid bool   // include nodes whose source is gone
	MaxDepth    int    // 1 directories, 2 files, 3 selectors, 4 declarations
	Indent      string // Indentation string
}

// NewTreeFormatter creates a new tree formatter
func NewTreeFormatter(options FormatterOptions) *TreeFormatter {
	if options.Indent == "" {
		options.Indent = "  "
	}
	return &TreeFormatter{options: options}
}

// Node is the rendered form of one model level
type Node struct {
	Kind     string  `json:"kind"`
	Text     string  `json:"text"`
	Path     string  `json:"path,omitempty"`
	Change   string  `json:"change,omitempty"` // "existing" or "new" on leaves
	Deleted  bool    `json:"deleted,omitempty"`
	Invalid  bool    `json:"invalid,omitempty"`
	Depth    int     `json:"-"`
	Children []*Node `json:"children,omitempty"`
}

type document struct {
	Changes int     `json:"changes"`
	Files   int     `json:"files"`
	Tree    []*Node `json:"tree"`
}

// Format formats the model for display
func (tf *TreeFormatter) Format(model *tree.Model) string {
	if model == nil || model.CountLeafs() == 0 {
		return "No incoming changes"
	}
	return tf.render(tf.build(model.Directories()))
}

// FormatCandidates formats a list of paths as if they had been merged into
// an empty model
func (tf *TreeFormatter) FormatCandidates(paths []tree.DeclarationPath) string {
	if len(paths) == 0 {
		return "No candidates"
	}
	m := tree.NewModel()
	for _, p := range paths {
		m.Intersect(p)
	}
	return tf.Format(m)
}

func (tf *TreeFormatter) render(roots []*Node) string {
	switch tf.options.Format {
	case "json":
		return tf.formatJSON(roots)
	case "compact":
		return tf.formatCompact(roots)
	default:
		return tf.formatText(roots)
	}
}

func (tf *TreeFormatter) build(dirs []*tree.DirectoryNode) []*Node {
	var roots []*Node
	for _, d := range dirs {
		if !d.IsValid() && !tf.options.ShowInvalid {
			continue
		}
		dn := &Node{
			Kind:    "directory",
			Text:    pathutil.ToRelative(d.Text(), tf.options.Root),
			Path:    d.Text(),
			Invalid: !d.IsValid(),
			Depth:   1,
		}
		for _, f := range d.Files() {
			if !f.IsValid() && !tf.options.ShowInvalid {
				continue
			}
			fn := &Node{
				Kind:    "file",
				Text:    f.Text(),
				Path:    f.File().CanonicalPath(),
				Invalid: !f.IsValid(),
				Depth:   2,
			}
			for _, s := range f.Selectors() {
				if !s.IsValid() && !tf.options.ShowInvalid {
					continue
				}
				sn := &Node{Kind: "selector", Text: s.Text(), Invalid: !s.IsValid(), Depth: 3}
				for _, leaf := range s.Declarations() {
					if !leaf.IsValid() && !tf.options.ShowInvalid {
						continue
					}
					sn.Children = append(sn.Children, &Node{
						Kind:    "declaration",
						Text:    leaf.Text(),
						Change:  changeKind(leaf),
						Deleted: leaf.Deleted(),
						Invalid: !leaf.IsValid(),
						Depth:   4,
					})
				}
				fn.Children = append(fn.Children, sn)
			}
			dn.Children = append(dn.Children, fn)
		}
		roots = append(roots, dn)
	}
	return roots
}

func changeKind(leaf tree.DeclarationNode) string {
	switch leaf.(type) {
	case *tree.ExistingDeclaration:
		return "existing"
	case *tree.NewDeclaration:
		return "new"
	}
	return ""
}

func countKind(nodes []*Node, kind string) int {
	n := 0
	for _, node := range nodes {
		if node.Kind == kind {
			n++
		}
		n += countKind(node.Children, kind)
	}
	return n
}

// formatText formats the tree as ASCII art
func (tf *TreeFormatter) formatText(roots []*Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Incoming changes: %d in %d files\n\n", countKind(roots, "declaration"), countKind(roots, "file"))
	for _, r := range roots {
		tf.formatNode(&sb, r, "", true, true)
	}
	return sb.String()
}

// formatNode recursively formats a tree node
func (tf *TreeFormatter) formatNode(sb *strings.Builder, node *Node, prefix string, isLast bool, isRoot bool) {
	if tf.options.MaxDepth > 0 && node.Depth > tf.options.MaxDepth {
		return
	}

	var branch string
	switch {
	case isRoot:
		branch = "→ "
	case isLast:
		branch = "└─→ "
	default:
		branch = "├─→ "
	}

	sb.WriteString(prefix)
	sb.WriteString(branch)
	sb.WriteString(node.Text)
	if tf.options.ShowKind && node.Change != "" {
		fmt.Fprintf(sb, " [%s]", node.Change)
	}
	if node.Deleted {
		sb.WriteString(" (deleted)")
	}
	if node.Invalid {
		sb.WriteString(" (invalid)")
	}
	sb.WriteString("\n")

	for i, child := range node.Children {
		childPrefix := prefix + tf.options.Indent
		if !isRoot && !isLast {
			childPrefix = prefix + "│" + tf.options.Indent[1:]
		}
		tf.formatNode(sb, child, childPrefix, i == len(node.Children)-1, false)
	}
}

// formatCompact writes one line per leaf: file, selector and declaration
func (tf *TreeFormatter) formatCompact(roots []*Node) string {
	var lines []string
	for _, d := range roots {
		for _, f := range d.Children {
			for _, s := range f.Children {
				for _, leaf := range s.Children {
					line := fmt.Sprintf("%s → %s → %s", pathutil.ToRelative(f.Path, tf.options.Root), s.Text, leaf.Text)
					if tf.options.ShowKind {
						line += " [" + leaf.Change + "]"
					}
					lines = append(lines, line)
				}
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (tf *TreeFormatter) formatJSON(roots []*Node) string {
	doc := document{
		Changes: countKind(roots, "declaration"),
		Files:   countKind(roots, "file"),
		Tree:    roots,
	}
	out, err := json.MarshalIndent(doc, "", tf.options.Indent)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(out)
}
