/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Seednode/phylo/taxonomy"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	format string
	output string
}

func newRenderCmd(cfg *Config) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:           "render",
		Short:         "Write the taxonomy tree out as Graphviz DOT, JSON, or Newick.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderTree(cfg, opts)
		},
	}

	fs := cmd.Flags()

	fs.StringVar(&opts.format, "format", "dot", "output format, one of dot, json, newick (env: PHYLO_FORMAT)")
	fs.StringVar(&opts.output, "output", "", "output file, stdout if empty (env: PHYLO_OUTPUT)")

	bindFlags(fs)

	return cmd
}

func renderTree(cfg *Config, opts *renderOptions) error {
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout

	if opts.output != "" {
		file, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer file.Close()

		out = file
	}

	switch strings.ToLower(opts.format) {
	case "dot":
		return writeDot(out, ds.tree, ds.names)
	case "json":
		return taxonomy.WriteJSON(out, ds.tree, ds.names)
	case "newick":
		return writeNewick(out, ds.tree)
	default:
		return fmt.Errorf("invalid format %q, must be dot, json, or newick", opts.format)
	}
}

// writeDot emits a top-down Graphviz digraph, species as boxes and internal
// clades as ellipses, labeled with common names where the mapping has them.
func writeDot(w io.Writer, t *taxonomy.Tree, names taxonomy.NameMap) error {
	buffered := bufio.NewWriter(w)

	fmt.Fprintf(buffered, "digraph taxonomy {\n")
	fmt.Fprintf(buffered, "  rankdir=TB;\n")
	fmt.Fprintf(buffered, "  splines=ortho;\n")
	fmt.Fprintf(buffered, "  nodesep=0.4;\n")
	fmt.Fprintf(buffered, "  ranksep=0.6;\n")

	for i := 0; i < t.Len(); i++ {
		id := taxonomy.NodeID(i)

		name := t.Name(id)

		shape := "ellipse"
		if t.IsLeaf(id) {
			shape = "box"
		}

		label := name
		if common := names[name]; common != "" {
			label = fmt.Sprintf("%s\\n(%s)", name, common)
		}

		fmt.Fprintf(buffered, "  %s [shape=%s, label=%s];\n",
			dotQuote(name), shape, dotQuote(label))
	}

	for i := 0; i < t.Len(); i++ {
		id := taxonomy.NodeID(i)

		for _, child := range t.Children(id) {
			fmt.Fprintf(buffered, "  %s -> %s;\n",
				dotQuote(t.Name(id)), dotQuote(t.Name(child)))
		}
	}

	fmt.Fprintf(buffered, "}\n")

	return buffered.Flush()
}

func dotQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// writeNewick emits the tree in Newick notation, internal node labels
// included, terminated with a semicolon.
func writeNewick(w io.Writer, t *taxonomy.Tree) error {
	buffered := bufio.NewWriter(w)

	var write func(id taxonomy.NodeID)
	write = func(id taxonomy.NodeID) {
		children := t.Children(id)

		if len(children) > 0 {
			buffered.WriteByte('(')

			for i, child := range children {
				if i > 0 {
					buffered.WriteByte(',')
				}

				write(child)
			}

			buffered.WriteByte(')')
		}

		buffered.WriteString(newickQuote(t.Name(id)))
	}

	write(t.Root())

	buffered.WriteString(";\n")

	return buffered.Flush()
}

// newickQuote wraps labels containing Newick metacharacters in single quotes,
// doubling any embedded quote.
func newickQuote(s string) string {
	if !strings.ContainsAny(s, " \t()[]':;,") {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
