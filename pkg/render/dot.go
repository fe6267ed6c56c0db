// Package render converts repack object graphs to Graphviz DOT and
// renders them to SVG or PNG. It exists for debugging and documentation:
// a quick look at the link structure usually explains why an offset
// overflowed and what the distance sort did about it.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/tablepack/pkg/repack"
)

// Options configures DOT generation.
type Options struct {
	// Detailed includes payload sizes and link attributes in labels.
	// When false, only names (or indices) are shown.
	Detailed bool

	// MarkOverflows colors links red when their offset does not fit
	// under the graph's current order.
	MarkOverflows bool
}

// ToDOT converts an object graph to Graphviz DOT format. Objects are
// drawn root-first top to bottom; narrow links are solid, wide links
// dashed. With MarkOverflows, failing links are drawn red.
func ToDOT(g *repack.Graph, opts Options) string {
	overflowing := map[[2]int]bool{}
	if opts.MarkOverflows {
		if found, err := g.Overflows(); err == nil {
			for _, o := range found {
				overflowing[[2]int{o.Parent, o.Link.Child}] = true
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for i := g.Len() - 1; i >= 0; i-- {
		obj := g.Object(i)
		fmt.Fprintf(&buf, "  %q [label=%q];\n", nodeID(obj, i), nodeLabel(obj, i, opts.Detailed))
	}

	buf.WriteString("\n")
	for i := g.Len() - 1; i >= 0; i-- {
		obj := g.Object(i)
		for _, l := range obj.Links {
			child := g.Object(l.Child)
			attrs := edgeAttrs(l, overflowing[[2]int{i, l.Child}], opts.Detailed)
			fmt.Fprintf(&buf, "  %q -> %q%s;\n", nodeID(obj, i), nodeID(child, l.Child), attrs)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(obj *repack.Object, idx int) string {
	if obj.Name != "" {
		return obj.Name
	}
	return fmt.Sprintf("obj%d", idx)
}

func nodeLabel(obj *repack.Object, idx int, detailed bool) string {
	label := nodeID(obj, idx)
	if detailed {
		label = fmt.Sprintf("%s\nindex: %d\nsize: %d", label, idx, len(obj.Payload))
	}
	return label
}

func edgeAttrs(l repack.Link, overflow, detailed bool) string {
	var attrs []string
	if l.Width == repack.Wide {
		attrs = append(attrs, "style=dashed")
	}
	if overflow {
		attrs = append(attrs, "color=red", "fontcolor=red")
	}
	if detailed {
		label := l.Width.String()
		if l.Anchor != repack.AnchorHead {
			label += "," + l.Anchor.String()
		}
		if l.Bias != 0 {
			label += fmt.Sprintf(",bias=%d", l.Bias)
		}
		attrs = append(attrs, fmt.Sprintf("label=%q", label))
	}
	if len(attrs) == 0 {
		return ""
	}
	return " [" + strings.Join(attrs, ", ") + "]"
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.PNG)
}

func renderFormat(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
