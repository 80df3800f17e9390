package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/crosslang/sdkbench/pkg/errors"
)

var edgeColors = map[EdgeStatus]string{
	StatusCompatible:   "forestgreen",
	StatusIncompatible: "firebrick",
	StatusError:        "orange3",
	StatusUntested:     "grey60",
}

// ToDOT renders the report's edges as a Graphviz digraph. Nodes are
// language@version endpoints; edges point from client to server, colored
// by verdict. Entries are already ID-sorted, so output is deterministic.
func ToDOT(r *Report) string {
	var buf bytes.Buffer
	buf.WriteString("digraph compatibility {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("\n")

	seen := make(map[string]bool)
	node := func(language, version string) string {
		id := language + "@" + version
		if !seen[id] {
			seen[id] = true
			fmt.Fprintf(&buf, "  %q [label=%q];\n", id, language+"\n"+version)
		}
		return id
	}

	for _, e := range r.Entries {
		from := node(e.Cell.ClientLang, e.Cell.ClientVersion)
		to := node(e.Cell.ServerLang, e.Cell.ServerVersion)
		color := edgeColors[e.Status]
		fmt.Fprintf(&buf, "  %q -> %q [color=%q, label=%q];\n", from, to, color, string(e.Status))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ToSVG renders the report's compatibility graph to SVG via Graphviz.
func ToSVG(ctx context.Context, r *Report) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "initializing graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(ToDOT(r)))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parsing DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "rendering SVG")
	}
	return buf.Bytes(), nil
}
