// Package tui renders command output for terminals.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewRenderer returns a function that renders markdown using glamour.
// Without a terminal the markdown is returned unchanged.
func NewRenderer(tty bool) (func(string) (string, error), error) {
	if !tty {
		return func(markdown string) (string, error) { return markdown, nil }, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// FlowChartMarkdown summarizes fc: a node table with execution state and port counts,
// then the connectors as port to port lines.
func FlowChartMarkdown(fc *domain.FlowChart) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Flow chart `%s`\n\n", fc.GUID())
	fmt.Fprintf(&sb, "%d nodes, %d connectors, circular connections %s.\n\n",
		len(fc.Nodes()), len(fc.Connectors()), allowed(fc.AllowCircularConnection()))

	sb.WriteString("| Header | Type | Position | State | Ports |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, n := range fc.Nodes() {
		fmt.Fprintf(&sb, "| %s | `%s` | %g, %g | %s | %d |\n",
			cell(n.Header()), n.Type(), n.X(), n.Y(), n.ExecutionState(), len(n.AllPorts()))
	}

	if cs := fc.Connectors(); len(cs) > 0 {
		sb.WriteString("\n## Connectors\n\n")
		for _, c := range cs {
			start, ok1 := fc.Port(c.StartPort())
			end, ok2 := fc.Port(c.EndPort())
			if !ok1 || !ok2 {
				continue
			}
			fmt.Fprintf(&sb, "- %s.%s → %s.%s\n",
				cell(start.Owner().Header()), start.Name(), cell(end.Owner().Header()), end.Name())
		}
	}
	return sb.String()
}

func allowed(v bool) string {
	if v {
		return "allowed"
	}
	return "forbidden"
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
