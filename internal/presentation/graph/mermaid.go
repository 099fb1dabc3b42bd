// Package graph renders flow charts as Mermaid diagrams.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/google/uuid"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	Executed  []uuid.UUID
	Executing []uuid.UUID
	Failed    []uuid.UUID
}

// StateOverlay builds an overlay from the current execution state of every node.
func StateOverlay(fc *domain.FlowChart) *GraphOverlay {
	o := &GraphOverlay{}
	for _, n := range fc.Nodes() {
		switch n.ExecutionState() {
		case domain.StateExecuted:
			o.Executed = append(o.Executed, n.GUID())
		case domain.StateExecuting:
			o.Executing = append(o.Executing, n.GUID())
		case domain.StateFailed:
			o.Failed = append(o.Failed, n.GUID())
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart syntax string for fc.
// Node shapes follow their ports:
// - Entry (flow output, no flow input): ((Circle))
// - Data only (no flow ports): [/Parallelogram/]
// - Default: [Rectangle]
// Flow connectors are solid arrows, property connectors dotted and labelled
// with the port names.
func GenerateMermaid(fc *domain.FlowChart, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, n := range fc.Nodes() {
		opener, closer := "[", "]"
		inFlow := len(n.Ports(domain.InputFlowPorts))
		outFlow := len(n.Ports(domain.OutputFlowPorts))
		switch {
		case inFlow == 0 && outFlow > 0:
			opener, closer = "((", "))"
		case inFlow == 0 && outFlow == 0:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", mermaidID(n.GUID()), opener, label(n), closer)
	}

	for _, c := range fc.Connectors() {
		start, ok := fc.Port(c.StartPort())
		if !ok {
			continue
		}
		end, ok := fc.Port(c.EndPort())
		if !ok {
			continue
		}
		from, to := mermaidID(start.Owner().GUID()), mermaidID(end.Owner().GUID())
		if start.IsFlow() {
			fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
			continue
		}
		fmt.Fprintf(&sb, "    %s -. \"%s → %s\" .-> %s\n", from, escape(start.Name()), escape(end.Name()), to)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on light fills
		sb.WriteString("    classDef executed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef executing fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")
		writeClass(&sb, "executed", overlay.Executed)
		writeClass(&sb, "executing", overlay.Executing)
		writeClass(&sb, "failed", overlay.Failed)
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, class string, ids []uuid.UUID) {
	seen := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		fmt.Fprintf(sb, "    class %s %s;\n", mermaidID(id), class)
	}
}

func label(n *domain.Node) string {
	if n.Header() == "" {
		return escape(n.Type())
	}
	return fmt.Sprintf("%s <br/> <small>%s</small>", escape(n.Header()), escape(n.Type()))
}

func mermaidID(id uuid.UUID) string {
	return "n" + strings.ReplaceAll(id.String(), "-", "")
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
