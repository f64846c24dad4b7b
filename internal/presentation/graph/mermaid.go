package graph

import (
	"fmt"
	"strings"

	"github.com/ritotombe/supportflow/pkg/domain"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []domain.NodeID
	CurrentNode  domain.NodeID
}

// OverlayFromState highlights the path a run took.
func OverlayFromState(s domain.State) *GraphOverlay {
	return &GraphOverlay{
		VisitedNodes: append([]domain.NodeID(nil), s.History...),
		CurrentNode:  s.CurrentNodeID,
	}
}

// GenerateMermaid produces a Mermaid flowchart from node declarations.
// Shapes follow the node type:
//   - Start: ((Circle))
//   - Agent: [[Subroutine]]
//   - End: ([Stadium])
//   - Default: [Rectangle]
func GenerateMermaid(nodes []domain.Node, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeTypeStart:
			opener, closer = "((", "))"
		case domain.NodeTypeAgent:
			opener, closer = "[[", "]]"
		case domain.NodeTypeEnd:
			opener, closer = "([", "])"
		}

		label := string(node.ID)
		if node.Description != "" {
			label += "<br/><small>" + escape(node.Description) + "</small>"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, t := range node.Transitions {
			arrow := "-->"
			if t.Condition != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", escape(t.Condition))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(t.ToNodeID))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills whatever the theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// "end" is a Mermaid keyword.
func sanitizeMermaidID(id domain.NodeID) string {
	s := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(string(id))
	if s == "end" {
		return "End"
	}
	return s
}
