package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ritotombe/supportflow/internal/presentation/graph"
	"github.com/ritotombe/supportflow/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []domain.Node
		contains []string
	}{
		{
			name:     "Start Node Shape",
			nodes:    []domain.Node{{ID: "prepare", Type: domain.NodeTypeStart}},
			contains: []string{`prepare(("prepare"))`},
		},
		{
			name:     "Agent Node Shape",
			nodes:    []domain.Node{{ID: "resolve", Type: domain.NodeTypeAgent}},
			contains: []string{`resolve[["resolve"]]`},
		},
		{
			name:     "End Node Shape",
			nodes:    []domain.Node{{ID: "end", Type: domain.NodeTypeEnd}},
			contains: []string{`End(["end"])`},
		},
		{
			name:     "Description",
			nodes:    []domain.Node{{ID: "ops", Type: domain.NodeTypeLogic, Description: `run a "support" op`}},
			contains: []string{`ops["ops<br/><small>run a 'support' op</small>"]`},
		},
		{
			name:     "ID Sanitization",
			nodes:    []domain.Node{{ID: "hyphen-ated.node"}},
			contains: []string{`hyphen_ated_node["hyphen-ated.node"]`},
		},
		{
			name: "Transitions",
			nodes: []domain.Node{{
				ID: "resolve",
				Transitions: []domain.Transition{
					{ToNodeID: "end", Condition: "answered"},
					{ToNodeID: "escalate"},
				},
			}},
			contains: []string{
				`resolve -- "answered" --> End`,
				`resolve --> escalate`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.nodes, nil)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			assert.NotContains(t, got, "classDef")
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	nodes := []domain.Node{
		{ID: "prepare", Type: domain.NodeTypeStart},
		{ID: "classify", Type: domain.NodeTypeAgent},
		{ID: "end", Type: domain.NodeTypeEnd},
	}
	s := domain.State{
		History:       []domain.NodeID{"prepare", "classify", "classify", "end"},
		CurrentNodeID: "end",
	}

	got := graph.GenerateMermaid(nodes, graph.OverlayFromState(s))

	assert.Contains(t, got, "classDef visited")
	assert.Equal(t, 1, strings.Count(got, "class classify visited;"))
	assert.Contains(t, got, "class prepare visited;")
	assert.Contains(t, got, "class End current;")
}
