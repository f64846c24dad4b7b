package domain

// NodeType constants classify nodes for introspection and rendering.
const (
	// NodeTypeStart marks the entry node.
	NodeTypeStart = "start"
	// NodeTypeLogic runs in-process logic without outbound calls.
	NodeTypeLogic = "logic"
	// NodeTypeAgent calls external capabilities (model, stores, notifications).
	NodeTypeAgent = "agent"
	// NodeTypeEnd is the sink node.
	NodeTypeEnd = "end"
)

// Node is the declaration of a workflow node, as exposed by Inspect.
type Node struct {
	ID          NodeID       `json:"id"`
	Type        string       `json:"type"`
	Description string       `json:"description,omitempty"`
	Transitions []Transition `json:"transitions"`
}

// Transition defines a possible move from one node to another.
type Transition struct {
	ToNodeID NodeID `json:"to_node_id"`

	// Condition is a human-readable description of when this transition is
	// taken. Empty means unconditional.
	Condition string `json:"condition,omitempty"`
}

// Terminal reports whether the node has no outgoing transition.
func (n Node) Terminal() bool {
	return len(n.Transitions) == 0
}
