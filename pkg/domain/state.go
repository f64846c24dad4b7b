package domain

// ExecutionStatus defines the current mode of the workflow run.
type ExecutionStatus string

const (
	StatusActive     ExecutionStatus = "active"     // Nodes are still being executed
	StatusTerminated ExecutionStatus = "terminated" // The end node was reached
)

// NodeID names a node of the workflow graph.
type NodeID string

const (
	NodePrepare  NodeID = "prepare"
	NodeClassify NodeID = "classify"
	NodeResolve  NodeID = "resolve"
	NodeOps      NodeID = "ops"
	NodeEscalate NodeID = "escalate"
	NodeEnd      NodeID = "end"
)

// State is the snapshot threaded through the workflow.
//
// Nodes receive a State by value and return the next one. Slices and result
// pointers are never mutated in place; Clone produces an independent copy.
type State struct {
	ThreadID string `json:"thread_id,omitempty"`

	// Messages is append-only during a run.
	Messages []Message `json:"messages"`

	// Input is the utterance being processed. Prepare derives it from the last
	// human message when it is empty.
	Input  string `json:"input"`
	Intent Intent `json:"intent,omitempty"`

	AccountID     string `json:"account_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	TicketID      string `json:"ticket_id,omitempty"`
	ExperienceID  string `json:"experience_id,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`

	// MinConfidence is nil until defaulted by prepare.
	MinConfidence *float64 `json:"min_confidence,omitempty"`

	ResolverResult   *ResolveResult    `json:"resolver_result,omitempty"`
	OpsResult        *OpsResult        `json:"ops_result,omitempty"`
	EscalationResult *EscalationResult `json:"escalation_result,omitempty"`

	CurrentNodeID NodeID          `json:"current_node_id"`
	Status        ExecutionStatus `json:"status"`

	// History tracks the path taken through the graph.
	History []NodeID `json:"history"`
}

// NewState creates a clean state positioned at the start node.
func NewState(threadID string, msgs ...Message) State {
	return State{
		ThreadID:      threadID,
		Messages:      append([]Message(nil), msgs...),
		CurrentNodeID: NodePrepare,
		Status:        StatusActive,
	}
}

// Clone returns a copy that shares no mutable memory with s.
func (s State) Clone() State {
	next := s
	next.Messages = append([]Message(nil), s.Messages...)
	next.History = append([]NodeID(nil), s.History...)
	if s.MinConfidence != nil {
		v := *s.MinConfidence
		next.MinConfidence = &v
	}
	return next
}

// WithMessage returns a copy of s with msg appended to the conversation.
func (s State) WithMessage(msg Message) State {
	next := s.Clone()
	next.Messages = append(next.Messages, msg)
	return next
}

// Confidence returns the threshold, or fallback when it is unset.
func (s State) Confidence(fallback float64) float64 {
	if s.MinConfidence == nil {
		return fallback
	}
	return *s.MinConfidence
}

// LastConfidence is the resolver's top score when the resolver ran.
func (s State) LastConfidence() *float64 {
	if s.ResolverResult == nil || s.ResolverResult.BestScore == nil {
		return nil
	}
	v := *s.ResolverResult.BestScore
	return &v
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
