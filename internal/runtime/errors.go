package runtime

import "errors"

var (
	// ErrCycle is returned when a run would execute the same node twice.
	ErrCycle = errors.New("workflow revisited a node")
	// ErrUnknownNode is returned when routing yields a node that is not in the graph.
	ErrUnknownNode = errors.New("unknown workflow node")
)
