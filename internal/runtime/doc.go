// Package runtime executes the support workflow.
//
// The graph is fixed:
//
//	prepare -> classify -> {resolve | ops | escalate}
//	resolve -> {escalate | end}
//	ops, escalate -> end
//
// Each node receives a copy of the state and returns the next one; routing
// decisions are pure functions of the state (see RouteByIntent and
// RouteByConfidence) except for the optional LLMRouter.
package runtime
