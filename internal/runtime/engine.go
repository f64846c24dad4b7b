package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ritotombe/supportflow/internal/agents/ops"
	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/pkg/domain"
)

// Classifier labels the user's message.
type Classifier interface {
	Classify(ctx context.Context, text string) domain.Intent
}

// Resolver answers from the knowledge base.
type Resolver interface {
	Resolve(ctx context.Context, accountID, query string, minConfidence float64) domain.ResolveResult
}

// Operator runs one support operation chosen for the message.
type Operator interface {
	Operate(ctx context.Context, message string, c ops.Context) domain.OpsResult
}

// Escalator hands the request over to humans.
type Escalator interface {
	Escalate(ctx context.Context, ticketID, userMessage string, details map[string]any, lastConfidence *float64) domain.EscalationResult
}

// Agents bundles the capabilities the nodes call.
type Agents struct {
	Classifier Classifier
	Resolver   Resolver
	Operator   Operator
	Escalator  Escalator
}

type step func(ctx context.Context, s domain.State) domain.State

type node struct {
	decl domain.Node
	run  step
	next func(ctx context.Context, s domain.State) domain.NodeID
}

// Engine is the workflow state machine.
type Engine struct {
	agents   Agents
	router   Router
	defaults Defaults
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	order []domain.NodeID
	nodes map[domain.NodeID]node
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithRouter replaces the RuleRouter used after classify.
func WithRouter(r Router) Option {
	return func(e *Engine) {
		if r != nil {
			e.router = r
		}
	}
}

// WithDefaults overrides DefaultDefaults.
func WithDefaults(d Defaults) Option {
	return func(e *Engine) {
		e.defaults = d
	}
}

// NewEngine wires the graph over the given agents.
func NewEngine(agents Agents, opts ...Option) *Engine {
	e := &Engine{
		agents:   agents,
		router:   RuleRouter{},
		defaults: DefaultDefaults(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.build()
	return e
}

func (e *Engine) build() {
	always := func(to domain.NodeID) func(context.Context, domain.State) domain.NodeID {
		return func(context.Context, domain.State) domain.NodeID { return to }
	}

	defs := []node{
		{
			decl: domain.Node{ID: domain.NodePrepare, Type: domain.NodeTypeStart, Description: "derive input, apply defaults",
				Transitions: []domain.Transition{{ToNodeID: domain.NodeClassify}}},
			run:  e.prepare,
			next: always(domain.NodeClassify),
		},
		{
			decl: domain.Node{ID: domain.NodeClassify, Type: domain.NodeTypeAgent, Description: "label the intent",
				Transitions: []domain.Transition{
					{ToNodeID: domain.NodeResolve, Condition: "login, knowledge"},
					{ToNodeID: domain.NodeOps, Condition: "subscription, reservation"},
					{ToNodeID: domain.NodeEscalate, Condition: "unknown"},
				}},
			run:  e.classify,
			next: e.router.Route,
		},
		{
			decl: domain.Node{ID: domain.NodeResolve, Type: domain.NodeTypeAgent, Description: "answer from the knowledge base",
				Transitions: []domain.Transition{
					{ToNodeID: domain.NodeEnd, Condition: "answered"},
					{ToNodeID: domain.NodeEscalate, Condition: "not answered"},
				}},
			run: e.resolve,
			next: func(_ context.Context, s domain.State) domain.NodeID {
				return RouteByConfidence(s)
			},
		},
		{
			decl: domain.Node{ID: domain.NodeOps, Type: domain.NodeTypeAgent, Description: "run a support operation",
				Transitions: []domain.Transition{{ToNodeID: domain.NodeEnd}}},
			run:  e.operate,
			next: always(domain.NodeEnd),
		},
		{
			decl: domain.Node{ID: domain.NodeEscalate, Type: domain.NodeTypeAgent, Description: "hand over to human support",
				Transitions: []domain.Transition{{ToNodeID: domain.NodeEnd}}},
			run:  e.escalate,
			next: always(domain.NodeEnd),
		},
	}

	e.nodes = make(map[domain.NodeID]node, len(defs))
	e.order = e.order[:0]
	for _, n := range defs {
		e.nodes[n.decl.ID] = n
		e.order = append(e.order, n.decl.ID)
	}
}

// Inspect returns the node declarations in execution order, end last.
func (e *Engine) Inspect() []domain.Node {
	out := make([]domain.Node, 0, len(e.order)+1)
	for _, id := range e.order {
		decl := e.nodes[id].decl
		decl.Transitions = append([]domain.Transition(nil), decl.Transitions...)
		out = append(out, decl)
	}
	return append(out, domain.Node{ID: domain.NodeEnd, Type: domain.NodeTypeEnd})
}

// Run executes the workflow from prepare to end and returns the final state.
// The input is not modified. Results of earlier runs carried in the input are
// discarded. An error is returned only if routing leaves the graph.
func (e *Engine) Run(ctx context.Context, in domain.State) (domain.State, error) {
	s := in.Clone()
	s.Intent = ""
	s.ResolverResult, s.OpsResult, s.EscalationResult = nil, nil, nil
	s.History = nil
	s.CurrentNodeID = domain.NodePrepare
	s.Status = domain.StatusActive

	visited := make(map[domain.NodeID]bool, len(e.nodes))
	for s.CurrentNodeID != domain.NodeEnd {
		id := s.CurrentNodeID
		n, ok := e.nodes[id]
		if !ok {
			return s, fmt.Errorf("%w: %s", ErrUnknownNode, id)
		}
		if visited[id] {
			return s, fmt.Errorf("%w: %s", ErrCycle, id)
		}
		visited[id] = true

		e.emitEnter(ctx, s.ThreadID, id)
		start := time.Now()
		s.History = append(s.History, id)
		s = n.run(ctx, s.Clone())
		e.emitLeave(ctx, s.ThreadID, id, time.Since(start))

		to := n.next(ctx, s)
		e.emitRoute(ctx, s, id, to)
		s.CurrentNodeID = to
	}

	s.History = append(s.History, domain.NodeEnd)
	s.Status = domain.StatusTerminated
	return s, nil
}

func (e *Engine) emitEnter(ctx context.Context, threadID string, id domain.NodeID) {
	e.logger.Debug("entering node", "node", id, "thread_id", threadID)
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeEnter, ThreadID: threadID},
			NodeID:    id,
		})
	}
}

func (e *Engine) emitLeave(ctx context.Context, threadID string, id domain.NodeID, d time.Duration) {
	if e.hooks.OnNodeLeave != nil {
		e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeLeave, ThreadID: threadID},
			NodeID:    id,
			Duration:  d,
		})
	}
}

func (e *Engine) emitRoute(ctx context.Context, s domain.State, from, to domain.NodeID) {
	e.logger.Info("route", "thread_id", s.ThreadID, "from", from, "to", to, "intent", s.Intent)
	if e.hooks.OnRoute != nil {
		e.hooks.OnRoute(ctx, &domain.RouteEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRoute, ThreadID: s.ThreadID},
			From:      from,
			To:        to,
			Intent:    s.Intent,
		})
	}
}
