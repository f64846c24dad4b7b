package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// RouteByIntent maps a classified intent to the handler node.
func RouteByIntent(intent domain.Intent) domain.NodeID {
	switch intent {
	case domain.IntentReservation, domain.IntentSubscription:
		return domain.NodeOps
	case domain.IntentKnowledge, domain.IntentLogin:
		return domain.NodeResolve
	default:
		return domain.NodeEscalate
	}
}

// RouteByConfidence decides what follows resolve: any resolver failure escalates.
func RouteByConfidence(s domain.State) domain.NodeID {
	if s.ResolverResult == nil || !s.ResolverResult.OK {
		return domain.NodeEscalate
	}
	return domain.NodeEnd
}

// Router picks the handler after classify. Implementations must return one of
// NodeResolve, NodeOps or NodeEscalate.
type Router interface {
	Route(ctx context.Context, s domain.State) domain.NodeID
}

// RuleRouter applies RouteByIntent.
type RuleRouter struct{}

func (RuleRouter) Route(_ context.Context, s domain.State) domain.NodeID {
	return RouteByIntent(s.Intent)
}

// LLMRouter lets the model choose the handler and falls back to Fallback when
// the call fails or the reply is not a handler name.
type LLMRouter struct {
	LLM      ports.Completer
	Fallback Router
	Logger   *slog.Logger
}

// NewLLMRouter creates an LLMRouter falling back to RuleRouter.
func NewLLMRouter(llm ports.Completer, logger *slog.Logger) *LLMRouter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LLMRouter{LLM: llm, Fallback: RuleRouter{}, Logger: logger}
}

// RoutingPrompt is the system instruction sent by LLMRouter.
func RoutingPrompt(intent domain.Intent, input string) string {
	return fmt.Sprintf("Based on the user's intent '%s' and input '%s', determine the best route:\n"+
		"- escalate: For unknown intents or when human help is needed\n"+
		"- ops: For subscription/reservation operations requiring database access\n"+
		"- resolve: For knowledge queries that can be answered from knowledge base\n"+
		"Return only: escalate, ops, or resolve", intent, input)
}

func (r *LLMRouter) Route(ctx context.Context, s domain.State) (to domain.NodeID) {
	defer func() {
		if p := recover(); p != nil {
			r.Logger.Error("llm routing panicked", "panic", p)
			to = r.fallback(ctx, s)
		}
	}()

	reply, err := r.LLM.Complete(ctx, RoutingPrompt(s.Intent, s.Input), s.Input)
	if err != nil {
		r.Logger.Warn("llm routing failed, using rules", "err", err)
		return r.fallback(ctx, s)
	}
	switch route := domain.NodeID(strings.ToLower(strings.TrimSpace(reply))); route {
	case domain.NodeEscalate, domain.NodeOps, domain.NodeResolve:
		return route
	}
	r.Logger.Warn("llm routing reply is not a route, using rules", "reply", reply)
	return r.fallback(ctx, s)
}

func (r *LLMRouter) fallback(ctx context.Context, s domain.State) domain.NodeID {
	if r.Fallback == nil {
		return RouteByIntent(s.Intent)
	}
	return r.Fallback.Route(ctx, s)
}
