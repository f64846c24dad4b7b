package runtime

import (
	"context"

	"github.com/ritotombe/supportflow/internal/agents/ops"
	"github.com/ritotombe/supportflow/pkg/domain"
)

// User-visible notices appended by resolve and escalate.
const (
	ResolveFallbackNotice = "I'll escalate this for a specialist to review."
	EscalatedNotice       = "I've escalated this to human support."
)

func (e *Engine) prepare(_ context.Context, s domain.State) domain.State {
	if s.Input == "" {
		s.Input, _ = domain.LastHumanContent(s.Messages)
	}
	if s.AccountID == "" {
		s.AccountID = e.defaults.AccountID
	}
	if s.UserID == "" {
		s.UserID = e.defaults.UserID
	}
	if s.TicketID == "" {
		s.TicketID = e.defaults.TicketID
	}
	if s.MinConfidence == nil {
		s.MinConfidence = domain.Float(e.defaults.MinConfidence)
	}
	return s
}

func (e *Engine) classify(ctx context.Context, s domain.State) domain.State {
	if s.Input == "" {
		s.Input, _ = domain.LastHumanContent(s.Messages)
	}
	s.Intent = e.agents.Classifier.Classify(ctx, s.Input)
	e.logger.Info("classified", "thread_id", s.ThreadID, "intent", s.Intent)
	return s
}

func (e *Engine) resolve(ctx context.Context, s domain.State) domain.State {
	res := e.agents.Resolver.Resolve(ctx, s.AccountID, s.Input, s.Confidence(e.defaults.MinConfidence))
	s.ResolverResult = &res

	if res.OK {
		s.Messages = append(s.Messages, domain.AIMessage(res.Answer))
		e.logger.Info("resolved", "thread_id", s.ThreadID, "best_score", derefScore(res.BestScore))
		return s
	}
	e.logger.Warn("resolution failed", "thread_id", s.ThreadID, "reason", res.Reason, "best_score", derefScore(res.BestScore))
	s.Messages = append(s.Messages, domain.AIMessage(ResolveFallbackNotice))
	return s
}

func (e *Engine) operate(ctx context.Context, s domain.State) domain.State {
	c := ops.Context{
		UserID:         s.UserID,
		ExternalUserID: s.UserID,
		ExperienceID:   s.ExperienceID,
		ReservationID:  s.ReservationID,
		AccountID:      s.AccountID,
	}
	res := e.agents.Operator.Operate(ctx, s.Input, c)
	s.OpsResult = &res

	if res.OK {
		e.logger.Info("operation done", "thread_id", s.ThreadID, "operation", res.Operation)
	} else {
		e.logger.Warn("operation failed", "thread_id", s.ThreadID, "operation", res.Operation, "code", errorCode(res.Error))
	}
	s.Messages = append(s.Messages, domain.AIMessage(ops.Summarize(res)))
	return s
}

func (e *Engine) escalate(ctx context.Context, s domain.State) (out domain.State) {
	// The notice is appended exactly once whatever happens below.
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("escalation panicked", "thread_id", s.ThreadID, "panic", p)
			out = s
			if out.EscalationResult == nil {
				failed := domain.Failure(domain.Errorf(domain.CodeException, "%v", p), domain.CodeException)
				out.EscalationResult = &domain.EscalationResult{Ticketing: failed, Intake: failed}
			}
		}
		out.Messages = append(out.Messages, domain.AIMessage(EscalatedNotice))
	}()

	details := map[string]any{
		"intent":          s.Intent,
		"resolver_result": s.ResolverResult,
		"ops_result":      s.OpsResult,
	}
	res := e.agents.Escalator.Escalate(ctx, s.TicketID, s.Input, details, s.LastConfidence())
	s.EscalationResult = &res
	if !res.Ticketing.OK || !res.Intake.OK {
		e.logger.Warn("escalation partially failed", "thread_id", s.ThreadID,
			"ticketing_ok", res.Ticketing.OK, "intake_ok", res.Intake.OK)
	} else {
		e.logger.Info("escalated", "thread_id", s.ThreadID, "ticket_id", s.TicketID)
	}
	return s
}

func derefScore(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func errorCode(err *domain.Error) domain.Code {
	if err == nil {
		return ""
	}
	return err.Code
}
