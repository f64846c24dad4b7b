package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
	"golang.org/x/sync/errgroup"
)

const (
	// SystemPrompt asks for a one-sentence reason.
	SystemPrompt = "You are an escalation assistant. Given the user message and context, " +
		"produce a short clear reason for escalation. Respond with ONLY the reason sentence."

	// FallbackReason is used when the model cannot produce one.
	FallbackReason = "Escalation required."
)

// Handler hands a request over to humans: it records the reason on the
// ticket and notifies the escalation intake service.
type Handler struct {
	llm      ports.Completer
	tickets  ports.TicketStore
	notifier ports.Notifier
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// New creates a Handler.
func New(llm ports.Completer, tickets ports.TicketStore, notifier ports.Notifier, opts ...Option) *Handler {
	h := &Handler{llm: llm, tickets: tickets, notifier: notifier, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Escalate runs every step even when an earlier one fails. Ticketing and the
// intake notification are attempted independently and both outcomes are returned.
func (h *Handler) Escalate(ctx context.Context, ticketID, userMessage string, details map[string]any, lastConfidence *float64) domain.EscalationResult {
	reason := h.reason(ctx, userMessage, details, lastConfidence)
	log := h.logger.With("ticket_id", ticketID)

	if _, err := h.tickets.AppendTicketMessage(ctx, ticketID, domain.RoleSystem, "Escalation requested: "+reason); err != nil {
		log.Warn("failed to record escalation request", "err", err)
	}

	var ticketing, intake domain.Result
	var g errgroup.Group
	g.Go(func() error {
		ticketing = guard(func() domain.Result {
			status, err := h.tickets.EscalateTicket(ctx, ticketID, reason, lastConfidence)
			if err != nil {
				return domain.Failure(err, domain.CodeStoreError)
			}
			return domain.Success(map[string]any{"status": status})
		})
		return failed("ticketing", ticketing)
	})
	g.Go(func() error {
		intake = guard(func() domain.Result {
			res, err := h.notifier.Notify(ctx, ports.Escalation{
				TicketID: ticketID,
				Reason:   reason,
				Payload: map[string]any{
					"last_confidence": lastConfidence,
					"context":         details,
				},
			})
			if err != nil && res.Error == nil {
				res = domain.Failure(err, domain.CodeException)
			}
			return res
		})
		return failed("intake", intake)
	})
	// The group has no context, so one failing leg never cancels the other.
	if err := g.Wait(); err != nil {
		log.Warn("escalation incomplete", "err", err)
	}

	log.Info("escalated", "reason", reason, "ticketing_ok", ticketing.OK, "intake_ok", intake.OK)
	return domain.EscalationResult{Reason: reason, Ticketing: ticketing, Intake: intake}
}

// failed reports a failed leg of an escalation as an error.
func failed(leg string, r domain.Result) error {
	if r.OK {
		return nil
	}
	if r.Error == nil {
		return fmt.Errorf("%s failed", leg)
	}
	return fmt.Errorf("%s: %w", leg, r.Error)
}

func (h *Handler) reason(ctx context.Context, userMessage string, details map[string]any, lastConfidence *float64) (reason string) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("reason composition panicked", "panic", r)
			reason = FallbackReason
		}
	}()

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}
	prompt := fmt.Sprintf("Message: %s\nContext: %s\nConfidence: %s", userMessage, detailsJSON, confidence(lastConfidence))

	reply, err := h.llm.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		h.logger.Warn("reason composition failed, using fallback", "err", err)
		return FallbackReason
	}
	if reply = strings.TrimSpace(reply); reply == "" {
		return FallbackReason
	}
	return reply
}

// guard turns a panic in fn into a failed Result.
func guard(fn func() domain.Result) (res domain.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = domain.Result{Error: domain.Errorf(domain.CodeException, "%v", r)}
		}
	}()
	return fn()
}

func confidence(c *float64) string {
	if c == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*c, 'f', -1, 64)
}
