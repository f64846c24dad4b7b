package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
	"github.com/ritotombe/supportflow/pkg/registry"
)

// Context carries identifiers the caller already knows. Empty fields are absent.
type Context struct {
	UserID         string `json:"user_id,omitempty"`
	ExternalUserID string `json:"external_user_id,omitempty"`
	ExperienceID   string `json:"experience_id,omitempty"`
	ReservationID  string `json:"reservation_id,omitempty"`
	AccountID      string `json:"account_id,omitempty"`
}

// Args returns the identifiers that may be merged into operation arguments.
// AccountID is prompt context only.
func (c Context) Args() map[string]any {
	args := make(map[string]any, 4)
	for k, v := range map[string]string{
		"user_id":          c.UserID,
		"external_user_id": c.ExternalUserID,
		"experience_id":    c.ExperienceID,
		"reservation_id":   c.ReservationID,
	} {
		if v != "" {
			args[k] = v
		}
	}
	return args
}

// Dispatcher lets the model pick one registered operation and runs it.
type Dispatcher struct {
	llm      ports.Completer
	registry *registry.Registry
	system   string
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher over reg.
func New(llm ports.Completer, reg *registry.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		llm:      llm,
		registry: reg,
		system:   SystemPrompt(reg),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SystemPrompt lists the registered operations and the expected reply shape.
func SystemPrompt(reg *registry.Registry) string {
	names := make([]string, 0, len(domain.Operations))
	for _, e := range reg.Entries() {
		names = append(names, string(e.Name))
	}
	return "You are a tool selector for support operations. Given the user message and context, " +
		"choose one action from: " + strings.Join(names, ", ") + ".\n" +
		"Operations:\n" + reg.Describe() +
		"Respond ONLY as JSON with keys: action, args."
}

// selection is the model's structured reply.
type selection struct {
	Action *string        `json:"action"`
	Args   map[string]any `json:"args"`
}

// Operate asks the model for an operation and executes it. Store failures are
// returned with their own code; nothing escapes as an error or a panic.
func (d *Dispatcher) Operate(ctx context.Context, message string, c Context) (res domain.OpsResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("operation panicked", "panic", r)
			res = failure(res.Operation, domain.Errorf(domain.CodeLLMOrToolError, "%v", r))
		}
	}()

	ctxJSON, err := json.Marshal(c)
	if err != nil {
		return failure("", domain.Errorf(domain.CodeLLMOrToolError, "%v", err))
	}
	reply, err := d.llm.Complete(ctx, d.system, fmt.Sprintf("User message: %s\nContext: %s\n", message, ctxJSON))
	if err != nil {
		d.logger.Warn("operation selection failed", "err", err)
		return failure("", &domain.Error{Code: domain.CodeLLMError, Message: err.Error()})
	}

	sel, perr := parseSelection(reply)
	if perr != nil {
		d.logger.Warn("unparseable operation selection", "reply", reply, "err", perr)
		return failure("", perr)
	}

	action := *sel.Action
	if _, ok := d.registry.Lookup(action); !ok {
		d.logger.Warn("model chose an unregistered operation", "action", action)
		return failure("", &domain.Error{Code: domain.CodeBadAction, Message: action})
	}
	op := domain.Operation(action)

	args := c.Args()
	for k, v := range sel.Args {
		args[k] = v
	}

	d.logger.Info("executing operation", "operation", op)
	res.Operation = op
	data, err := d.registry.Execute(ctx, op, args)
	if err != nil {
		d.logger.Warn("operation failed", "operation", op, "err", err)
		return failure(op, domain.AsError(err, domain.CodeLLMOrToolError))
	}
	return domain.OpsResult{Result: domain.Success(data), Operation: op}
}

func failure(op domain.Operation, err *domain.Error) domain.OpsResult {
	return domain.OpsResult{Result: domain.Result{OK: false, Error: err}, Operation: op}
}

// parseSelection decodes the reply, tolerating a surrounding markdown code fence.
func parseSelection(reply string) (selection, *domain.Error) {
	var sel selection
	body := stripFence(reply)
	if err := json.Unmarshal([]byte(body), &sel); err != nil {
		return sel, domain.Errorf(domain.CodeBadOutput, "reply is not a JSON object with action and args: %v", err)
	}
	if sel.Action == nil || *sel.Action == "" {
		return sel, domain.Errorf(domain.CodeBadOutput, "reply has no action")
	}
	return sel, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the info string, e.g. "json"
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
