package supportflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ritotombe/supportflow/internal/agents/classifier"
	"github.com/ritotombe/supportflow/internal/agents/escalation"
	"github.com/ritotombe/supportflow/internal/agents/ops"
	"github.com/ritotombe/supportflow/internal/agents/resolver"
	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/internal/runtime"
	"github.com/ritotombe/supportflow/pkg/adapters/memory"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
	"github.com/ritotombe/supportflow/pkg/registry"
	"github.com/ritotombe/supportflow/pkg/session"
)

// Defaults fill identifiers a request leaves empty.
type Defaults = runtime.Defaults

// Router picks the handler after classification.
type Router = runtime.Router

// DefaultDefaults returns the built-in identifiers and confidence threshold.
func DefaultDefaults() Defaults {
	return runtime.DefaultDefaults()
}

// ErrEmptyMessage is returned when a request carries no text.
var ErrEmptyMessage = errors.New("message is empty")

// TicketChannel is the channel recorded on tickets opened for a thread.
const TicketChannel = "chat"

// Dependencies are the external capabilities the workflow calls.
type Dependencies struct {
	LLM       ports.Completer
	Search    ports.KnowledgeSearcher
	Customers ports.CustomerStore
	Tickets   ports.TicketStore
	Notifier  ports.Notifier
}

func (d Dependencies) validate() error {
	var missing []string
	if d.LLM == nil {
		missing = append(missing, "LLM")
	}
	if d.Search == nil {
		missing = append(missing, "Search")
	}
	if d.Customers == nil {
		missing = append(missing, "Customers")
	}
	if d.Tickets == nil {
		missing = append(missing, "Tickets")
	}
	if d.Notifier == nil {
		missing = append(missing, "Notifier")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing dependencies: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Engine is the entry point of the support workflow.
// It keeps conversations per thread and runs one workflow pass per message.
type Engine struct {
	runtime  *runtime.Engine
	sessions *session.Manager
	opener   ports.TicketOpener

	threads      ports.ThreadStore
	locker       ports.DistributedLocker
	router       Router
	llmRouting   bool
	defaults     Defaults
	hooks        domain.LifecycleHooks
	maxInputSize int
	logger       *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine and its agents.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithRouter replaces the rule-based routing after classification.
func WithRouter(r Router) Option {
	return func(e *Engine) {
		e.router = r
	}
}

// WithLLMRouting lets the model pick the handler, falling back to the rules.
func WithLLMRouting() Option {
	return func(e *Engine) {
		e.llmRouting = true
	}
}

// WithThreadStore persists conversations in store. Defaults to memory.
func WithThreadStore(store ports.ThreadStore) Option {
	return func(e *Engine) {
		e.threads = store
	}
}

// WithThreadLocker serializes turns of a thread across processes.
func WithThreadLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithDefaults overrides DefaultDefaults.
func WithDefaults(d Defaults) Option {
	return func(e *Engine) {
		e.defaults = d
	}
}

// WithMaxInputSize overrides DefaultMaxInputSize.
func WithMaxInputSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxInputSize = n
		}
	}
}

// New wires the agents over deps.
func New(deps Dependencies, opts ...Option) (*Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		defaults:     DefaultDefaults(),
		maxInputSize: DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.threads == nil {
		e.threads = memory.NewStore()
	}
	if o, ok := deps.Tickets.(ports.TicketOpener); ok {
		e.opener = o
	}
	if e.router == nil && e.llmRouting {
		e.router = runtime.NewLLMRouter(deps.LLM, e.logger.With("component", "router"))
	}

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.threads, sessionOpts...)

	agents := runtime.Agents{
		Classifier: classifier.New(deps.LLM, classifier.WithLogger(e.logger.With("component", "classifier"))),
		Resolver:   resolver.New(deps.Search, deps.LLM, resolver.WithLogger(e.logger.With("component", "resolver"))),
		Operator: ops.New(deps.LLM, registry.New(deps.Customers),
			ops.WithLogger(e.logger.With("component", "ops"))),
		Escalator: escalation.New(deps.LLM, deps.Tickets, deps.Notifier,
			escalation.WithLogger(e.logger.With("component", "escalation"))),
	}
	e.runtime = runtime.NewEngine(agents,
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithRouter(e.router),
		runtime.WithDefaults(e.defaults),
	)
	return e, nil
}

// Request is one user turn.
type Request struct {
	// ThreadID links turns of one conversation. Empty starts a new thread.
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message"`

	AccountID string `json:"account_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	// TicketID is optional. A thread without one gets a ticket opened on its
	// first turn when the ticket store is a ports.TicketOpener; otherwise the
	// configured default ticket is used.
	TicketID      string   `json:"ticket_id,omitempty"`
	ExperienceID  string   `json:"experience_id,omitempty"`
	ReservationID string   `json:"reservation_id,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

// Handle runs the workflow for one message: the thread's earlier conversation
// is loaded, the message appended, and the updated conversation saved.
//
// Workflow failures are reported inside the returned state. Errors are
// returned for invalid input and thread store failures only.
func (e *Engine) Handle(ctx context.Context, req Request) (domain.State, error) {
	msg, err := SanitizeInput(req.Message, e.maxInputSize)
	if err != nil {
		return domain.State{}, err
	}
	if strings.TrimSpace(msg) == "" {
		return domain.State{}, ErrEmptyMessage
	}
	if err := ValidateConfidence(req.MinConfidence); err != nil {
		return domain.State{}, err
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	var out domain.State
	err = e.sessions.WithLock(ctx, threadID, func(ctx context.Context) error {
		thread, err := e.sessions.LoadOrNew(ctx, threadID)
		if err != nil {
			return err
		}

		in := domain.NewState(threadID, thread.Messages...).WithMessage(domain.HumanMessage(msg))
		in.Input = msg
		in.AccountID = req.AccountID
		in.UserID = req.UserID
		in.TicketID = firstNonEmpty(req.TicketID, thread.TicketID)
		if in.TicketID == "" {
			in.TicketID = e.openTicket(ctx, threadID, req)
		}
		in.ExperienceID = req.ExperienceID
		in.ReservationID = req.ReservationID
		in.MinConfidence = req.MinConfidence

		out, err = e.runtime.Run(ctx, in)
		if err != nil {
			return err
		}

		thread.Messages = out.Messages
		thread.TicketID = out.TicketID
		return e.sessions.Put(ctx, thread)
	})
	if err != nil {
		return out, fmt.Errorf("thread %s: %w", threadID, err)
	}
	return out, nil
}

// openTicket opens a ticket for a thread that has none. It returns "" when the
// store cannot open tickets or fails; prepare then applies the default.
func (e *Engine) openTicket(ctx context.Context, threadID string, req Request) string {
	if e.opener == nil {
		return ""
	}
	ticket, err := e.opener.CreateTicket(ctx,
		firstNonEmpty(req.AccountID, e.defaults.AccountID),
		firstNonEmpty(req.UserID, e.defaults.UserID),
		TicketChannel,
	)
	if err != nil {
		e.logger.Warn("failed to open ticket, using default", "thread_id", threadID, "err", err)
		return ""
	}
	e.logger.Info("ticket opened", "thread_id", threadID, "ticket_id", ticket.ID)
	return ticket.ID
}

// Thread returns the stored conversation of threadID.
func (e *Engine) Thread(ctx context.Context, threadID string) (*ports.Thread, error) {
	return e.sessions.Load(ctx, threadID)
}

// Threads lists stored thread IDs.
func (e *Engine) Threads(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// DeleteThread removes a stored conversation.
func (e *Engine) DeleteThread(ctx context.Context, threadID string) error {
	return e.sessions.Delete(ctx, threadID)
}

// Inspect returns the workflow graph for visualization or introspection tools.
func (e *Engine) Inspect() []domain.Node {
	return e.runtime.Inspect()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
