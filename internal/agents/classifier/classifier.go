package classifier

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// SystemPrompt instructs the model to answer with a single label.
const SystemPrompt = "You are a routing classifier for a support agent. " +
	"Classify the user's message into one of: login, subscription, reservation, knowledge. " +
	"Respond with ONLY the label."

// Classifier maps free text to an intent.
type Classifier struct {
	llm    ports.Completer
	logger *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates a Classifier.
func New(llm ports.Completer, opts ...Option) *Classifier {
	c := &Classifier{llm: llm, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns a label of the closed set. Any failure yields IntentUnknown.
func (c *Classifier) Classify(ctx context.Context, text string) (intent domain.Intent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("classifier panicked", "panic", r)
			intent = domain.IntentUnknown
		}
	}()

	reply, err := c.llm.Complete(ctx, SystemPrompt, text)
	if err != nil {
		c.logger.Warn("classification failed", "err", err)
		return domain.IntentUnknown
	}
	return ParseReply(reply)
}

// ParseReply takes the first whitespace-delimited token of a model reply.
func ParseReply(reply string) domain.Intent {
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return domain.IntentUnknown
	}
	intent, _ := domain.ParseIntent(fields[0])
	return intent
}
