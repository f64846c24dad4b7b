package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

const (
	// SystemPrompt asks for an answer or the bare escalation token.
	SystemPrompt = "You are a support answerer. Given a user query and candidate knowledge snippets, " +
		"compose a concise, accurate answer. If confidence is low, say 'ESCALATE' only."

	// EscalateToken is the reply that rejects the snippets.
	EscalateToken = "ESCALATE"

	// DefaultTopK is the number of snippets fetched per query.
	DefaultTopK = 3
)

// Resolver answers queries from the knowledge base.
type Resolver struct {
	search ports.KnowledgeSearcher
	llm    ports.Completer
	topK   int
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTopK overrides DefaultTopK.
func WithTopK(k int) Option {
	return func(r *Resolver) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver.
func New(search ports.KnowledgeSearcher, llm ports.Completer, opts ...Option) *Resolver {
	r := &Resolver{search: search, llm: llm, topK: DefaultTopK, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve searches the account's knowledge and asks the model to compose an answer.
//
// A top score below minConfidence is always low_confidence, whatever the model
// says; a score equal to it is accepted.
func (r *Resolver) Resolve(ctx context.Context, accountID, query string, minConfidence float64) domain.ResolveResult {
	found, err := r.search.Search(ctx, domain.SearchQuery{
		AccountID:     accountID,
		Query:         query,
		TopK:          r.topK,
		MinConfidence: minConfidence,
	})
	if err != nil {
		r.logger.Warn("knowledge search failed", "account_id", accountID, "err", err)
		return domain.ResolveResult{Reason: domain.ReasonSearchFailed}
	}

	best := found.BestScore
	meets := best >= minConfidence

	reply, panicked, llmErr := r.complete(ctx, Prompt(query, found))

	if !meets {
		return lowConfidence(found)
	}
	if panicked {
		return domain.ResolveResult{Reason: domain.ReasonLLMException, BestScore: domain.Float(best), Results: found.Results}
	}
	if llmErr != nil {
		r.logger.Warn("answer composition failed", "err", llmErr)
		return domain.ResolveResult{Reason: domain.ReasonLLMFailed, BestScore: domain.Float(best), Results: found.Results}
	}

	answer := strings.TrimSpace(reply)
	if strings.EqualFold(answer, EscalateToken) {
		return lowConfidence(found)
	}
	return domain.ResolveResult{
		OK:        true,
		Answer:    answer,
		Citations: found.Results,
		BestScore: domain.Float(best),
	}
}

func (r *Resolver) complete(ctx context.Context, prompt string) (reply string, panicked bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("completion panicked", "panic", p)
			reply, panicked, err = "", true, fmt.Errorf("panic: %v", p)
		}
	}()
	reply, err = r.llm.Complete(ctx, SystemPrompt, prompt)
	return reply, false, err
}

func lowConfidence(found domain.SearchResult) domain.ResolveResult {
	return domain.ResolveResult{
		Reason:    domain.ReasonLowConfidence,
		BestScore: domain.Float(found.BestScore),
		Results:   found.Results,
	}
}

// Prompt renders the query, the snippets and the best score for the model.
func Prompt(query string, found domain.SearchResult) string {
	lines := make([]string, 0, len(found.Results))
	for _, s := range found.Results {
		lines = append(lines, fmt.Sprintf("- %s: %s (score=%s)", s.Title, s.Excerpt, score(s.Score)))
	}
	return fmt.Sprintf("Query: %s\n\nSnippets:\n%s\n\nBest score: %s",
		query, strings.Join(lines, "\n\n"), score(found.BestScore))
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
