package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ritotombe/supportflow/internal/agents/resolver"
	"github.com/ritotombe/supportflow/internal/testutils"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var snippets = []domain.Snippet{
	{ID: "k1", Title: "Reset password", Excerpt: "Use the reset link.", Score: 0.75},
	{ID: "k2", Title: "Login help", Excerpt: "Check your email.", Score: 0.5},
	{ID: "k3", Title: "Account", Excerpt: "Profile settings.", Score: 0.25},
	{ID: "k4", Title: "Extra", Excerpt: "Not fetched.", Score: 0.1},
}

func TestResolve_Success(t *testing.T) {
	search := &testutils.StaticSearcher{Results: snippets}
	llm := testutils.NewCompleter("  Open the login page and tap Forgot password.  ")
	r := resolver.New(search, llm)

	res := r.Resolve(context.Background(), "cultpass", "I forgot my password", 0.6)

	require.True(t, res.OK)
	assert.Equal(t, "Open the login page and tap Forgot password.", res.Answer)
	assert.Len(t, res.Citations, resolver.DefaultTopK)
	require.NotNil(t, res.BestScore)
	assert.Equal(t, 0.75, *res.BestScore)

	require.Len(t, search.Queries, 1)
	assert.Equal(t, domain.SearchQuery{AccountID: "cultpass", Query: "I forgot my password", TopK: 3, MinConfidence: 0.6}, search.Queries[0])

	require.Len(t, llm.Calls, 1)
	assert.Equal(t, resolver.SystemPrompt, llm.Calls[0].System)
	assert.Equal(t,
		"Query: I forgot my password\n\nSnippets:\n"+
			"- Reset password: Use the reset link. (score=0.75)\n\n"+
			"- Login help: Check your email. (score=0.5)\n\n"+
			"- Account: Profile settings. (score=0.25)\n\n"+
			"Best score: 0.75",
		llm.Calls[0].User)
}

func TestResolve_ThresholdIsInclusive(t *testing.T) {
	r := resolver.New(&testutils.StaticSearcher{Results: snippets}, testutils.NewCompleter("answer"))
	assert.True(t, r.Resolve(context.Background(), "a", "q", 0.75).OK)
}

func TestResolve_BelowThresholdIgnoresModel(t *testing.T) {
	for _, threshold := range []float64{0.76, 0.9, 1} {
		for _, reply := range []testutils.Reply{{Text: "a confident answer"}, {Err: errors.New("down")}} {
			llm := (&testutils.ScriptedCompleter{}).Then(reply.Text, reply.Err)
			r := resolver.New(&testutils.StaticSearcher{Results: snippets}, llm)

			res := r.Resolve(context.Background(), "a", "q", threshold)
			assert.False(t, res.OK)
			assert.Equal(t, domain.ReasonLowConfidence, res.Reason)
			require.NotNil(t, res.BestScore)
			assert.Equal(t, 0.75, *res.BestScore)
			assert.Len(t, res.Results, 3)
		}
	}
}

func TestResolve_EscalateToken(t *testing.T) {
	for _, reply := range []string{"ESCALATE", " escalate\n", "Escalate"} {
		r := resolver.New(&testutils.StaticSearcher{Results: snippets}, testutils.NewCompleter(reply))
		res := r.Resolve(context.Background(), "a", "q", 0.1)
		assert.Equal(t, domain.ReasonLowConfidence, res.Reason, reply)
	}

	r := resolver.New(&testutils.StaticSearcher{Results: snippets}, testutils.NewCompleter("ESCALATE to a human"))
	assert.True(t, r.Resolve(context.Background(), "a", "q", 0.1).OK, "only the bare token escalates")
}

func TestResolve_NoResults(t *testing.T) {
	llm := testutils.NewCompleter("whatever")
	r := resolver.New(&testutils.StaticSearcher{}, llm)

	res := r.Resolve(context.Background(), "a", "xyzabc123nonexistent", 0.6)
	assert.Equal(t, domain.ReasonLowConfidence, res.Reason)
	require.NotNil(t, res.BestScore)
	assert.Equal(t, 0.0, *res.BestScore)

	require.Len(t, llm.Calls, 1, "empty snippet list still reaches the model")
	assert.Equal(t, "Query: xyzabc123nonexistent\n\nSnippets:\n\n\nBest score: 0", llm.Calls[0].User)
}

func TestResolve_SearchFailed(t *testing.T) {
	llm := testutils.NewCompleter("unused")
	r := resolver.New(&testutils.StaticSearcher{Err: errors.New("db locked")}, llm)

	res := r.Resolve(context.Background(), "a", "q", 0.5)
	assert.Equal(t, domain.ResolveResult{Reason: domain.ReasonSearchFailed}, res)
	assert.Zero(t, llm.CallCount(), "no model call after a search failure")
}

func TestResolve_LLMFailures(t *testing.T) {
	failing := (&testutils.ScriptedCompleter{}).Then("", domain.Errorf(domain.CodeHTTPError, "status 500"))
	res := resolver.New(&testutils.StaticSearcher{Results: snippets}, failing).Resolve(context.Background(), "a", "q", 0.5)
	assert.Equal(t, domain.ReasonLLMFailed, res.Reason)

	panicky := ports.CompleterFunc(func(context.Context, string, string) (string, error) { panic("boom") })
	res = resolver.New(&testutils.StaticSearcher{Results: snippets}, panicky).Resolve(context.Background(), "a", "q", 0.5)
	assert.Equal(t, domain.ReasonLLMException, res.Reason)
}

func TestResolve_WithTopK(t *testing.T) {
	search := &testutils.StaticSearcher{Results: snippets}
	r := resolver.New(search, testutils.NewCompleter("ok"), resolver.WithTopK(1))

	res := r.Resolve(context.Background(), "a", "q", 0.5)
	assert.Len(t, res.Citations, 1)
	assert.Equal(t, 1, search.Queries[0].TopK)
}
