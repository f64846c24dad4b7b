package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritotombe/supportflow/internal/agents/classifier"
	"github.com/ritotombe/supportflow/internal/agents/escalation"
	"github.com/ritotombe/supportflow/internal/agents/ops"
	"github.com/ritotombe/supportflow/internal/agents/resolver"
	"github.com/ritotombe/supportflow/internal/runtime"
	"github.com/ritotombe/supportflow/internal/testutils"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/registry"
)

// fixture wires the real agents over scripted collaborators.
type fixture struct {
	classifierLLM *testutils.ScriptedCompleter
	resolverLLM   *testutils.ScriptedCompleter
	opsLLM        *testutils.ScriptedCompleter
	escalationLLM *testutils.ScriptedCompleter
	search        *testutils.StaticSearcher
	customers     *testutils.FakeCustomerStore
	tickets       *testutils.FakeTicketStore
	notifier      *testutils.FakeNotifier
}

func newFixture() *fixture {
	return &fixture{
		classifierLLM: testutils.NewCompleter(),
		resolverLLM:   testutils.NewCompleter(),
		opsLLM:        testutils.NewCompleter(),
		escalationLLM: testutils.NewCompleter(),
		search:        &testutils.StaticSearcher{},
		customers:     &testutils.FakeCustomerStore{},
		tickets:       &testutils.FakeTicketStore{},
		notifier:      &testutils.FakeNotifier{},
	}
}

func (f *fixture) engine(opts ...runtime.Option) *runtime.Engine {
	return runtime.NewEngine(runtime.Agents{
		Classifier: classifier.New(f.classifierLLM),
		Resolver:   resolver.New(f.search, f.resolverLLM),
		Operator:   ops.New(f.opsLLM, registry.New(f.customers)),
		Escalator:  escalation.New(f.escalationLLM, f.tickets, f.notifier),
	}, opts...)
}

func run(t *testing.T, e *runtime.Engine, input string) domain.State {
	t.Helper()
	out, err := e.Run(context.Background(), domain.NewState("t-1", domain.HumanMessage(input)))
	require.NoError(t, err)
	require.Equal(t, domain.StatusTerminated, out.Status)
	return out
}

func lastAI(t *testing.T, s domain.State) string {
	t.Helper()
	require.NotEmpty(t, s.Messages)
	last := s.Messages[len(s.Messages)-1]
	require.Equal(t, domain.RoleAI, last.Role)
	return last.Content
}

func TestEngine_LoginRoutesToResolve(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("login", nil)
	f.search.Results = []domain.Snippet{{ID: "kb-login", Title: "Reset your password", Score: 0.75}}
	f.resolverLLM.Then("Open the login screen and tap 'Forgot password'.", nil)

	out := run(t, f.engine(), "I forgot my password")

	assert.Equal(t, domain.IntentLogin, out.Intent)
	assert.Equal(t, []domain.NodeID{domain.NodePrepare, domain.NodeClassify, domain.NodeResolve, domain.NodeEnd}, out.History)
	require.NotNil(t, out.ResolverResult)
	assert.True(t, out.ResolverResult.OK)
	assert.Nil(t, out.EscalationResult)
	assert.Nil(t, out.OpsResult)
	assert.Equal(t, "Open the login screen and tap 'Forgot password'.", lastAI(t, out))
	assert.Empty(t, f.tickets.Escalated)
	assert.Empty(t, f.notifier.Posted)
}

func TestEngine_UnknownGoesStraightToEscalate(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("weather", nil)
	f.escalationLLM.Then("User asked something out of scope.", nil)

	out := run(t, f.engine(), "What's the weather like?")

	assert.Equal(t, domain.IntentUnknown, out.Intent)
	assert.Equal(t, []domain.NodeID{domain.NodePrepare, domain.NodeClassify, domain.NodeEscalate, domain.NodeEnd}, out.History)
	assert.Nil(t, out.ResolverResult)
	assert.Nil(t, out.OpsResult)
	require.NotNil(t, out.EscalationResult)
	assert.Equal(t, "User asked something out of scope.", out.EscalationResult.Reason)
	assert.Empty(t, f.search.Queries)
	assert.Empty(t, f.customers.Calls)

	require.Len(t, f.tickets.Escalated, 1)
	assert.Equal(t, "unknown", f.tickets.Escalated[0].TicketID)
	assert.Nil(t, f.tickets.Escalated[0].Confidence)
	assert.Equal(t, runtime.EscalatedNotice, lastAI(t, out))
}

func TestEngine_SubscriptionRoutesToOps(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("subscription", nil)
	f.opsLLM.Then(`{"action": "get_subscription_status", "args": {}}`, nil)
	f.customers.Subscription = func(userID string) (*domain.SubscriptionStatus, error) {
		assert.Equal(t, "a4ab87", userID)
		return &domain.SubscriptionStatus{Status: "active", Tier: "premium", MonthlyQuota: 4, UsedThisMonth: 1, RemainingQuota: 3}, nil
	}

	out := run(t, f.engine(), "Is my subscription still active?")

	assert.Equal(t, domain.IntentSubscription, out.Intent)
	assert.Equal(t, []domain.NodeID{domain.NodePrepare, domain.NodeClassify, domain.NodeOps, domain.NodeEnd}, out.History)
	assert.Nil(t, out.ResolverResult)
	require.NotNil(t, out.OpsResult)
	assert.True(t, out.OpsResult.OK)
	assert.Equal(t, domain.OpGetSubscriptionStatus, out.OpsResult.Operation)
	assert.Nil(t, out.EscalationResult)
	assert.Contains(t, lastAI(t, out), "premium subscription is active")
	assert.Contains(t, f.opsLLM.Calls[0].User, `"external_user_id":"a4ab87"`)
}

func TestEngine_OpsFailureEndsWithoutEscalating(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("reservation", nil)
	f.opsLLM.Then(`{"action": "reserve_experience", "args": {"experience_id": "exp-jazz"}}`, nil)
	f.customers.Reserve = func(string, string) (*domain.ReservationReceipt, error) {
		return nil, domain.Errorf(domain.CodeNoSlots, "No slots")
	}

	out := run(t, f.engine(), "Book the jazz night")

	require.NotNil(t, out.OpsResult)
	assert.False(t, out.OpsResult.OK)
	assert.Equal(t, domain.CodeNoSlots, out.OpsResult.Error.Code)
	assert.Nil(t, out.EscalationResult)
	msg := lastAI(t, out)
	assert.Contains(t, msg, "Sorry, I couldn't complete that request")
	assert.NotContains(t, msg, "NO_SLOTS")
}

func TestEngine_LowConfidenceEscalates(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("knowledge", nil)
	f.search.Results = []domain.Snippet{{ID: "kb-1", Title: "Premium", Score: 0.2}}
	f.resolverLLM.Then("A confident answer the score does not support.", nil)

	out := run(t, f.engine(), "Tell me about premium perks")

	assert.Equal(t, []domain.NodeID{domain.NodePrepare, domain.NodeClassify, domain.NodeResolve, domain.NodeEscalate, domain.NodeEnd}, out.History)
	require.NotNil(t, out.ResolverResult)
	assert.False(t, out.ResolverResult.OK)
	assert.Equal(t, domain.ReasonLowConfidence, out.ResolverResult.Reason)
	require.NotNil(t, out.EscalationResult)
	assert.Equal(t, escalation.FallbackReason, out.EscalationResult.Reason)

	require.Len(t, f.tickets.Escalated, 1)
	require.NotNil(t, f.tickets.Escalated[0].Confidence)
	assert.InDelta(t, 0.2, *f.tickets.Escalated[0].Confidence, 1e-9)

	contents := aiContents(out)
	assert.Equal(t, []string{runtime.ResolveFallbackNotice, runtime.EscalatedNotice}, contents)
}

func TestEngine_EscalationFailureStillNotifiesUser(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("unknown", nil)
	f.tickets.EscalateErr = errors.New("database is locked")
	f.tickets.AppendErr = errors.New("database is locked")
	f.notifier.Err = errors.New("connection refused")

	out := run(t, f.engine(), "help")

	require.NotNil(t, out.EscalationResult)
	assert.False(t, out.EscalationResult.Ticketing.OK)
	assert.False(t, out.EscalationResult.Intake.OK)
	assert.Equal(t, []string{runtime.EscalatedNotice}, aiContents(out))
}

func TestEngine_EscalatorPanicStillNotifiesUser(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("unknown", nil)
	e := runtime.NewEngine(runtime.Agents{
		Classifier: classifier.New(f.classifierLLM),
		Escalator:  panickingEscalator{},
	})

	out := run(t, e, "help")

	require.NotNil(t, out.EscalationResult)
	assert.Equal(t, domain.CodeException, out.EscalationResult.Ticketing.Error.Code)
	assert.Equal(t, []string{runtime.EscalatedNotice}, aiContents(out))
}

func TestEngine_ClassifierFailureDegradesToUnknown(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("", errors.New("timeout"))

	out := run(t, f.engine(), "I forgot my password")

	assert.Equal(t, domain.IntentUnknown, out.Intent)
	assert.Contains(t, out.History, domain.NodeEscalate)
}

func TestEngine_PrepareAppliesDefaults(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("unknown", nil)
	defaults := runtime.Defaults{AccountID: "acme", UserID: "u-9", TicketID: "T-1", MinConfidence: 0.8}

	out := run(t, f.engine(runtime.WithDefaults(defaults)), "hello")

	assert.Equal(t, "hello", out.Input)
	assert.Equal(t, "acme", out.AccountID)
	assert.Equal(t, "u-9", out.UserID)
	assert.Equal(t, "T-1", out.TicketID)
	require.NotNil(t, out.MinConfidence)
	assert.InDelta(t, 0.8, *out.MinConfidence, 1e-9)
	assert.Equal(t, "T-1", f.tickets.Escalated[0].TicketID)
}

func TestEngine_ExplicitValuesWin(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("knowledge", nil)
	f.search.Results = []domain.Snippet{{ID: "kb-1", Title: "Premium", Score: 0.5}}
	f.resolverLLM.Then("Premium gives you more experiences.", nil)

	in := domain.NewState("t-1",
		domain.HumanMessage("first question"),
		domain.AIMessage("first answer"),
		domain.HumanMessage("what does premium include?"),
	)
	in.AccountID = "acme"
	in.MinConfidence = domain.Float(0.5)

	out, err := f.engine().Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "what does premium include?", out.Input)
	assert.Equal(t, "what does premium include?", f.classifierLLM.Calls[0].User)
	require.Len(t, f.search.Queries, 1)
	assert.Equal(t, "acme", f.search.Queries[0].AccountID)
	assert.InDelta(t, 0.5, f.search.Queries[0].MinConfidence, 1e-9)
	assert.True(t, out.ResolverResult.OK)
	assert.Len(t, out.Messages, 4)
}

func TestEngine_RunDoesNotMutateInput(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("unknown", nil)

	in := domain.NewState("t-1", domain.HumanMessage("hi"))
	_, err := f.engine().Run(context.Background(), in)
	require.NoError(t, err)

	assert.Len(t, in.Messages, 1)
	assert.Empty(t, in.History)
	assert.Nil(t, in.EscalationResult)
	assert.Empty(t, in.Intent)
}

func TestEngine_RunDiscardsStaleResults(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("subscription", nil)
	f.opsLLM.Then(`{"action": "get_subscription_status"}`, nil)

	in := domain.NewState("t-1", domain.HumanMessage("status?"))
	in.ResolverResult = &domain.ResolveResult{Reason: domain.ReasonLowConfidence}
	in.EscalationResult = &domain.EscalationResult{Reason: "old"}
	in.History = []domain.NodeID{domain.NodePrepare}

	out, err := f.engine().Run(context.Background(), in)
	require.NoError(t, err)

	assert.Nil(t, out.ResolverResult)
	assert.Nil(t, out.EscalationResult)
	assert.Equal(t, domain.NodePrepare, out.History[0])
	assert.Len(t, out.History, 4)
}

func TestEngine_LLMRouterHonorsRoutingTable(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("login", nil)
	router := runtime.NewLLMRouter(testutils.NewCompleter("garbage"), nil)
	f.search.Results = []domain.Snippet{{ID: "kb-login", Title: "Reset", Score: 1}}
	f.resolverLLM.Then("Reset it from the login screen.", nil)

	out := run(t, f.engine(runtime.WithRouter(router)), "I forgot my password")

	assert.Equal(t, []domain.NodeID{domain.NodePrepare, domain.NodeClassify, domain.NodeResolve, domain.NodeEnd}, out.History)
}

func TestEngine_BadRouterIsReported(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("login", nil)

	_, err := f.engine(runtime.WithRouter(fixedRouter(domain.NodePrepare))).Run(context.Background(),
		domain.NewState("t-1", domain.HumanMessage("x")))
	assert.ErrorIs(t, err, runtime.ErrCycle)

	_, err = f.engine(runtime.WithRouter(fixedRouter("nowhere"))).Run(context.Background(),
		domain.NewState("t-1", domain.HumanMessage("x")))
	assert.ErrorIs(t, err, runtime.ErrUnknownNode)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	f := newFixture()
	f.classifierLLM.Then("unknown", nil)

	var entered, left []domain.NodeID
	var routes []string
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { entered = append(entered, e.NodeID) },
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			assert.Equal(t, domain.EventNodeLeave, e.Type)
			assert.Equal(t, "t-1", e.ThreadID)
			left = append(left, e.NodeID)
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			routes = append(routes, string(e.From)+">"+string(e.To))
		},
	}

	run(t, f.engine(runtime.WithLifecycleHooks(hooks)), "hi")

	want := []domain.NodeID{domain.NodePrepare, domain.NodeClassify, domain.NodeEscalate}
	assert.Equal(t, want, entered)
	assert.Equal(t, want, left)
	assert.Equal(t, []string{"prepare>classify", "classify>escalate", "escalate>end"}, routes)
}

func TestEngine_Inspect(t *testing.T) {
	nodes := newFixture().engine().Inspect()

	ids := make([]domain.NodeID, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []domain.NodeID{
		domain.NodePrepare, domain.NodeClassify, domain.NodeResolve,
		domain.NodeOps, domain.NodeEscalate, domain.NodeEnd,
	}, ids)
	assert.Equal(t, domain.NodeTypeStart, nodes[0].Type)
	assert.Len(t, nodes[1].Transitions, 3)
	assert.True(t, nodes[len(nodes)-1].Terminal())
}

func aiContents(s domain.State) []string {
	var out []string
	for _, m := range s.Messages {
		if m.Role == domain.RoleAI {
			out = append(out, m.Content)
		}
	}
	return out
}

type fixedRouter domain.NodeID

func (r fixedRouter) Route(context.Context, domain.State) domain.NodeID {
	return domain.NodeID(r)
}

type panickingEscalator struct{}

func (panickingEscalator) Escalate(context.Context, string, string, map[string]any, *float64) domain.EscalationResult {
	panic("ticketing exploded")
}
