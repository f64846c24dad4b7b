package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// ErrScriptExhausted is returned by ScriptedCompleter when no reply is queued.
var ErrScriptExhausted = errors.New("no scripted reply left")

// Call records one completion request.
type Call struct {
	System string
	User   string
}

// Reply is one scripted completion outcome.
type Reply struct {
	Text string
	Err  error
}

// ScriptedCompleter returns queued replies in order and records every call.
type ScriptedCompleter struct {
	mu      sync.Mutex
	replies []Reply
	Calls   []Call
}

// NewCompleter queues plain text replies.
func NewCompleter(texts ...string) *ScriptedCompleter {
	c := &ScriptedCompleter{}
	for _, t := range texts {
		c.replies = append(c.replies, Reply{Text: t})
	}
	return c
}

// Then queues another reply.
func (c *ScriptedCompleter) Then(text string, err error) *ScriptedCompleter {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, Reply{Text: text, Err: err})
	return c
}

func (c *ScriptedCompleter) Complete(_ context.Context, system, user string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, Call{System: system, User: user})
	if len(c.replies) == 0 {
		return "", ErrScriptExhausted
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return r.Text, r.Err
}

// CallCount is safe for concurrent use.
func (c *ScriptedCompleter) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// StaticSearcher returns a fixed search outcome.
type StaticSearcher struct {
	Results []domain.Snippet
	Err     error
	Queries []domain.SearchQuery
}

func (s *StaticSearcher) Search(_ context.Context, q domain.SearchQuery) (domain.SearchResult, error) {
	s.Queries = append(s.Queries, q)
	if s.Err != nil {
		return domain.SearchResult{}, s.Err
	}
	results := s.Results
	if q.TopK > 0 && len(results) > q.TopK {
		results = results[:q.TopK]
	}
	best := 0.0
	if len(results) > 0 {
		best = results[0].Score
	}
	return domain.SearchResult{
		Results:        results,
		BestScore:      best,
		MeetsThreshold: best >= q.MinConfidence,
	}, nil
}

// FakeCustomerStore answers from function fields; nil fields return zero values.
type FakeCustomerStore struct {
	mu    sync.Mutex
	Calls []string

	Profile      func(externalUserID string) (*domain.Profile, error)
	Subscription func(userID string) (*domain.SubscriptionStatus, error)
	List         func(userID string, upcomingOnly bool) (*domain.ReservationList, error)
	Reserve      func(userID, experienceID string) (*domain.ReservationReceipt, error)
	Cancel       func(reservationID, userID string) (*domain.ReservationReceipt, error)
}

func (f *FakeCustomerStore) record(op domain.Operation) {
	f.mu.Lock()
	f.Calls = append(f.Calls, string(op))
	f.mu.Unlock()
}

func (f *FakeCustomerStore) GetUserProfile(_ context.Context, externalUserID string) (*domain.Profile, error) {
	f.record(domain.OpGetUserProfile)
	if f.Profile == nil {
		return &domain.Profile{UserID: externalUserID}, nil
	}
	return f.Profile(externalUserID)
}

func (f *FakeCustomerStore) GetSubscriptionStatus(_ context.Context, userID string) (*domain.SubscriptionStatus, error) {
	f.record(domain.OpGetSubscriptionStatus)
	if f.Subscription == nil {
		return &domain.SubscriptionStatus{Status: "active"}, nil
	}
	return f.Subscription(userID)
}

func (f *FakeCustomerStore) ListReservations(_ context.Context, userID string, upcomingOnly bool) (*domain.ReservationList, error) {
	f.record(domain.OpListReservations)
	if f.List == nil {
		return &domain.ReservationList{Reservations: []domain.ReservationItem{}}, nil
	}
	return f.List(userID, upcomingOnly)
}

func (f *FakeCustomerStore) ReserveExperience(_ context.Context, userID, experienceID string) (*domain.ReservationReceipt, error) {
	f.record(domain.OpReserveExperience)
	if f.Reserve == nil {
		return &domain.ReservationReceipt{ReservationID: "r-1"}, nil
	}
	return f.Reserve(userID, experienceID)
}

func (f *FakeCustomerStore) CancelReservation(_ context.Context, reservationID, userID string) (*domain.ReservationReceipt, error) {
	f.record(domain.OpCancelReservation)
	if f.Cancel == nil {
		return &domain.ReservationReceipt{ReservationID: reservationID, Status: domain.ReservationCancelled}, nil
	}
	return f.Cancel(reservationID, userID)
}

// TicketCall records an escalation or append on FakeTicketStore.
type TicketCall struct {
	TicketID   string
	Role       domain.Role
	Content    string
	Confidence *float64
}

// FakeTicketStore records ticket writes and fails on demand.
type FakeTicketStore struct {
	mu          sync.Mutex
	Appended    []TicketCall
	Escalated   []TicketCall
	AppendErr   error
	EscalateErr error
}

func (f *FakeTicketStore) AppendTicketMessage(_ context.Context, ticketID string, role domain.Role, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AppendErr != nil {
		return "", f.AppendErr
	}
	f.Appended = append(f.Appended, TicketCall{TicketID: ticketID, Role: role, Content: content})
	return "m-1", nil
}

func (f *FakeTicketStore) TicketHistory(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketMessage
	for _, c := range f.Appended {
		if c.TicketID == ticketID {
			out = append(out, domain.TicketMessage{TicketID: c.TicketID, Role: c.Role, Content: c.Content})
		}
	}
	return out, nil
}

func (f *FakeTicketStore) EscalateTicket(_ context.Context, ticketID, reason string, lastConfidence *float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EscalateErr != nil {
		return "", f.EscalateErr
	}
	f.Escalated = append(f.Escalated, TicketCall{TicketID: ticketID, Content: reason, Confidence: lastConfidence})
	return domain.TicketEscalated, nil
}

// FakeNotifier records escalations posted to the intake system.
type FakeNotifier struct {
	mu     sync.Mutex
	Posted []ports.Escalation
	Result *domain.Result
	Err    error
}

func (f *FakeNotifier) Notify(_ context.Context, e ports.Escalation) (domain.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Posted = append(f.Posted, e)
	if f.Err != nil {
		return domain.Result{}, f.Err
	}
	if f.Result != nil {
		return *f.Result, nil
	}
	return domain.Success(map[string]any{"received": true}), nil
}
