package ports

import (
	"context"
	"time"

	"github.com/ritotombe/supportflow/pkg/domain"
)

// KnowledgeSearcher ranks knowledge snippets for a query.
// Results are sorted by descending score, ties kept in input order, scores in [0,1].
type KnowledgeSearcher interface {
	Search(ctx context.Context, q domain.SearchQuery) (domain.SearchResult, error)
}

// CustomerStore exposes the subscription and reservation data operations.
// Rule violations are reported as *domain.Error with a stable code.
type CustomerStore interface {
	GetUserProfile(ctx context.Context, externalUserID string) (*domain.Profile, error)
	GetSubscriptionStatus(ctx context.Context, userID string) (*domain.SubscriptionStatus, error)
	ListReservations(ctx context.Context, userID string, upcomingOnly bool) (*domain.ReservationList, error)

	// ReserveExperience checks and writes within a single transaction.
	ReserveExperience(ctx context.Context, userID, experienceID string) (*domain.ReservationReceipt, error)
	// CancelReservation checks and writes within a single transaction.
	CancelReservation(ctx context.Context, reservationID, userID string) (*domain.ReservationReceipt, error)
}

// TicketStore is the primary ticketing system.
type TicketStore interface {
	AppendTicketMessage(ctx context.Context, ticketID string, role domain.Role, content string) (string, error)
	TicketHistory(ctx context.Context, ticketID string) ([]domain.TicketMessage, error)
	// EscalateTicket marks the ticket escalated; domain.CodeNotFound if its metadata is missing.
	EscalateTicket(ctx context.Context, ticketID, reason string, lastConfidence *float64) (string, error)
}

// TicketOpener is implemented by ticket stores that can open tickets.
// The engine uses it to give a new thread its own ticket.
type TicketOpener interface {
	CreateTicket(ctx context.Context, accountID, userID, channel string) (*domain.Ticket, error)
}

// Escalation is the body posted to the escalation intake system.
type Escalation struct {
	TicketID string         `json:"ticket_id"`
	Reason   string         `json:"reason"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Notifier posts escalations to an external intake endpoint.
type Notifier interface {
	Notify(ctx context.Context, e Escalation) (domain.Result, error)
}

// Thread is the persisted part of a conversation, keyed by thread ID.
type Thread struct {
	ID        string           `json:"id"`
	Messages  []domain.Message `json:"messages"`
	TicketID  string           `json:"ticket_id,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ThreadStore persists conversations across turns.
type ThreadStore interface {
	// Save persists the thread under its ID.
	Save(ctx context.Context, thread *Thread) error

	// Load retrieves the thread for a given ID.
	// Returns domain.ErrThreadNotFound if it does not exist.
	Load(ctx context.Context, threadID string) (*Thread, error)

	// Delete removes the thread.
	Delete(ctx context.Context, threadID string) error

	// List returns the IDs of stored threads.
	List(ctx context.Context) ([]string, error)
}
