package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// TicketStore implements ports.TicketStore and ports.KnowledgeSearcher.
type TicketStore struct {
	*DB
}

var (
	_ ports.TicketStore       = (*TicketStore)(nil)
	_ ports.KnowledgeSearcher = (*TicketStore)(nil)
	_ ports.TicketOpener      = (*TicketStore)(nil)
)

// NewTicketStore wraps an open database.
func NewTicketStore(db *DB) *TicketStore {
	return &TicketStore{DB: db}
}

// Search ranks the account's knowledge articles against the query.
func (s *TicketStore) Search(ctx context.Context, q domain.SearchQuery) (domain.SearchResult, error) {
	articles, err := s.Articles(ctx, q.AccountID)
	if err != nil {
		return domain.SearchResult{}, err
	}
	return Rank(articles, q.Query, q.TopK, q.MinConfidence), nil
}

// Articles returns the account's knowledge base in insertion order.
func (s *TicketStore) Articles(ctx context.Context, accountID string) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT article_id, account_id, title, content, tags FROM knowledge WHERE account_id = ? ORDER BY rowid",
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("query knowledge: %w", err)
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Title, &a.Content, &a.Tags); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateTicket opens a new ticket.
func (s *TicketStore) CreateTicket(ctx context.Context, accountID, userID, channel string) (*domain.Ticket, error) {
	t := &domain.Ticket{
		ID:        uuid.NewString(),
		AccountID: accountID,
		UserID:    userID,
		Channel:   channel,
		Status:    domain.TicketOpen,
		CreatedAt: s.now().UTC().Truncate(time.Second),
	}
	if err := insertTicket(ctx, s.db, t); err != nil {
		return nil, err
	}
	return t, nil
}

func insertTicket(ctx context.Context, q queryer, t *domain.Ticket) error {
	ts := formatTime(t.CreatedAt)
	_, err := q.ExecContext(ctx,
		`INSERT INTO tickets(ticket_id, account_id, user_id, channel, status, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.UserID, t.Channel, t.Status, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// GetTicket returns ticket metadata.
func (s *TicketStore) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var (
		t       domain.Ticket
		created string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT ticket_id, account_id, user_id, channel, status, created_at FROM tickets WHERE ticket_id = ?",
		ticketID,
	).Scan(&t.ID, &t.AccountID, &t.UserID, &t.Channel, &t.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.CodeNotFound, "Ticket metadata not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	t.CreatedAt = parseTime(created)
	return &t, nil
}

// AppendTicketMessage records a message in the ticket history and returns its id.
func (s *TicketStore) AppendTicketMessage(ctx context.Context, ticketID string, role domain.Role, content string) (string, error) {
	return s.appendMessage(ctx, s.db, ticketID, role, content)
}

func (s *TicketStore) appendMessage(ctx context.Context, q queryer, ticketID string, role domain.Role, content string) (string, error) {
	id := uuid.NewString()
	_, err := q.ExecContext(ctx,
		"INSERT INTO ticket_messages(message_id, ticket_id, role, content, created_at) VALUES(?, ?, ?, ?, ?)",
		id, ticketID, string(role), content, formatTime(s.now()),
	)
	if err != nil {
		return "", fmt.Errorf("append ticket message: %w", err)
	}
	return id, nil
}

// TicketHistory returns the ticket's messages, oldest first.
func (s *TicketStore) TicketHistory(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, ticket_id, role, content, created_at FROM ticket_messages
		 WHERE ticket_id = ? ORDER BY created_at, rowid`,
		ticketID,
	)
	if err != nil {
		return nil, fmt.Errorf("query ticket history: %w", err)
	}
	defer rows.Close()

	out := []domain.TicketMessage{}
	for rows.Next() {
		var (
			m       domain.TicketMessage
			role    string
			created string
		)
		if err := rows.Scan(&m.ID, &m.TicketID, &role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan ticket message: %w", err)
		}
		m.Role = domain.Role(role)
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// EscalateTicket marks the ticket escalated and records the reason in its history.
func (s *TicketStore) EscalateTicket(ctx context.Context, ticketID, reason string, lastConfidence *float64) (string, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE tickets SET status = ?, updated_at = ? WHERE ticket_id = ?",
			domain.TicketEscalated, formatTime(s.now()), ticketID,
		)
		if err != nil {
			return fmt.Errorf("escalate ticket: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Errorf(domain.CodeNotFound, "Ticket metadata not found")
		}

		note := fmt.Sprintf("Escalated: %s. Confidence=%s", reason, formatConfidence(lastConfidence))
		_, err = s.appendMessage(ctx, tx, ticketID, domain.RoleSystem, note)
		return err
	})
	if err != nil {
		return "", err
	}
	return domain.TicketEscalated, nil
}

func formatConfidence(c *float64) string {
	if c == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*c, 'f', -1, 64)
}
