// Package intake posts escalations to the external escalation intake service.
package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// DefaultPath is the escalation endpoint relative to the base URL.
const DefaultPath = "/api/escalations"

// DefaultTimeout bounds one notification.
const DefaultTimeout = 15 * time.Second

// Config locates and authenticates against the intake service.
type Config struct {
	BaseURL  string
	Path     string
	APIToken string // sent as a bearer token
	APIKey   string // sent as X-API-Key
	Timeout  time.Duration
}

// Notifier implements ports.Notifier over HTTP.
type Notifier struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// Option configures the Notifier.
type Option func(*Notifier)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		n.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// New creates a notifier.
func New(cfg Config, opts ...Option) *Notifier {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	n := &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify posts the escalation. Every failure is returned both as a failed
// Result and as the matching *domain.Error.
func (n *Notifier) Notify(ctx context.Context, e ports.Escalation) (domain.Result, error) {
	base := strings.TrimRight(n.cfg.BaseURL, "/")
	if base == "" {
		return fail(0, nil, domain.Errorf(domain.CodeNoBaseURL, "VOCAREUM_BASE_URL not set"))
	}
	url := base + "/" + strings.TrimLeft(n.cfg.Path, "/")

	body, err := json.Marshal(e)
	if err != nil {
		return fail(0, nil, domain.Errorf(domain.CodeException, "encode escalation: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fail(0, nil, domain.Errorf(domain.CodeException, "%v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if n.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.APIToken)
	}
	if n.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", n.cfg.APIKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("escalation intake unreachable", "ticket_id", e.TicketID, "err", err)
		if isTimeout(err) {
			return fail(0, nil, domain.Errorf(domain.CodeTimeout, "%v", err))
		}
		return fail(0, nil, domain.Errorf(domain.CodeException, "%v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, nil, domain.Errorf(domain.CodeException, "read response: %v", err))
	}
	data := decodeBody(resp.Header.Get("Content-Type"), raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warn("escalation intake rejected", "ticket_id", e.TicketID, "status", resp.StatusCode)
		return fail(resp.StatusCode, data, &domain.Error{Code: domain.CodeHTTPError, Message: string(raw)})
	}

	n.logger.Info("escalation posted", "ticket_id", e.TicketID, "status", resp.StatusCode)
	return domain.Result{OK: true, Data: data, StatusCode: resp.StatusCode}, nil
}

func fail(status int, data any, err *domain.Error) (domain.Result, error) {
	return domain.Result{OK: false, Data: data, Error: err, StatusCode: status}, err
}

// decodeBody parses JSON bodies and wraps anything else as {"text": body}.
func decodeBody(contentType string, raw []byte) any {
	if strings.Contains(contentType, "json") || bytes.HasPrefix(raw, []byte("{")) {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return map[string]any{"text": string(raw)}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
