// Package openai implements ports.Completer on the OpenAI Chat Completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/ritotombe/supportflow/internal/logging"
	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// Config controls the completion request.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

// DefaultConfig returns the request settings used when fields are left zero.
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-3.5-turbo",
		MaxTokens:   1000,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
	}
}

// Client implements ports.Completer.
type Client struct {
	client *openai.Client
	config Config
	logger *slog.Logger
}

var _ ports.Completer = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client. A missing API key is not an error here: every
// Complete call then fails with NO_API_KEY.
func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		// Failures fold into the caller's failure path; no hidden retries.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(reqOpts...)

	c := &Client{client: &client, config: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends a system instruction and a user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if c.config.APIKey == "" {
		return "", domain.Errorf(domain.CodeNoAPIKey, "OPENAI_API_KEY not set")
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(c.config.MaxTokens),
		Temperature: openai.Float(c.config.Temperature),
	}

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Warn("completion failed", "model", c.config.Model, "err", err)
		return "", classify(err)
	}
	c.logger.Debug("completion", "model", c.config.Model, "duration", time.Since(start))

	var content string
	if len(completion.Choices) > 0 {
		content = strings.TrimSpace(completion.Choices[0].Message.Content)
	}
	if content == "" {
		// Unknown shape: hand back the raw body rather than nothing.
		content = completion.RawJSON()
	}
	return content, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	switch {
	case errors.As(err, &apiErr):
		return &domain.Error{
			Code:    domain.CodeHTTPError,
			Message: fmt.Sprintf("status %d: %s", apiErr.StatusCode, apiErr.Message),
		}
	case errors.Is(err, context.DeadlineExceeded):
		return domain.Errorf(domain.CodeTimeout, "%v", err)
	default:
		return domain.Errorf(domain.CodeException, "%v", err)
	}
}
