package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// Mask replaces every PII match in stored messages.
const Mask = "***"

// DefaultPIIPatterns match email addresses, card-like digit runs and phone numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\b(?:\d[ -]?){13,16}\b`,
	`\+?\d[\d -]{7,}\d`,
}

type piiMiddleware struct {
	next     ports.ThreadStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks message content matching any of the patterns before
// it is stored. The caller's thread is left untouched.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ThreadStore) ports.ThreadStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, thread *ports.Thread) error {
	cloned := *thread
	cloned.Messages = make([]domain.Message, len(thread.Messages))
	for i, msg := range thread.Messages {
		msg.Content = m.mask(msg.Content)
		cloned.Messages[i] = msg
	}
	return m.next.Save(ctx, &cloned)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *piiMiddleware) Load(ctx context.Context, threadID string) (*ports.Thread, error) {
	return m.next.Load(ctx, threadID)
}

func (m *piiMiddleware) Delete(ctx context.Context, threadID string) error {
	return m.next.Delete(ctx, threadID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
