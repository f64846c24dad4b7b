package ports

import "context"

// Completer is the language-model completion capability.
//
// Failures (missing credentials, network, timeout, non-2xx) are returned as
// *domain.Error values; implementations must never panic.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system, user string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}
