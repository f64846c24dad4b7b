package supportflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ritotombe/supportflow/pkg/domain"
)

// Runner drives a line-based conversation with the Engine over the provided IO.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer

	// Request seeds identifiers for every turn; ThreadID is kept across turns.
	Request Request
}

// ContentRenderer transforms assistant replies before output (markdown to ANSI for example).
type ContentRenderer func(string) (string, error)

// Run reads one message per line until EOF, "exit" or "quit" and prints the
// assistant replies produced by each turn.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if r.Input == nil {
		return errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return errors.New("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)
	req := r.Request

	if !r.Headless {
		fmt.Fprintln(r.Output, "--- supportflow chat (type 'exit' to quit) ---")
	}

	for {
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		eof := err != nil

		input := strings.TrimSpace(text)
		if input == "exit" || input == "quit" {
			if !r.Headless {
				fmt.Fprintln(r.Output, "Bye!")
			}
			return nil
		}
		if input != "" {
			req.Message = input
			state, herr := engine.Handle(ctx, req)
			if herr != nil {
				if errors.Is(herr, ErrInputTooLarge) || errors.Is(herr, ErrInvalidUTF8) {
					fmt.Fprintf(r.Output, "Input rejected: %v\n", herr)
					continue
				}
				return herr
			}
			req.ThreadID = state.ThreadID
			r.print(domain.LatestReplies(state.Messages))
		}
		if eof {
			return nil
		}
	}
}

func (r *Runner) print(msgs []string) {
	for _, msg := range msgs {
		out := msg
		if r.Renderer != nil {
			if rendered, err := r.Renderer(msg); err == nil {
				out = rendered
			}
		}
		fmt.Fprintln(r.Output, strings.TrimSpace(out))
	}
}
