// Package confirm asks the operator yes/no questions.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirmer answers a yes/no prompt.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Func adapts a function to a Confirmer.
type Func func(ctx context.Context, prompt string) (bool, error)

func (f Func) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Always answers every prompt with the same value.
func Always(answer bool) Confirmer {
	return Func(func(ctx context.Context, _ string) (bool, error) {
		return answer, ctx.Err()
	})
}

// Terminal prompts on Out and reads one line per question from In.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminal prompts on stdout and reads stdin.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stdout}
}

// IsTerminal reports whether f is attached to a TTY.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type lineResult struct {
	line string
	err  error
}

// Confirm prints "<prompt> (y/n): " and answers yes when the reply contains
// a "y". End of input counts as no.
//
// The reply is read a byte at a time so nothing past the newline is
// consumed; each call owns the input only for the duration of one line.
func (t *Terminal) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := fmt.Fprintf(t.Out, "%s (y/n): ", prompt); err != nil {
		return false, fmt.Errorf("write prompt: %w", err)
	}

	done := make(chan lineResult, 1)
	go func() {
		line, err := readLine(t.In)
		done <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-done:
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return false, fmt.Errorf("read reply: %w", res.err)
		}
		return Affirmative(res.line), nil
	}
}

// Affirmative reports whether a reply means yes.
func Affirmative(reply string) bool {
	return strings.Contains(strings.ToLower(reply), "y")
}

func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	b := make([]byte, 1)
	for {
		n, err := r.Read(b)
		if n == 1 {
			if b[0] == '\n' {
				return strings.TrimSuffix(sb.String(), "\r"), nil
			}
			sb.WriteByte(b[0])
		}
		if err != nil {
			return sb.String(), err
		}
	}
}
