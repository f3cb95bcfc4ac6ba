// Package session tracks the state of one harness run: the attached page,
// the registered steps and the pass/fail tally.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"extest/pkg/browser"
)

// ErrClosed is returned when a step is registered after the run started.
var ErrClosed = errors.New("session: registration closed")

// StepFunc is the body of a registered test.
type StepFunc func(ctx context.Context, page browser.Page) error

// Step is a named test body.
type Step struct {
	Name string
	Run  StepFunc
}

// Session is one execution of the registered steps against one page.
// It is not safe for concurrent use; steps run strictly one at a time.
type Session struct {
	id          string
	interactive bool
	page        browser.Page
	steps       []Step
	closed      bool
	passed      int
	failed      int
}

// New creates a session. The interactive flag is fixed for its lifetime.
func New(interactive bool) *Session {
	return &Session{
		id:          uuid.NewString(),
		interactive: interactive,
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Interactive reports whether the operator may be prompted.
func (s *Session) Interactive() bool { return s.interactive }

// Register appends a step. Steps run in registration order.
func (s *Session) Register(name string, run StepFunc) error {
	if s.closed {
		return fmt.Errorf("%w: %q", ErrClosed, name)
	}
	if run == nil {
		return fmt.Errorf("session: step %q has no body", name)
	}
	s.steps = append(s.steps, Step{Name: name, Run: run})
	return nil
}

// Close stops further registration and returns the steps to execute.
func (s *Session) Close() []Step {
	s.closed = true
	steps := make([]Step, len(s.steps))
	copy(steps, s.steps)
	return steps
}

// Steps returns a copy of the registered steps.
func (s *Session) Steps() []Step {
	steps := make([]Step, len(s.steps))
	copy(steps, s.steps)
	return steps
}

// Attach sets the active page.
func (s *Session) Attach(page browser.Page) { s.page = page }

// Detach clears the active page.
func (s *Session) Detach() { s.page = nil }

// Page returns the active page, or nil outside a run.
func (s *Session) Page() browser.Page { return s.page }

func (s *Session) RecordPass() { s.passed++ }
func (s *Session) RecordFail() { s.failed++ }

func (s *Session) Passed() int { return s.passed }
func (s *Session) Failed() int { return s.failed }

// Completed is the number of finished comparisons.
func (s *Session) Completed() int { return s.passed + s.failed }

// Succeeded reports whether no comparison failed.
func (s *Session) Succeeded() bool { return s.failed == 0 }
