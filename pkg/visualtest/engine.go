package visualtest

import (
	"context"
	"fmt"
	"log/slog"

	"extest/pkg/baseline"
	"extest/pkg/confirm"
	"extest/pkg/pixels"
)

// UpdatePrompt is shown before a baseline is overwritten.
const UpdatePrompt = "Update expected image?"

// Verdict is the resolution of one comparison.
type Verdict int

const (
	Fail Verdict = iota
	Pass
	Updated // the operator accepted the actual image as the new baseline
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Updated:
		return "updated"
	default:
		return "fail"
	}
}

// Outcome describes one comparison against a baseline.
type Outcome struct {
	Record   baseline.Record
	Verdict  Verdict
	Mismatch int
	DiffPath string // set when a diff artifact was written
	DiffURI  string // inline data URI of the diff artifact
	// Err classifies what went wrong, even when the operator resolved it
	// with an update.
	Err error
}

// Failed reports whether the comparison counts as a failure.
func (o Outcome) Failed() bool { return o.Verdict == Fail }

// Reporter receives comparison progress.
type Reporter interface {
	// Problem is called once per comparison that did not match, before
	// the operator is prompted.
	Problem(o Outcome)
	Updating(path string)
	Done(o Outcome)
}

// Tally is the part of the session the engine updates.
type Tally interface {
	Interactive() bool
	RecordPass()
	RecordFail()
}

// Engine decides whether screenshots match their baselines and, in
// interactive mode, lets the operator replace baselines.
type Engine struct {
	Store    *baseline.Store
	Confirm  confirm.Confirmer
	Reporter Reporter
	Options  CompareOptions
	Logger   *slog.Logger
}

// NewEngine creates an Engine with default comparison options.
func NewEngine(store *baseline.Store, confirmer confirm.Confirmer, reporter Reporter) *Engine {
	return &Engine{
		Store:    store,
		Confirm:  confirmer,
		Reporter: reporter,
		Options:  DefaultOptions(),
		Logger:   slog.Default(),
	}
}

type nopReporter struct{}

func (nopReporter) Problem(Outcome) {}
func (nopReporter) Updating(string) {}
func (nopReporter) Done(Outcome) {}

func (e *Engine) reporter() Reporter {
	if e.Reporter == nil {
		return nopReporter{}
	}
	return e.Reporter
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// CompareAgainstBaseline compares actual with the baseline of rec and records
// exactly one pass or fail on the tally. Per-comparison problems are carried
// in the Outcome; the returned error is non-nil only for failures that must
// abort the run (ErrFatalIO).
//
// A missing baseline is resolved without a pixel diff: either the operator
// accepts actual as the new baseline, or the comparison fails.
func (e *Engine) CompareAgainstBaseline(ctx context.Context, tally Tally, rec baseline.Record, actual pixels.Buffer) (Outcome, error) {
	o, err := e.evaluate(ctx, tally.Interactive(), rec, actual)
	if err != nil {
		return o, err
	}

	if o.Failed() {
		tally.RecordFail()
	} else {
		tally.RecordPass()
	}
	e.logger().Debug("comparison done", "name", rec.Name, "verdict", o.Verdict.String(), "mismatch", o.Mismatch)
	e.reporter().Done(o)
	return o, nil
}

func (e *Engine) evaluate(ctx context.Context, interactive bool, rec baseline.Record, actual pixels.Buffer) (Outcome, error) {
	o := Outcome{Record: rec, Verdict: Fail}
	rep := e.reporter()

	if !e.Store.Exists(rec.ExpectedPath) {
		o.Err = fmt.Errorf("%w: %s", ErrMissingBaseline, rec.ExpectedPath)
		rep.Problem(o)
		return e.offerUpdate(ctx, interactive, o, actual)
	}

	expected, err := e.Store.Read(rec.ExpectedPath)
	if err != nil {
		o.Err = err
		rep.Problem(o)
		return o, nil
	}

	result, err := Diff(expected, actual, e.Options)
	if err != nil {
		o.Err = err
		rep.Problem(o)
		return o, nil
	}
	o.Mismatch = result.Mismatch

	if !e.Options.Exceeds(result.Mismatch) {
		o.Verdict = Pass
		return o, nil
	}

	o.Err = fmt.Errorf("%w: %d pixels differ", ErrMismatchThreshold, result.Mismatch)
	o.DiffPath = e.Store.DiffPath(rec.ActualPath)
	if err := e.Store.Write(o.DiffPath, result.Diff); err != nil {
		return o, fmt.Errorf("%w: %w", ErrFatalIO, err)
	}
	if uri, err := pixels.DataURI(result.Diff); err == nil {
		o.DiffURI = uri
	}
	rep.Problem(o)

	return e.offerUpdate(ctx, interactive, o, actual)
}

// offerUpdate asks the operator to accept actual as the baseline. Outside
// interactive mode the outcome stays a failure.
func (e *Engine) offerUpdate(ctx context.Context, interactive bool, o Outcome, actual pixels.Buffer) (Outcome, error) {
	if !interactive || e.Confirm == nil {
		return o, nil
	}

	accepted, err := e.Confirm.Confirm(ctx, UpdatePrompt)
	if err != nil {
		return o, fmt.Errorf("%w: confirm update of %s: %w", ErrFatalIO, o.Record.ExpectedPath, err)
	}
	if !accepted {
		e.logger().Info("baseline update declined", "path", o.Record.ExpectedPath)
		return o, nil
	}

	e.reporter().Updating(o.Record.ExpectedPath)
	if err := e.Store.Write(o.Record.ExpectedPath, actual); err != nil {
		return o, fmt.Errorf("%w: %w", ErrFatalIO, err)
	}
	o.Verdict = Updated
	return o, nil
}
