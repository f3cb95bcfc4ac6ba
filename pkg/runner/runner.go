// Package runner owns one harness run: it serves or probes the target,
// launches the browser, executes the registered steps in order and
// tallies the comparisons they make.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"extest/pkg/baseline"
	"extest/pkg/browser"
	"extest/pkg/config"
	"extest/pkg/confirm"
	"extest/pkg/pixels"
	"extest/pkg/report"
	"extest/pkg/session"
	"extest/pkg/static"
	"extest/pkg/visualtest"
	"extest/std/net"
)

// ErrNoPage is returned when a page is asked for outside a run.
var ErrNoPage = errors.New("context not created, did you create a Runner?")

// Browser is a launched browser with its single page.
type Browser interface {
	browser.Page
	Close()
}

// Launcher starts a browser. Tests replace it with a fake.
type Launcher func(ctx context.Context, opts browser.Options) (Browser, error)

// LaunchChrome is the default Launcher.
func LaunchChrome(ctx context.Context, opts browser.Options) (Browser, error) {
	c, err := browser.Launch(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Harness is what test code registers steps with and calls from inside them.
type Harness interface {
	Test(name string, run session.StepFunc) error
	ExpectLoaded(ctx context.Context)
	ExpectPage(name, actualPath string) *Expectation
	ComparePage(ctx context.Context, name, actualPath, expectedPath string) error
}

var _ Harness = (*Runner)(nil)

// Options wires a Runner. Zero fields get defaults.
type Options struct {
	Config  config.Config
	Console *report.Console
	Confirm confirm.Confirmer
	Store   *baseline.Store
	Logger  *slog.Logger
	Launch  Launcher
}

// StepError is a step that returned an error without aborting the run.
type StepError struct {
	Name string
	Err  error
}

// Result summarizes a finished run.
type Result struct {
	SessionID  string
	Passed     int
	Failed     int
	StepErrors []StepError
	// Fatal is the error that aborted the remaining steps, if any.
	Fatal error
}

// OK reports whether the run should exit successfully.
func (r Result) OK() bool {
	return r.Fatal == nil && r.Failed == 0 && len(r.StepErrors) == 0
}

// Runner executes registered steps against one page.
type Runner struct {
	cfg     config.Config
	session *session.Session
	store   *baseline.Store
	engine  *visualtest.Engine
	console *report.Console
	logger  *slog.Logger
	launch  Launcher
}

// New creates a Runner. The interactive flag of cfg is fixed for the run.
func New(opts Options) *Runner {
	if opts.Console == nil {
		opts.Console = report.New()
	}
	if opts.Store == nil {
		opts.Store = baseline.NewStore("")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Launch == nil {
		opts.Launch = LaunchChrome
	}
	if opts.Confirm == nil && opts.Config.Interactive {
		opts.Confirm = confirm.NewTerminal()
	}
	if opts.Config.DiffPrefix != "" {
		opts.Store.DiffPrefix = opts.Config.DiffPrefix
	}

	sess := session.New(opts.Config.Interactive)
	logger := opts.Logger.With("session", sess.ID())

	engine := visualtest.NewEngine(opts.Store, opts.Confirm, opts.Console)
	engine.Options = visualtest.CompareOptions{
		Threshold:     opts.Config.Threshold,
		MismatchLimit: opts.Config.MismatchLimit,
	}
	engine.Logger = logger

	return &Runner{
		cfg:     opts.Config,
		session: sess,
		store:   opts.Store,
		engine:  engine,
		console: opts.Console,
		logger:  logger,
		launch:  opts.Launch,
	}
}

// Session exposes the run's session.
func (r *Runner) Session() *session.Session { return r.session }

// Test registers a step. Steps run in registration order once Start is called.
func (r *Runner) Test(name string, run session.StepFunc) error {
	return r.session.Register(name, run)
}

// ExpectLoaded waits for the play button, clicks it and removes the
// left-over play root. Failures are reported and swallowed.
func (r *Runner) ExpectLoaded(ctx context.Context) {
	page := r.session.Page()
	if page == nil {
		return
	}
	if err := r.clickPlay(ctx, page); err != nil {
		r.console.Error("Could not confirm Excalibur loaded properly: %v", err)
	}
}

func (r *Runner) clickPlay(ctx context.Context, page browser.Page) error {
	if err := page.WaitVisible(ctx, r.cfg.LoadedSelector); err != nil {
		return err
	}
	if err := page.Click(ctx, r.cfg.LoadedSelector); err != nil {
		return err
	}
	return page.Evaluate(ctx, removeElementScript(r.cfg.PlayRootSelector), nil)
}

func removeElementScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const root = document.querySelector(%s);
	if (root && root.parentNode) {
		root.parentNode.removeChild(root);
	}
})()`, strconv.Quote(selector))
}

// Expectation is a pending screenshot comparison.
type Expectation struct {
	r          *Runner
	name       string
	actualPath string
}

// ExpectPage starts a comparison of the current page, saved at actualPath.
func (r *Runner) ExpectPage(name, actualPath string) *Expectation {
	return &Expectation{r: r, name: name, actualPath: actualPath}
}

// ToBe takes the screenshot and compares it with the baseline at
// expectedPath.
func (e *Expectation) ToBe(ctx context.Context, expectedPath string) error {
	return e.r.ComparePage(ctx, e.name, e.actualPath, expectedPath)
}

// ComparePage screenshots the page to actualPath and compares it with the
// baseline at expectedPath. Comparison problems are tallied, not returned;
// the error is non-nil for fatal failures and for a screenshot that could
// not be taken.
func (r *Runner) ComparePage(ctx context.Context, name, actualPath, expectedPath string) error {
	page := r.session.Page()
	if page == nil {
		r.console.Error("Context not created, did you create a Runner?")
		return ErrNoPage
	}

	r.console.Expect(name)
	if err := r.store.EnsureDir(actualPath); err != nil {
		return fmt.Errorf("%w: %w", visualtest.ErrFatalIO, err)
	}

	data, err := page.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("screenshot %q: %w", name, err)
	}
	actual, err := pixels.DecodeBytes(data)
	if err != nil {
		return fmt.Errorf("screenshot %q: %w", name, err)
	}
	if err := r.store.WriteBytes(actualPath, data); err != nil {
		return fmt.Errorf("%w: %w", visualtest.ErrFatalIO, err)
	}

	rec := baseline.Record{Name: name, ExpectedPath: expectedPath, ActualPath: actualPath}
	_, err = r.engine.CompareAgainstBaseline(ctx, r.session, rec, actual)
	return err
}

func (r *Runner) browserOptions() browser.Options {
	opts := browser.DefaultOptions()
	if r.cfg.Width > 0 {
		opts.Width = r.cfg.Width
	}
	if r.cfg.Height > 0 {
		opts.Height = r.cfg.Height
	}
	opts.Headless = !r.cfg.Headful
	opts.ShowLogs = r.cfg.ShowLogs
	opts.ExecPath = r.cfg.ChromePath
	opts.Logger = r.logger
	return opts
}

// target serves the static directory when configured and returns the URL
// to open along with a cleanup func.
func (r *Runner) target(ctx context.Context) (string, func(), error) {
	if r.cfg.Dir != "" {
		srv := static.New(r.cfg.Dir, r.cfg.Port)
		srv.Logger = r.logger
		if err := srv.Start(); err != nil {
			return "", nil, err
		}
		url := srv.URL()
		// A relative url picks a page inside the served directory.
		if r.cfg.URL != "" && !net.IsNetworkURL(r.cfg.URL) {
			url = net.ResolveURL(url, r.cfg.URL)
		}
		return url, func() {
			if err := srv.Close(); err != nil {
				r.logger.Warn("static server shutdown", "err", err)
			}
		}, nil
	}

	url := r.cfg.TargetURL()
	if net.IsNetworkURL(url) {
		if err := net.Probe(ctx, url); err != nil {
			return "", nil, fmt.Errorf("target unreachable: %w", err)
		}
	}
	return url, func() {}, nil
}

// IsFatal reports whether err must abort the remaining steps.
func IsFatal(err error) bool {
	return visualtest.IsFatal(err) || errors.Is(err, ErrNoPage)
}

// Start runs every registered step against a freshly launched browser and
// prints the summary. Registration is closed once Start begins. A non-nil
// error means the run could not start or was aborted; Result is filled in
// either way.
func (r *Runner) Start(ctx context.Context) (Result, error) {
	steps := r.session.Close()
	res := Result{SessionID: r.session.ID()}

	url, cleanup, err := r.target(ctx)
	if err != nil {
		res.Fatal = err
		return res, err
	}
	defer cleanup()

	b, err := r.launch(ctx, r.browserOptions())
	if err != nil {
		res.Fatal = fmt.Errorf("launch browser: %w", err)
		return res, res.Fatal
	}
	defer b.Close()

	if err := b.Navigate(ctx, url); err != nil {
		res.Fatal = err
		return res, err
	}
	r.logger.Info("run started", "url", url, "steps", len(steps), "interactive", r.session.Interactive())

	r.session.Attach(b)
	for _, step := range steps {
		r.console.Test(step.Name)
		err := step.Run(ctx, b)
		if err == nil {
			continue
		}
		if IsFatal(err) || ctx.Err() != nil {
			r.logger.Error("run aborted", "step", step.Name, "err", err)
			res.Fatal = err
			break
		}
		r.console.Error("Test %q failed: %v", step.Name, err)
		r.logger.Warn("step failed", "step", step.Name, "err", err)
		res.StepErrors = append(res.StepErrors, StepError{Name: step.Name, Err: err})
	}
	r.session.Detach()

	res.Passed = r.session.Passed()
	res.Failed = r.session.Failed()
	r.console.Summary(res.Passed, res.Failed+len(res.StepErrors))
	return res, res.Fatal
}
