package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extest/pkg/baseline"
	"extest/pkg/browser"
	"extest/pkg/browser/browsertest"
	"extest/pkg/config"
	"extest/pkg/confirm"
	"extest/pkg/pixels"
	"extest/pkg/report"
	"extest/pkg/session"
	"extest/pkg/visualtest"
)

type fakeBrowser struct {
	*browsertest.Page
	closed bool
}

func (f *fakeBrowser) Close() { f.closed = true }

type harnessFixture struct {
	dir     string
	store   *baseline.Store
	out     *bytes.Buffer
	browser *fakeBrowser
	opts    browser.Options
	runner  *Runner
}

func solid(w, h int, v uint8) pixels.Buffer {
	b := pixels.New(w, h)
	b.Fill(v, v, v, 255)
	return b
}

func newHarness(t *testing.T, cfg config.Config, confirmer confirm.Confirmer, shots ...pixels.Buffer) *harnessFixture {
	t.Helper()
	f := &harnessFixture{
		dir:     t.TempDir(),
		out:     &bytes.Buffer{},
		browser: &fakeBrowser{Page: browsertest.NewPage(shots...)},
	}
	f.store = baseline.NewStore(f.dir)
	f.runner = New(Options{
		Config:  cfg,
		Console: report.NewWithOutput(f.out, true),
		Confirm: confirmer,
		Store:   f.store,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Launch: func(_ context.Context, opts browser.Options) (Browser, error) {
			f.opts = opts
			return f.browser, nil
		},
	})
	return f
}

func blankConfig() config.Config {
	cfg := config.Default()
	cfg.URL = "about:blank"
	return cfg
}

func (f *harnessFixture) compareStep(name, actual, expected string) session.StepFunc {
	return func(ctx context.Context, _ browser.Page) error {
		return f.runner.ExpectPage(name, actual).ToBe(ctx, expected)
	}
}

func TestStart_PassingRun(t *testing.T) {
	f := newHarness(t, blankConfig(), nil, solid(100, 100, 0))
	require.NoError(t, f.store.Write("images/expected-page.png", solid(100, 100, 0)))

	require.NoError(t, f.runner.Test("An integration test", func(ctx context.Context, page browser.Page) error {
		f.runner.ExpectLoaded(ctx)
		return f.runner.ExpectPage("Can check a page", "images/actual-page.png").ToBe(ctx, "images/expected-page.png")
	}))

	res, err := f.runner.Start(context.Background())
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, 1, res.Passed)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, []string{"about:blank"}, f.browser.Navigations)
	assert.Equal(t, []string{"#excalibur-play"}, f.browser.Waits)
	assert.Equal(t, []string{"#excalibur-play"}, f.browser.Clicks)
	require.Len(t, f.browser.Scripts, 1)
	assert.Contains(t, f.browser.Scripts[0], `"#excalibur-play-root"`)
	assert.True(t, f.browser.closed)
	assert.True(t, f.store.Exists("images/actual-page.png"))
	assert.Nil(t, f.runner.Session().Page(), "page detached after the run")

	assert.Equal(t, 800, f.opts.Width)
	assert.Equal(t, 600, f.opts.Height)
	assert.True(t, f.opts.Headless)

	out := f.out.String()
	assert.Contains(t, out, "Test: An integration test")
	assert.Contains(t, out, "\tExpect: Can check a page")
	assert.Contains(t, out, "Test Success! 1 Tests Passed")
}

func TestStart_MismatchFailsRun(t *testing.T) {
	actual := solid(100, 100, 0)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			actual.Set(x, y, 255, 255, 255, 255)
		}
	}
	f := newHarness(t, blankConfig(), nil, actual)
	require.NoError(t, f.store.Write("images/expected.png", solid(100, 100, 0)))
	require.NoError(t, f.runner.Test("mismatch", f.compareStep("page", "images/actual.png", "images/expected.png")))

	res, err := f.runner.Start(context.Background())
	require.NoError(t, err)

	assert.False(t, res.OK())
	assert.Equal(t, 1, res.Failed)
	assert.True(t, f.store.Exists("images/diff-actual.png"))
	assert.Contains(t, f.out.String(), "Tests failed: 1")
}

func TestStart_StepErrorDoesNotStopLaterSteps(t *testing.T) {
	f := newHarness(t, blankConfig(), nil, solid(10, 10, 0))
	require.NoError(t, f.store.Write("expected.png", solid(10, 10, 0)))

	boom := errors.New("boom")
	var order []string
	require.NoError(t, f.runner.Test("first", func(context.Context, browser.Page) error {
		order = append(order, "first")
		return boom
	}))
	require.NoError(t, f.runner.Test("second", func(ctx context.Context, page browser.Page) error {
		order = append(order, "second")
		return f.compareStep("page", "actual.png", "expected.png")(ctx, page)
	}))

	res, err := f.runner.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, order)
	require.Len(t, res.StepErrors, 1)
	assert.Equal(t, "first", res.StepErrors[0].Name)
	assert.ErrorIs(t, res.StepErrors[0].Err, boom)
	assert.Equal(t, 1, res.Passed)
	assert.False(t, res.OK())
}

func TestStart_FatalErrorAbortsRemainingSteps(t *testing.T) {
	f := newHarness(t, blankConfig(), nil, solid(10, 10, 0))
	// A regular file where the actual image's directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "blocked"), []byte("x"), 0644))

	ranSecond := false
	require.NoError(t, f.runner.Test("first", f.compareStep("page", "blocked/actual.png", "expected.png")))
	require.NoError(t, f.runner.Test("second", func(context.Context, browser.Page) error {
		ranSecond = true
		return nil
	}))

	res, err := f.runner.Start(context.Background())
	assert.True(t, visualtest.IsFatal(err), "got %v", err)
	assert.Equal(t, err, res.Fatal)
	assert.False(t, ranSecond)
	assert.True(t, f.browser.closed)
}

func TestStart_MissingBaselineInteractiveAccepted(t *testing.T) {
	cfg := blankConfig()
	cfg.Interactive = true
	shot := solid(12, 8, 77)
	f := newHarness(t, cfg, confirm.Always(true), shot)
	require.NoError(t, f.runner.Test("new page", f.compareStep("page", "out/actual.png", "base/expected.png")))

	res, err := f.runner.Start(context.Background())
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, 1, res.Passed)
	created, err := f.store.Read("base/expected.png")
	require.NoError(t, err)
	assert.Equal(t, shot.Data, created.Data)
	assert.Contains(t, f.out.String(), "does not exist")
}

func TestStart_ScreenshotErrorIsStepError(t *testing.T) {
	f := newHarness(t, blankConfig(), nil)
	f.browser.ScreenshotErr = errors.New("target closed")
	require.NoError(t, f.runner.Test("shot", f.compareStep("page", "actual.png", "expected.png")))

	res, err := f.runner.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, res.StepErrors, 1)
	assert.Equal(t, 0, f.runner.Session().Completed())
}

func TestStart_ServesStaticDir(t *testing.T) {
	site := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(site, "index.html"), []byte("<html></html>"), 0644))

	cfg := config.Default()
	cfg.Dir = site
	cfg.Port = 0
	f := newHarness(t, cfg, nil)

	_, err := f.runner.Start(context.Background())
	require.NoError(t, err)

	require.Len(t, f.browser.Navigations, 1)
	url := f.browser.Navigations[0]
	assert.True(t, strings.HasPrefix(url, "http://localhost:"), url)
	assert.NotEqual(t, "http://localhost:0/", url)
}

func TestStart_RelativeURLInsideStaticDir(t *testing.T) {
	cfg := config.Default()
	cfg.Dir = t.TempDir()
	cfg.Port = 0
	cfg.URL = "game/index.html"
	f := newHarness(t, cfg, nil)

	_, err := f.runner.Start(context.Background())
	require.NoError(t, err)

	require.Len(t, f.browser.Navigations, 1)
	assert.True(t, strings.HasSuffix(f.browser.Navigations[0], "/game/index.html"), f.browser.Navigations[0])
}

func TestStart_LaunchFailure(t *testing.T) {
	f := newHarness(t, blankConfig(), nil)
	f.runner.launch = func(context.Context, browser.Options) (Browser, error) {
		return nil, errors.New("no chrome")
	}

	res, err := f.runner.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, res.OK())
}

func TestTest_ClosedAfterStart(t *testing.T) {
	f := newHarness(t, blankConfig(), nil)
	_, err := f.runner.Start(context.Background())
	require.NoError(t, err)

	err = f.runner.Test("late", func(context.Context, browser.Page) error { return nil })
	assert.ErrorIs(t, err, session.ErrClosed)
}

func TestExpectPage_NoPageIsFatal(t *testing.T) {
	f := newHarness(t, blankConfig(), nil)
	err := f.runner.ExpectPage("orphan", "actual.png").ToBe(context.Background(), "expected.png")
	assert.ErrorIs(t, err, ErrNoPage)
	assert.Contains(t, f.out.String(), "did you create a Runner?")
}

func TestExpectLoaded_SwallowsFailures(t *testing.T) {
	f := newHarness(t, blankConfig(), nil)
	f.browser.WaitErr = errors.New("timeout")
	require.NoError(t, f.runner.Test("load", func(ctx context.Context, _ browser.Page) error {
		f.runner.ExpectLoaded(ctx)
		return nil
	}))

	res, err := f.runner.Start(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.StepErrors)
	assert.Empty(t, f.browser.Clicks)
	assert.Contains(t, f.out.String(), "Could not confirm Excalibur loaded properly")
}
