package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Options configures the launched browser.
type Options struct {
	Width    int
	Height   int
	Headless bool
	// ShowLogs forwards the browser process output and page console
	// messages.
	ShowLogs bool
	ExecPath string
	Output   io.Writer
	Logger   *slog.Logger
}

// DefaultOptions matches the viewport the baselines are recorded at.
func DefaultOptions() Options {
	return Options{
		Width:    800,
		Height:   600,
		Headless: true,
	}
}

var _ Page = (*Chrome)(nil)

// Chrome is a Chrome instance with a single tab.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *slog.Logger
}

// Launch starts Chrome and opens one tab sized to the viewport.
func Launch(ctx context.Context, opts Options) (*Chrome, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.ShowLogs {
		out := opts.Output
		if out == nil {
			out = os.Stderr
		}
		allocOpts = append(allocOpts, chromedp.CombinedOutput(out))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	if opts.ShowLogs {
		chromedp.ListenTarget(tabCtx, func(ev any) {
			switch e := ev.(type) {
			case *runtime.EventConsoleAPICalled:
				args := make([]string, 0, len(e.Args))
				for _, arg := range e.Args {
					if len(arg.Value) > 0 {
						args = append(args, string(arg.Value))
					} else {
						args = append(args, arg.Description)
					}
				}
				logger.Info("page console", "type", string(e.Type), "msg", strings.Join(args, " "))
			case *runtime.EventExceptionThrown:
				logger.Warn("page exception", "msg", e.ExceptionDetails.Text)
			}
		})
	}

	if err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	logger.Debug("browser launched", "width", opts.Width, "height", opts.Height, "headless", opts.Headless)
	return &Chrome{ctx: tabCtx, cancel: cancel, allocCancel: allocCancel, logger: logger}, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() {
	c.cancel()
	c.allocCancel()
}

// run executes actions on the tab, also honoring the caller's context.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := c.ctx.Err(); err != nil {
		return ErrClosed
	}
	if ctx != nil {
		stop := context.AfterFunc(ctx, c.cancelOnly)
		defer stop()
	}
	return chromedp.Run(c.ctx, actions...)
}

// cancelOnly aborts the tab when the caller gives up on an action.
func (c *Chrome) cancelOnly() {
	c.logger.Warn("browser action cancelled by caller")
	c.cancel()
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) WaitVisible(ctx context.Context, selector string) error {
	if err := c.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	if err := c.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (c *Chrome) Evaluate(ctx context.Context, expression string, res any) error {
	awaitPromise := func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}
	if err := c.run(ctx, chromedp.Evaluate(expression, res, awaitPromise)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := c.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}
