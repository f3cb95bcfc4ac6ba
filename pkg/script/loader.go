// Package script loads JavaScript test files and registers the tests they
// declare with a runner.Harness.
//
// Test files see these globals:
//
//	test(name, async (page) => { ... })
//	expectLoaded()
//	expectPage(name, actualPath).toBe(expectedPath)
//	console.log / console.warn / console.error
//
// The page argument offers evaluate(fnOrSource), click(selector) and
// waitForSelector(selector). Harness calls complete synchronously and hand
// back already-settled promises, so async test bodies settle before the
// step returns.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dop251/goja"

	"extest/pkg/browser"
	"extest/pkg/runner"
	"extest/pkg/session"
)

// ErrUnsettled is returned when an async test body is still pending after
// it ran, meaning it awaited something the harness never resolves.
var ErrUnsettled = errors.New("test body did not settle")

// Loader owns one goja runtime shared by every loaded file.
type Loader struct {
	vm      *goja.Runtime
	harness runner.Harness
	logger  *slog.Logger

	// State of the step being executed.
	ctx   context.Context
	fatal error
}

// New creates a Loader registering tests with h. Console output goes to
// stdout and stderr.
func New(h runner.Harness) *Loader {
	return NewWithOutput(h, os.Stdout, os.Stderr)
}

// NewWithOutput creates a Loader with explicit console writers.
func NewWithOutput(h runner.Harness, out, errOut io.Writer) *Loader {
	vm := goja.New()
	l := &Loader{vm: vm, harness: h, logger: slog.Default()}

	c := &consoleAPI{out: out, errOut: errOut}
	c.register(vm)

	vm.Set("test", l.test)
	vm.Set("expectLoaded", l.expectLoaded)
	vm.Set("expectPage", l.expectPage)
	return l
}

// LoadFile runs a test file, registering every test it declares.
func (l *Loader) LoadFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read test file %s: %w", path, err)
	}
	return l.Load(path, string(src))
}

// Load runs src under the given file name.
func (l *Loader) Load(name, src string) error {
	if _, err := l.vm.RunScript(name, src); err != nil {
		return fmt.Errorf("test file %s: %w", name, err)
	}
	l.logger.Debug("test file loaded", "path", name)
	return nil
}

func (l *Loader) context() context.Context {
	if l.ctx == nil {
		return context.Background()
	}
	return l.ctx
}

// throw raises err in the script. Fatal harness errors are also kept so
// the step reports them even if the script catches the exception.
func (l *Loader) throw(err error) {
	if runner.IsFatal(err) && l.fatal == nil {
		l.fatal = err
	}
	panic(l.vm.NewGoError(err))
}

// resolved wraps v in a fulfilled promise.
func (l *Loader) resolved(v any) goja.Value {
	p, resolve, _ := l.vm.NewPromise()
	resolve(v)
	return l.vm.ToValue(p)
}

func (l *Loader) test(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	fn, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		panic(l.vm.NewTypeError("test %q: body must be a function", name))
	}
	if err := l.harness.Test(name, l.step(fn)); err != nil {
		panic(l.vm.NewGoError(err))
	}
	return goja.Undefined()
}

// step adapts a JS test body to a session step.
func (l *Loader) step(fn goja.Callable) session.StepFunc {
	return func(ctx context.Context, page browser.Page) error {
		l.ctx, l.fatal = ctx, nil
		stop := context.AfterFunc(ctx, func() { l.vm.Interrupt(ctx.Err()) })
		defer func() {
			stop()
			l.vm.ClearInterrupt()
			l.ctx = nil
		}()

		v, err := fn(goja.Undefined(), l.pageObject(page))
		if l.fatal != nil {
			return l.fatal
		}
		if err != nil {
			return err
		}

		p, ok := v.Export().(*goja.Promise)
		if !ok {
			return nil
		}
		switch p.State() {
		case goja.PromiseStateRejected:
			if l.fatal != nil {
				return l.fatal
			}
			return fmt.Errorf("rejected: %s", p.Result().String())
		case goja.PromiseStatePending:
			return ErrUnsettled
		}
		return nil
	}
}

func (l *Loader) expectLoaded(goja.FunctionCall) goja.Value {
	l.harness.ExpectLoaded(l.context())
	return l.resolved(goja.Undefined())
}

func (l *Loader) expectPage(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	actual := call.Argument(1).String()

	expectation := l.vm.NewObject()
	expectation.Set("toBe", func(call goja.FunctionCall) goja.Value {
		expected := call.Argument(0).String()
		if err := l.harness.ComparePage(l.context(), name, actual, expected); err != nil {
			l.throw(err)
		}
		return l.resolved(goja.Undefined())
	})
	return expectation
}

// pageObject exposes page to the script.
func (l *Loader) pageObject(page browser.Page) *goja.Object {
	obj := l.vm.NewObject()

	obj.Set("evaluate", func(call goja.FunctionCall) goja.Value {
		expr := call.Argument(0).String()
		// Functions run in the page by their source text.
		if _, ok := goja.AssertFunction(call.Argument(0)); ok {
			expr = "(" + expr + ")()"
		}
		var res any
		if err := page.Evaluate(l.context(), expr, &res); err != nil {
			l.throw(err)
		}
		return l.resolved(res)
	})

	obj.Set("click", func(call goja.FunctionCall) goja.Value {
		if err := page.Click(l.context(), call.Argument(0).String()); err != nil {
			l.throw(err)
		}
		return l.resolved(goja.Undefined())
	})

	obj.Set("waitForSelector", func(call goja.FunctionCall) goja.Value {
		if err := page.WaitVisible(l.context(), call.Argument(0).String()); err != nil {
			l.throw(err)
		}
		return l.resolved(goja.Undefined())
	})

	return obj
}
