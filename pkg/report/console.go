// Package report prints run progress and comparison results for humans.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"extest/pkg/baseline"
	"extest/pkg/visualtest"
)

var _ visualtest.Reporter = (*Console)(nil)

// Console writes colored result lines.
type Console struct {
	out io.Writer
	mu  sync.Mutex

	errorStyle   lipgloss.Style
	warnStyle    lipgloss.Style
	successStyle lipgloss.Style
	dimStyle     lipgloss.Style
	boldStyle    lipgloss.Style
}

// New creates a Console on stdout.
func New() *Console {
	return NewWithOutput(os.Stdout, false)
}

// NewWithOutput creates a Console on out. plain disables ANSI styling.
func NewWithOutput(out io.Writer, plain bool) *Console {
	r := lipgloss.NewRenderer(out)
	if plain {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Console{
		out: out,

		errorStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}),
		warnStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"}),
		successStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}),
		dimStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
		boldStyle: r.NewStyle().Bold(true),
	}
}

func (c *Console) println(style lipgloss.Style, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, style.Render(fmt.Sprintf(format, args...)))
}

// Info prints an unstyled line.
func (c *Console) Info(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Error prints an error line in red.
func (c *Console) Error(format string, args ...any) {
	c.println(c.errorStyle, "[ERROR]: "+format, args...)
}

// Warn prints a warning in yellow.
func (c *Console) Warn(format string, args ...any) {
	c.println(c.warnStyle, "[WARN]: "+format, args...)
}

// Test announces a step.
func (c *Console) Test(name string) {
	c.println(c.boldStyle, "Test: %s", name)
}

// Expect announces a screenshot comparison.
func (c *Console) Expect(name string) {
	c.Info("\tExpect: %s", name)
}

// Problem reports why a comparison did not match, before any prompt.
func (c *Console) Problem(o visualtest.Outcome) {
	rec := o.Record
	var readErr *baseline.ReadError
	switch {
	case errors.Is(o.Err, visualtest.ErrMissingBaseline):
		c.Error("Expected image: [%s] does not exist!", rec.ExpectedPath)
	case errors.Is(o.Err, visualtest.ErrMismatchThreshold):
		c.Error("Image %s did not match actual %s, %d different!", rec.ExpectedPath, rec.ActualPath, o.Mismatch)
		if o.DiffPath != "" {
			c.println(c.dimStyle, "\tDiff written to %s", o.DiffPath)
		}
		if o.DiffURI != "" {
			c.Info("Diff image:  %s", o.DiffURI)
		}
	case errors.Is(o.Err, visualtest.ErrDimensionMismatch):
		c.Error("Image %s could not be compared with actual %s: %v", rec.ExpectedPath, rec.ActualPath, o.Err)
	case errors.As(o.Err, &readErr):
		c.Error("Could not read expected image %s: %v", rec.ExpectedPath, o.Err)
	case o.Err != nil:
		c.Error("%s: %v", rec.Name, o.Err)
	}
}

// Updating announces a baseline overwrite.
func (c *Console) Updating(path string) {
	c.println(c.warnStyle, "Updating %s...", path)
}

// Done prints the final verdict of one comparison.
func (c *Console) Done(o visualtest.Outcome) {
	switch o.Verdict {
	case visualtest.Pass:
		c.println(c.successStyle, "\t✓ %s", o.Record.Name)
	case visualtest.Updated:
		c.println(c.warnStyle, "\t✓ %s (baseline updated)", o.Record.Name)
	default:
		c.println(c.errorStyle, "\t✗ %s", o.Record.Name)
	}
}

// Summary prints the final tally.
func (c *Console) Summary(passed, failed int) {
	if failed > 0 {
		c.println(c.errorStyle, "Tests failed: %d", failed)
		c.println(c.errorStyle, "Tests passed: %d", passed)
		return
	}
	c.println(c.successStyle, "Test Success! %d Tests Passed", passed)
}
