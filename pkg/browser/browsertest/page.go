// Package browsertest provides an in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"fmt"

	"extest/pkg/browser"
	"extest/pkg/pixels"
)

var _ browser.Page = (*Page)(nil)

// Page records every call and serves canned screenshots.
type Page struct {
	Navigations []string
	Waits       []string
	Clicks      []string
	Scripts     []string

	// Screenshots are returned in order; the last one repeats.
	Screenshots []pixels.Buffer

	// Per-operation failures; nil means success.
	WaitErr       error
	ClickErr      error
	EvaluateErr   error
	ScreenshotErr error

	// EvaluateResult is copied into *string or *any results.
	EvaluateResult string

	shots int
}

// NewPage returns a page whose screenshots are the given buffers.
func NewPage(shots ...pixels.Buffer) *Page {
	return &Page{Screenshots: shots}
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.Navigations = append(p.Navigations, url)
	return ctx.Err()
}

func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	p.Waits = append(p.Waits, selector)
	if p.WaitErr != nil {
		return p.WaitErr
	}
	return ctx.Err()
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.Clicks = append(p.Clicks, selector)
	if p.ClickErr != nil {
		return p.ClickErr
	}
	return ctx.Err()
}

func (p *Page) Evaluate(ctx context.Context, expression string, res any) error {
	p.Scripts = append(p.Scripts, expression)
	if p.EvaluateErr != nil {
		return p.EvaluateErr
	}
	switch r := res.(type) {
	case *string:
		*r = p.EvaluateResult
	case *any:
		*r = p.EvaluateResult
	}
	return ctx.Err()
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	if len(p.Screenshots) == 0 {
		return nil, fmt.Errorf("browsertest: no screenshots configured")
	}
	idx := p.shots
	if idx >= len(p.Screenshots) {
		idx = len(p.Screenshots) - 1
	}
	p.shots++
	return pixels.EncodeBytes(p.Screenshots[idx])
}

// Shots is the number of screenshots taken.
func (p *Page) Shots() int { return p.shots }
