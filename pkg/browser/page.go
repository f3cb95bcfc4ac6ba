// Package browser drives the page that test steps interact with and that
// screenshots are taken from.
package browser

import (
	"context"
	"errors"
)

// ErrClosed is returned for actions on a browser that has shut down.
var ErrClosed = errors.New("browser closed")

// Page is the subset of browser automation the harness needs.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// Evaluate runs a JavaScript expression in the page. res may be nil.
	// Promises are awaited.
	Evaluate(ctx context.Context, expression string, res any) error
	// Screenshot captures the viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
}
