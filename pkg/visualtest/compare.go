package visualtest

import (
	"fmt"
	"image"

	"github.com/orisano/pixelmatch"

	"extest/pkg/pixels"
)

const (
	// DefaultThreshold is the per-pixel color distance, as a fraction of the
	// maximum YIQ delta, above which a pixel counts as different.
	DefaultThreshold = 0.1

	// DefaultMismatchLimit is the number of differing pixels tolerated before
	// a screenshot is reported as a mismatch.
	DefaultMismatchLimit = 100
)

// DiffResult contains the results of a buffer comparison
type DiffResult struct {
	Mismatch    int
	TotalPixels int
	Diff        pixels.Buffer // same dimensions as the inputs
}

// CompareOptions configures the image comparison
type CompareOptions struct {
	// Threshold: per-pixel color difference in [0, 1].
	// 0.1 tolerates anti-aliasing and driver jitter between machines.
	Threshold float64

	// MismatchLimit: screenshots with more differing pixels than this fail.
	MismatchLimit int
}

// DefaultOptions returns sensible defaults for image comparison
func DefaultOptions() CompareOptions {
	return CompareOptions{
		Threshold:     DefaultThreshold,
		MismatchLimit: DefaultMismatchLimit,
	}
}

// Exceeds reports whether a mismatch count is over the limit.
func (o CompareOptions) Exceeds(mismatch int) bool {
	return mismatch > o.MismatchLimit
}

// Diff compares two equally sized buffers pixel-by-pixel.
// The diff buffer shows unchanged pixels dimmed to grayscale and differing
// pixels in red. Buffers of different sizes return ErrDimensionMismatch.
func Diff(expected, actual pixels.Buffer, opts CompareOptions) (DiffResult, error) {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return DiffResult{}, fmt.Errorf("%w: %v", ErrInvalidThreshold, opts.Threshold)
	}
	if err := expected.Validate(); err != nil {
		return DiffResult{}, fmt.Errorf("expected image: %w", err)
	}
	if err := actual.Validate(); err != nil {
		return DiffResult{}, fmt.Errorf("actual image: %w", err)
	}
	if !expected.SameSize(actual) {
		return DiffResult{}, fmt.Errorf("%w: expected=%dx%d, actual=%dx%d",
			ErrDimensionMismatch, expected.Width, expected.Height, actual.Width, actual.Height)
	}

	var out image.Image
	count, err := pixelmatch.MatchPixel(expected.Image(), actual.Image(),
		pixelmatch.Threshold(opts.Threshold),
		pixelmatch.WriteTo(&out),
	)
	if err != nil {
		return DiffResult{}, fmt.Errorf("pixel match: %w", err)
	}

	result := DiffResult{
		Mismatch:    count,
		TotalPixels: expected.Width * expected.Height,
	}
	if out != nil {
		result.Diff = pixels.FromImage(out)
	} else {
		result.Diff = pixels.New(expected.Width, expected.Height)
	}
	return result, nil
}

// CompareFiles loads two image files and diffs them.
func CompareFiles(expectedPath, actualPath string, opts CompareOptions) (DiffResult, error) {
	expected, err := pixels.Load(expectedPath)
	if err != nil {
		return DiffResult{}, fmt.Errorf("failed to load expected image: %w", err)
	}
	actual, err := pixels.Load(actualPath)
	if err != nil {
		return DiffResult{}, fmt.Errorf("failed to load actual image: %w", err)
	}
	return Diff(expected, actual, opts)
}
