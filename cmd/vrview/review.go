package main

import (
	"errors"
	"fmt"
	"image"

	"extest/pkg/baseline"
	"extest/pkg/pixels"
	"extest/pkg/report"
	"extest/pkg/visualtest"
)

// review is one expected/actual pair prepared for display.
type review struct {
	rec      baseline.Record
	sheet    image.Image
	mismatch int
	// note explains why there is no diff panel, if there is none.
	note string
}

// loadReview reads both images and composes the review sheet. A missing
// baseline or a size difference still yields a sheet, without a diff.
func loadReview(store *baseline.Store, rec baseline.Record, opts visualtest.CompareOptions) (*review, error) {
	actual, err := store.Read(rec.ActualPath)
	if err != nil {
		return nil, err
	}

	rv := &review{rec: rec}
	var expected, diff pixels.Buffer
	if !store.Exists(rec.ExpectedPath) {
		rv.note = "no baseline yet"
	} else {
		expected, err = store.Read(rec.ExpectedPath)
		if err != nil {
			return nil, err
		}
		result, err := visualtest.Diff(expected, actual, opts)
		switch {
		case errors.Is(err, visualtest.ErrDimensionMismatch):
			rv.note = err.Error()
		case err != nil:
			return nil, err
		default:
			diff = result.Diff
			rv.mismatch = result.Mismatch
		}
	}

	rv.sheet = report.ReviewSheet(expected, actual, diff)
	return rv, nil
}

func (rv *review) status() string {
	if rv.note != "" {
		return rv.note
	}
	return fmt.Sprintf("%d different pixels", rv.mismatch)
}
