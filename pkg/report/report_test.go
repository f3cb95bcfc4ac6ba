package report

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"extest/pkg/baseline"
	"extest/pkg/pixels"
	"extest/pkg/visualtest"
)

var rec = baseline.Record{
	Name:         "Can check a page",
	ExpectedPath: "images/expected-page.png",
	ActualPath:   "images/actual-page.png",
}

func plainConsole() (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	return NewWithOutput(&out, true), &out
}

func TestConsole_ProblemMessages(t *testing.T) {
	tests := []struct {
		name    string
		outcome visualtest.Outcome
		want    []string
	}{
		{
			name: "missing baseline",
			outcome: visualtest.Outcome{Record: rec,
				Err: fmt.Errorf("%w: %s", visualtest.ErrMissingBaseline, rec.ExpectedPath)},
			want: []string{"[ERROR]: Expected image: [images/expected-page.png] does not exist!"},
		},
		{
			name: "mismatch",
			outcome: visualtest.Outcome{Record: rec, Mismatch: 250,
				DiffPath: "images/diff-actual-page.png",
				DiffURI:  "data:image/png;base64,AAAA",
				Err:      fmt.Errorf("%w: 250 pixels differ", visualtest.ErrMismatchThreshold)},
			want: []string{
				"did not match actual images/actual-page.png, 250 different!",
				"images/diff-actual-page.png",
				"Diff image:  data:image/png;base64,AAAA",
			},
		},
		{
			name: "dimensions",
			outcome: visualtest.Outcome{Record: rec,
				Err: fmt.Errorf("%w: expected=1x1, actual=2x2", visualtest.ErrDimensionMismatch)},
			want: []string{"could not be compared", "expected=1x1, actual=2x2"},
		},
		{
			name: "read error",
			outcome: visualtest.Outcome{Record: rec,
				Err: &baseline.ReadError{Path: rec.ExpectedPath, Err: fmt.Errorf("bad png")}},
			want: []string{"Could not read expected image images/expected-page.png"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out := plainConsole()
			c.Problem(tt.outcome)
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}

func TestConsole_PlainHasNoEscapes(t *testing.T) {
	c, out := plainConsole()
	c.Error("boom")
	c.Summary(3, 0)
	assert.NotContains(t, out.String(), "\x1b[")
}

func TestConsole_Summary(t *testing.T) {
	c, out := plainConsole()
	c.Summary(2, 1)
	assert.Contains(t, out.String(), "Tests failed: 1")
	assert.Contains(t, out.String(), "Tests passed: 2")

	c, out = plainConsole()
	c.Summary(5, 0)
	assert.Equal(t, "Test Success! 5 Tests Passed\n", out.String())
}

func TestConsole_Done(t *testing.T) {
	c, out := plainConsole()
	c.Done(visualtest.Outcome{Record: rec, Verdict: visualtest.Pass})
	c.Done(visualtest.Outcome{Record: rec, Verdict: visualtest.Updated})
	c.Done(visualtest.Outcome{Record: rec, Verdict: visualtest.Fail})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "✓")
	assert.Contains(t, lines[1], "baseline updated")
	assert.Contains(t, lines[2], "✗")
}

func TestConsole_ExpectAndTest(t *testing.T) {
	c, out := plainConsole()
	c.Test("An integration test")
	c.Expect("Can check a page")
	assert.Equal(t, "Test: An integration test\n\tExpect: Can check a page\n", out.String())
}

func TestReviewSheet_Layout(t *testing.T) {
	expected := pixels.New(40, 30)
	expected.Fill(255, 0, 0, 255)
	actual := pixels.New(50, 20)
	actual.Fill(0, 0, 255, 255)

	img := ReviewSheet(expected, actual, pixels.Buffer{})
	b := img.Bounds()

	assert.Equal(t, 3*(50+sheetPadding)+sheetPadding, b.Dx())
	assert.Equal(t, 30+labelHeight+2*sheetPadding, b.Dy())

	// Inside the first panel the expected image is drawn.
	r, g, bl, _ := img.At(sheetPadding+5, sheetPadding+labelHeight+5).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Zero(t, bl)
}
