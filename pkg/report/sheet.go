package report

import (
	"image"

	"github.com/fogleman/gg"

	"extest/pkg/pixels"
)

const (
	sheetPadding = 12
	labelHeight  = 20
)

// Panel is one labelled image on a review sheet.
type Panel struct {
	Label string
	Image pixels.Buffer
}

// Sheet lays panels out side by side on a dark background, each with its
// label above it. Empty panels keep their slot so the layout is stable.
func Sheet(panels ...Panel) image.Image {
	cellW, cellH := 1, 1
	for _, p := range panels {
		if p.Image.Width > cellW {
			cellW = p.Image.Width
		}
		if p.Image.Height > cellH {
			cellH = p.Image.Height
		}
	}

	width := len(panels)*(cellW+sheetPadding) + sheetPadding
	height := cellH + labelHeight + 2*sheetPadding

	dc := gg.NewContext(width, height)
	dc.SetRGB(0.12, 0.12, 0.12)
	dc.Clear()

	for i, p := range panels {
		x := sheetPadding + i*(cellW+sheetPadding)
		y := sheetPadding + labelHeight

		// Frame the cell so empty slots are visible
		dc.SetRGB(0.3, 0.3, 0.3)
		dc.DrawRectangle(float64(x)-0.5, float64(y)-0.5, float64(cellW)+1, float64(cellH)+1)
		dc.Stroke()

		if p.Image.Validate() == nil {
			dc.DrawImage(p.Image.Image(), x, y)
		}

		dc.SetRGB(0.9, 0.9, 0.9)
		dc.DrawStringAnchored(p.Label, float64(x), float64(sheetPadding+labelHeight/2), 0, 0.5)
	}

	return dc.Image()
}

// ReviewSheet is the expected | actual | diff layout.
func ReviewSheet(expected, actual, diff pixels.Buffer) image.Image {
	return Sheet(
		Panel{Label: "expected", Image: expected},
		Panel{Label: "actual", Image: actual},
		Panel{Label: "diff", Image: diff},
	)
}
