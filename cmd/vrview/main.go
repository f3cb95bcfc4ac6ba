package main

import (
	"flag"
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"extest/pkg/baseline"
	"extest/pkg/pixels"
	"extest/pkg/visualtest"
)

func main() {
	out := flag.String("o", "", "write the review sheet to this PNG instead of opening a window")
	threshold := flag.Float64("threshold", visualtest.DefaultThreshold, "per-pixel color threshold in [0, 1]")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-o sheet.png] <expected.png> <actual.png>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	store := baseline.NewStore("")
	rec := baseline.Record{
		Name:         flag.Arg(1),
		ExpectedPath: flag.Arg(0),
		ActualPath:   flag.Arg(1),
	}
	opts := visualtest.DefaultOptions()
	opts.Threshold = *threshold

	rv, err := loadReview(store, rec, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *out != "" {
		if err := saveSheet(*out, rv); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving PNG: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote review sheet to %s (%s)\n", *out, rv.status())
		return
	}

	show(store, rv)
}

func saveSheet(path string, rv *review) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pixels.Encode(f, pixels.FromImage(rv.sheet)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func show(store *baseline.Store, rv *review) {
	a := app.New()
	w := a.NewWindow("vrview: " + rv.rec.ActualPath)

	img := canvas.NewImageFromImage(rv.sheet)
	img.FillMode = canvas.ImageFillOriginal

	status := widget.NewLabel(rv.status())

	var accept, reject *widget.Button
	accept = widget.NewButton("Accept", func() {
		if err := store.Accept(rv.rec); err != nil {
			status.SetText("Error: " + err.Error())
			return
		}
		status.SetText("Baseline updated: " + rv.rec.ExpectedPath)
		accept.Disable()
		reject.Disable()
	})
	accept.Importance = widget.HighImportance
	reject = widget.NewButton("Reject", func() {
		a.Quit()
	})

	buttons := container.NewHBox(accept, reject)
	bottom := container.NewBorder(nil, nil, nil, buttons, status)
	w.SetContent(container.NewBorder(nil, bottom, nil, nil, container.NewScroll(img)))

	size := rv.sheet.Bounds().Size()
	w.Resize(fyne.NewSize(float32(size.X)+16, float32(size.Y)+64))
	w.ShowAndRun()
}
