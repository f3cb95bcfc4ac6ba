package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"extest/pkg/baseline"
)

// Accepts actual screenshots as the new baselines, without prompting.
func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Baseline updater for extest")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  update-baselines <actual.png>=<expected.png> ...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  update-baselines images/actual-page.png=images/expected-page.png")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Or accept them one at a time while running:")
	fmt.Fprintln(w, "  extest -i -d dist test/test.js")
}

func parsePairs(args []string) ([]baseline.Record, error) {
	records := make([]baseline.Record, 0, len(args))
	for _, arg := range args {
		actual, expected, ok := strings.Cut(arg, "=")
		if !ok || actual == "" || expected == "" {
			return nil, fmt.Errorf("invalid pair %q, want actual=expected", arg)
		}
		records = append(records, baseline.Record{Name: expected, ActualPath: actual, ExpectedPath: expected})
	}
	return records, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 1
	}

	records, err := parsePairs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	store := baseline.NewStore("")
	for _, rec := range records {
		fmt.Fprintf(stdout, "Updating: %s\n", rec.ExpectedPath)
		if err := store.Accept(rec); err != nil {
			fmt.Fprintf(stderr, "Error: failed to update %s: %v\n", rec.ExpectedPath, err)
			return 1
		}
	}
	fmt.Fprintf(stdout, "✓ %d baseline images updated\n", len(records))
	return 0
}
