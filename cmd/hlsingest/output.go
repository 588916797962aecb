package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"hlsingest/internal/services"
	"hlsingest/internal/workflow"
)

// isTerminal reports whether w is an interactive terminal. Tables are only
// drawn for terminals; pipes get plain key: value lines.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func printSummary(w io.Writer, s workflow.Summary) {
	counts := [][]string{
		{"Succeeded", strconv.Itoa(s.Succeeded)},
		{"Skipped", strconv.Itoa(s.Skipped)},
		{"Deferred", strconv.Itoa(s.Deferred)},
		{"Failed", strconv.Itoa(s.Failed)},
	}
	if isTerminal(w) {
		fmt.Fprintln(w, renderTable([]string{"Result", "Items"}, counts, []columnAlignment{alignLeft, alignRight}))
	} else {
		for _, row := range counts {
			fmt.Fprintf(w, "%s: %s\n", strings.ToLower(row[0]), row[1])
		}
	}
	fmt.Fprintf(w, "Run %s finished in %s, fetched %s\n", s.RunID, s.Duration.Round(time.Millisecond), humanize.Bytes(uint64(max(s.Bytes, 0))))

	if len(s.Failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		rows = append(rows, []string{f.Identity, string(f.FailedStage), services.Kind(f.Err), f.SourceURL})
	}
	if isTerminal(w) {
		fmt.Fprintln(w, renderTable([]string{"Identity", "Stage", "Kind", "Source"}, rows, nil))
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "failed: %s stage=%s kind=%s source=%s\n", row[0], row[1], row[2], row[3])
	}
}
