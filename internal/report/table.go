// Package report renders suite results as a terminal table, JSON, or
// JUnit XML.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/akshay5995/mcpevals/internal/domain"
)

// nearMissDistance bounds how far a tool name may be from an expected
// name before a hint stops being plausible.
const nearMissDistance = 2

var titleCaser = cases.Title(language.English)

// TableWriter renders a human-readable results table. ExpectedTools maps
// case names to the tools the case expected, enabling near-miss hints
// when the model called a similarly named tool instead.
type TableWriter struct {
	ExpectedTools map[string][]string
}

// Write renders the suite to w.
func (t TableWriter) Write(w io.Writer, suite domain.SuiteResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := []string{"Case", "Status", "Avg"}
	for _, dim := range domain.Dimensions {
		header = append(header, titleCaser.String(dim))
	}
	header = append(header, "Tools", "Duration")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, cr := range suite.Cases {
		row := []string{cr.CaseName, statusLabel(cr.Status)}
		if cr.Score != nil {
			row = append(row, fmt.Sprintf("%.1f", cr.Score.Average))
			for _, v := range cr.Score.DimensionValues() {
				row = append(row, fmt.Sprintf("%.0f", v))
			}
		} else {
			row = append(row, "-", "-", "-", "-", "-", "-")
		}
		row = append(row,
			fmt.Sprintf("%d", len(cr.Transcript.ToolsUsed())),
			cr.Duration.Round(10*time.Millisecond).String(),
		)
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, cr := range suite.Cases {
		t.writeCaseNotes(w, cr)
	}

	fmt.Fprintf(w, "\n%d/%d passed", suite.Passed, suite.Total)
	if suite.Errored > 0 {
		fmt.Fprintf(w, ", %d errored", suite.Errored)
	}
	if suite.Passed+suite.Failed > 0 {
		fmt.Fprintf(w, ", overall average %.2f", suite.OverallAverage)
	}
	fmt.Fprintf(w, " (%s)\n", suite.Duration.Round(10*time.Millisecond))
	return nil
}

// writeCaseNotes prints per-case diagnostics below the table: judge
// comments for failures, execution errors, and hints when an expected
// tool went uncalled.
func (t TableWriter) writeCaseNotes(w io.Writer, cr domain.CaseResult) {
	var notes []string

	if cr.Status == domain.StatusFailed && cr.Score != nil && cr.Score.Comment != "" {
		notes = append(notes, "judge: "+cr.Score.Comment)
	}
	for _, msg := range cr.Errors {
		notes = append(notes, "error: "+msg)
	}
	if failed := cr.Transcript.FailedToolCalls(); failed > 0 {
		notes = append(notes, fmt.Sprintf("%d tool call(s) failed", failed))
	}
	notes = append(notes, t.missingToolHints(cr)...)

	if len(notes) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", cr.CaseName)
	for _, note := range notes {
		fmt.Fprintf(w, "  %s\n", note)
	}
}

// missingToolHints flags expected tools the model never called and, when
// a called tool's name is within edit distance of the expectation,
// suggests the likely near miss. Catches schema drift where a server
// renamed a tool without updating the suite.
func (t TableWriter) missingToolHints(cr domain.CaseResult) []string {
	expected := t.ExpectedTools[cr.CaseName]
	if len(expected) == 0 {
		return nil
	}

	used := cr.Transcript.ToolsUsed()
	usedSet := make(map[string]struct{}, len(used))
	for _, name := range used {
		usedSet[name] = struct{}{}
	}

	var hints []string
	for _, want := range expected {
		if _, ok := usedSet[want]; ok {
			continue
		}
		hint := fmt.Sprintf("expected tool %q was not called", want)
		if near := nearestTool(want, used); near != "" {
			hint += fmt.Sprintf(" (did you mean %q?)", near)
		}
		hints = append(hints, hint)
	}
	return hints
}

func nearestTool(want string, used []string) string {
	best := ""
	bestDist := nearMissDistance + 1
	for _, name := range used {
		if d := levenshtein.ComputeDistance(want, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

func statusLabel(s domain.CaseStatus) string {
	switch s {
	case domain.StatusPassed:
		return "PASS"
	case domain.StatusFailed:
		return "FAIL"
	default:
		return "ERROR"
	}
}
