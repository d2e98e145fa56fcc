package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/Makoq/evalsmith/pkg/evaluate"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	winStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderComparativeReport prints the comparison summary: identity, the
// invocation ledger, a win/tie table per metric, and any recorded failures.
func renderComparativeReport(w io.Writer, report *evaluate.ComparativeReport) {
	ce := report.Experiment
	fmt.Fprintln(w, titleStyle.Render(ce.Name))
	fmt.Fprintln(w, dimStyle.Render("comparative experiment "+ce.ID))
	fmt.Fprintf(w, "%d shared examples, %d judgments: %s, %s\n\n",
		report.Examples,
		report.Total,
		winStyle.Render(fmt.Sprintf("%d ok", report.Succeeded)),
		failStyle.Render(fmt.Sprintf("%d failed", report.Failed)))

	renderStatsTable(w, report)

	if len(report.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("failures"))
		for _, f := range report.Failures {
			key := f.EvaluatorKey
			if key == "" {
				key = "-"
			}
			fmt.Fprintf(w, "  %s  %s  %v\n", f.ExampleID, dimStyle.Render(key), f.Err)
		}
	}
}

// renderStatsTable prints one row per metric key with win counts in the
// caller's experiment order.
func renderStatsTable(w io.Writer, report *evaluate.ComparativeReport) {
	if len(report.Stats) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no judgments recorded"))
		return
	}

	expA := report.Experiment.ExperimentIDs[0]
	expB := report.Experiment.ExperimentIDs[1]

	keys := make([]string, 0, len(report.Stats))
	keyWidth := len("metric")
	for key := range report.Stats {
		keys = append(keys, key)
		if len(key) > keyWidth {
			keyWidth = len(key)
		}
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		headerStyle.Render(pad("metric", keyWidth)),
		headerStyle.Render(fmt.Sprintf("%12s", "wins A")),
		headerStyle.Render(fmt.Sprintf("%12s", "wins B")),
		headerStyle.Render(fmt.Sprintf("%6s", "ties")))
	for _, key := range keys {
		stats := report.Stats[key]
		fmt.Fprintf(w, "%s  %12d  %12d  %6d\n",
			pad(key, keyWidth), stats.Wins[expA], stats.Wins[expB], stats.Ties)
	}
	fmt.Fprintf(w, "%s\n", dimStyle.Render(fmt.Sprintf("A=%s B=%s", expA, expB)))
}

// pad right-pads before styling; styling first would make the escape codes
// count against the width.
func pad(s string, width int) string {
	return fmt.Sprintf("%-*s", width, s)
}
