package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Makoq/evalsmith/pkg/domain"
	"github.com/Makoq/evalsmith/pkg/evaluate"
)

// renderComparisonDiffs fetches both experiments' runs and prints a
// per-example diff of their outputs, experiment A's output as the base.
// Examples answered by only one side are skipped, matching the comparison
// scope.
func renderComparisonDiffs(ctx context.Context, w io.Writer, store evaluate.RunLister, ce *domain.ComparativeExperiment) error {
	runsA, err := indexRunsByExample(ctx, store, ce.ExperimentIDs[0])
	if err != nil {
		return err
	}
	runsB, err := indexRunsByExample(ctx, store, ce.ExperimentIDs[1])
	if err != nil {
		return err
	}

	exampleIDs := make([]string, 0, len(runsA))
	for id := range runsA {
		if _, ok := runsB[id]; ok {
			exampleIDs = append(exampleIDs, id)
		}
	}
	sort.Strings(exampleIDs)

	dmp := diffmatchpatch.New()
	for _, id := range exampleIDs {
		left := renderOutputs(runsA[id].Outputs)
		right := renderOutputs(runsB[id].Outputs)

		fmt.Fprintln(w)
		fmt.Fprintln(w, headerStyle.Render("example "+id))
		if left == right {
			fmt.Fprintln(w, dimStyle.Render("  outputs identical"))
			continue
		}

		diffs := dmp.DiffMain(left, right, false)
		diffs = dmp.DiffCleanupSemantic(diffs)
		fmt.Fprintln(w, renderDiffs(diffs))
	}
	return nil
}

// indexRunsByExample keys one experiment's root runs by reference example.
func indexRunsByExample(ctx context.Context, store evaluate.RunLister, experimentID string) (map[string]*domain.Run, error) {
	runs, err := store.ListRuns(ctx, experimentID, false)
	if err != nil {
		return nil, fmt.Errorf("listing runs for %s: %w", experimentID, err)
	}
	byExample := make(map[string]*domain.Run, len(runs))
	for _, run := range runs {
		if run.ReferenceExampleID != "" {
			byExample[run.ReferenceExampleID] = run
		}
	}
	return byExample, nil
}

// renderDiffs formats a diff inline: deletions red, insertions green,
// unchanged text plain.
func renderDiffs(diffs []diffmatchpatch.Diff) string {
	var out string
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			out += failStyle.Render(d.Text)
		case diffmatchpatch.DiffInsert:
			out += winStyle.Render(d.Text)
		default:
			out += d.Text
		}
	}
	return out
}

// renderOutputs serializes run outputs for diffing, with stable key order.
func renderOutputs(outputs map[string]any) string {
	if len(outputs) == 0 {
		return "(no outputs)"
	}
	data, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", outputs)
	}
	return string(data)
}
