package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makoq/evalsmith/pkg/domain"
	"github.com/Makoq/evalsmith/pkg/inmem"
)

func TestRenderDiffs(t *testing.T) {
	out := renderDiffs([]diffmatchpatch.Diff{
		{Type: diffmatchpatch.DiffEqual, Text: "The capital is "},
		{Type: diffmatchpatch.DiffDelete, Text: "Lyon"},
		{Type: diffmatchpatch.DiffInsert, Text: "Paris"},
	})

	assert.Contains(t, out, "The capital is ")
	assert.Contains(t, out, "Lyon")
	assert.Contains(t, out, "Paris")
}

func TestRenderOutputs(t *testing.T) {
	assert.Equal(t, "(no outputs)", renderOutputs(nil))
	assert.Contains(t, renderOutputs(map[string]any{"answer": "Paris"}), `"answer": "Paris"`)
}

func TestRenderComparisonDiffs(t *testing.T) {
	p := inmem.New()
	p.AddDataset(&domain.Dataset{ID: "ds-1", Name: "capitals"})
	p.AddExperiment(domain.MakeExperiment("exp-A", "baseline", "ds-1"))
	p.AddExperiment(domain.MakeExperiment("exp-B", "candidate", "ds-1"))

	seed := func(experimentID, runID, exampleID, answer string) {
		run := domain.MakeRun(runID, "target", domain.RunTypeChain)
		run.ReferenceExampleID = exampleID
		run.Complete(map[string]any{"answer": answer})
		p.AddRun(experimentID, run)
	}
	seed("exp-A", "run-a-1", "ex-1", "Paris")
	seed("exp-B", "run-b-1", "ex-1", "Lyon")
	seed("exp-A", "run-a-2", "ex-2", "Berlin")
	seed("exp-B", "run-b-2", "ex-2", "Berlin")
	seed("exp-A", "run-a-3", "ex-only-a", "Madrid")

	ce := &domain.ComparativeExperiment{
		ID:            "ce-1",
		Name:          "baseline vs candidate",
		ExperimentIDs: []string{"exp-A", "exp-B"},
		DatasetID:     "ds-1",
	}

	var buf bytes.Buffer
	err := renderComparisonDiffs(context.Background(), &buf, p, ce)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "example ex-1")
	assert.Contains(t, out, "Paris")
	assert.Contains(t, out, "Lyon")
	assert.Contains(t, out, "example ex-2")
	assert.Contains(t, out, "outputs identical")
	assert.NotContains(t, out, "ex-only-a")
}

func TestRenderComparisonDiffs_UnknownExperiment(t *testing.T) {
	p := inmem.New()
	ce := &domain.ComparativeExperiment{
		ExperimentIDs: []string{"ghost-a", "ghost-b"},
	}

	err := renderComparisonDiffs(context.Background(), &bytes.Buffer{}, p, ce)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
