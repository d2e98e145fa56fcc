package inmem

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makoq/evalsmith/pkg/domain"
)

func seedPlatform(t *testing.T) *Platform {
	t.Helper()
	p := New()
	p.AddDataset(&domain.Dataset{ID: "ds-1", Name: "capitals"})
	p.AddExample(domain.MakeExample("ex-1", "ds-1",
		map[string]any{"question": "capital of France?"},
		map[string]any{"output": "Paris"}))
	p.AddExperiment(domain.MakeExperiment("exp-1", "baseline", "ds-1"))
	return p
}

func TestGetDataset(t *testing.T) {
	p := seedPlatform(t)
	ctx := context.Background()

	byID, err := p.GetDataset(ctx, domain.DatasetByID("ds-1"))
	require.NoError(t, err)
	assert.Equal(t, "capitals", byID.Name)

	byName, err := p.GetDataset(ctx, domain.DatasetByName("capitals"))
	require.NoError(t, err)
	assert.Equal(t, "ds-1", byName.ID)

	_, err = p.GetDataset(ctx, domain.DatasetByID("ghost"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "dataset", nf.Resource)

	_, err = p.GetDataset(ctx, domain.DatasetRef{})
	assert.ErrorIs(t, err, domain.ErrInvalidDatasetRef)
}

func TestListExamples_FilterAndIsolation(t *testing.T) {
	p := seedPlatform(t)
	holdout := domain.MakeExample("ex-2", "ds-1",
		map[string]any{"question": "capital of Japan?"},
		map[string]any{"output": "Tokyo"})
	holdout.Splits = []string{"holdout"}
	p.AddExample(holdout)
	ctx := context.Background()

	all, err := p.ListExamples(ctx, domain.DatasetByID("ds-1"), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := p.ListExamples(ctx, domain.DatasetByID("ds-1"),
		&domain.ExampleFilter{Splits: []string{"holdout"}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "ex-2", filtered[0].ID)

	// Listings are clones; callers cannot corrupt the store.
	filtered[0].Inputs["question"] = "mutated"
	again, err := p.ListExamples(ctx, domain.DatasetByID("ds-1"),
		&domain.ExampleFilter{IDs: []string{"ex-2"}})
	require.NoError(t, err)
	assert.Equal(t, "capital of Japan?", again[0].Inputs["question"])
}

func TestResolveExperiment(t *testing.T) {
	p := seedPlatform(t)
	ctx := context.Background()

	byID, err := p.ResolveExperiment(ctx, domain.ExperimentByID("exp-1"))
	require.NoError(t, err)
	assert.Equal(t, "baseline", byID.Name)

	byName, err := p.ResolveExperiment(ctx, domain.ExperimentByName("baseline"))
	require.NoError(t, err)
	assert.Equal(t, "exp-1", byName.ID)

	_, err = p.ResolveExperiment(ctx, domain.ExperimentByName("ghost"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateExperiment(t *testing.T) {
	p := seedPlatform(t)
	ctx := context.Background()

	exp, err := p.CreateExperiment(ctx, "candidate", "ds-1", map[string]any{"model": "gpt-x"})
	require.NoError(t, err)
	assert.NotEmpty(t, exp.ID)
	assert.Equal(t, "gpt-x", exp.Metadata["model"])

	resolved, err := p.ResolveExperiment(ctx, domain.ExperimentByID(exp.ID))
	require.NoError(t, err)
	assert.Equal(t, "candidate", resolved.Name)

	_, err = p.CreateExperiment(ctx, "orphan", "ghost", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateComparativeExperiment(t *testing.T) {
	p := seedPlatform(t)
	p.AddExperiment(domain.MakeExperiment("exp-2", "candidate", "ds-1"))
	ctx := context.Background()

	ce := domain.NewComparativeExperiment("baseline vs candidate", "ds-1", [2]string{"exp-1", "exp-2"})
	created, err := p.CreateComparativeExperiment(ctx, ce)
	require.NoError(t, err)
	assert.Equal(t, ce.ID, created.ID)
	require.Len(t, p.ComparativeExperiments(), 1)

	dangling := domain.NewComparativeExperiment("broken", "ds-1", [2]string{"exp-1", "ghost"})
	_, err = p.CreateComparativeExperiment(ctx, dangling)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, p.ComparativeExperiments(), 1)
}

func TestListRuns(t *testing.T) {
	p := seedPlatform(t)
	ctx := context.Background()

	root := domain.MakeRun("run-1", "target", domain.RunTypeChain)
	root.SessionID = "exp-1"
	root.AddChild(domain.MakeRun("run-1-child", "retrieve", domain.RunTypeRetriever))
	p.AddRun("exp-1", root)

	shallow, err := p.ListRuns(ctx, "exp-1", false)
	require.NoError(t, err)
	require.Len(t, shallow, 1)
	assert.Empty(t, shallow[0].ChildRuns, "root listing strips child trees")

	nested, err := p.ListRuns(ctx, "exp-1", true)
	require.NoError(t, err)
	require.Len(t, nested, 1)
	require.Len(t, nested[0].ChildRuns, 1)
	assert.Equal(t, "retrieve", nested[0].ChildRuns[0].Name)

	_, err = p.ListRuns(ctx, "ghost", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateRun(t *testing.T) {
	p := seedPlatform(t)
	ctx := context.Background()

	orphan := domain.NewRun("target", domain.RunTypeChain, map[string]any{"q": "x"})
	err := p.CreateRun(ctx, orphan)
	assert.ErrorIs(t, err, domain.ErrInvalidRun, "runs must belong to an experiment session")

	run := domain.NewRun("target", domain.RunTypeChain, map[string]any{"q": "x"})
	run.SessionID = "exp-1"
	require.NoError(t, p.CreateRun(ctx, run))

	runs, err := p.ListRuns(ctx, "exp-1", false)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestCreateFeedbackBatch_AllOrNothing(t *testing.T) {
	p := seedPlatform(t)
	ctx := context.Background()

	valid := domain.NewScoredFeedback("run-1", "correctness", 1)
	invalid := domain.NewScoredFeedback("run-1", "", 0) // missing key

	err := p.CreateFeedbackBatch(ctx, []*domain.Feedback{valid, invalid})
	require.Error(t, err)
	assert.Empty(t, p.Feedback(), "an invalid row rejects the whole batch")

	require.NoError(t, p.CreateFeedbackBatch(ctx, []*domain.Feedback{valid}))
	assert.Len(t, p.FeedbackForRun("run-1"), 1)
}

func TestConcurrentFeedbackWrites(t *testing.T) {
	p := seedPlatform(t)
	ctx := context.Background()
	const writers = 16

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fb := domain.NewScoredFeedback(fmt.Sprintf("run-%d", i), "correctness", 1)
			assert.NoError(t, p.CreateFeedback(ctx, fb))
		}(i)
	}
	wg.Wait()

	assert.Len(t, p.Feedback(), writers)
}
