package evaluate

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makoq/evalsmith/pkg/domain"
)

func TestResults_Constructors(t *testing.T) {
	single := Single("correctness", 1)
	require.Equal(t, 1, single.Len())
	assert.Equal(t, Result{Key: "correctness", Score: 1}, single.Entries()[0])

	commented := SingleWithComment("correctness", 0, "missed the year")
	require.Equal(t, 1, commented.Len())
	assert.Equal(t, "missed the year", commented.Entries()[0].Comment)

	multi := Multi(
		Result{Key: "relevance", Score: 0.8},
		Result{Key: "depth", Score: 0.4},
	)
	assert.Equal(t, 2, multi.Len())
}

func TestResults_EntriesReturnsCopy(t *testing.T) {
	res := Single("correctness", 1)
	res.Entries()[0].Score = 0

	assert.Equal(t, 1.0, res.Entries()[0].Score, "mutating the returned slice must not affect the verdict")
}

func TestValidateResults(t *testing.T) {
	tests := []struct {
		name      string
		results   Results
		wantKeys  []string
		violation bool
	}{
		{
			name:      "empty verdict",
			results:   Results{},
			violation: true,
		},
		{
			name:     "key defaults to evaluator key",
			results:  Multi(Result{Score: 1}),
			wantKeys: []string{"judge"},
		},
		{
			name:     "explicit keys preserved",
			results:  Multi(Result{Key: "relevance", Score: 1}, Result{Score: 0}),
			wantKeys: []string{"relevance", "judge"},
		},
		{
			name:      "NaN score",
			results:   Single("judge", math.NaN()),
			violation: true,
		},
		{
			name:      "infinite score",
			results:   Single("judge", math.Inf(1)),
			violation: true,
		},
		{
			name:     "zero is a real score",
			results:  Single("judge", 0),
			wantKeys: []string{"judge"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := validateResults(tt.results, "judge", "ex-1")

			if tt.violation {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrContractViolation)
				var violation *domain.ContractViolationError
				require.ErrorAs(t, err, &violation)
				assert.Equal(t, "judge", violation.EvaluatorKey)
				assert.Equal(t, "ex-1", violation.ExampleID)
				return
			}
			require.NoError(t, err)
			keys := make([]string, len(entries))
			for i, entry := range entries {
				keys[i] = entry.Key
			}
			assert.Equal(t, tt.wantKeys, keys)
		})
	}
}

func TestValidatePairwiseResult(t *testing.T) {
	pair := [2]*domain.Run{
		domain.MakeRun("run-1", "target", domain.RunTypeChain),
		domain.MakeRun("run-2", "target", domain.RunTypeChain),
	}
	both := func(a, b float64) map[string]float64 {
		return map[string]float64{"run-1": a, "run-2": b}
	}

	tests := []struct {
		name        string
		result      *PairwiseResult
		wantMissing []string
		wantExtra   []string
		ok          bool
	}{
		{
			name:        "nil verdict",
			result:      nil,
			wantMissing: []string{"run-1", "run-2"},
		},
		{
			name:        "empty scores",
			result:      &PairwiseResult{Scores: map[string]float64{}},
			wantMissing: []string{"run-1", "run-2"},
		},
		{
			name:        "one run unscored",
			result:      &PairwiseResult{Scores: map[string]float64{"run-1": 1}},
			wantMissing: []string{"run-2"},
		},
		{
			name:      "foreign run scored",
			result:    &PairwiseResult{Scores: map[string]float64{"run-1": 1, "run-2": 0, "run-9": 1}},
			wantExtra: []string{"run-9"},
		},
		{
			name:        "only foreign runs",
			result:      &PairwiseResult{Scores: map[string]float64{"run-9": 1}},
			wantMissing: []string{"run-1", "run-2"},
			wantExtra:   []string{"run-9"},
		},
		{
			name:   "NaN score",
			result: &PairwiseResult{Scores: both(math.NaN(), 0)},
		},
		{
			name:   "valid verdict",
			result: &PairwiseResult{Scores: both(1, 0)},
			ok:     true,
		},
		{
			name:   "valid tie",
			result: &PairwiseResult{Scores: both(0.5, 0.5)},
			ok:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePairwiseResult(tt.result, pair, "judge", "ex-1")

			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrContractViolation)
			var violation *domain.ContractViolationError
			require.ErrorAs(t, err, &violation)
			assert.Equal(t, "judge", violation.EvaluatorKey)
			assert.Equal(t, "ex-1", violation.ExampleID)
			assert.ElementsMatch(t, tt.wantMissing, violation.Missing)
			assert.ElementsMatch(t, tt.wantExtra, violation.Extra)
		})
	}
}

func TestFuncAdapters(t *testing.T) {
	ctx := context.Background()
	run := domain.MakeRun("run-1", "target", domain.RunTypeChain)
	example := domain.MakeExample("ex-1", "ds-1", map[string]any{"q": "x"}, nil)

	ev := Func("knows_answer", func(_ context.Context, r *domain.Run, ex *domain.Example) (Results, error) {
		assert.Same(t, run, r)
		assert.Same(t, example, ex)
		return Single("knows_answer", 1), nil
	})
	assert.Equal(t, "knows_answer", ev.Key())
	res, err := ev.EvaluateRun(ctx, run, example)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())

	boom := errors.New("no verdict")
	pv := PairwiseFunc("prefers", func(_ context.Context, _ [2]*domain.Run, _ *domain.Example) (*PairwiseResult, error) {
		return nil, boom
	})
	assert.Equal(t, "prefers", pv.Key())
	_, err = pv.EvaluatePair(ctx, [2]*domain.Run{run, run}, example)
	assert.ErrorIs(t, err, boom)
}
