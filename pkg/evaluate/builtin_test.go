package evaluate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// outputRun builds a completed run answering with the given value.
func outputRun(id string, outputs map[string]any) *domain.Run {
	run := domain.MakeRun(id, "target", domain.RunTypeChain)
	run.Complete(outputs)
	return run
}

func TestExactMatch(t *testing.T) {
	example := domain.MakeExample("ex-1", "ds-1",
		map[string]any{"question": "capital of France?"},
		map[string]any{"output": "Paris"})

	tests := []struct {
		name      string
		evaluator ExactMatch
		outputs   map[string]any
		want      float64
	}{
		{
			name:    "exact match",
			outputs: map[string]any{"output": "Paris"},
			want:    1,
		},
		{
			name:    "mismatch",
			outputs: map[string]any{"output": "Lyon"},
			want:    0,
		},
		{
			name:    "surrounding whitespace ignored",
			outputs: map[string]any{"output": "  Paris\n"},
			want:    1,
		},
		{
			name:    "case matters by default",
			outputs: map[string]any{"output": "paris"},
			want:    0,
		},
		{
			name:      "case folded on request",
			evaluator: ExactMatch{CaseInsensitive: true},
			outputs:   map[string]any{"output": "PARIS"},
			want:      1,
		},
		{
			name:    "missing output field",
			outputs: map[string]any{"answer": "Paris"},
			want:    0,
		},
		{
			name:    "non-string output",
			outputs: map[string]any{"output": 42},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := outputRun("run-1", tt.outputs)

			res, err := tt.evaluator.EvaluateRun(context.Background(), run, example)

			require.NoError(t, err)
			require.Equal(t, 1, res.Len())
			entry := res.Entries()[0]
			assert.Equal(t, "exact_match", entry.Key)
			assert.Equal(t, tt.want, entry.Score)
		})
	}
}

func TestExactMatch_CustomField(t *testing.T) {
	example := domain.MakeExample("ex-1", "ds-1",
		map[string]any{"question": "q"},
		map[string]any{"answer": "42"})
	run := outputRun("run-1", map[string]any{"answer": "42"})

	res, err := ExactMatch{Field: "answer"}.EvaluateRun(context.Background(), run, example)

	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Entries()[0].Score)
}

func TestExactMatch_MissingReference(t *testing.T) {
	example := domain.MakeExample("ex-1", "ds-1", map[string]any{"question": "q"}, nil)
	run := outputRun("run-1", map[string]any{"output": "Paris"})

	_, err := ExactMatch{}.EvaluateRun(context.Background(), run, example)

	require.Error(t, err)
	assert.ErrorContains(t, err, "no reference output")
}

func TestRankedPreference(t *testing.T) {
	example := domain.MakeExample("ex-1", "ds-1",
		map[string]any{"question": "capital of France?"},
		map[string]any{"output": "Paris"})

	tests := []struct {
		name                  string
		first, second         string
		wantFirst, wantSecond float64
	}{
		{name: "first matches", first: "Paris", second: "Lyon", wantFirst: 1, wantSecond: 0},
		{name: "second matches", first: "Lyon", second: "Paris", wantFirst: 0, wantSecond: 1},
		{name: "both match is a tie", first: "Paris", second: "Paris", wantFirst: 0.5, wantSecond: 0.5},
		{name: "neither matches is a tie", first: "Lyon", second: "Nice", wantFirst: 0.5, wantSecond: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair := [2]*domain.Run{
				outputRun("run-1", map[string]any{"output": tt.first}),
				outputRun("run-2", map[string]any{"output": tt.second}),
			}

			res, err := RankedPreference{}.EvaluatePair(context.Background(), pair, example)

			require.NoError(t, err)
			assert.Equal(t, "ranked_preference", res.Key)
			require.Len(t, res.Scores, 2)
			assert.Equal(t, tt.wantFirst, res.Scores["run-1"])
			assert.Equal(t, tt.wantSecond, res.Scores["run-2"])
		})
	}
}

func TestRankedPreference_CaseInsensitive(t *testing.T) {
	example := domain.MakeExample("ex-1", "ds-1",
		map[string]any{"q": "x"},
		map[string]any{"output": "Paris"})
	pair := [2]*domain.Run{
		outputRun("run-1", map[string]any{"output": "PARIS"}),
		outputRun("run-2", map[string]any{"output": "Lyon"}),
	}

	res, err := RankedPreference{CaseInsensitive: true}.EvaluatePair(context.Background(), pair, example)

	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Scores["run-1"])
	assert.Equal(t, 0.0, res.Scores["run-2"])
}

func TestRankedPreference_MissingReference(t *testing.T) {
	example := domain.MakeExample("ex-1", "ds-1", map[string]any{"q": "x"}, nil)
	pair := [2]*domain.Run{
		outputRun("run-1", map[string]any{"output": "Paris"}),
		outputRun("run-2", map[string]any{"output": "Lyon"}),
	}

	_, err := RankedPreference{}.EvaluatePair(context.Background(), pair, example)

	require.Error(t, err)
	assert.ErrorContains(t, err, "no reference output")
}
