package evaluate

import (
	"context"
	"fmt"
	"strings"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// DefaultOutputField is the conventional output key compared by the
// built-in evaluators when none is configured.
const DefaultOutputField = "output"

// ExactMatch scores a run 1 when its output field exactly matches the
// example's reference output, 0 otherwise. Values are compared as strings
// after trimming surrounding whitespace.
type ExactMatch struct {
	// Field selects the compared output key; DefaultOutputField when empty.
	Field string

	// CaseInsensitive folds case before comparing.
	CaseInsensitive bool
}

// Key returns "exact_match".
func (e ExactMatch) Key() string { return "exact_match" }

// EvaluateRun compares the run's output to the example's reference output.
// An example without a reference value is an evaluator error: there is
// nothing to judge against.
func (e ExactMatch) EvaluateRun(_ context.Context, run *domain.Run, example *domain.Example) (Results, error) {
	field := e.field()
	want, ok := stringField(example.Outputs, field)
	if !ok {
		return Results{}, fmt.Errorf("example %q has no reference output %q", example.ID, field)
	}
	got, _ := stringField(run.Outputs, field)
	return Single(e.Key(), domain.BoolScore(e.match(got, want))), nil
}

func (e ExactMatch) field() string {
	if e.Field == "" {
		return DefaultOutputField
	}
	return e.Field
}

func (e ExactMatch) match(got, want string) bool {
	got, want = strings.TrimSpace(got), strings.TrimSpace(want)
	if e.CaseInsensitive {
		return strings.EqualFold(got, want)
	}
	return got == want
}

// RankedPreference ranks two runs by exact match against the example's
// reference output: the matching run scores 1 and the other 0. When both or
// neither match, the pair is a tie and both score 0.5.
type RankedPreference struct {
	// Field selects the compared output key; DefaultOutputField when empty.
	Field string

	// CaseInsensitive folds case before comparing.
	CaseInsensitive bool
}

// Key returns "ranked_preference".
func (r RankedPreference) Key() string { return "ranked_preference" }

// EvaluatePair judges the pair against the reference output.
func (r RankedPreference) EvaluatePair(_ context.Context, pair [2]*domain.Run, example *domain.Example) (*PairwiseResult, error) {
	cmp := ExactMatch{Field: r.Field, CaseInsensitive: r.CaseInsensitive}
	want, ok := stringField(example.Outputs, cmp.field())
	if !ok {
		return nil, fmt.Errorf("example %q has no reference output %q", example.ID, cmp.field())
	}

	scores := make(map[string]float64, 2)
	first, _ := stringField(pair[0].Outputs, cmp.field())
	second, _ := stringField(pair[1].Outputs, cmp.field())
	firstMatch, secondMatch := cmp.match(first, want), cmp.match(second, want)

	switch {
	case firstMatch == secondMatch:
		scores[pair[0].ID], scores[pair[1].ID] = 0.5, 0.5
	case firstMatch:
		scores[pair[0].ID], scores[pair[1].ID] = 1, 0
	default:
		scores[pair[0].ID], scores[pair[1].ID] = 0, 1
	}
	return &PairwiseResult{Key: r.Key(), Scores: scores}, nil
}

// stringField extracts a string-typed value from an output map.
func stringField(m map[string]any, field string) (string, bool) {
	v, ok := m[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
