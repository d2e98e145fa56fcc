package judge

import (
	"context"

	"github.com/Makoq/evalsmith/pkg/domain"
	"github.com/Makoq/evalsmith/pkg/evaluate"
)

// DefaultPreferenceKey is the feedback key preference judgments report
// under.
const DefaultPreferenceKey = "ranked_preference"

// PreferenceJudge is a pairwise evaluator that asks an LLM which of two
// candidate answers better solves the example's task. The winner scores 1
// and the loser 0; a tie scores both 0.5. The judge's reasoning is carried
// as the verdict comment and lands on both feedback records.
type PreferenceJudge struct {
	provider Provider
	cfg      config
}

var _ evaluate.PairwiseEvaluator = (*PreferenceJudge)(nil)

// NewPreferenceJudge builds a preference judge on the given provider.
func NewPreferenceJudge(provider Provider, opts ...Option) *PreferenceJudge {
	return &PreferenceJudge{
		provider: provider,
		cfg:      newConfig(DefaultPreferenceKey, opts),
	}
}

// Key returns the feedback key, DefaultPreferenceKey unless overridden.
func (j *PreferenceJudge) Key() string { return j.cfg.key }

// EvaluatePair judges the ordered pair. The pair order is the caller's
// presentation order; answer A is pair[0] and answer B is pair[1], so
// upstream randomization directly counters position bias.
func (j *PreferenceJudge) EvaluatePair(ctx context.Context, pair [2]*domain.Run, example *domain.Example) (*evaluate.PairwiseResult, error) {
	system, user := preferencePrompt(example, pair[0].Outputs, pair[1].Outputs)
	content, cached, err := j.cfg.complete(ctx, j.provider, system, user)
	if err != nil {
		return nil, err
	}

	verdict, err := parsePreferenceVerdict(content)
	if err != nil {
		return nil, err
	}
	if !cached {
		j.cfg.store(ctx, j.provider, system, user, content)
	}

	scores := make(map[string]float64, 2)
	switch verdict.Winner {
	case winnerA:
		scores[pair[0].ID], scores[pair[1].ID] = 1, 0
	case winnerB:
		scores[pair[0].ID], scores[pair[1].ID] = 0, 1
	default:
		scores[pair[0].ID], scores[pair[1].ID] = 0.5, 0.5
	}

	return &evaluate.PairwiseResult{
		Key:     j.cfg.key,
		Scores:  scores,
		Comment: verdict.Reasoning,
	}, nil
}
