package judge

import (
	"context"

	"github.com/Makoq/evalsmith/pkg/domain"
	"github.com/Makoq/evalsmith/pkg/evaluate"
)

// DefaultGradeKey is the feedback key grading judgments report under.
const DefaultGradeKey = "quality"

// Grader is a single-run evaluator that asks an LLM to score one candidate
// answer on a 0-to-1 scale, with the example's reference answer as context
// when present. The judge's reasoning is carried as the feedback comment.
type Grader struct {
	provider Provider
	cfg      config
}

var _ evaluate.Evaluator = (*Grader)(nil)

// NewGrader builds a grader on the given provider.
func NewGrader(provider Provider, opts ...Option) *Grader {
	return &Grader{
		provider: provider,
		cfg:      newConfig(DefaultGradeKey, opts),
	}
}

// Key returns the feedback key, DefaultGradeKey unless overridden.
func (g *Grader) Key() string { return g.cfg.key }

// EvaluateRun grades one run's outputs.
func (g *Grader) EvaluateRun(ctx context.Context, run *domain.Run, example *domain.Example) (evaluate.Results, error) {
	system, user := gradePrompt(example, run.Outputs)
	content, cached, err := g.cfg.complete(ctx, g.provider, system, user)
	if err != nil {
		return evaluate.Results{}, err
	}

	verdict, err := parseGradeVerdict(content)
	if err != nil {
		return evaluate.Results{}, err
	}
	if !cached {
		g.cfg.store(ctx, g.provider, system, user, content)
	}
	return evaluate.SingleWithComment(g.cfg.key, verdict.Score, verdict.Reasoning), nil
}
