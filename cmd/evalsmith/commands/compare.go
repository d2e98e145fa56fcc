package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Makoq/evalsmith/pkg/domain"
	"github.com/Makoq/evalsmith/pkg/evaluate"
	"github.com/Makoq/evalsmith/pkg/judge"
)

func newCompareCommand() *cobra.Command {
	var (
		prefix      string
		randomize   bool
		concurrency int
		showDiff    bool
	)

	cmd := &cobra.Command{
		Use:   "compare [experiment-a experiment-b]",
		Short: "Judge two experiments' runs against each other",
		Long: `Compare runs two experiments head to head: for every dataset example both
experiments answered, each configured judge scores the two answers against
each other, and the verdicts are persisted as feedback under a new
comparative experiment.

Experiments are given as names, or as "id:<experiment-id>" to resolve by
ID. With no arguments both come from the suite file.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := resolveComparisonRefs(args, suite)
			if err != nil {
				return err
			}

			store, err := newPlatformClient()
			if err != nil {
				return err
			}

			evaluators, err := buildJudges(cmd.Context(), suite)
			if err != nil {
				return err
			}

			progressed := false
			opts := comparisonOptions(suite, prefix, randomize, concurrency)
			opts = append(opts, evaluate.WithProgress(func(done, total int) {
				progressed = true
				fmt.Fprintf(cmd.ErrOrStderr(), "\rjudged %d/%d", done, total)
			}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, runErr := evaluate.Comparative(ctx, store, refs, evaluators, opts...)
			if progressed {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			if report == nil {
				return runErr
			}

			renderComparativeReport(cmd.OutOrStdout(), report)

			if showDiff {
				if err := renderComparisonDiffs(ctx, cmd.OutOrStdout(), store, report.Experiment); err != nil {
					return err
				}
			}
			if runErr != nil {
				return fmt.Errorf("comparison incomplete: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "name prefix for the created comparative experiment")
	cmd.Flags().BoolVar(&randomize, "randomize", false, "randomize pair presentation order per example")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "max in-flight judge calls (default 5)")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "show per-example output diffs between the two experiments")

	return cmd
}

// resolveComparisonRefs merges positional arguments over the suite file.
// Both sides must end up set.
func resolveComparisonRefs(args []string, s *Suite) ([2]domain.ExperimentRef, error) {
	a, b := s.Experiments.A, s.Experiments.B
	if len(args) >= 1 {
		a = args[0]
	}
	if len(args) == 2 {
		b = args[1]
	}
	if a == "" || b == "" {
		return [2]domain.ExperimentRef{}, fmt.Errorf("two experiments are required, via arguments or the suite file")
	}
	return [2]domain.ExperimentRef{parseExperimentRef(a), parseExperimentRef(b)}, nil
}

// comparisonOptions translates suite and flag settings into orchestrator
// options. Flags win over the suite file.
func comparisonOptions(s *Suite, prefix string, randomize bool, concurrency int) []evaluate.Option {
	var opts []evaluate.Option
	if prefix == "" {
		prefix = s.Name
	}
	if prefix != "" {
		opts = append(opts, evaluate.WithExperimentPrefix(prefix))
	}
	if randomize || s.RandomizeOrder {
		opts = append(opts, evaluate.WithRandomizeOrder())
	}
	if concurrency == 0 {
		concurrency = s.MaxConcurrency
	}
	if concurrency > 0 {
		opts = append(opts, evaluate.WithMaxConcurrency(concurrency))
	}
	if s.LoadNested {
		opts = append(opts, evaluate.WithLoadNested())
	}
	if len(s.Metadata) > 0 {
		opts = append(opts, evaluate.WithMetadata(s.Metadata))
	}
	opts = append(opts, evaluate.WithLogger(slog.Default()))
	return opts
}

// buildJudges constructs the configured pairwise judges. An empty judge
// list means one OpenAI preference judge with defaults.
func buildJudges(ctx context.Context, s *Suite) ([]evaluate.PairwiseEvaluator, error) {
	specs := s.Judges
	if len(specs) == 0 {
		specs = []JudgeSpec{{Provider: judge.ProviderOpenAI}}
	}

	cache, err := buildVerdictCache(s.Cache)
	if err != nil {
		return nil, err
	}

	evaluators := make([]evaluate.PairwiseEvaluator, 0, len(specs))
	for _, spec := range specs {
		provider, err := buildProvider(ctx, spec)
		if err != nil {
			return nil, err
		}

		opts := []judge.Option{judge.WithLogger(slog.Default())}
		if spec.Key != "" {
			opts = append(opts, judge.WithKey(spec.Key))
		}
		if spec.Temperature != nil {
			opts = append(opts, judge.WithTemperature(*spec.Temperature))
		}
		if spec.MaxTokens > 0 {
			opts = append(opts, judge.WithMaxTokens(spec.MaxTokens))
		}
		if cache != nil {
			opts = append(opts, judge.WithCache(cache))
		}
		evaluators = append(evaluators, judge.NewPreferenceJudge(provider, opts...))
	}
	return evaluators, nil
}

// buildProvider constructs one judge backend, reading its API key from the
// provider's conventional environment variable.
func buildProvider(ctx context.Context, spec JudgeSpec) (judge.Provider, error) {
	var key string
	switch spec.Provider {
	case judge.ProviderOpenAI:
		key = os.Getenv("OPENAI_API_KEY")
	case judge.ProviderAnthropic:
		key = os.Getenv("ANTHROPIC_API_KEY")
	case judge.ProviderGoogle:
		key = os.Getenv("GEMINI_API_KEY")
		if key == "" {
			key = os.Getenv("GOOGLE_API_KEY")
		}
	}
	return judge.NewProvider(ctx, spec.Provider, key, spec.Model)
}

// buildVerdictCache wires the shared verdict cache when configured.
func buildVerdictCache(spec CacheSpec) (judge.Cache, error) {
	if spec.RedisAddr == "" {
		return nil, nil
	}
	ttl, err := spec.ttl()
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(&redis.Options{Addr: spec.RedisAddr})
	return judge.NewRedisCache(rdb, ttl, slog.Default()), nil
}
