package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Makoq/evalsmith/pkg/domain"
)

// defaultSuitePath is picked up from the working directory when --suite is
// not given.
const defaultSuitePath = "evalsmith.yaml"

// Suite is the YAML document configuring a comparative evaluation: which
// experiments to compare, which judges to run, and how hard to push.
//
//	name: nightly-ab
//	experiments:
//	  a: baseline-v1
//	  b: candidate-v2
//	randomize_order: true
//	max_concurrency: 8
//	metadata:
//	  trigger: nightly
//	judges:
//	  - provider: openai
//	    model: gpt-4o-mini
//	cache:
//	  redis_addr: localhost:6379
//	  ttl: 24h
type Suite struct {
	// Name prefixes the created comparative experiment's name.
	Name string `yaml:"name"`

	// Experiments are the two experiments under comparison, each an
	// experiment name or "id:<experiment-id>".
	Experiments ExperimentPair `yaml:"experiments"`

	// RandomizeOrder flips pair presentation per example to counter
	// judge position bias.
	RandomizeOrder bool `yaml:"randomize_order"`

	// MaxConcurrency bounds in-flight judge calls. Zero keeps the
	// orchestrator default.
	MaxConcurrency int `yaml:"max_concurrency"`

	// LoadNested fetches full run trees instead of root runs only.
	LoadNested bool `yaml:"load_nested"`

	// Metadata is attached to the created comparative experiment.
	Metadata map[string]any `yaml:"metadata"`

	// Judges configures the pairwise judges. Empty means one OpenAI
	// preference judge with default settings.
	Judges []JudgeSpec `yaml:"judges"`

	// Cache optionally shares judge verdicts through Redis.
	Cache CacheSpec `yaml:"cache"`
}

// ExperimentPair names the two sides of a comparison.
type ExperimentPair struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// JudgeSpec configures one pairwise judge.
type JudgeSpec struct {
	// Provider selects the LLM backend: openai, anthropic, or google.
	Provider string `yaml:"provider"`

	// Model overrides the provider's default judge model.
	Model string `yaml:"model"`

	// Key overrides the feedback key the judge reports under.
	Key string `yaml:"key"`

	// Temperature overrides the judge sampling temperature.
	Temperature *float64 `yaml:"temperature"`

	// MaxTokens overrides the judge completion budget.
	MaxTokens int64 `yaml:"max_tokens"`
}

// CacheSpec configures the shared verdict cache.
type CacheSpec struct {
	// RedisAddr enables a Redis-backed verdict cache when set.
	RedisAddr string `yaml:"redis_addr"`

	// TTL is the verdict lifetime, in Go duration syntax. Empty keeps
	// the cache default.
	TTL string `yaml:"ttl"`
}

// ttl parses the configured verdict lifetime. Zero means default.
func (c CacheSpec) ttl() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("cache ttl %q: %w", c.TTL, err)
	}
	return d, nil
}

// LoadSuite reads a suite file. With an empty path the default file is
// loaded when present; an explicitly named file must exist. The zero suite
// is valid: everything can come from flags and arguments.
func LoadSuite(path string) (*Suite, error) {
	explicit := path != ""
	if !explicit {
		path = defaultSuitePath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &Suite{}, nil
		}
		return nil, fmt.Errorf("reading suite file %s: %w", path, err)
	}

	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing suite file %s: %w", path, err)
	}
	if _, err := s.Cache.ttl(); err != nil {
		return nil, fmt.Errorf("suite file %s: %w", path, err)
	}
	for i := range s.Judges {
		if s.Judges[i].Provider == "" {
			return nil, fmt.Errorf("suite file %s: judge %d has no provider", path, i)
		}
	}
	return &s, nil
}

// parseExperimentRef reads a CLI-side experiment reference. Bare values are
// names; "id:" forces ID resolution and "name:" is accepted for symmetry.
func parseExperimentRef(s string) domain.ExperimentRef {
	if rest, ok := strings.CutPrefix(s, "id:"); ok {
		return domain.ExperimentByID(rest)
	}
	if rest, ok := strings.CutPrefix(s, "name:"); ok {
		return domain.ExperimentByName(rest)
	}
	return domain.ExperimentByName(s)
}

// parseDatasetRef reads a CLI-side dataset reference with the same prefix
// convention as parseExperimentRef.
func parseDatasetRef(s string) domain.DatasetRef {
	if rest, ok := strings.CutPrefix(s, "id:"); ok {
		return domain.DatasetByID(rest)
	}
	if rest, ok := strings.CutPrefix(s, "name:"); ok {
		return domain.DatasetByName(rest)
	}
	return domain.DatasetByName(s)
}
