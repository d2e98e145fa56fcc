package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makoq/evalsmith/pkg/domain"
)

func writeSuiteFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSuite_FullDocument(t *testing.T) {
	path := writeSuiteFile(t, `
name: nightly-ab
experiments:
  a: baseline-v1
  b: id:exp-42
randomize_order: true
max_concurrency: 8
load_nested: true
metadata:
  trigger: nightly
judges:
  - provider: openai
    model: gpt-4o-mini
    key: ranked_preference
    temperature: 0.3
    max_tokens: 512
  - provider: anthropic
cache:
  redis_addr: localhost:6379
  ttl: 45m
`)

	s, err := LoadSuite(path)
	require.NoError(t, err)

	assert.Equal(t, "nightly-ab", s.Name)
	assert.Equal(t, "baseline-v1", s.Experiments.A)
	assert.Equal(t, "id:exp-42", s.Experiments.B)
	assert.True(t, s.RandomizeOrder)
	assert.True(t, s.LoadNested)
	assert.Equal(t, 8, s.MaxConcurrency)
	assert.Equal(t, map[string]any{"trigger": "nightly"}, s.Metadata)

	require.Len(t, s.Judges, 2)
	assert.Equal(t, "openai", s.Judges[0].Provider)
	assert.Equal(t, "gpt-4o-mini", s.Judges[0].Model)
	assert.Equal(t, "ranked_preference", s.Judges[0].Key)
	require.NotNil(t, s.Judges[0].Temperature)
	assert.Equal(t, 0.3, *s.Judges[0].Temperature)
	assert.Equal(t, int64(512), s.Judges[0].MaxTokens)
	assert.Nil(t, s.Judges[1].Temperature)

	assert.Equal(t, "localhost:6379", s.Cache.RedisAddr)
	ttl, err := s.Cache.ttl()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, ttl)
}

func TestLoadSuite_EmptyDocument(t *testing.T) {
	path := writeSuiteFile(t, "")

	s, err := LoadSuite(path)
	require.NoError(t, err)
	assert.Equal(t, &Suite{}, s)
}

func TestLoadSuite_MissingDefaultIsFine(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := LoadSuite("")
	require.NoError(t, err)
	assert.Equal(t, &Suite{}, s)
}

func TestLoadSuite_MissingExplicitFileFails(t *testing.T) {
	_, err := LoadSuite(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading suite file")
}

func TestLoadSuite_InvalidDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "judges: [",
			wantErr: "parsing suite file",
		},
		{
			name:    "bad cache ttl",
			content: "cache:\n  ttl: soon\n",
			wantErr: `cache ttl "soon"`,
		},
		{
			name:    "judge without provider",
			content: "judges:\n  - model: gpt-4o-mini\n",
			wantErr: "judge 0 has no provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSuite(writeSuiteFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseExperimentRef(t *testing.T) {
	assert.Equal(t, domain.ExperimentByName("baseline"), parseExperimentRef("baseline"))
	assert.Equal(t, domain.ExperimentByName("baseline"), parseExperimentRef("name:baseline"))
	assert.Equal(t, domain.ExperimentByID("exp-42"), parseExperimentRef("id:exp-42"))
}

func TestParseDatasetRef(t *testing.T) {
	assert.Equal(t, domain.DatasetByName("capitals"), parseDatasetRef("capitals"))
	assert.Equal(t, domain.DatasetByName("capitals"), parseDatasetRef("name:capitals"))
	assert.Equal(t, domain.DatasetByID("ds-7"), parseDatasetRef("id:ds-7"))
}
