package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makoq/evalsmith/pkg/domain"
	"github.com/Makoq/evalsmith/pkg/redact"
)

// newTestClient wires a client against the given test server with fast
// retry timing and no client-side throttle.
func newTestClient(t *testing.T, server *httptest.Server, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		APIKey:   "test-key",
		Endpoint: server.URL,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Retry: RetryConfig{
			MaxAttempts:     2,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
			Multiplier:      2.0,
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: -1},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func TestNewClient_ConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "api key only", cfg: Config{APIKey: "k"}},
		{name: "missing api key", cfg: Config{}, wantErr: true},
		{name: "bad endpoint", cfg: Config{APIKey: "k", Endpoint: "snmp://wat"}, wantErr: true},
		{name: "endpoint without host", cfg: Config{APIKey: "k", Endpoint: "https://"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, "evalsmith-go/"+Version, cfg.UserAgent)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.NotNil(t, cfg.Logger)
}

func TestGetDataset_ByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/datasets/ds-1", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		_ = json.NewEncoder(w).Encode(domain.Dataset{ID: "ds-1", Name: "rag-qa"})
	}))
	defer server.Close()

	c := newTestClient(t, server)
	ds, err := c.GetDataset(context.Background(), domain.DatasetByID("ds-1"))

	require.NoError(t, err)
	assert.Equal(t, "rag-qa", ds.Name)
}

func TestGetDataset_ByName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/datasets", r.URL.Path)
		assert.Equal(t, "rag-qa", r.URL.Query().Get("name"))
		_ = json.NewEncoder(w).Encode([]domain.Dataset{{ID: "ds-1", Name: "rag-qa"}})
	}))
	defer server.Close()

	c := newTestClient(t, server)
	ds, err := c.GetDataset(context.Background(), domain.DatasetByName("rag-qa"))

	require.NoError(t, err)
	assert.Equal(t, "ds-1", ds.ID)
}

func TestGetDataset_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"no such dataset"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.GetDataset(context.Background(), domain.DatasetByID("ds-missing"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "dataset", nf.Resource)
	assert.Equal(t, "ds-missing", nf.Ref)
}

func TestGetDataset_InvalidRef(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.GetDataset(context.Background(), domain.DatasetRef{})
	assert.ErrorIs(t, err, domain.ErrInvalidDatasetRef)
}

func TestResolveExperiment_ByName_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.Experiment{})
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.ResolveExperiment(context.Background(), domain.ExperimentByName("ghost"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveExperiment_ByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/experiments/exp-A", r.URL.Path)
		_ = json.NewEncoder(w).Encode(domain.Experiment{ID: "exp-A", Name: "baseline", DatasetID: "ds-1"})
	}))
	defer server.Close()

	c := newTestClient(t, server)
	exp, err := c.ResolveExperiment(context.Background(), domain.ExperimentByID("exp-A"))

	require.NoError(t, err)
	assert.Equal(t, "ds-1", exp.DatasetID)
}

func TestListExamples_Paging(t *testing.T) {
	// Three examples with a page size of two forces two fetches.
	all := []domain.Example{
		{ID: "ex-1", DatasetID: "ds-1", Inputs: map[string]any{"q": "1"}},
		{ID: "ex-2", DatasetID: "ds-1", Inputs: map[string]any{"q": "2"}},
		{ID: "ex-3", DatasetID: "ds-1", Inputs: map[string]any{"q": "3"}},
	}
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset, limit := 0, defaultPageSize
		if v := r.URL.Query().Get("offset"); v != "" {
			_, _ = fmt.Sscanf(v, "%d", &offset)
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			_, _ = fmt.Sscanf(v, "%d", &limit)
		}
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		_ = json.NewEncoder(w).Encode(all[offset:end])
	}))
	defer server.Close()

	c := newTestClient(t, server)
	got, err := c.ListExamples(context.Background(), domain.DatasetByID("ds-1"), &domain.ExampleFilter{PageSize: 2})

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ex-1", got[0].ID)
	assert.Equal(t, "ex-3", got[2].ID)
	assert.Equal(t, 2, requests)
}

func TestListExamplesAutoPaging_Restartable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.Example{
			{ID: "ex-1", DatasetID: "ds-1", Inputs: map[string]any{"q": "1"}},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server)

	// Two iterators over the same dataset are independent sequences.
	first := c.ListExamplesAutoPaging(context.Background(), domain.DatasetByID("ds-1"), nil)
	second := c.ListExamplesAutoPaging(context.Background(), domain.DatasetByID("ds-1"), nil)

	require.True(t, first.Next())
	require.NoError(t, first.Err())
	assert.Equal(t, "ex-1", first.Current().ID)
	assert.False(t, first.Next())

	require.True(t, second.Next(), "a fresh iterator starts from the beginning")
	assert.Equal(t, "ex-1", second.Current().ID)
}

func TestListExamplesAutoPaging_FilterParams(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode([]domain.Example{})
	}))
	defer server.Close()

	c := newTestClient(t, server)
	it := c.ListExamplesAutoPaging(context.Background(), domain.DatasetByID("ds-1"), &domain.ExampleFilter{
		IDs:         []string{"ex-1", "ex-2"},
		Splits:      []string{"holdout"},
		Metadata:    map[string]any{"difficulty": "hard"},
		AsOfVersion: "v3",
	})
	assert.False(t, it.Next())
	require.NoError(t, it.Err())

	assert.Equal(t, []string{"ex-1", "ex-2"}, gotQuery["id"])
	assert.Equal(t, []string{"holdout"}, gotQuery["split"])
	assert.Equal(t, "v3", gotQuery["as_of"][0])
	assert.JSONEq(t, `{"difficulty":"hard"}`, gotQuery["metadata"][0])
}

func TestListRuns_LoadNested(t *testing.T) {
	var gotNested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotNested = r.URL.Query().Get("load_nested")
		_ = json.NewEncoder(w).Encode([]*domain.Run{
			{
				ID: "run-1", Name: "pipeline", RunType: domain.RunTypeChain,
				Status: domain.RunStatusSuccess, ReferenceExampleID: "ex-1",
				ChildRuns: []*domain.Run{
					{ID: "run-1a", Name: "retrieve", RunType: domain.RunTypeRetriever, Status: domain.RunStatusSuccess},
				},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server)
	runs, err := c.ListRuns(context.Background(), "exp-A", true)

	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "true", gotNested)

	child, found := runs[0].FindDescendantByName("retrieve")
	require.True(t, found)
	assert.Equal(t, "run-1a", child.ID)
}

func TestCreateRun_HideInputs(t *testing.T) {
	var got runPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := newTestClient(t, server, func(cfg *Config) { cfg.HideInputs = true })

	run := domain.NewRun("pipeline", domain.RunTypeChain, map[string]any{"q": "secret"})
	run.Complete(map[string]any{"answer": "visible"})
	require.NoError(t, c.CreateRun(context.Background(), run))

	assert.Equal(t, map[string]any{}, got.Inputs, "hidden inputs travel as an empty object")
	assert.Equal(t, map[string]any{"answer": "visible"}, got.Outputs)
	assert.Equal(t, map[string]any{"q": "secret"}, run.Inputs, "caller's run must stay intact")
}

func TestCreateRun_AnonymizerOverridesHide(t *testing.T) {
	var got runPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := newTestClient(t, server, func(cfg *Config) {
		cfg.HideInputs = true
		cfg.Anonymizer = redact.AnonymizerFunc(func(v any) any {
			return map[string]any{"q": "<scrubbed>"}
		})
	})

	run := domain.NewRun("pipeline", domain.RunTypeChain, map[string]any{"q": "secret"})
	require.NoError(t, c.CreateRun(context.Background(), run))

	assert.Equal(t, map[string]any{"q": "<scrubbed>"}, got.Inputs,
		"anonymizer wins over the hide flag")
}

func TestCreateRun_ProcessorOverridesAll(t *testing.T) {
	var got runPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := newTestClient(t, server, func(cfg *Config) {
		cfg.HideInputs = true
		cfg.Anonymizer = redact.AnonymizerFunc(func(v any) any { return map[string]any{} })
	})

	run := domain.NewRun("pipeline", domain.RunTypeChain, map[string]any{"q": "secret"})
	err := c.CreateRunWithOptions(context.Background(), run, WithInputProcessor(func(p map[string]any) map[string]any {
		return map[string]any{"q": "function-level"}
	}))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"q": "function-level"}, got.Inputs,
		"function-level processor wins over the client anonymizer and hide flag")
}

func TestUpdateRun_Patch(t *testing.T) {
	var gotMethod, gotPath string
	var got runUpdatePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	run := domain.MakeRun("run-1", "pipeline", domain.RunTypeChain)
	run.Complete(map[string]any{"answer": "Paris"})

	require.NoError(t, c.UpdateRun(context.Background(), run))
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/api/v1/runs/run-1", gotPath)
	assert.Equal(t, "success", got.Status)
	assert.Equal(t, map[string]any{"answer": "Paris"}, got.Outputs)
	require.NotNil(t, got.EndTime)
}

func TestCreateFeedback(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/feedback", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	fb := domain.NewScoredFeedback("run-1", "ranked_preference", 1)
	fb = fb.WithGroup("grp-1", "cmp-1")

	require.NoError(t, c.CreateFeedback(context.Background(), fb))
	assert.Equal(t, "ranked_preference", got["key"])
	assert.Equal(t, 1.0, got["score"])
	assert.Equal(t, "grp-1", got["feedback_group_id"])
}

func TestCreateFeedback_Invalid(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := newTestClient(t, server)
	err := c.CreateFeedback(context.Background(), &domain.Feedback{ID: "f-1", Key: "k"})
	assert.Error(t, err, "missing run id must fail before any request")
}

func TestCreateFeedbackBatch(t *testing.T) {
	var got feedbackBatchPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/feedback/batch", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	batch := []*domain.Feedback{
		domain.NewScoredFeedback("run-a", "ranked_preference", 1),
		domain.NewScoredFeedback("run-b", "ranked_preference", 0),
	}
	require.NoError(t, c.CreateFeedbackBatch(context.Background(), batch))
	assert.Len(t, got.Feedback, 2)

	assert.NoError(t, c.CreateFeedbackBatch(context.Background(), nil), "empty batch is a no-op")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.Dataset{ID: "ds-1", Name: "rag-qa"})
	}))
	defer server.Close()

	c := newTestClient(t, server)
	ds, err := c.GetDataset(context.Background(), domain.DatasetByID("ds-1"))

	require.NoError(t, err)
	assert.Equal(t, "ds-1", ds.ID)
	assert.Equal(t, 2, calls)
}
