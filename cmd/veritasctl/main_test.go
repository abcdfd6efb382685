package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	auth   string
	caller string
	body   map[string]string
}

func fakeServer(t *testing.T, status int, resp any) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.RequestURI()
		rec.auth = r.Header.Get("Authorization")
		rec.caller = r.Header.Get("X-Agent-ID")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", srv.URL, "--api-key", "k", "--as", "alice"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestWeightsActivate(t *testing.T) {
	srv, rec := fakeServer(t, http.StatusOK, domain.WeightVersion{
		Version: 4, Status: domain.WeightStatusActive, Source: domain.WeightSourceLearning, Weights: domain.DefaultWeights(),
	})

	out, err := run(t, srv, "weights", "activate", "4")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/v1/weights/4/activate", rec.path)
	assert.Equal(t, "Bearer k", rec.auth)
	assert.Equal(t, "alice", rec.caller)
	assert.Equal(t, "alice", rec.body["by"])
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "learning_loop")
}

func TestWeightsRejectsBadVersion(t *testing.T) {
	srv, rec := fakeServer(t, http.StatusOK, nil)
	_, err := run(t, srv, "weights", "reject", "latest")
	require.Error(t, err)
	assert.Empty(t, rec.path)
}

func TestServerErrorIsReported(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusConflict, map[string]string{"error": "invalid weight version transition"})
	_, err := run(t, srv, "weights", "activate", "2")
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "invalid weight version transition", apiErr.Message)
}

func TestContradictionsResolve(t *testing.T) {
	id, winner := uuid.New(), uuid.New()
	srv, rec := fakeServer(t, http.StatusOK, domain.Contradiction{
		ID: id, Status: domain.ContradictionResolved,
		Resolution: &domain.Resolution{WinnerID: winner, Strategy: domain.StrategyManual},
	})

	out, err := run(t, srv, "contradictions", "resolve", id.String(), "--winner", winner.String(), "--reason", "checked prod")
	require.NoError(t, err)
	assert.Equal(t, "/v1/contradictions/"+id.String()+"/resolve", rec.path)
	assert.Equal(t, winner.String(), rec.body["winner_id"])
	assert.Equal(t, "manual", rec.body["strategy"])
	assert.Equal(t, "alice", rec.body["resolved_by"])
	assert.Contains(t, out, winner.String())
}

func TestContradictionsList(t *testing.T) {
	srv, rec := fakeServer(t, http.StatusOK, []domain.Contradiction{})
	_, err := run(t, srv, "contradictions", "list", "--status", "needs_review", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/v1/contradictions?limit=5&status=needs_review", rec.path)
}

func TestLearningRunJSON(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusOK, domain.LearningRun{Skipped: "not enough outcomes"})
	out, err := run(t, srv, "learning", "run", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"skipped": "not enough outcomes"`)
}

func TestConfidenceQuery(t *testing.T) {
	id := uuid.New()
	srv, rec := fakeServer(t, http.StatusOK, domain.ConfidenceScore{MemoryID: id, FinalScore: 0.8, Level: domain.LevelHigh})
	out, err := run(t, srv, "confidence", id.String(), "--project", "atlas", "--systems", "redis,kafka")
	require.NoError(t, err)
	assert.Equal(t, "/v1/memories/"+id.String()+"/confidence?project=atlas&systems=redis%2Ckafka", rec.path)
	assert.Contains(t, out, "0.800 high")
	assert.Contains(t, out, "freshness")
}
