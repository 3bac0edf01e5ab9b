package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/stellarlinkco/rlgym/internal/app"
	"github.com/stellarlinkco/rlgym/internal/config"
	"github.com/stellarlinkco/rlgym/internal/policy"
	"github.com/stellarlinkco/rlgym/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("RLGYM_API_KEY", "")
	t.Setenv("RLGYM_DISABLE_AUTH", "true")

	cfg := config.Default()
	cfg.Storage.Type = "memory"

	e, err := app.BuildEnv(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildEnv: %v", err)
	}
	if err := e.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })

	st := store.NewMemoryStore()
	runner, err := app.NewRunner(e, st, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	s, err := NewServer(cfg, runner, st, policy.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s, st
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health: got %d want 200", w.Code)
	}
}

func TestRunEpisode_WithFixedResponse(t *testing.T) {
	s, st := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/episodes", `{"response":"I don't know"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("run episode: got %d want 201: %s", w.Code, w.Body.String())
	}

	var rec store.EpisodeRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec.Reward != 0 || rec.FailureKind != "no_extraction" {
		t.Fatalf("episode record: %+v", rec)
	}

	list, err := st.ListEpisodes(context.Background(), store.EpisodeFilter{})
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("persisted episodes: got %d want 1", len(list))
	}
}

func TestRunEpisode_UnknownPolicy(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/episodes", `{"policy":"nope"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown policy: got %d want 400", w.Code)
	}
}

func TestGetEpisode(t *testing.T) {
	s, st := newTestServer(t)

	rec := &store.EpisodeRecord{ID: "ep-1", Question: "q", GroundTruth: "a", RawResponse: "r", Reward: 1}
	if err := st.SaveEpisode(context.Background(), rec); err != nil {
		t.Fatalf("SaveEpisode: %v", err)
	}

	w := doRequest(s, http.MethodGet, "/api/episodes/ep-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get episode: got %d want 200", w.Code)
	}

	w = doRequest(s, http.MethodGet, "/api/episodes/missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get missing episode: got %d want 404", w.Code)
	}
}

func TestListEpisodes_InvalidLimit(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/episodes?limit=zero", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid limit: got %d want 400", w.Code)
	}
}

func TestSummary(t *testing.T) {
	s, st := newTestServer(t)

	if err := st.SaveEpisode(context.Background(), &store.EpisodeRecord{ID: "s-1", Question: "q", GroundTruth: "a", RawResponse: "r", Reward: 1, Passed: true}); err != nil {
		t.Fatalf("SaveEpisode: %v", err)
	}

	w := doRequest(s, http.MethodGet, "/api/summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("summary: got %d want 200", w.Code)
	}

	var sum store.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Episodes != 1 || sum.Passed != 1 {
		t.Fatalf("summary: %+v", sum)
	}
}

func TestAuth_APIKeyRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("RLGYM_API_KEY", "secret")
	t.Setenv("RLGYM_DISABLE_AUTH", "")

	cfg := config.Default()
	e, err := app.BuildEnv(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildEnv: %v", err)
	}
	if err := e.Setup(context.Background()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer e.Close()

	st := store.NewMemoryStore()
	runner, err := app.NewRunner(e, st, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	s, err := NewServer(cfg, runner, st, policy.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	w := doRequest(s, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no api key: got %d want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with api key: got %d want 200", rec.Code)
	}
}

func TestNewServer_MissingAuthConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("RLGYM_API_KEY", "")
	t.Setenv("RLGYM_DISABLE_AUTH", "")

	cfg := config.Default()
	e, err := app.BuildEnv(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildEnv: %v", err)
	}
	st := store.NewMemoryStore()
	runner, err := app.NewRunner(e, st, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	if _, err := NewServer(cfg, runner, st, policy.NewRegistry(), nil); err == nil {
		t.Fatalf("NewServer: expected error without auth configuration")
	}
}
