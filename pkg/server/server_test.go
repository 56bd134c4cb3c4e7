package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/verkkograph/verkko"
	"github.com/verkkograph/verkko/pkg/config"
	"github.com/verkkograph/verkko/pkg/store"
	"github.com/verkkograph/verkko/pkg/types"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 8080,
			Mode: "test",
		},
	}
}

func testEngine(t *testing.T) verkko.Verkko {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()

	entities := []*types.Entity{
		{ID: "paris", Name: "Paris", EntityType: "location", DocumentID: "doc-1", Confidence: 0.9},
		{ID: "france", Name: "France", EntityType: "location", DocumentID: "doc-1", Confidence: 0.95},
		{ID: "europe", Name: "Europe", EntityType: "location", DocumentID: "doc-2", Confidence: 0.85},
	}
	for _, e := range entities {
		if err := st.PutEntity(ctx, e); err != nil {
			t.Fatalf("failed to seed entity: %v", err)
		}
	}
	rels := []*types.Relationship{
		{ID: "r1", HeadID: "paris", TailID: "france", RelationType: "located_in", Confidence: 0.9},
		{ID: "r2", HeadID: "france", TailID: "europe", RelationType: "part_of", Confidence: 0.8},
	}
	for _, r := range rels {
		if err := st.PutRelationship(ctx, r); err != nil {
			t.Fatalf("failed to seed relationship: %v", err)
		}
	}
	return verkko.New(st, verkko.Options{})
}

func testServer(t *testing.T) *Server {
	t.Helper()
	srv := New(testConfig(), testEngine(t))
	srv.Setup()
	return srv
}

func TestNew(t *testing.T) {
	cfg := testConfig()

	server := New(cfg, nil)
	if server == nil {
		t.Fatal("expected non-nil server")
	}
	if server.config != cfg {
		t.Error("expected config to be set")
	}
}

func TestSetup(t *testing.T) {
	server := New(testConfig(), nil)
	server.Setup()

	if server.router == nil {
		t.Error("expected router to be initialized")
	}
	if server.server == nil {
		t.Error("expected http.Server to be initialized")
	}

	expectedAddr := "localhost:8080"
	if server.server.Addr != expectedAddr {
		t.Errorf("expected addr %s, got %s", expectedAddr, server.server.Addr)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected status healthy, got %v", body["status"])
	}
	if body["service"] != "verkko" {
		t.Errorf("expected service verkko, got %v", body["service"])
	}
}

func TestReadyEndpoint(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestNeighborsEndpoint(t *testing.T) {
	srv := testServer(t)

	body, _ := json.Marshal(map[string]any{
		"entity_id": "paris",
		"max_depth": 2,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/graph/neighbors", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Neighbors []types.NeighborResult `json:"neighbors"`
		Total     int                    `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 neighbors, got %d", resp.Total)
	}
	if resp.Neighbors[0].EntityID != "france" {
		t.Errorf("expected france first, got %s", resp.Neighbors[0].EntityID)
	}
}

func TestNeighborsEndpointRejectsEmptyEntityID(t *testing.T) {
	srv := testServer(t)

	body, _ := json.Marshal(map[string]any{"entity_id": "  "})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/graph/neighbors", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestPathEndpoint(t *testing.T) {
	srv := testServer(t)

	body, _ := json.Marshal(map[string]any{
		"start_id":  "paris",
		"end_id":    "europe",
		"max_depth": 3,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/graph/path", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var path types.PathResult
	if err := json.Unmarshal(w.Body.Bytes(), &path); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !path.Found {
		t.Fatal("expected path to be found")
	}
	if path.Length != 2 {
		t.Errorf("expected length 2, got %d", path.Length)
	}
}

func TestSubgraphEndpoint(t *testing.T) {
	srv := testServer(t)

	body, _ := json.Marshal(map[string]any{
		"entity_ids": []string{"paris"},
		"max_depth":  1,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/graph/subgraph", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("expected 1 relationship, got %d", resp.Total)
	}
}

func TestSearchEndpoint(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/search?q=paris", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Matches []types.MatchResult `json:"matches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Matches) == 0 {
		t.Fatal("expected at least one match")
	}
	if resp.Matches[0].EntityID != "paris" {
		t.Errorf("expected paris first, got %s", resp.Matches[0].EntityID)
	}
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/search", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestGetEntityEndpoint(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/paris", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var entity types.Entity
	if err := json.Unmarshal(w.Body.Bytes(), &entity); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if entity.Name != "Paris" {
		t.Errorf("expected Paris, got %s", entity.Name)
	}
}

func TestGetEntityEndpointNotFound(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/atlantis", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestStatsEndpoints(t *testing.T) {
	srv := testServer(t)

	// Nothing cached yet.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 before compute, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/stats/compute", nil)
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 from compute, got %d: %s", w.Code, w.Body.String())
	}

	var stats types.BasicStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.EntityCount != 3 {
		t.Errorf("expected 3 entities, got %d", stats.EntityCount)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 after compute, got %d", w.Code)
	}
}

func TestDocumentGraphEndpoint(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/graph", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var graph types.DocumentGraph
	if err := json.Unmarshal(w.Body.Bytes(), &graph); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(graph.Entities) != 2 {
		t.Errorf("expected 2 entities, got %d", len(graph.Entities))
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	srv.Router().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("expected request id to be preserved, got %s", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/stats", nil)
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS origin header")
	}
}
