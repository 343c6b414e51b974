package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/index"
	"github.com/kailas-cloud/roledex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type embeddingRow struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// openaiEmbeddingResponse mirrors the OpenAI-compatible API embedding response.
type openaiEmbeddingResponse struct {
	Object string         `json:"object"`
	Data   []embeddingRow `json:"data"`
	Model  string         `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func embeddingServer(t *testing.T, rows []embeddingRow) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := openaiEmbeddingResponse{Object: "list", Model: "test-model", Data: rows}
		resp.Usage.PromptTokens = 7
		resp.Usage.TotalTokens = 7
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestEmbedder(url string) *Embedder {
	return NewEmbedder(&Config{
		APIKey:   "test-key",
		BaseURL:  url,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestEmbedder_BatchEmbed(t *testing.T) {
	server := embeddingServer(t, []embeddingRow{
		{Object: "embedding", Embedding: []float32{0, 3, 4}, Index: 1},
		{Object: "embedding", Embedding: []float32{1, 0, 0}, Index: 0},
	})
	defer server.Close()

	emb := newTestEmbedder(server.URL)
	result, err := emb.BatchEmbed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(result.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result.Embeddings))
	}

	// Rows realigned by index: first input gets index 0.
	if result.Embeddings[0][0] != 1 {
		t.Errorf("rows not realigned by index: %v", result.Embeddings[0])
	}
	for i, vec := range result.Embeddings {
		if !index.IsUnitNorm(vec) {
			t.Errorf("embedding %d not unit norm: %f", i, index.Norm(vec))
		}
	}
	if result.TotalTokens != 7 {
		t.Errorf("expected 7 total tokens, got %d", result.TotalTokens)
	}
}

func TestEmbedder_Embed(t *testing.T) {
	server := embeddingServer(t, []embeddingRow{
		{Object: "embedding", Embedding: []float32{0.6, 0.8}, Index: 0},
	})
	defer server.Close()

	emb := newTestEmbedder(server.URL)
	result, err := emb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(result.Embedding) != 2 {
		t.Fatalf("expected 2-dim embedding, got %d", len(result.Embedding))
	}
}

func TestEmbedder_ShortResponse(t *testing.T) {
	server := embeddingServer(t, []embeddingRow{
		{Object: "embedding", Embedding: []float32{1, 0}, Index: 0},
	})
	defer server.Close()

	emb := newTestEmbedder(server.URL)
	_, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error for short embedding response")
	}
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"detail": "backend overloaded"}`))
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL)
	_, err := emb.BatchEmbed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error from failing API")
	}
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_EmptyInput(t *testing.T) {
	emb := newTestEmbedder("http://localhost:1")
	result, err := emb.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty input should not error: %v", err)
	}
	if len(result.Embeddings) != 0 {
		t.Errorf("expected no embeddings, got %d", len(result.Embeddings))
	}
}
