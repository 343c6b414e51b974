package roledex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/repository/vacancy"
)

type onehotEmbedder struct {
	dim int
}

func (e *onehotEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dim)
		h := uint32(2166136261)
		for j := 0; j < len(text); j++ {
			h = (h ^ uint32(text[j])) * 16777619
		}
		vec[int(h)%e.dim] = 1
		embeddings[i] = vec
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: len(texts)}, nil
}

func buildArtifacts(t *testing.T) string {
	t.Helper()
	dataDir := filepath.Join(t.TempDir(), "store")

	source := filepath.Join(t.TempDir(), "vacancies.jsonl")
	lines := []string{
		`{"identifier":"v1","title":"Nurse","enriched_job_title":"Registered Nurse","description":"ward care","enriched_skills":"triage","enriched_tasks":"care"}`,
		`{"identifier":"v2","title":"Dev","enriched_job_title":"Backend Developer","description":"apis","enriched_skills":"go","enriched_tasks":"services"}`,
	}
	if err := os.WriteFile(source, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	builder := vacancy.NewBuilder(dataDir, &onehotEmbedder{dim: 8}, 16, zap.NewNop())
	if err := builder.Build(context.Background(), vacancy.BuildOptions{SourcePath: source}); err != nil {
		t.Fatalf("build artifacts: %v", err)
	}
	return dataDir
}

func validOptions(dataDir string) []Option {
	return []Option{
		WithDataDir(dataDir),
		WithEmbeddingProvider(ProviderConfig{APIKey: "test", Model: "text-embedding-3-small", Dimensions: 8}),
		WithScoringProvider(ProviderConfig{APIKey: "test", Model: "gpt-4o-mini"}),
	}
}

func TestNewRequiresDataDir(t *testing.T) {
	_, err := New(
		WithEmbeddingProvider(ProviderConfig{APIKey: "k", Model: "m"}),
		WithScoringProvider(ProviderConfig{APIKey: "k", Model: "m"}),
	)
	if err == nil || !strings.Contains(err.Error(), "artifact directory") {
		t.Fatalf("expected data dir error, got %v", err)
	}
}

func TestNewRequiresProviders(t *testing.T) {
	dataDir := buildArtifacts(t)

	_, err := New(
		WithDataDir(dataDir),
		WithScoringProvider(ProviderConfig{APIKey: "k", Model: "m"}),
	)
	if err == nil || !strings.Contains(err.Error(), "embedding model") {
		t.Fatalf("expected embedding model error, got %v", err)
	}

	_, err = New(
		WithDataDir(dataDir),
		WithEmbeddingProvider(ProviderConfig{APIKey: "k", Model: "m"}),
	)
	if err == nil || !strings.Contains(err.Error(), "scoring model") {
		t.Fatalf("expected scoring model error, got %v", err)
	}
}

func TestNewFailsOnMissingArtifacts(t *testing.T) {
	opts := validOptions(filepath.Join(t.TempDir(), "empty"))
	_, err := New(opts...)
	if err == nil || !strings.Contains(err.Error(), "load artifacts") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestNewLoadsArtifactsAndReportsStats(t *testing.T) {
	dataDir := buildArtifacts(t)

	client, err := New(validOptions(dataDir)...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	stats := client.Stats()
	if stats.Rows != 2 {
		t.Fatalf("expected 2 rows, got %d", stats.Rows)
	}
	if stats.DistinctTitles != 2 {
		t.Fatalf("expected 2 distinct titles, got %d", stats.DistinctTitles)
	}
	if stats.Dim != 8 {
		t.Fatalf("expected dim 8, got %d", stats.Dim)
	}
}

func TestMatchRejectsEmptyNeeds(t *testing.T) {
	dataDir := buildArtifacts(t)

	client, err := New(validOptions(dataDir)...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	_, err = client.Match(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for empty needs")
	}
}

func ExampleNew() {
	client, err := New(
		WithDataDir("./data"),
		WithEmbeddingProvider(ProviderConfig{APIKey: "sk-...", Model: "text-embedding-3-small", Dimensions: 1536}),
		WithScoringProvider(ProviderConfig{APIKey: "sk-...", Model: "gpt-4o-mini"}),
		WithRerankThreshold(3.5),
	)
	if err != nil {
		fmt.Println("client unavailable")
		return
	}
	defer client.Close()
}
