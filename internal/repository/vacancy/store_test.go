package vacancy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
)

// hashEmbedder produces a deterministic unit vector per text so tests can
// predict which rows match which queries.
type hashEmbedder struct {
	dim   int
	calls int
	texts [][]string
}

func (e *hashEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.calls++
	e.texts = append(e.texts, append([]string(nil), texts...))

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.vector(text)
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: len(texts)}, nil
}

func (e *hashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dim)
	h := uint32(2166136261)
	for i := 0; i < len(text); i++ {
		h = (h ^ uint32(text[i])) * 16777619
	}
	vec[int(h)%e.dim] = 1
	return vec
}

func writeSource(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vacancies.jsonl")
	var data []byte
	for _, line := range lines {
		data = append(data, line...)
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func recordLine(id, title, description string) string {
	return fmt.Sprintf(
		`{"identifier":%q,"title":%q,"enriched_job_title":%q,"description":%q,"enriched_skills":"sql","enriched_tasks":"reporting"}`,
		id, title, title, description,
	)
}

func buildTestStore(t *testing.T, dataDir string, emb *hashEmbedder, lines ...string) *Store {
	t.Helper()
	source := writeSource(t, lines...)

	builder := NewBuilder(dataDir, emb, 2, zap.NewNop())
	if err := builder.Build(context.Background(), BuildOptions{SourcePath: source}); err != nil {
		t.Fatalf("build: %v", err)
	}

	store := NewStore(dataDir, zap.NewNop())
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	return store
}

func TestBuildAndLoadRoundTrip(t *testing.T) {
	emb := &hashEmbedder{dim: 8}
	dataDir := t.TempDir()

	store := buildTestStore(t, dataDir,
		emb,
		recordLine("v1", "Data Analyst", "dashboards"),
		recordLine("v2", "Registered Nurse", "ward care"),
		recordLine("v3", "Data Analyst", "sql reports"),
	)

	if store.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", store.Len())
	}
	if store.Dim() != 8 {
		t.Fatalf("Dim() = %d, want 8", store.Dim())
	}
	// Two distinct titles means exactly one embedding batch of size 2.
	if emb.calls != 1 || len(emb.texts[0]) != 2 {
		t.Fatalf("embedder calls = %d texts = %v, want one batch of 2", emb.calls, emb.texts)
	}

	// Rows are grouped by title in first-seen order: v1, v3 share "Data Analyst".
	rows := store.RowsForTitle("Data Analyst")
	if len(rows) != 2 {
		t.Fatalf("RowsForTitle = %v, want 2 rows", rows)
	}
	r0, err := store.RecordAt(rows[0])
	if err != nil || r0.Identifier != "v1" {
		t.Fatalf("RecordAt(%d) = %+v, %v", rows[0], r0, err)
	}
	r1, err := store.RecordAt(rows[1])
	if err != nil || r1.Identifier != "v3" {
		t.Fatalf("RecordAt(%d) = %+v, %v", rows[1], r1, err)
	}

	// Duplicate titles share the same stored vector.
	v0, _ := store.Embedding(rows[0])
	v1, _ := store.Embedding(rows[1])
	for i := range v0 {
		if v0[i] != v1[i] {
			t.Fatalf("rows sharing a title have different embeddings")
		}
	}

	// Searching with the exact title vector surfaces those rows with score 1.
	hits, err := store.Search([][]float32{emb.vector("Data Analyst")}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits[0]) != 2 {
		t.Fatalf("hits = %v, want 2", hits[0])
	}
	if math.Abs(float64(hits[0][0].Score)-1) > 1e-5 {
		t.Fatalf("top score = %f, want 1", hits[0][0].Score)
	}
}

func TestBuildSkipsRecordsWithoutEnrichedTitle(t *testing.T) {
	emb := &hashEmbedder{dim: 4}
	store := buildTestStore(t, t.TempDir(),
		emb,
		recordLine("v1", "Data Analyst", "x"),
		`{"identifier":"v2","title":"Something","enriched_job_title":"","description":"y"}`,
	)

	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (untitled record skipped)", store.Len())
	}
	if _, ok := store.RecordByID("v2"); ok {
		t.Fatal("record without enriched title should not be stored")
	}
}

func TestBuildMissingIdentifierIsFatal(t *testing.T) {
	source := writeSource(t,
		recordLine("v1", "Data Analyst", "x"),
		`{"identifier":"","enriched_job_title":"Nurse"}`,
	)

	builder := NewBuilder(t.TempDir(), &hashEmbedder{dim: 4}, 0, zap.NewNop())
	err := builder.Build(context.Background(), BuildOptions{SourcePath: source})
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("err = %v, want ErrInvalidRecord", err)
	}
	var invalid *domain.InvalidRecordError
	if !errors.As(err, &invalid) || invalid.Line != 2 || invalid.Field != "identifier" {
		t.Fatalf("err = %v, want invalid record at line 2 field identifier", err)
	}
}

func TestBuildRefusesExistingArtifactsWithoutForce(t *testing.T) {
	emb := &hashEmbedder{dim: 4}
	dataDir := t.TempDir()
	source := writeSource(t, recordLine("v1", "Data Analyst", "x"))

	builder := NewBuilder(dataDir, emb, 0, zap.NewNop())
	if err := builder.Build(context.Background(), BuildOptions{SourcePath: source}); err != nil {
		t.Fatalf("first build: %v", err)
	}

	err := builder.Build(context.Background(), BuildOptions{SourcePath: source})
	if !errors.Is(err, ErrArtifactsExist) {
		t.Fatalf("rebuild without force: err = %v, want ErrArtifactsExist", err)
	}

	if err := builder.Build(context.Background(), BuildOptions{SourcePath: source, Force: true}); err != nil {
		t.Fatalf("rebuild with force: %v", err)
	}
}

func TestBuildMaxRecordsCap(t *testing.T) {
	emb := &hashEmbedder{dim: 4}
	dataDir := t.TempDir()
	source := writeSource(t,
		recordLine("v1", "Data Analyst", "x"),
		recordLine("v2", "Registered Nurse", "y"),
		recordLine("v3", "Accountant", "z"),
	)

	builder := NewBuilder(dataDir, emb, 0, zap.NewNop())
	err := builder.Build(context.Background(), BuildOptions{SourcePath: source, MaxRecords: 2})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	store := NewStore(dataDir, zap.NewNop())
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}
}

func TestBuildTruncatesLongDescriptions(t *testing.T) {
	long := make([]byte, descriptionCap+200)
	for i := range long {
		long[i] = 'a'
	}

	store := buildTestStore(t, t.TempDir(),
		&hashEmbedder{dim: 4},
		recordLine("v1", "Data Analyst", string(long)),
	)

	rec, ok := store.RecordByID("v1")
	if !ok {
		t.Fatal("record v1 not found")
	}
	if len(rec.Description) != descriptionCap {
		t.Fatalf("description length = %d, want %d", len(rec.Description), descriptionCap)
	}
}

func TestLoadMissingArtifacts(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())
	err := store.Load()
	if !errors.Is(err, domain.ErrArtifactMissing) {
		t.Fatalf("err = %v, want ErrArtifactMissing", err)
	}
}

func TestLoadRowCountMismatch(t *testing.T) {
	emb := &hashEmbedder{dim: 4}
	dataDir := t.TempDir()
	source := writeSource(t,
		recordLine("v1", "Data Analyst", "x"),
		recordLine("v2", "Registered Nurse", "y"),
	)

	builder := NewBuilder(dataDir, emb, 0, zap.NewNop())
	if err := builder.Build(context.Background(), BuildOptions{SourcePath: source}); err != nil {
		t.Fatalf("build: %v", err)
	}

	// Drop one metadata line so the artifact set disagrees on row count.
	metaPath := NewPaths(dataDir).Meta
	if err := os.WriteFile(metaPath, []byte(recordLine("v1", "Data Analyst", "x")+"\n"), 0o644); err != nil {
		t.Fatalf("rewrite metadata: %v", err)
	}

	store := NewStore(dataDir, zap.NewNop())
	err := store.Load()
	if !errors.Is(err, domain.ErrRowCountMismatch) {
		t.Fatalf("err = %v, want ErrRowCountMismatch", err)
	}
}

func TestUnloadedStoreRefusesQueries(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	if _, err := store.Search([][]float32{{1, 0}}, 1); !errors.Is(err, domain.ErrStoreNotLoaded) {
		t.Fatalf("Search err = %v, want ErrStoreNotLoaded", err)
	}
	if _, err := store.RecordAt(0); !errors.Is(err, domain.ErrStoreNotLoaded) {
		t.Fatalf("RecordAt err = %v, want ErrStoreNotLoaded", err)
	}
	if _, ok := store.RecordByID("v1"); ok {
		t.Fatal("RecordByID on unloaded store should report not found")
	}
}

func TestEmbeddingLookups(t *testing.T) {
	emb := &hashEmbedder{dim: 8}
	store := buildTestStore(t, t.TempDir(),
		emb,
		recordLine("v1", "Data Analyst", "dashboards"),
		recordLine("v2", "Registered Nurse", "ward care"),
	)

	vec, ok := store.EmbeddingByID("v2")
	if !ok {
		t.Fatal("EmbeddingByID(v2) not found")
	}
	want := emb.vector("Registered Nurse")
	for i := range want {
		if vec[i] != want[i] {
			t.Fatalf("EmbeddingByID(v2) = %v, want %v", vec, want)
		}
	}

	if _, ok := store.EmbeddingByID("ghost"); ok {
		t.Fatal("EmbeddingByID on unknown id should report not found")
	}

	if _, err := store.Embedding(-1); err == nil {
		t.Fatal("Embedding(-1) should fail")
	}
	if _, err := store.Embedding(store.Len()); err == nil {
		t.Fatalf("Embedding(%d) should fail", store.Len())
	}
	if _, err := store.Embedding(0); err != nil {
		t.Fatalf("Embedding(0): %v", err)
	}
}

func TestStoreStats(t *testing.T) {
	store := buildTestStore(t, t.TempDir(),
		&hashEmbedder{dim: 4},
		recordLine("v1", "Data Analyst", "x"),
		recordLine("v2", "Data Analyst", "y"),
		recordLine("v3", "Registered Nurse", "z"),
	)

	stats := store.Stats()
	if stats.Rows != 3 || stats.Dim != 4 || stats.DistinctTitles != 2 {
		t.Fatalf("stats = %+v, want 3 rows, dim 4, 2 titles", stats)
	}
}
