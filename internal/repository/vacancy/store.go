package vacancy

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/index"
)

// Store is the read side of the vacancy collection: a flat vector index plus
// row-aligned metadata, loaded once at startup and immutable afterwards.
// All methods are safe for concurrent use after Load returns.
type Store struct {
	paths Paths

	flat   *index.Flat
	matrix *index.Matrix
	meta   []domain.VacancyRecord

	titleRows map[string][]int
	idRow     map[string]int

	logger *zap.Logger
	loaded bool
}

// NewStore creates an unloaded store over the artifact directory.
func NewStore(dataDir string, logger *zap.Logger) *Store {
	return &Store{
		paths:  NewPaths(dataDir),
		logger: logger,
	}
}

// Load reads the three artifacts and verifies their row alignment. Any missing
// artifact yields domain.ErrArtifactMissing; a row count disagreement between
// index, matrix and metadata yields domain.ErrRowCountMismatch.
func (s *Store) Load() error {
	if !s.paths.AllExist() {
		return fmt.Errorf("artifacts in %s: %w", s.paths.dir, domain.ErrArtifactMissing)
	}

	flat, err := readFlatFile(s.paths.Index)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	matrix, err := readMatrixFile(s.paths.Matrix)
	if err != nil {
		return fmt.Errorf("load embedding matrix: %w", err)
	}
	meta, err := readMeta(s.paths.Meta)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	if flat.Len() != matrix.Rows() || flat.Len() != len(meta) {
		return fmt.Errorf(
			"index has %d rows, matrix %d, metadata %d: %w",
			flat.Len(), matrix.Rows(), len(meta), domain.ErrRowCountMismatch,
		)
	}
	if flat.Dim() != matrix.Dim() {
		return fmt.Errorf(
			"index dimension %d does not match matrix dimension %d: %w",
			flat.Dim(), matrix.Dim(), domain.ErrDimensionMismatch,
		)
	}

	titleRows := make(map[string][]int)
	idRow := make(map[string]int, len(meta))
	for row := range meta {
		title := meta[row].EnrichedJobTitle
		titleRows[title] = append(titleRows[title], row)
		if _, dup := idRow[meta[row].Identifier]; !dup {
			idRow[meta[row].Identifier] = row
		}
	}

	s.flat = flat
	s.matrix = matrix
	s.meta = meta
	s.titleRows = titleRows
	s.idRow = idRow
	s.loaded = true

	s.logger.Info("Vacancy store loaded",
		zap.Int("rows", flat.Len()),
		zap.Int("dim", flat.Dim()),
		zap.Int("distinct_titles", len(titleRows)),
	)
	return nil
}

// Loaded reports whether Load has completed successfully.
func (s *Store) Loaded() bool { return s.loaded }

// Len returns the number of rows in the store.
func (s *Store) Len() int {
	if !s.loaded {
		return 0
	}
	return s.flat.Len()
}

// Dim returns the embedding dimension.
func (s *Store) Dim() int {
	if !s.loaded {
		return 0
	}
	return s.flat.Dim()
}

// Search runs exhaustive inner product search for a batch of unit-norm query
// vectors and returns the topK rows per query, best first.
func (s *Store) Search(queries [][]float32, topK int) ([][]index.Hit, error) {
	if !s.loaded {
		return nil, domain.ErrStoreNotLoaded
	}
	return s.flat.Search(queries, topK)
}

// RecordAt returns the metadata record for a row.
func (s *Store) RecordAt(row int) (domain.VacancyRecord, error) {
	if !s.loaded {
		return domain.VacancyRecord{}, domain.ErrStoreNotLoaded
	}
	if row < 0 || row >= len(s.meta) {
		return domain.VacancyRecord{}, fmt.Errorf("row %d out of range [0,%d)", row, len(s.meta))
	}
	return s.meta[row], nil
}

// RecordByID resolves a vacancy identifier to its metadata record.
func (s *Store) RecordByID(id string) (domain.VacancyRecord, bool) {
	if !s.loaded {
		return domain.VacancyRecord{}, false
	}
	row, ok := s.idRow[id]
	if !ok {
		return domain.VacancyRecord{}, false
	}
	return s.meta[row], true
}

// Embedding returns the stored unit-norm vector for a row. The returned slice
// is a view into the matrix; callers must not mutate it.
func (s *Store) Embedding(row int) ([]float32, error) {
	if !s.loaded {
		return nil, domain.ErrStoreNotLoaded
	}
	if row < 0 || row >= s.matrix.Rows() {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, s.matrix.Rows())
	}
	return s.matrix.Row(row), nil
}

// EmbeddingByID returns the stored vector for a vacancy identifier.
func (s *Store) EmbeddingByID(id string) ([]float32, bool) {
	if !s.loaded {
		return nil, false
	}
	row, ok := s.idRow[id]
	if !ok {
		return nil, false
	}
	return s.matrix.Row(row), true
}

// RowsForTitle returns the rows sharing an enriched job title.
func (s *Store) RowsForTitle(title string) []int {
	if !s.loaded {
		return nil
	}
	return s.titleRows[title]
}

// Stats describes the loaded store for the diagnostics endpoint.
type Stats struct {
	Rows           int    `json:"rows"`
	Dim            int    `json:"dim"`
	DistinctTitles int    `json:"distinct_titles"`
	DataDir        string `json:"data_dir"`
}

// Stats snapshots the loaded store. Zero values when not loaded.
func (s *Store) Stats() Stats {
	if !s.loaded {
		return Stats{DataDir: s.paths.dir}
	}
	return Stats{
		Rows:           s.flat.Len(),
		Dim:            s.flat.Dim(),
		DistinctTitles: len(s.titleRows),
		DataDir:        s.paths.dir,
	}
}

func readFlatFile(path string) (*index.Flat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return index.ReadFlat(f)
}

func readMatrixFile(path string) (*index.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return index.ReadMatrix(f)
}

func readMeta(path string) ([]domain.VacancyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []domain.VacancyRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec domain.VacancyRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("metadata line %d: %w: %v", line, domain.ErrArtifactCorrupt, err)
		}
		if field := rec.Validate(); field != "" {
			return nil, domain.NewInvalidRecord(line, field)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
