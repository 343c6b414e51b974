package vacancy

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/index"
)

// ErrArtifactsExist signals a build over existing artifacts without force.
var ErrArtifactsExist = errors.New("artifacts already exist (use force to rebuild)")

// descriptionCap bounds stored descriptions, matching what the scorer ever sees.
const descriptionCap = 500

// Builder performs the one-time offline build of the vacancy store artifacts.
type Builder struct {
	embedder  domain.BatchEmbedder
	paths     Paths
	batchSize int
	logger    *zap.Logger
}

// NewBuilder creates an offline builder.
func NewBuilder(dataDir string, embedder domain.BatchEmbedder, batchSize int, logger *zap.Logger) *Builder {
	if batchSize <= 0 {
		batchSize = 256
	}
	return &Builder{
		embedder:  embedder,
		paths:     NewPaths(dataDir),
		batchSize: batchSize,
		logger:    logger,
	}
}

// BuildOptions controls a build run.
type BuildOptions struct {
	SourcePath string
	MaxRecords int  // 0 = unlimited
	Force      bool // replace existing artifacts
}

// Build parses the raw vacancy collection, embeds each distinct enriched title
// once, expands title embeddings to one row per record, and writes the three
// artifacts atomically (write-then-swap). A missing or unreadable source is
// fatal; no partial artifact set ever becomes visible.
func (b *Builder) Build(ctx context.Context, opts BuildOptions) error {
	if b.paths.AllExist() && !opts.Force {
		return ErrArtifactsExist
	}

	if err := os.MkdirAll(filepath.Dir(b.paths.Meta), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	records, err := readSource(opts.SourcePath, opts.MaxRecords, b.logger)
	if err != nil {
		return err
	}
	b.logger.Info("Loaded raw vacancy records", zap.Int("count", len(records)))

	// Distinct enriched titles in first-seen order; records without one are
	// skipped since they cannot be embedded or retrieved.
	titleOrder := make([]string, 0)
	titleRecords := make(map[string][]int)
	skipped := 0
	for i := range records {
		title := strings.TrimSpace(records[i].EnrichedJobTitle)
		if title == "" {
			skipped++
			continue
		}
		if _, seen := titleRecords[title]; !seen {
			titleOrder = append(titleOrder, title)
		}
		titleRecords[title] = append(titleRecords[title], i)
	}
	if skipped > 0 {
		b.logger.Warn("Skipped records without enriched job title", zap.Int("count", skipped))
	}
	if len(titleOrder) == 0 {
		return fmt.Errorf("source contains no records with enriched job titles")
	}
	b.logger.Info("Distinct enriched job titles", zap.Int("count", len(titleOrder)))

	titleVecs, err := b.embedTitles(ctx, titleOrder)
	if err != nil {
		return fmt.Errorf("embed titles: %w", err)
	}

	dim := len(titleVecs[0])
	matrix, err := index.NewMatrix(dim)
	if err != nil {
		return err
	}

	// Expand: one row per record, sharing the embedding of its title.
	meta := make([]domain.VacancyRecord, 0, len(records))
	for ti, title := range titleOrder {
		vec := titleVecs[ti]
		for _, ri := range titleRecords[title] {
			rec := records[ri]
			if len(rec.Description) > descriptionCap {
				rec.Description = rec.Description[:descriptionCap]
			}
			meta = append(meta, rec)
			if err := matrix.Append(vec); err != nil {
				return fmt.Errorf("append embedding row: %w", err)
			}
		}
	}
	b.logger.Info("Built embedding matrix",
		zap.Int("rows", matrix.Rows()),
		zap.Int("dim", matrix.Dim()),
	)

	if err := b.writeArtifacts(meta, matrix); err != nil {
		b.paths.discard()
		return err
	}

	b.logger.Info("Vacancy store build complete",
		zap.String("index", b.paths.Index),
		zap.String("matrix", b.paths.Matrix),
		zap.String("metadata", b.paths.Meta),
	)
	return nil
}

// embedTitles encodes distinct titles in bounded chunks and enforces the
// unit-norm invariant on every returned row.
func (b *Builder) embedTitles(ctx context.Context, titles []string) ([][]float32, error) {
	vecs := make([][]float32, 0, len(titles))

	for off := 0; off < len(titles); off += b.batchSize {
		end := off + b.batchSize
		if end > len(titles) {
			end = len(titles)
		}

		result, err := b.embedder.BatchEmbed(ctx, titles[off:end])
		if err != nil {
			return nil, fmt.Errorf("batch at offset %d: %w", off, err)
		}
		if len(result.Embeddings) != end-off {
			return nil, fmt.Errorf(
				"batch at offset %d returned %d rows for %d titles: %w",
				off, len(result.Embeddings), end-off, domain.ErrEmbeddingProviderError,
			)
		}
		for i, vec := range result.Embeddings {
			if !index.IsUnitNorm(vec) {
				if err := index.Normalize(vec); err != nil {
					return nil, fmt.Errorf("title %q produced a zero embedding", titles[off+i])
				}
			}
		}
		vecs = append(vecs, result.Embeddings...)

		b.logger.Debug("Embedded title batch",
			zap.Int("done", len(vecs)),
			zap.Int("total", len(titles)),
		)
	}

	return vecs, nil
}

func (b *Builder) writeArtifacts(meta []domain.VacancyRecord, matrix *index.Matrix) error {
	if err := writeMeta(tmp(b.paths.Meta), meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	if err := writeFrameFile(tmp(b.paths.Matrix), matrix.WriteTo); err != nil {
		return fmt.Errorf("write embedding matrix: %w", err)
	}

	flat := index.FlatFromMatrix(matrix)
	if err := writeFrameFile(tmp(b.paths.Index), flat.WriteTo); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	return b.paths.commit()
}

func writeFrameFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeMeta(path string, records []domain.VacancyRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			f.Close()
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readSource parses the line-delimited vacancy collection. Gzip is detected by
// the .gz suffix. A record that cannot be parsed or lacks an identifier is a
// named, fatal parse error; the build never silently defaults fields.
func readSource(path string, maxRecords int, logger *zap.Logger) ([]domain.VacancyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip source %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var records []domain.VacancyRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		if maxRecords > 0 && len(records) >= maxRecords {
			break
		}
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec domain.VacancyRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("parse source line %d: %w", line, err)
		}
		if rec.Identifier == "" {
			return nil, domain.NewInvalidRecord(line, "identifier")
		}
		records = append(records, rec)

		if line%200000 == 0 {
			logger.Info("Reading source records", zap.Int("loaded", line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read source %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("source %s contains no records", path)
	}

	return records, nil
}
