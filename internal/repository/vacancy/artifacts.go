package vacancy

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names. The three files are only valid together: the metadata
// row order matches the embedding matrix, which matches the index.
const (
	indexFile  = "vacancy_index.bin"
	matrixFile = "vacancy_embeddings.bin"
	metaFile   = "vacancy_metadata.jsonl"
)

// Paths resolves the artifact locations under a data directory.
type Paths struct {
	Index  string
	Matrix string
	Meta   string

	dir string
}

// NewPaths builds artifact paths for dataDir.
func NewPaths(dataDir string) Paths {
	return Paths{
		dir:    dataDir,
		Index:  filepath.Join(dataDir, indexFile),
		Matrix: filepath.Join(dataDir, matrixFile),
		Meta:   filepath.Join(dataDir, metaFile),
	}
}

// AllExist reports whether every artifact is present.
func (p Paths) AllExist() bool {
	for _, path := range []string{p.Index, p.Matrix, p.Meta} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// tmp returns the staging path for an artifact.
func tmp(path string) string { return path + ".tmp" }

// commit renames all staged artifacts into place. Readers never observe a
// partially written set: staging failures leave prior artifacts untouched.
func (p Paths) commit() error {
	for _, path := range []string{p.Meta, p.Matrix, p.Index} {
		if err := os.Rename(tmp(path), path); err != nil {
			return fmt.Errorf("swap %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// discard removes any staged artifacts after a failed build.
func (p Paths) discard() {
	for _, path := range []string{p.Meta, p.Matrix, p.Index} {
		_ = os.Remove(tmp(path))
	}
}
