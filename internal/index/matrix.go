package index

import "fmt"

// Matrix is a dense row-major table of fixed-width float32 vectors.
// Append-only during build; read-only afterwards.
type Matrix struct {
	dim  int
	data []float32
}

// NewMatrix creates an empty matrix of the given vector width.
func NewMatrix(dim int) (*Matrix, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("matrix dimension must be positive, got %d", dim)
	}
	return &Matrix{dim: dim}, nil
}

// Dim returns the vector width.
func (m *Matrix) Dim() int { return m.dim }

// Rows returns the number of vectors.
func (m *Matrix) Rows() int { return len(m.data) / m.dim }

// Append adds one vector. The vector is copied.
func (m *Matrix) Append(vec []float32) error {
	if len(vec) != m.dim {
		return fmt.Errorf("vector has dimension %d, matrix expects %d", len(vec), m.dim)
	}
	m.data = append(m.data, vec...)
	return nil
}

// Row returns the i-th vector as a view into the backing array.
// Callers must not mutate it.
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.dim : (i+1)*m.dim]
}
