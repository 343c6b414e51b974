package index

import (
	"fmt"
	"math"
)

// NormTolerance is the accepted deviation from unit length.
const NormTolerance = 1e-4

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize scales v to unit length in place. A zero vector is an error.
func Normalize(v []float32) error {
	n := Norm(v)
	if n == 0 {
		return fmt.Errorf("cannot normalize zero vector")
	}
	inv := float32(1 / n)
	for i := range v {
		v[i] *= inv
	}
	return nil
}

// IsUnitNorm reports whether v is unit length within NormTolerance.
func IsUnitNorm(v []float32) bool {
	return math.Abs(Norm(v)-1) <= NormTolerance
}

// Dot returns the inner product of two equal-width vectors.
// For unit vectors this equals cosine similarity.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
