package index

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"
)

// Hit is one nearest-neighbor result: a row of the indexed matrix and its
// cosine score against the query.
type Hit struct {
	Row   int
	Score float64
}

// Flat is a build-once inner-product index over L2-normalized vectors.
// Exhaustive scan, exact results. Immutable after build, so Search is safe
// for concurrent use.
type Flat struct {
	m *Matrix
}

// NewFlat creates an empty flat index of the given dimension.
func NewFlat(dim int) (*Flat, error) {
	m, err := NewMatrix(dim)
	if err != nil {
		return nil, err
	}
	return &Flat{m: m}, nil
}

// FlatFromMatrix wraps an existing matrix without copying.
func FlatFromMatrix(m *Matrix) *Flat {
	return &Flat{m: m}
}

// Dim returns the indexed vector width.
func (f *Flat) Dim() int { return f.m.Dim() }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return f.m.Rows() }

// Add appends vectors during build.
func (f *Flat) Add(vecs ...[]float32) error {
	for _, v := range vecs {
		if err := f.m.Append(v); err != nil {
			return err
		}
	}
	return nil
}

// Search returns up to topK hits per query, ordered by descending score.
// Ties break by ascending row so results are reproducible. Queries run in
// parallel; fewer than topK hits is valid for small indexes.
func (f *Flat) Search(queries [][]float32, topK int) ([][]Hit, error) {
	if topK < 1 {
		return nil, fmt.Errorf("topK must be at least 1, got %d", topK)
	}
	for qi, q := range queries {
		if len(q) != f.m.Dim() {
			return nil, fmt.Errorf("query %d has dimension %d, index expects %d", qi, len(q), f.m.Dim())
		}
	}

	results := make([][]Hit, len(queries))

	var wg sync.WaitGroup
	for qi, q := range queries {
		wg.Add(1)
		go func(qi int, q []float32) {
			defer wg.Done()
			results[qi] = f.searchOne(q, topK)
		}(qi, q)
	}
	wg.Wait()

	return results, nil
}

func (f *Flat) searchOne(q []float32, topK int) []Hit {
	h := &hitHeap{}
	heap.Init(h)

	rows := f.m.Rows()
	for row := 0; row < rows; row++ {
		score := Dot(q, f.m.Row(row))
		if h.Len() < topK {
			heap.Push(h, Hit{Row: row, Score: score})
		} else if score > (*h)[0].Score {
			(*h)[0] = Hit{Row: row, Score: score}
			heap.Fix(h, 0)
		}
	}

	hits := make([]Hit, h.Len())
	copy(hits, *h)
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Row < hits[j].Row
	})
	return hits
}

// hitHeap is a min-heap by score; the worst retained hit sits at the root.
type hitHeap []Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(Hit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
