package cluster

import (
	"fmt"

	"github.com/kailas-cloud/roledex/internal/index"
)

// agglomerate groups n items by average-linkage agglomerative clustering over
// a precomputed distance matrix. Merging stops when the closest pair of
// clusters is farther apart than threshold, so the number of clusters is
// emergent. Returned labels are dense, ordered by each cluster's smallest
// member index. Ties on distance break deterministically toward the pair with
// the smaller indices.
func agglomerate(dist [][]float64, threshold float64) []int {
	n := len(dist)
	if n == 0 {
		return nil
	}

	// Active clusters, identified by their smallest member index.
	members := make(map[int][]int, n)
	size := make(map[int]int, n)
	active := make([]int, n)
	for i := 0; i < n; i++ {
		members[i] = []int{i}
		size[i] = 1
		active[i] = i
	}

	// Working copy, mutated by Lance-Williams updates.
	d := make([][]float64, n)
	for i := range dist {
		d[i] = append([]float64(nil), dist[i]...)
	}

	for len(active) > 1 {
		bestI, bestJ := -1, -1
		bestD := threshold
		for ai := 0; ai < len(active); ai++ {
			for aj := ai + 1; aj < len(active); aj++ {
				i, j := active[ai], active[aj]
				if d[i][j] < bestD {
					bestD = d[i][j]
					bestI, bestJ = i, j
				}
			}
		}
		if bestI < 0 {
			break
		}

		// Average linkage: the merged cluster's distance to any other cluster
		// is the size-weighted mean of the two parts' distances.
		ni, nj := float64(size[bestI]), float64(size[bestJ])
		for _, k := range active {
			if k == bestI || k == bestJ {
				continue
			}
			merged := (ni*d[bestI][k] + nj*d[bestJ][k]) / (ni + nj)
			d[bestI][k] = merged
			d[k][bestI] = merged
		}

		members[bestI] = append(members[bestI], members[bestJ]...)
		size[bestI] += size[bestJ]
		delete(members, bestJ)
		delete(size, bestJ)
		for ai, id := range active {
			if id == bestJ {
				active = append(active[:ai], active[ai+1:]...)
				break
			}
		}
	}

	// Dense labels in order of smallest member index. Active ids already are
	// the smallest member index of their cluster and stay sorted.
	labels := make([]int, n)
	for label, id := range active {
		for _, m := range members[id] {
			labels[m] = label
		}
	}
	return labels
}

// cosineDistances builds the pairwise cosine distance matrix for unit vectors.
func cosineDistances(vecs [][]float32) ([][]float64, error) {
	n := len(vecs)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if len(vecs[i]) != len(vecs[j]) {
				return nil, fmt.Errorf("vector %d has dimension %d, vector %d has %d", i, len(vecs[i]), j, len(vecs[j]))
			}
			dist := 1 - float64(index.Dot(vecs[i], vecs[j]))
			d[i][j] = dist
			d[j][i] = dist
		}
	}
	return d, nil
}

// centroid returns the renormalized mean of unit vectors.
func centroid(vecs [][]float32) ([]float32, error) {
	if len(vecs) == 0 {
		return nil, fmt.Errorf("centroid of empty cluster")
	}
	c := make([]float32, len(vecs[0]))
	for _, v := range vecs {
		for i := range v {
			c[i] += v[i]
		}
	}
	inv := float32(1) / float32(len(vecs))
	for i := range c {
		c[i] *= inv
	}
	if err := index.Normalize(c); err != nil {
		return nil, fmt.Errorf("degenerate centroid: %w", err)
	}
	return c, nil
}
