package rag

import (
	"sort"

	ragerr "github.com/perbu/groundrag/pkg/errors"
)

// Hit is a single nearest-neighbour match: the vector's position in the
// index and its squared Euclidean distance to the query.
type Hit struct {
	Position int
	Distance float32
}

// Index is an exact (brute force) L2 nearest-neighbour index. Vectors are
// identified by their insertion position. There is no update or delete; a
// changed corpus means a new Index.
type Index struct {
	dimension int
	vectors   [][]float32
}

// NewIndex returns an empty index accepting vectors of the given dimension.
func NewIndex(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, ragerr.Errorf(ragerr.CodeIndexSearchInvalid, "index dimension must be positive, got %d", dimension)
	}
	return &Index{dimension: dimension}, nil
}

// BuildIndex creates an index over vectors. The dimension is taken from the
// first vector and every other vector must match it.
func BuildIndex(vectors [][]float32) (*Index, error) {
	if len(vectors) == 0 {
		return nil, ragerr.New(ragerr.CodeCorpusBuildEmpty, "cannot build an index from zero vectors")
	}
	ix, err := NewIndex(len(vectors[0]))
	if err != nil {
		return nil, err
	}
	for _, v := range vectors {
		if err := ix.Add(v); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// Add appends a copy of v at the next position.
func (ix *Index) Add(v []float32) error {
	if len(v) != ix.dimension {
		return ragerr.New(ragerr.CodeIndexDimensionMismatch, "vector dimension does not match index",
			ragerr.Field("position", len(ix.vectors)),
			ragerr.Field("expected", ix.dimension),
			ragerr.Field("got", len(v)),
		)
	}
	stored := make([]float32, len(v))
	copy(stored, v)
	ix.vectors = append(ix.vectors, stored)
	return nil
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	return len(ix.vectors)
}

// Dimension returns the vector dimension fixed at construction.
func (ix *Index) Dimension() int {
	return ix.dimension
}

// SquaredL2 computes the squared Euclidean distance between two vectors of
// equal length.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Search returns the k nearest vectors to query, nearest first. Equal
// distances keep insertion order. When k exceeds the number of stored
// vectors every vector is returned; the result is never padded.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, ragerr.Errorf(ragerr.CodeIndexSearchInvalid, "k must be positive, got %d", k)
	}
	if len(query) != ix.dimension {
		return nil, ragerr.New(ragerr.CodeIndexDimensionMismatch, "query dimension does not match index",
			ragerr.Field("expected", ix.dimension),
			ragerr.Field("got", len(query)),
		)
	}

	hits := make([]Hit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = Hit{Position: i, Distance: SquaredL2(query, v)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}
