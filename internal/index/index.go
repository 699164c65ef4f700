package index

import (
	"fmt"
	"math"
	"sort"

	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
)

// Match pairs a stored vector's position with its similarity score.
type Match struct {
	Position int
	Score    float32
}

// Index is an exact, exhaustive-scan vector index. All stored vectors are
// L2-normalized on insert so inner product equals cosine similarity. Positions
// are assigned in append order and never reused.
//
// Index is not safe for concurrent use; the retriever serializes access.
type Index struct {
	dimension int
	vectors   [][]float32
}

// New creates an index. dimension 0 means the dimension is established by the
// first Add call.
func New(dimension int) *Index {
	return &Index{dimension: dimension}
}

func (x *Index) Len() int {
	return len(x.vectors)
}

func (x *Index) Dimension() int {
	return x.dimension
}

// Add normalizes and appends vectors. The whole batch is validated before
// anything is stored, so a failed Add leaves the index unchanged.
func (x *Index) Add(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := x.dimension
	if dim == 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return fmt.Errorf("%w: empty vector at position 0", apperr.ErrDimensionMismatch)
		}
	}
	normalized := make([][]float32, 0, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, index dimension is %d", apperr.ErrDimensionMismatch, i, len(v), dim)
		}
		nv, err := Normalize(v)
		if err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
		normalized = append(normalized, nv)
	}
	x.dimension = dim
	x.vectors = append(x.vectors, normalized...)
	return nil
}

// Search returns the top-k stored positions by descending cosine similarity
// to query. Ties are broken by ascending position. k larger than the index
// returns everything; an empty-but-built index returns no matches.
func (x *Index) Search(query []float32, k int) ([]Match, error) {
	if x.dimension == 0 {
		return nil, fmt.Errorf("%w: no vectors have been added", apperr.ErrIndexNotBuilt)
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index dimension is %d", apperr.ErrDimensionMismatch, len(query), x.dimension)
	}
	if k <= 0 || len(x.vectors) == 0 {
		return nil, nil
	}
	nq, err := Normalize(query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	matches := make([]Match, len(x.vectors))
	for i, v := range x.vectors {
		matches[i] = Match{Position: i, Score: dot(v, nq)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Position < matches[j].Position
	})
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Vectors exposes the stored (normalized) vectors for serialization.
func (x *Index) Vectors() [][]float32 {
	return x.vectors
}

// Normalize returns v scaled to unit length. A zero vector is rejected so
// downstream scores can never be NaN.
func Normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, fmt.Errorf("%w: zero vector", apperr.ErrDegenerateVector)
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out, nil
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
