package vectorstore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	testCases := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{
			name: "identical vectors",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			want: 1.0,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0.0,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 0},
			b:    []float32{-1, 0},
			want: -1.0,
		},
		{
			name: "zero vector scores zero",
			a:    []float32{0, 0, 0},
			b:    []float32{1, 2, 3},
			want: 0.0,
		},
		{
			name: "both zero",
			a:    []float32{0, 0},
			b:    []float32{0, 0},
			want: 0.0,
		},
		{
			name: "dimension mismatch scores zero",
			a:    []float32{1, 0},
			b:    []float32{1, 0, 0},
			want: 0.0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineSimilarity(tc.a, tc.b)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.False(t, math.IsNaN(got), "similarity must never be NaN")
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{0.3, 0.7, 0.1, 0.9}
	b := []float32{0.5, 0.2, 0.8, 0.4}

	assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-12)
}

func TestCosineSimilarityBounded(t *testing.T) {
	vectors := [][]float32{
		{1, 2, 3},
		{-4, 5, -6},
		{0.001, 0.002, 0.003},
		{100, -200, 300},
	}

	for _, a := range vectors {
		for _, b := range vectors {
			sim := CosineSimilarity(a, b)
			assert.GreaterOrEqual(t, sim, -1.0-1e-9)
			assert.LessOrEqual(t, sim, 1.0+1e-9)
		}
	}
}
