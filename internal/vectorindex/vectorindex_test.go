package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarian/internal/domain"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Similarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestSimilarityUnnormalizedInput(t *testing.T) {
	// scaling either side must not change the score
	a := []float32{3, 4}
	b := []float32{6, 8}
	assert.InDelta(t, 1.0, Similarity(a, b), 1e-6)
}

func TestEncodeDecodeVector(t *testing.T) {
	vec := []float32{0.5, -1.25, 0, 3.75}
	decoded, err := DecodeVector(EncodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestDecodeVectorRejectsBadLength(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestSortMatchesDescendingWithStableTies(t *testing.T) {
	matches := []domain.BookMatch{
		{ID: 3, Similarity: 0.5},
		{ID: 1, Similarity: 0.9},
		{ID: 2, Similarity: 0.5},
	}
	SortMatches(matches)
	assert.Equal(t, int64(1), matches[0].ID)
	assert.Equal(t, int64(2), matches[1].ID)
	assert.Equal(t, int64(3), matches[2].ID)
}
