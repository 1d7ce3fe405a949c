// Package vectorindex holds helpers shared by the vector index variants.
// The index contract itself is domain.VectorIndex; the embedded (sqlite),
// standalone (qdrant) and in-memory variants live in subpackages.
package vectorindex

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"librarian/internal/domain"
)

// Similarity computes 1 - cosine distance for the two vectors. Vectors are
// expected to be L2-normalized, in which case this is the dot product shifted
// into [0,1]-ish range; unnormalized input still yields a correct ordering.
func Similarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SortMatches orders matches by descending similarity, ties broken by
// ascending id so ordering is consistent within one call.
func SortMatches(matches []domain.BookMatch) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ID < matches[j].ID
	})
}

// EncodeVector serializes a vector as little-endian float32 bytes for BLOB
// storage.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector deserializes a little-endian float32 BLOB.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// Contains reports whether the tag set includes the given tag.
func Contains(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
