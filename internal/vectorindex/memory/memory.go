package memory

import (
	"context"
	"sync"

	"librarian/internal/domain"
	"librarian/internal/vectorindex"
)

// Index is an in-memory vector index using brute-force cosine similarity.
// Like the standalone variant it filters natively only on format and reading
// status; category and mood membership is the caller's post-filter pass.
type Index struct {
	mu      sync.RWMutex
	records map[int64]domain.IndexRecord
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{records: make(map[int64]domain.IndexRecord)}
}

// Upsert inserts or overwrites the record for its id.
func (x *Index) Upsert(_ context.Context, rec domain.IndexRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.records[rec.ID] = rec
	return nil
}

// Delete removes the record for the given id, if present.
func (x *Index) Delete(_ context.Context, id int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.records, id)
	return nil
}

// Query returns up to k records matching the native filters, ordered by
// descending similarity to the query vector.
func (x *Index) Query(_ context.Context, vector []float32, k int, filters domain.SearchFilters) ([]domain.BookMatch, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if k <= 0 {
		k = 10
	}
	matches := make([]domain.BookMatch, 0, len(x.records))
	for _, rec := range x.records {
		if filters.Format != "" && rec.Format != filters.Format {
			continue
		}
		if filters.ReadingStatus != "" && rec.ReadingStatus != filters.ReadingStatus {
			continue
		}
		matches = append(matches, domain.BookMatch{
			ID:            rec.ID,
			Title:         rec.Title,
			Author:        rec.Author,
			Format:        rec.Format,
			ReadingStatus: rec.ReadingStatus,
			Categories:    rec.Categories,
			Moods:         rec.Moods,
			Similarity:    vectorindex.Similarity(vector, rec.Vector),
		})
	}
	vectorindex.SortMatches(matches)
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Count returns the number of stored records.
func (x *Index) Count(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records), nil
}

// ListIDs returns the ids of all stored records.
func (x *Index) ListIDs(_ context.Context) ([]int64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ids := make([]int64, 0, len(x.records))
	for id := range x.records {
		ids = append(ids, id)
	}
	return ids, nil
}
