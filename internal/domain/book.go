package domain

import (
	"context"
	"time"
)

// Book is the catalogued entity owned by the authoritative store.
type Book struct {
	ID            int64
	Title         string
	Author        string
	ISBN          string
	Description   string
	Format        string
	ReadingStatus string
	Rating        int
	Notes         string
	PageCount     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Categories    []string
	Moods         []string
}

// SearchFilters restricts a search to books matching the given attributes.
// Empty fields are not applied.
type SearchFilters struct {
	Category      string
	Mood          string
	Format        string
	ReadingStatus string
}

// BookMatch is a single search result with its similarity score in [0,1].
type BookMatch struct {
	ID            int64
	Title         string
	Author        string
	Format        string
	ReadingStatus string
	Categories    []string
	Moods         []string
	Similarity    float64
}

// Answer combines a generated response with the ranked books it is grounded in.
type Answer struct {
	Response string
	Books    []BookMatch
}

// IndexRecord is the unit stored in a vector index: one vector plus the
// denormalized metadata needed to filter and render results.
type IndexRecord struct {
	ID            int64
	Vector        []float32
	Title         string
	Author        string
	Format        string
	ReadingStatus string
	Categories    []string
	Moods         []string
}

// Embedder converts free text into a fixed-dimension vector representation.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex persists one IndexRecord per book and supports filtered
// k-nearest-neighbor search. Query returns at most k matches ordered by
// descending similarity; fewer matches (or none) is not an error.
// Implementations apply the filters they support natively; callers must
// post-filter category/mood membership themselves when the backend cannot.
type VectorIndex interface {
	Upsert(ctx context.Context, rec IndexRecord) error
	Delete(ctx context.Context, id int64) error
	Query(ctx context.Context, vector []float32, k int, filters SearchFilters) ([]BookMatch, error)
	Count(ctx context.Context) (int, error)
	ListIDs(ctx context.Context) ([]int64, error)
}

// Generator produces a single text completion for a system/user prompt pair.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// BookSource is the read boundary with the authoritative book store.
type BookSource interface {
	GetBook(ctx context.Context, id int64) (*Book, error)
	ListBookIDs(ctx context.Context) ([]int64, error)
}
