// Package qdrant implements the standalone vector index variant as a minimal
// REST client to Qdrant. The index lives outside the library database and may
// be wiped independently of it; every book write must be followed by an
// explicit Upsert/Delete here and drift is repaired by the reconciler.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"librarian/internal/domain"
	"librarian/internal/vectorindex"
)

// Index is a Qdrant-backed vector index. It assumes cosine distance and
// creates the collection if missing.
type Index struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

// Config contains connection details for a Qdrant vector index.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// NewIndex creates a Qdrant index client.
func NewIndex(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if it does not exist. Qdrant
// answers 200 for an existing collection with the same schema.
func (x *Index) EnsureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     x.dimension,
			"distance": "Cosine",
		},
	}
	return x.putJSON(ctx, fmt.Sprintf("%s/collections/%s", x.url, x.collection), body)
}

// Upsert writes one point keyed by the book id with the denormalized
// metadata payload.
func (x *Index) Upsert(ctx context.Context, rec domain.IndexRecord) error {
	if len(rec.Vector) != x.dimension {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(rec.Vector), x.dimension)
	}
	body := map[string]any{
		"points": []map[string]any{{
			"id":     rec.ID,
			"vector": rec.Vector,
			"payload": map[string]any{
				"title":          rec.Title,
				"author":         rec.Author,
				"format":         rec.Format,
				"reading_status": rec.ReadingStatus,
				"categories":     rec.Categories,
				"moods":          rec.Moods,
			},
		}},
	}
	return x.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", x.url, x.collection), body)
}

// Delete removes the point for the given book id.
func (x *Index) Delete(ctx context.Context, id int64) error {
	body := map[string]any{"points": []int64{id}}
	return x.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/delete?wait=true", x.url, x.collection), body, nil)
}

// Query runs a filtered nearest-neighbor search. Format and reading status
// are equality predicates; category and mood use Qdrant's array-contains
// match on the denormalized tag payload.
func (x *Index) Query(ctx context.Context, vector []float32, k int, filters domain.SearchFilters) ([]domain.BookMatch, error) {
	if k <= 0 {
		k = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if must := filterClauses(filters); len(must) > 0 {
		req["filter"] = map[string]any{"must": must}
	}
	var resp struct {
		Result []struct {
			ID      int64   `json:"id"`
			Score   float64 `json:"score"`
			Payload struct {
				Title         string   `json:"title"`
				Author        string   `json:"author"`
				Format        string   `json:"format"`
				ReadingStatus string   `json:"reading_status"`
				Categories    []string `json:"categories"`
				Moods         []string `json:"moods"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := x.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", x.url, x.collection), req, &resp); err != nil {
		return nil, err
	}
	matches := make([]domain.BookMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		matches = append(matches, domain.BookMatch{
			ID:            r.ID,
			Title:         r.Payload.Title,
			Author:        r.Payload.Author,
			Format:        r.Payload.Format,
			ReadingStatus: r.Payload.ReadingStatus,
			Categories:    r.Payload.Categories,
			Moods:         r.Payload.Moods,
			Similarity:    r.Score,
		})
	}
	vectorindex.SortMatches(matches)
	return matches, nil
}

// Count returns the exact number of stored points.
func (x *Index) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := x.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/count", x.url, x.collection),
		map[string]any{"exact": true}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// ListIDs scrolls through the collection returning every stored point id.
func (x *Index) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	var offset any
	for {
		req := map[string]any{
			"limit":        1000,
			"with_payload": false,
			"with_vector":  false,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					ID int64 `json:"id"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := x.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/scroll", x.url, x.collection), req, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			ids = append(ids, p.ID)
		}
		if resp.Result.NextPageOffset == nil {
			return ids, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

func filterClauses(filters domain.SearchFilters) []map[string]any {
	var must []map[string]any
	add := func(key, value string) {
		if value != "" {
			must = append(must, map[string]any{"key": key, "match": map[string]any{"value": value}})
		}
	}
	add("format", filters.Format)
	add("reading_status", filters.ReadingStatus)
	add("categories", filters.Category)
	add("moods", filters.Mood)
	return must
}

func (x *Index) putJSON(ctx context.Context, url string, body any) error {
	return x.do(ctx, http.MethodPut, url, body, nil)
}

func (x *Index) postJSON(ctx context.Context, url string, body any, out any) error {
	return x.do(ctx, http.MethodPost, url, body, out)
}

func (x *Index) do(ctx context.Context, method, url string, body, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}
	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: %s", domain.ErrIndexUnavailable, method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
