// Package rag composes filtered vector retrieval with an external generation
// call into a single grounded answer. The search path never hard-fails on an
// unavailable model, index or generation service: those degrade to the fixed
// no-matches message or the deterministic fallback sentence. The one loud
// condition is a dimension mismatch, which signals stale vectors that
// reconciliation cannot repair.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"librarian/internal/domain"
	"librarian/internal/embedding"
)

const noMatchesResponse = "I couldn't find any books matching your query. Try adding some books to your library first!"

const systemPrompt = `You are a helpful personal librarian assistant. You help users find books from their personal library based on their queries.

Given the user's query and a list of books from their library, provide a helpful and personalized response. Be conversational but concise.

Guidelines:
- Recommend books that best match the user's query
- Explain why each recommendation fits their request
- If the query is about mood or genre, focus on those aspects
- Keep responses focused and helpful
- If no books are a great match, be honest about it
- Reference specific book titles and authors`

// Orchestrator performs retrieval-augmented answering over the vector index.
type Orchestrator struct {
	provider  *embedding.Provider
	index     domain.VectorIndex
	generator domain.Generator
	log       *slog.Logger
}

// NewOrchestrator creates an orchestrator. generator may be nil, in which
// case every answer uses the deterministic fallback text.
func NewOrchestrator(provider *embedding.Provider, index domain.VectorIndex, generator domain.Generator, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{provider: provider, index: index, generator: generator, log: log}
}

// Answer embeds the query, retrieves up to k matching books and synthesizes a
// grounded response. Retrieval over-fetches 2k restricted to the natively
// supported format/status filters, then applies category/mood membership as a
// post-filter pass in similarity order until k survivors are collected.
func (o *Orchestrator) Answer(ctx context.Context, query string, k int, filters domain.SearchFilters) (domain.Answer, error) {
	if k <= 0 {
		k = 10
	}
	vec, err := o.provider.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			return domain.Answer{}, err
		}
		o.log.Warn("query embedding failed, returning no matches", "error", err)
		return domain.Answer{Response: noMatchesResponse}, nil
	}
	if len(vec) == 0 {
		// embeddings disabled
		return domain.Answer{Response: noMatchesResponse}, nil
	}

	native := domain.SearchFilters{Format: filters.Format, ReadingStatus: filters.ReadingStatus}
	candidates, err := o.index.Query(ctx, vec, 2*k, native)
	if err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			return domain.Answer{}, err
		}
		o.log.Warn("index query failed, returning no matches", "error", err)
		return domain.Answer{Response: noMatchesResponse}, nil
	}

	survivors := postFilter(candidates, filters, k)
	if len(survivors) == 0 {
		return domain.Answer{Response: noMatchesResponse}, nil
	}

	return domain.Answer{
		Response: o.respond(ctx, query, survivors),
		Books:    survivors,
	}, nil
}

// postFilter keeps candidates whose tag sets satisfy the category/mood
// filters, walking in similarity order and stopping at k survivors.
func postFilter(candidates []domain.BookMatch, filters domain.SearchFilters, k int) []domain.BookMatch {
	survivors := make([]domain.BookMatch, 0, k)
	for _, c := range candidates {
		if filters.Category != "" && !containsTag(c.Categories, filters.Category) {
			continue
		}
		if filters.Mood != "" && !containsTag(c.Moods, filters.Mood) {
			continue
		}
		survivors = append(survivors, c)
		if len(survivors) >= k {
			break
		}
	}
	return survivors
}

func (o *Orchestrator) respond(ctx context.Context, query string, books []domain.BookMatch) string {
	if o.generator == nil {
		return fallbackResponse(books)
	}
	user := fmt.Sprintf("Query: %s\n\nBooks in library:\n%s\n\nBased on these books in the user's library, provide a helpful response to their query.",
		query, buildContext(books))
	text, err := o.generator.Generate(ctx, systemPrompt, user)
	if err != nil {
		o.log.Warn("generation failed, using fallback response", "error", err)
		return fallbackResponse(books)
	}
	return text
}

// buildContext renders one block per book, in similarity-descending order.
func buildContext(books []domain.BookMatch) string {
	blocks := make([]string, 0, len(books))
	for i, b := range books {
		lines := []string{
			fmt.Sprintf("%d. %s by %s", i+1, b.Title, b.Author),
			fmt.Sprintf("   Format: %s, Status: %s", b.Format, b.ReadingStatus),
		}
		if len(b.Categories) > 0 {
			lines = append(lines, "   Categories: "+strings.Join(b.Categories, ", "))
		}
		if len(b.Moods) > 0 {
			lines = append(lines, "   Moods: "+strings.Join(b.Moods, ", "))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// fallbackResponse is the deterministic answer used when the generation
// service is unavailable: a templated sentence naming the top titles.
func fallbackResponse(books []domain.BookMatch) string {
	n := len(books)
	if n > 3 {
		n = 3
	}
	titles := make([]string, 0, n)
	for _, b := range books[:n] {
		titles = append(titles, "'"+b.Title+"'")
	}
	return fmt.Sprintf("Based on your query, you might enjoy: %s. (Note: AI-enhanced responses are currently unavailable.)",
		strings.Join(titles, ", "))
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
