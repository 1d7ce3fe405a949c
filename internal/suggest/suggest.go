// Package suggest proposes category and mood tags for a book via the
// generation model. Structured output that fails to parse degrades to an
// empty suggestion set rather than surfacing a parse error.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"librarian/internal/domain"
)

// Suggestion holds proposed tags validated against the fixed vocabulary.
type Suggestion struct {
	Categories []string `json:"categories"`
	Moods      []string `json:"moods"`
}

// Suggester asks the generation model for tag suggestions.
type Suggester struct {
	generator  domain.Generator
	categories []string
	moods      []string
	log        *slog.Logger
}

// New creates a Suggester constrained to the given vocabularies.
func New(generator domain.Generator, categories, moods []string, log *slog.Logger) *Suggester {
	if log == nil {
		log = slog.Default()
	}
	return &Suggester{generator: generator, categories: categories, moods: moods, log: log}
}

// SuggestTags proposes up to 3 categories and 3 moods for the book. Any
// generation or parse failure yields an empty suggestion, never an error.
func (s *Suggester) SuggestTags(ctx context.Context, title, author, description string) Suggestion {
	if s.generator == nil {
		return Suggestion{}
	}
	system := fmt.Sprintf(`You are a book categorization assistant. Given a book's title, author, and optional description, suggest appropriate categories and moods.

Available categories: %s
Available moods: %s

Rules:
- Select 1-3 categories that best fit the book
- Select 1-3 moods that best describe the reading experience
- Only use categories and moods from the provided lists
- If you're unsure, make educated guesses based on the title and author

Respond ONLY with a JSON object in this exact format:
{"categories": ["category1", "category2"], "moods": ["mood1", "mood2"]}`,
		strings.Join(s.categories, ", "), strings.Join(s.moods, ", "))

	if description == "" {
		description = "Not provided"
	}
	user := fmt.Sprintf("Title: %s\nAuthor: %s\nDescription: %s\n\nCategorize this book.", title, author, description)

	content, err := s.generator.Generate(ctx, system, user)
	if err != nil {
		s.log.Warn("tag suggestion generation failed", "error", err)
		return Suggestion{}
	}
	parsed, err := parse(content)
	if err != nil {
		s.log.Warn("tag suggestion output malformed", "error", err)
		return Suggestion{}
	}
	return Suggestion{
		Categories: keepValid(parsed.Categories, s.categories, 3),
		Moods:      keepValid(parsed.Moods, s.moods, 3),
	}
}

// parse decodes the model's JSON answer, tolerating markdown code fences.
func parse(content string) (Suggestion, error) {
	content = strings.TrimSpace(content)
	if strings.Contains(content, "```") {
		parts := strings.Split(content, "```")
		if len(parts) < 2 {
			return Suggestion{}, fmt.Errorf("%w: unbalanced code fence", domain.ErrMalformedOutput)
		}
		content = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[1]), "json"))
	}
	var out Suggestion
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	return out, nil
}

func keepValid(tags, vocabulary []string, limit int) []string {
	valid := make(map[string]struct{}, len(vocabulary))
	for _, v := range vocabulary {
		valid[v] = struct{}{}
	}
	var out []string
	for _, t := range tags {
		if _, ok := valid[t]; !ok {
			continue
		}
		out = append(out, t)
		if len(out) >= limit {
			break
		}
	}
	return out
}
