package canonical

import (
	"regexp"
	"strings"
)

// Canonicalizer builds the deterministic embeddable text for a book. Category
// and mood tags are expanded with a synonym vocabulary to widen semantic
// recall; the original tags always come first and the expansion is
// deduplicated. It is a pure function of its inputs.
type Canonicalizer struct {
	categorySynonyms map[string][]string
	moodSynonyms     map[string][]string
	maxSentences     int
	sentenceRe       *regexp.Regexp
}

// Option configures a Canonicalizer.
type Option func(*Canonicalizer)

// WithVocabulary replaces the built-in synonym tables.
func WithVocabulary(categories, moods map[string][]string) Option {
	return func(c *Canonicalizer) {
		if categories != nil {
			c.categorySynonyms = categories
		}
		if moods != nil {
			c.moodSynonyms = moods
		}
	}
}

// WithMaxDescriptionSentences caps how many leading sentences of the
// description are kept. Zero or negative keeps the default.
func WithMaxDescriptionSentences(n int) Option {
	return func(c *Canonicalizer) {
		if n > 0 {
			c.maxSentences = n
		}
	}
}

// New creates a Canonicalizer with the default synonym vocabulary.
func New(opts ...Option) *Canonicalizer {
	c := &Canonicalizer{
		categorySynonyms: defaultCategorySynonyms(),
		moodSynonyms:     defaultMoodSynonyms(),
		maxSentences:     6,
		sentenceRe:       regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Text returns the canonical embeddable string for the given book fields.
// Missing optional fields are omitted rather than replaced with placeholders.
func (c *Canonicalizer) Text(title, author, description string, categories, moods []string) string {
	var parts []string
	if title != "" {
		parts = append(parts, "Title: "+title)
	}
	if author != "" {
		parts = append(parts, "Author: "+author)
	}
	if d := c.trimDescription(description); d != "" {
		parts = append(parts, "Description: "+d)
	}
	if expanded := expand(categories, c.categorySynonyms); len(expanded) > 0 {
		parts = append(parts, "Categories: "+strings.Join(expanded, ", "))
	}
	if expanded := expand(moods, c.moodSynonyms); len(expanded) > 0 {
		parts = append(parts, "Moods: "+strings.Join(expanded, ", "))
	}
	return strings.Join(parts, " | ")
}

// expand returns the tags followed by their synonyms, deduplicated, original
// tags first and otherwise in input order.
func expand(tags []string, synonyms map[string][]string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.TrimSpace(tag)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, tag := range out[:len(out):len(out)] {
		for _, syn := range synonyms[tag] {
			if _, ok := seen[syn]; ok {
				continue
			}
			seen[syn] = struct{}{}
			out = append(out, syn)
		}
	}
	return out
}

func (c *Canonicalizer) trimDescription(description string) string {
	d := strings.TrimSpace(description)
	if d == "" {
		return ""
	}
	sentences := c.sentenceRe.FindAllString(d, -1)
	if len(sentences) == 0 || len(sentences) <= c.maxSentences {
		return d
	}
	for i := range sentences[:c.maxSentences] {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	return strings.Join(sentences[:c.maxSentences], " ")
}
