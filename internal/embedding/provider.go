// Package embedding provides the process-wide embedding provider: a lazily
// initialized, at-most-once loaded embedder shared read-only by all callers.
package embedding

import (
	"context"
	"fmt"
	"sync"

	"librarian/internal/domain"
)

// Factory constructs the underlying embedder. It runs at most once, on first
// use, so expensive warm-up is paid lazily and only when embeddings are
// actually needed.
type Factory func() (domain.Embedder, error)

// Provider wraps an embedder with guarded single initialization, an explicit
// disable switch and a dimension contract. When disabled, Embed and
// EmbedBatch are no-ops returning nil vectors rather than errors, so callers
// can treat "no vector" as "skip the side effect".
type Provider struct {
	dimension int
	disabled  bool
	factory   Factory

	once    sync.Once
	emb     domain.Embedder
	initErr error
}

// NewProvider creates a provider producing vectors of the given dimension.
func NewProvider(dimension int, disabled bool, factory Factory) *Provider {
	return &Provider{dimension: dimension, disabled: disabled, factory: factory}
}

// Enabled reports whether embedding activity is switched on.
func (p *Provider) Enabled() bool { return !p.disabled }

// Dimension returns the fixed vector dimension contract.
func (p *Provider) Dimension() int { return p.dimension }

// Name identifies the underlying embedder, or "disabled".
func (p *Provider) Name() string {
	if p.disabled {
		return "disabled"
	}
	if err := p.init(); err != nil {
		return "unavailable"
	}
	return p.emb.Name()
}

// Embed converts text to a vector. Returns (nil, nil) when embeddings are
// disabled; returns an error wrapping domain.ErrModelUnavailable when the
// embedder failed to load or the call failed, and one wrapping
// domain.ErrDimensionMismatch when the model produced a vector of the wrong
// length.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.disabled {
		return nil, nil
	}
	if err := p.init(); err != nil {
		return nil, err
	}
	vec, err := p.emb.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %v", domain.ErrModelUnavailable, err)
	}
	if err := p.checkDimension(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch converts texts to vectors, one per input. Returns (nil, nil)
// when embeddings are disabled.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if p.disabled {
		return nil, nil
	}
	if err := p.init(); err != nil {
		return nil, err
	}
	vecs, err := p.emb.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed batch: %v", domain.ErrModelUnavailable, err)
	}
	for _, vec := range vecs {
		if err := p.checkDimension(vec); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (p *Provider) init() error {
	p.once.Do(func() {
		emb, err := p.factory()
		if err != nil {
			p.initErr = fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
			return
		}
		if d := emb.Dimension(); d != 0 && d != p.dimension {
			p.initErr = fmt.Errorf("%w: model produces %d dimensions, index expects %d",
				domain.ErrDimensionMismatch, d, p.dimension)
			return
		}
		p.emb = emb
	})
	return p.initErr
}

func (p *Provider) checkDimension(vec []float32) error {
	if len(vec) != p.dimension {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vec), p.dimension)
	}
	return nil
}
