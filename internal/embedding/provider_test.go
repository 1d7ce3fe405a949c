package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarian/internal/domain"
	"librarian/internal/embedding/hash"
)

func TestProviderDisabledIsNoOp(t *testing.T) {
	p := NewProvider(384, true, func() (domain.Embedder, error) {
		t.Fatal("factory must not run when disabled")
		return nil, nil
	})
	vec, err := p.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, vec)

	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Nil(t, vecs)
	assert.False(t, p.Enabled())
}

func TestProviderInitializesOnce(t *testing.T) {
	var calls int32
	p := NewProvider(64, false, func() (domain.Embedder, error) {
		atomic.AddInt32(&calls, 1)
		return hash.NewEmbedder(64)
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Embed(context.Background(), "concurrent first use")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestProviderInitFailureIsModelUnavailable(t *testing.T) {
	p := NewProvider(64, false, func() (domain.Embedder, error) {
		return nil, errors.New("model artifact missing")
	})
	_, err := p.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)

	// failure is cached, not retried per call
	_, err = p.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestProviderDimensionMismatchIsLoud(t *testing.T) {
	p := NewProvider(384, false, func() (domain.Embedder, error) {
		return hash.NewEmbedder(128)
	})
	_, err := p.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestProviderEmbeds(t *testing.T) {
	p := NewProvider(64, false, func() (domain.Embedder, error) {
		return hash.NewEmbedder(64)
	})
	vec, err := p.Embed(context.Background(), "gentle seaside mystery")
	require.NoError(t, err)
	assert.Len(t, vec, 64)
	assert.Equal(t, "hash", p.Name())
}
