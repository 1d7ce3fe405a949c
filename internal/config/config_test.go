package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "library.db", cfg.Database.Path)
	assert.Equal(t, "hash", cfg.Embedder.Type)
	assert.Equal(t, 384, cfg.Embedder.Dimension)
	assert.Equal(t, "embedded", cfg.VectorIndex.Type)
	assert.Equal(t, 50, cfg.Reconcile.BatchSize)
	assert.Equal(t, 10, cfg.Search.DefaultK)
}

func TestLoadFillsOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: /tmp/books.db\nvector_index:\n  type: qdrant\n  qdrant:\n    url: http://localhost:6333\n    collection: books\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/books.db", cfg.Database.Path)
	assert.Equal(t, "qdrant", cfg.VectorIndex.Type)
	require.NotNil(t, cfg.VectorIndex.Qdrant)
	assert.Equal(t, "http://localhost:6333", cfg.VectorIndex.Qdrant.URL)
	assert.Equal(t, "hash", cfg.Embedder.Type)
	assert.Equal(t, 384, cfg.Embedder.Dimension)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Generation.Model)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Database.Path = "mine.db"
	cfg.Embedder.Type = "openai"
	cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{Model: "text-embedding-3-small"}

	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mine.db", got.Database.Path)
	assert.Equal(t, "openai", got.Embedder.Type)
	require.NotNil(t, got.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-small", got.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", got.Embedder.OpenAI.APIKeyEnv)
}

func TestDisableEmbeddingsEnvOverride(t *testing.T) {
	t.Setenv("LIBRARIAN_DISABLE_EMBEDDINGS", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Embedder.Disabled)
	assert.False(t, cfg.Generation.Enabled)
}

func TestDisableEmbeddingsEnvOverrideRequiresTrue(t *testing.T) {
	t.Setenv("LIBRARIAN_DISABLE_EMBEDDINGS", "1")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.False(t, cfg.Embedder.Disabled)
}
