package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig locates the SQLite library database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedder implementation.
// Disabled switches off all embedding, index and generation activity.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Disabled  bool                  `yaml:"disabled"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for the standalone vector index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorIndexConfig selects the vector index variant.
type VectorIndexConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// GenerationConfig configures the chat completion service used for answers
// and tag suggestions.
type GenerationConfig struct {
	Enabled     bool    `yaml:"enabled"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// ReconcileConfig configures startup reconciliation.
type ReconcileConfig struct {
	Disabled  bool `yaml:"disabled"`
	BatchSize int  `yaml:"batch_size"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultK int `yaml:"default_k"`
}

// VocabularyConfig optionally replaces the built-in synonym tables used by
// the text canonicalizer.
type VocabularyConfig struct {
	CategorySynonyms map[string][]string `yaml:"category_synonyms,omitempty"`
	MoodSynonyms     map[string][]string `yaml:"mood_synonyms,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Database    DatabaseConfig    `yaml:"database"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Generation  GenerationConfig  `yaml:"generation"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	Search      SearchConfig      `yaml:"search"`
	Vocabulary  VocabularyConfig  `yaml:"vocabulary,omitempty"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./librarian.yaml first, then
// ~/.config/librarian/config.yaml. If neither exists, it writes defaults to
// the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "librarian.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "librarian", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Database:    DatabaseConfig{Path: "library.db"},
		Embedder:    EmbedderConfig{Type: "hash", Dimension: 384},
		VectorIndex: VectorIndexConfig{Type: "embedded"},
		Generation: GenerationConfig{
			BaseURL:   "https://api.groq.com/openai/v1",
			APIKeyEnv: "GROQ_API_KEY",
			Model:     "llama-3.3-70b-versatile",
		},
		Reconcile: ReconcileConfig{BatchSize: 50},
		Search:    SearchConfig{DefaultK: 10},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "library.db"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hash"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 384
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.VectorIndex.Type == "" {
		cfg.VectorIndex.Type = "embedded"
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "GROQ_API_KEY"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Reconcile.BatchSize == 0 {
		cfg.Reconcile.BatchSize = 50
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 10
	}
}

// applyEnvOverrides honors the operational kill switch: setting
// LIBRARIAN_DISABLE_EMBEDDINGS=true turns all embedding, index and
// generation activity into no-ops.
func applyEnvOverrides(cfg *AppConfig) {
	if os.Getenv("LIBRARIAN_DISABLE_EMBEDDINGS") == "true" {
		cfg.Embedder.Disabled = true
		cfg.Generation.Enabled = false
	}
}
