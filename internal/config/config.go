package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/voicerag/voicerag/internal/chunker"
	"github.com/voicerag/voicerag/internal/embedder"
)

// ErrInvalidConfig is returned by Validate for unusable settings
var ErrInvalidConfig = errors.New("invalid config")

// Environment variables that override file settings
const (
	EnvPersistDir     = "VOICERAG_PERSIST_DIR"
	EnvConversation   = "VOICERAG_CONVERSATION"
	EnvEmbeddingGroup = "VOICERAG_EMBEDDING_GROUP"
	EnvEmbeddingModel = "VOICERAG_EMBEDDING_MODEL"
	EnvOpenAIAPIKey   = embedder.EnvOpenAIAPIKey
	EnvOpenAIBaseURL  = embedder.EnvOpenAIBaseURL
)

// Defaults
const (
	DefaultConversation = "chat_id_1"
	DefaultChunkSize    = 1000
	DefaultOverlap      = 0
	DefaultEncoding     = "cl100k_base"
	DefaultDebounce     = 500 * time.Millisecond
	DefaultFileName     = "config.yaml"
)

// ChunkingConfig controls how normalized text is split
type ChunkingConfig struct {
	ChunkSize int    `yaml:"chunk_size"`
	Overlap   int    `yaml:"overlap"`
	Encoding  string `yaml:"encoding"`
	Workers   int    `yaml:"workers"`
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Group             string  `yaml:"group"`
	Model             string  `yaml:"model"`
	Endpoint          string  `yaml:"endpoint"`
	APIKey            string  `yaml:"-"`
	ModelsDir         string  `yaml:"models_dir"`
	CacheSize         int     `yaml:"cache_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries"`
}

// WatchConfig tunes the directory watcher
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Config is the root configuration
type Config struct {
	PersistDir   string          `yaml:"persist_dir"`
	Conversation string          `yaml:"conversation"`
	Chunking     ChunkingConfig  `yaml:"chunking"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	Watch        WatchConfig     `yaml:"watch"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		PersistDir:   DefaultPersistDir(),
		Conversation: DefaultConversation,
		Chunking: ChunkingConfig{
			ChunkSize: DefaultChunkSize,
			Overlap:   DefaultOverlap,
			Encoding:  DefaultEncoding,
		},
		Embedding: EmbeddingConfig{
			Group:     embedder.GroupDefault,
			CacheSize: embedder.DefaultCacheSize,
			ModelsDir: embedder.DefaultModelsDir(),
		},
		Watch: WatchConfig{Debounce: DefaultDebounce},
	}
}

// DefaultPersistDir returns ~/.voicerag/vectors, or a relative fallback when
// the home directory is unknown
func DefaultPersistDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".voicerag", "vectors")
	}
	return filepath.Join(home, ".voicerag", "vectors")
}

// Load reads path (a missing file yields defaults), loads a .env file from
// the working directory when one exists, and applies environment overrides.
// An empty path looks for ./config.yaml.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No file: defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPersistDir); v != "" {
		c.PersistDir = v
	}
	if v := os.Getenv(EnvConversation); v != "" {
		c.Conversation = v
	}
	if v := os.Getenv(EnvEmbeddingGroup); v != "" {
		c.Embedding.Group = v
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv(EnvOpenAIBaseURL); v != "" {
		c.Embedding.Endpoint = v
	}
}

func (c *Config) applyDefaults() {
	if c.PersistDir == "" {
		c.PersistDir = DefaultPersistDir()
	}
	c.PersistDir = expandHome(c.PersistDir)
	c.Embedding.ModelsDir = expandHome(c.Embedding.ModelsDir)
	if c.Conversation == "" {
		c.Conversation = DefaultConversation
	}
	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = DefaultChunkSize
	}
	if c.Chunking.Encoding == "" {
		c.Chunking.Encoding = DefaultEncoding
	}
	if c.Embedding.Group == "" {
		c.Embedding.Group = embedder.GroupDefault
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = DefaultDebounce
	}
}

// Validate checks the settings that would otherwise fail deep in a command
func (c *Config) Validate() error {
	if strings.TrimSpace(c.PersistDir) == "" {
		return fmt.Errorf("%w: persist_dir is empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Conversation) == "" {
		return fmt.Errorf("%w: conversation is empty", ErrInvalidConfig)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be > 0, got %d", ErrInvalidConfig, c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("%w: overlap must be in [0, chunk_size), got %d", ErrInvalidConfig, c.Chunking.Overlap)
	}
	if c.Chunking.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Chunking.Workers)
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must be >= 0, got %d", ErrInvalidConfig, c.Embedding.CacheSize)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must be >= 0", ErrInvalidConfig)
	}
	if c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be >= 0, got %d", ErrInvalidConfig, c.Embedding.MaxRetries)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: debounce must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// ChunkerOptions converts the chunking section for the chunker package
func (c *Config) ChunkerOptions() chunker.Options {
	return chunker.Options{
		ChunkSize: c.Chunking.ChunkSize,
		Overlap:   c.Chunking.Overlap,
		Encoding:  c.Chunking.Encoding,
	}
}

// EmbedderConfig converts the embedding section for the embedder factory
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Group:             c.Embedding.Group,
		Name:              c.Embedding.Model,
		APIKey:            c.Embedding.APIKey,
		Endpoint:          c.Embedding.Endpoint,
		ModelsDir:         c.Embedding.ModelsDir,
		CacheSize:         c.Embedding.CacheSize,
		RequestsPerSecond: c.Embedding.RequestsPerSecond,
		MaxRetries:        c.Embedding.MaxRetries,
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
