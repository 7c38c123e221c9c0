package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Provider groups
const (
	GroupHosted  = "hosted"
	GroupLocal   = "local"
	GroupDefault = "default"

	// Aliases accepted for compatibility with existing configuration files
	aliasOpenAI     = "openai"
	aliasOpenSource = "open_source"

	DefaultHostedModel = "text-embedding-3-small"
	DefaultHashingDim  = 384
	DefaultCacheSize   = 10000

	// MaxBatchSize is the largest number of texts sent in one provider call
	MaxBatchSize = 100

	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "BASE_URL_OPENAI_API"
)

// Config selects and configures an embedding provider
type Config struct {
	Group             string  // hosted, local or default
	Name              string  // Model name; meaning depends on Group
	APIKey            string  // Hosted credential; falls back to OPENAI_API_KEY
	Endpoint          string  // Hosted base URL; falls back to BASE_URL_OPENAI_API
	ModelsDir         string  // Directory holding local <Name>.vec models
	CacheSize         int     // LRU entries; 0 disables caching
	RequestsPerSecond float64 // Hosted client-side rate limit; 0 disables
	MaxRetries        int     // Hosted retries after the first attempt; 0 disables

	Logger *slog.Logger
}

// Factory builds an embedder for one provider group
type Factory func(cfg Config) (Embedder, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func init() {
	Register(GroupHosted, func(cfg Config) (Embedder, error) { return NewHostedProvider(cfg) })
	Register(GroupLocal, func(cfg Config) (Embedder, error) { return NewLocalProvider(cfg) })
	Register(GroupDefault, func(cfg Config) (Embedder, error) { return NewHashingProvider(DefaultHashingDim), nil })
}

// Register makes a provider group available to New. Registering an existing
// group replaces it.
func Register(group string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(group)] = f
}

// Groups returns the registered provider groups in sorted order
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	groups := make([]string, 0, len(registry))
	for g := range registry {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// NormalizeGroup lower-cases group and resolves aliases
func NormalizeGroup(group string) string {
	group = strings.ToLower(strings.TrimSpace(group))
	switch group {
	case aliasOpenAI:
		return GroupHosted
	case aliasOpenSource:
		return GroupLocal
	case "":
		return GroupDefault
	}
	return group
}

// New creates the embedder selected by cfg.Group. An unrecognized group falls
// back to the default provider and logs a warning. CacheSize > 0 wraps the
// result in an LRU cache.
func New(cfg Config) (Embedder, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	group := NormalizeGroup(cfg.Group)

	registryMu.RLock()
	factory, ok := registry[group]
	registryMu.RUnlock()
	if !ok {
		logger.Warn("unknown embedding group, using default provider", "group", cfg.Group)
		group = GroupDefault
		registryMu.RLock()
		factory = registry[group]
		registryMu.RUnlock()
	}

	emb, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s embedder: %w", group, err)
	}

	info := Describe(emb)
	logger.Debug("embedder ready", "provider", info.Provider, "model", info.Model, "dimension", info.Dimension)

	if cfg.CacheSize > 0 {
		return WithCache(emb, cfg.CacheSize), nil
	}
	return emb, nil
}

// DefaultModelsDir returns ~/.voicerag/models, or a relative fallback when
// the home directory is unknown
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".voicerag", "models")
	}
	return filepath.Join(home, ".voicerag", "models")
}
