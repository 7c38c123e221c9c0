package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/voicerag/voicerag/internal/config"
	"github.com/voicerag/voicerag/internal/embedder"
	"github.com/voicerag/voicerag/internal/ingest"
	"github.com/voicerag/voicerag/internal/storage"
)

// ErrEmptyConversation is returned for a blank conversation identity
var ErrEmptyConversation = errors.New("conversation identity cannot be empty")

// Manager owns the storage of one persist directory and one embedder, and
// hands out a Service per conversation identity
type Manager struct {
	store     storage.Storage
	embedder  embedder.Embedder
	builder   *ingest.Builder
	logger    *slog.Logger
	batchSize int
	owned     bool

	mu       sync.Mutex
	services map[string]*Service
}

// Options tunes a Manager. Zero values select defaults.
type Options struct {
	Builder   *ingest.Builder
	Logger    *slog.Logger
	BatchSize int
}

// NewManager wraps an existing store and embedder. Close on the returned
// Manager leaves both open.
func NewManager(store storage.Storage, emb embedder.Embedder, opts Options) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if emb == nil {
		return nil, errors.New("embedder cannot be nil")
	}

	m := &Manager{
		store:     store,
		embedder:  emb,
		builder:   opts.Builder,
		logger:    opts.Logger,
		batchSize: opts.BatchSize,
		services:  make(map[string]*Service),
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.builder == nil {
		b, err := ingest.New(ingest.Config{Logger: m.logger})
		if err != nil {
			return nil, err
		}
		m.builder = b
	}
	return m, nil
}

// Open builds a Manager from configuration: it opens the database in the
// persist directory, creates the configured embedder and the batch builder.
// Close releases both.
func Open(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	builder, err := ingest.New(ingest.Config{
		Workers:  cfg.Chunking.Workers,
		Chunking: cfg.ChunkerOptions(),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create batch builder: %w", err)
	}

	ec := cfg.EmbedderConfig()
	ec.Logger = logger
	emb, err := embedder.New(ec)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.PersistDir)
	if err != nil {
		_ = embedder.Close(emb)
		return nil, err
	}

	m, err := NewManager(store, emb, Options{Builder: builder, Logger: logger})
	if err != nil {
		_ = store.Close()
		_ = embedder.Close(emb)
		return nil, err
	}
	m.owned = true
	logger.Debug("retrieval manager opened", "persist_dir", cfg.PersistDir)
	return m, nil
}

// Service returns the Service for a conversation identity, creating it on
// first use. Repeated calls return the same Service.
func (m *Manager) Service(conversation string) (*Service, error) {
	conversation = strings.TrimSpace(conversation)
	if conversation == "" {
		return nil, ErrEmptyConversation
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if svc, ok := m.services[conversation]; ok {
		return svc, nil
	}
	svc, err := newService(m, conversation)
	if err != nil {
		return nil, err
	}
	m.services[conversation] = svc
	return svc, nil
}

// Conversations lists the identities that have an initialized collection
func (m *Manager) Conversations(ctx context.Context) ([]string, error) {
	collections, err := m.store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(collections))
	for i, c := range collections {
		names[i] = c.Name
	}
	return names, nil
}

// Status describes the underlying database
func (m *Manager) Status(ctx context.Context) (*storage.StoreStatus, error) {
	return m.store.GetStatus(ctx)
}

// Close releases the store and embedder when the Manager opened them
func (m *Manager) Close() error {
	if !m.owned {
		return nil
	}
	return errors.Join(embedder.Close(m.embedder), m.store.Close())
}
