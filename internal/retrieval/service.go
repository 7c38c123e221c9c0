package retrieval

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voicerag/voicerag/internal/collection"
	"github.com/voicerag/voicerag/pkg/types"
)

// Service is the retrieval context of one conversation identity. Writes
// (Init, Add, Remove) are serialized; queries run concurrently with each
// other.
type Service struct {
	conversation string
	coll         *collection.Collection
	logger       *slog.Logger

	mu sync.RWMutex
}

func newService(m *Manager, conversation string) (*Service, error) {
	logger := m.logger.With("conversation", conversation)
	coll, err := collection.New(m.store, m.embedder, conversation, collection.Options{
		Builder:   m.builder,
		Logger:    m.logger,
		BatchSize: m.batchSize,
	})
	if err != nil {
		return nil, err
	}
	return &Service{conversation: conversation, coll: coll, logger: logger}, nil
}

// Conversation returns the identity the Service is bound to
func (s *Service) Conversation() string {
	return s.conversation
}

// Exists reports whether the conversation's collection has been initialized
func (s *Service) Exists(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.Exists(ctx)
}

// Init creates the collection from the first folder in dirs
func (s *Service) Init(ctx context.Context, dirs ...string) (*collection.InitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Init(ctx, dirs...)
}

// Add ingests paths into the collection
func (s *Service) Add(ctx context.Context, paths ...string) (*collection.AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Add(ctx, paths...)
}

// Remove deletes every chunk of paths and returns how many were deleted
func (s *Service) Remove(ctx context.Context, paths ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Remove(ctx, paths...)
}

// Query returns the nearest chunks to text
func (s *Service) Query(ctx context.Context, text string, k int) (*types.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.Query(ctx, text, k)
}

// Count returns the number of stored chunks
func (s *Service) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.Count(ctx)
}

// Info describes the conversation's collection
func (s *Service) Info(ctx context.Context) (*collection.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.Info(ctx)
}

// RelevantDocuments returns the texts of the chunks most relevant to query,
// best first. This is what the agent receives as grounding.
func (s *Service) RelevantDocuments(ctx context.Context, query string) ([]string, error) {
	res, err := s.Query(ctx, query, collection.DefaultResults)
	if err != nil {
		return nil, err
	}
	matches := res.Matches(0)
	docs := make([]string, len(matches))
	for i, m := range matches {
		docs[i] = m.Document
	}
	s.logger.Debug("relevant documents", "count", len(docs))
	return docs, nil
}
