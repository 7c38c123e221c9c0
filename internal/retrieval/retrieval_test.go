package retrieval

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicerag/voicerag/internal/chunker"
	"github.com/voicerag/voicerag/internal/collection"
	"github.com/voicerag/voicerag/internal/config"
	"github.com/voicerag/voicerag/internal/embedder"
	"github.com/voicerag/voicerag/internal/ingest"
	"github.com/voicerag/voicerag/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.PersistDir = filepath.Join(t.TempDir(), "vectors")
	cfg.Chunking.ChunkSize = 8
	cfg.Chunking.Overlap = 1
	cfg.Chunking.Encoding = chunker.EncodingWhitespace
	cfg.Chunking.Workers = 2
	return cfg
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	builder, err := ingest.New(ingest.Config{
		Chunking: chunker.Options{ChunkSize: 8, Overlap: 1, Encoding: chunker.EncodingWhitespace},
		Logger:   quietLogger(),
	})
	require.NoError(t, err)

	m, err := NewManager(store, embedder.NewHashingProvider(64), Options{Builder: builder, Logger: quietLogger()})
	require.NoError(t, err)
	return m
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewManager_RequiresDependencies(t *testing.T) {
	_, err := NewManager(nil, embedder.NewHashingProvider(8), Options{})
	assert.Error(t, err)

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()
	_, err = NewManager(store, nil, Options{})
	assert.Error(t, err)
}

func TestManager_ServiceIsCached(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Service("conv-a")
	require.NoError(t, err)
	again, err := m.Service(" conv-a ")
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.Equal(t, "conv-a", a.Conversation())

	_, err = m.Service("  ")
	assert.ErrorIs(t, err, ErrEmptyConversation)
}

func TestManager_ConversationsAreIsolated(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	dirA := t.TempDir()
	writeFile(t, dirA, "a.txt", "apples and pears grow in the orchard")
	dirB := t.TempDir()

	a, err := m.Service("conv-a")
	require.NoError(t, err)
	b, err := m.Service("conv-b")
	require.NoError(t, err)

	_, err = a.Init(ctx, dirA)
	require.NoError(t, err)
	_, err = b.Init(ctx, dirB)
	require.NoError(t, err)

	countA, err := a.Count(ctx)
	require.NoError(t, err)
	countB, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, countA)
	assert.Zero(t, countB)

	names, err := m.Conversations(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"conv-a", "conv-b"}, names)
}

func TestService_Lifecycle(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	svc, err := m.Service("conv")
	require.NoError(t, err)

	exists, err := svc.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.Query(ctx, "anything", 5)
	assert.ErrorIs(t, err, collection.ErrNotInitialized)

	dir := t.TempDir()
	_, err = svc.Init(ctx, dir)
	require.NoError(t, err)

	doc := writeFile(t, dir, "new.txt", "relevant phrase about the return policy")
	_, err = svc.Add(ctx, doc)
	require.NoError(t, err)

	docs, err := svc.RelevantDocuments(ctx, "relevant phrase")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "relevant phrase about the return policy", docs[0])

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "conv", info.Name)
	assert.Equal(t, 1, info.Count)

	removed, err := svc.Remove(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	docs, err = svc.RelevantDocuments(ctx, "relevant phrase")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestService_ConcurrentQueries(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	svc, err := m.Service("conv")
	require.NoError(t, err)

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one two three four five six seven eight nine ten eleven twelve")
	_, err = svc.Init(ctx, dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Query(ctx, "three four", 3)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestOpen_PersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "persisted words survive a restart of the process")

	m, err := Open(cfg, quietLogger())
	require.NoError(t, err)
	svc, err := m.Service(cfg.Conversation)
	require.NoError(t, err)
	_, err = svc.Init(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	assert.FileExists(t, filepath.Join(cfg.PersistDir, storage.DatabaseFile))

	m, err = Open(cfg, quietLogger())
	require.NoError(t, err)
	defer m.Close()
	svc, err = m.Service(cfg.Conversation)
	require.NoError(t, err)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.Init(ctx, dir)
	assert.ErrorIs(t, err, collection.ErrCollectionExists)

	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Collections)
	assert.Equal(t, 1, status.Records)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunking.ChunkSize = 0
	_, err := Open(cfg, quietLogger())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
