package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicerag/voicerag/internal/chunker"
	"github.com/voicerag/voicerag/internal/converter"
	"github.com/voicerag/voicerag/pkg/types"
)

var errBroken = errors.New("broken document")

// mockConverter returns canned text per path, with optional per-path delays
type mockConverter struct {
	texts  map[string]string
	delays map[string]time.Duration

	mu    sync.Mutex
	calls []string
}

func (m *mockConverter) Convert(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, path)
	m.mu.Unlock()

	if d, ok := m.delays[path]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	text, ok := m.texts[path]
	if !ok {
		return "", errBroken
	}
	return text, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBuilder(t *testing.T, conv converter.Converter, size, overlap, workers int) *Builder {
	t.Helper()
	b, err := New(Config{
		Workers:   workers,
		Chunking:  chunker.Options{ChunkSize: size, Overlap: overlap, Encoding: chunker.EncodingWhitespace},
		Converter: conv,
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	return b
}

func TestBuild_OrderFollowsInput(t *testing.T) {
	conv := &mockConverter{
		texts: map[string]string{
			"/a.txt": "a1 a2 a3 a4 a5",
			"/b.txt": "b1 b2 b3",
			"/c.txt": "c1",
		},
		// First path finishes last
		delays: map[string]time.Duration{"/a.txt": 30 * time.Millisecond},
	}
	b := newTestBuilder(t, conv, 2, 0, 4)

	batch, err := b.Build(context.Background(), "/a.txt", "/b.txt", "/c.txt")
	require.NoError(t, err)

	assert.Equal(t, []string{"a1 a2", "a3 a4", "a5", "b1 b2", "b3", "c1"}, batch.Texts)
	assert.Equal(t, []string{
		chunker.ChunkID("/a.txt", 0), chunker.ChunkID("/a.txt", 1), chunker.ChunkID("/a.txt", 2),
		chunker.ChunkID("/b.txt", 0), chunker.ChunkID("/b.txt", 1),
		chunker.ChunkID("/c.txt", 0),
	}, batch.IDs)
	require.Len(t, batch.Metadatas, 6)
	assert.Equal(t, "/a.txt", batch.Metadatas[0].Source)
	assert.Equal(t, "/b.txt", batch.Metadatas[3].Source)
	assert.Equal(t, "/c.txt", batch.Metadatas[5].Source)
	assert.Empty(t, batch.Failures)
}

func TestBuild_ParallelSequencesSameLength(t *testing.T) {
	texts := make(map[string]string)
	paths := make([]string, 0)
	for i := 0; i < 25; i++ {
		p := fmt.Sprintf("/doc%02d.txt", i)
		paths = append(paths, p)
		texts[p] = strings.Repeat("w ", i*3)
	}
	b := newTestBuilder(t, &mockConverter{texts: texts}, 4, 1, 3)

	batch, err := b.Build(context.Background(), paths...)
	require.NoError(t, err)

	assert.Equal(t, len(batch.Texts), len(batch.IDs))
	assert.Equal(t, len(batch.Texts), len(batch.Metadatas))

	seen := make(map[string]bool)
	for _, id := range batch.IDs {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestBuild_FailureIsolated(t *testing.T) {
	conv := &mockConverter{
		texts: map[string]string{
			"/good1.txt": "x y z",
			"/good2.txt": "p q",
		},
	}
	b := newTestBuilder(t, conv, 10, 0, 2)

	batch, stats, err := b.BuildWithStats(context.Background(), "/good1.txt", "/bad.pdf", "/good2.txt")
	require.NoError(t, err)

	assert.Equal(t, []string{"x y z", "p q"}, batch.Texts)
	assert.Equal(t, []string{"/good1.txt", "/good2.txt"}, batch.Sources())
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "/bad.pdf", batch.Failures[0].Path)
	assert.ErrorIs(t, batch.Failures[0].Err, errBroken)

	assert.Equal(t, 2, stats.FilesConverted)
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 2, stats.ChunksCreated)
}

func TestBuild_UnsupportedFormatIsolated(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "notes.txt")
	bad := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(good, []byte("one two three"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	b := newTestBuilder(t, converter.New(), 2, 0, 2)

	batch, err := b.Build(context.Background(), bad, good)
	require.NoError(t, err)
	assert.Equal(t, []string{"one two", "three"}, batch.Texts)
	require.Len(t, batch.Failures, 1)
	assert.ErrorIs(t, batch.Failures[0].Err, converter.ErrUnsupportedFormat)
}

func TestBuild_EmptyInputs(t *testing.T) {
	b := newTestBuilder(t, &mockConverter{texts: map[string]string{"/empty.txt": ""}}, 5, 0, 1)

	batch, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Len())

	batch, err = b.Build(context.Background(), "/empty.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Len())
	assert.Empty(t, batch.Failures)
}

func TestBuild_Cancelled(t *testing.T) {
	conv := &mockConverter{
		texts:  map[string]string{"/slow.txt": "a b c"},
		delays: map[string]time.Duration{"/slow.txt": time.Second},
	}
	b := newTestBuilder(t, conv, 5, 0, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	batch, err := b.Build(ctx, "/slow.txt")
	assert.Nil(t, batch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_InvalidChunking(t *testing.T) {
	_, err := New(Config{Chunking: chunker.Options{ChunkSize: 5, Overlap: 5, Encoding: chunker.EncodingWhitespace}})
	assert.ErrorIs(t, err, chunker.ErrInvalidOptions)
}

func TestAppendChunks_DropsBlankChunks(t *testing.T) {
	b := newTestBuilder(t, &mockConverter{}, 2, 0, 1)

	batch := &types.Batch{}
	dropped := b.appendChunks(batch, []types.Chunk{
		{ID: chunker.ChunkID("/a.txt", 0), Text: "alpha", Source: "/a.txt", Position: 0},
		{ID: chunker.ChunkID("/a.txt", 1), Text: " \n\t ", Source: "/a.txt", Position: 1},
		{ID: chunker.ChunkID("/a.txt", 2), Text: "beta", Source: "/a.txt", Position: 2},
	})

	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"alpha", "beta"}, batch.Texts)
	assert.Equal(t, []string{chunker.ChunkID("/a.txt", 0), chunker.ChunkID("/a.txt", 2)}, batch.IDs)
}

func TestBuild_CL100KWhitespaceWindowsDropped(t *testing.T) {
	conv := &mockConverter{texts: map[string]string{"/gap.txt": "alpha" + strings.Repeat(" ", 200) + "beta"}}
	b, err := New(Config{
		Chunking:  chunker.Options{ChunkSize: 1, Encoding: chunker.EncodingCL100K},
		Converter: conv,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Skipf("cl100k_base vocabulary unavailable: %v", err)
	}

	batch, err := b.Build(context.Background(), "/gap.txt")
	require.NoError(t, err)
	require.NotZero(t, batch.Len())
	assert.Less(t, batch.Len(), b.Chunker().CountTokens(conv.texts["/gap.txt"]))
	for _, text := range batch.Texts {
		assert.NotEmpty(t, strings.TrimSpace(text))
	}
}
