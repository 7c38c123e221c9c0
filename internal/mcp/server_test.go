package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicerag/voicerag/internal/chunker"
	"github.com/voicerag/voicerag/internal/collection"
	"github.com/voicerag/voicerag/internal/embedder"
	"github.com/voicerag/voicerag/internal/ingest"
	"github.com/voicerag/voicerag/internal/retrieval"
	"github.com/voicerag/voicerag/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	builder, err := ingest.New(ingest.Config{
		Chunking: chunker.Options{ChunkSize: 6, Overlap: 1, Encoding: chunker.EncodingWhitespace},
		Logger:   logger,
	})
	require.NoError(t, err)

	manager, err := retrieval.NewManager(store, embedder.NewHashingProvider(4096), retrieval.Options{Builder: builder, Logger: logger})
	require.NoError(t, err)

	srv, err := NewServer(manager, Options{Conversation: "chat_id_1", Logger: logger})
	require.NoError(t, err)
	return srv
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code, mcpErr.Message)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(nil, Options{Conversation: "c"})
	assert.Error(t, err)

	srv := newTestServer(t)
	_, err = NewServer(srv.manager, Options{Conversation: " "})
	assert.ErrorIs(t, err, retrieval.ErrEmptyConversation)
}

func TestToolDefinitions(t *testing.T) {
	tools := []mcp.Tool{
		initCollectionTool(),
		addDocumentsTool(),
		removeDocumentsTool(),
		queryDocumentsTool(),
		collectionStatusTool(),
	}
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
		assert.Equal(t, "object", tool.InputSchema.Type)
		assert.Contains(t, tool.InputSchema.Properties, "conversation", tool.Name)
	}
	assert.Equal(t, []string{"init_collection", "add_documents", "remove_documents", "query_documents", "collection_status"}, names)
	assert.Equal(t, []string{"query"}, queryDocumentsTool().InputSchema.Required)
}

func TestToolFlow(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	dir := t.TempDir()
	seed := writeFile(t, dir, "seed.txt", "the warranty covers two years of repairs")
	writeFile(t, dir, "broken.bin", "x")

	res, err := srv.handleInitCollection(ctx, callRequest("init_collection", map[string]interface{}{"dir": dir}))
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, true, out["initialized"])
	assert.Equal(t, "chat_id_1", out["conversation"])
	assert.Equal(t, "populated", out["folder_state"])
	assert.EqualValues(t, 2, out["chunks_added"])
	assert.EqualValues(t, 1, out["files_failed"])

	_, err = srv.handleInitCollection(ctx, callRequest("init_collection", map[string]interface{}{"dir": dir}))
	requireMCPError(t, err, ErrorCodeAlreadyInitialized)

	extra := writeFile(t, t.TempDir(), "refunds.txt", "refunds are issued within thirty days")
	res, err = srv.handleAddDocuments(ctx, callRequest("add_documents", map[string]interface{}{
		"paths": []interface{}{extra},
	}))
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.EqualValues(t, 1, out["files_added"])
	assert.EqualValues(t, 1, out["chunks_added"])

	res, err = srv.handleQueryDocuments(ctx, callRequest("query_documents", map[string]interface{}{
		"query": "refunds thirty days",
		"k":     float64(2),
	}))
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.EqualValues(t, 2, out["count"])
	results := out["results"].([]interface{})
	top := results[0].(map[string]interface{})
	assert.Equal(t, extra, top["source"])
	assert.Equal(t, chunker.ChunkID(extra, 0), top["id"])
	assert.EqualValues(t, 1, top["rank"])

	res, err = srv.handleCollectionStatus(ctx, callRequest("collection_status", nil))
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.Equal(t, true, out["initialized"])
	stats := out["statistics"].(map[string]interface{})
	assert.EqualValues(t, 3, stats["chunks_count"])
	assert.EqualValues(t, 2, stats["sources_count"])

	res, err = srv.handleRemoveDocuments(ctx, callRequest("remove_documents", map[string]interface{}{
		"paths": []interface{}{seed},
	}))
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.EqualValues(t, 2, out["chunks_removed"])
}

func TestQueryDocuments_MaxDistance(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha beta gamma")
	writeFile(t, dir, "b.txt", "unrelated words entirely")

	_, err := srv.handleInitCollection(ctx, callRequest("init_collection", map[string]interface{}{"dir": dir}))
	require.NoError(t, err)

	res, err := srv.handleQueryDocuments(ctx, callRequest("query_documents", map[string]interface{}{
		"query":        "alpha beta",
		"max_distance": 0.99,
	}))
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.EqualValues(t, 1, out["count"])
	assert.EqualValues(t, 1, out["filtered"])
	assert.Equal(t, true, out["relevant"])
	assert.NotContains(t, out, "message")

	res, err = srv.handleQueryDocuments(ctx, callRequest("query_documents", map[string]interface{}{
		"query":        "completely different vocabulary",
		"max_distance": 0.01,
	}))
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.EqualValues(t, 0, out["count"])
	assert.EqualValues(t, 2, out["filtered"])
	assert.Equal(t, false, out["relevant"])
	assert.Equal(t, "no relevant documents found", out["message"])
}

func TestConversationArgument(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.handleInitCollection(ctx, callRequest("init_collection", map[string]interface{}{
		"dir":          t.TempDir(),
		"conversation": "other",
	}))
	require.NoError(t, err)

	res, err := srv.handleCollectionStatus(ctx, callRequest("collection_status", map[string]interface{}{}))
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, false, out["initialized"])
	assert.Equal(t, "chat_id_1", out["conversation"])

	res, err = srv.handleCollectionStatus(ctx, callRequest("collection_status", map[string]interface{}{"conversation": "other"}))
	require.NoError(t, err)
	out = decodeResult(t, res)
	assert.Equal(t, true, out["initialized"])
}

func TestEmptyFolderInit(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.handleInitCollection(context.Background(), callRequest("init_collection", map[string]interface{}{
		"dir": filepath.Join(t.TempDir(), "missing"),
	}))
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, "unreadable", out["folder_state"])
	assert.EqualValues(t, 0, out["chunks_added"])
}

func TestParameterErrors(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    interface{}
		code    int
	}{
		{"init non-map args", srv.handleInitCollection, "bad", ErrorCodeInvalidParams},
		{"init missing dir", srv.handleInitCollection, map[string]interface{}{}, ErrorCodeInvalidParams},
		{"add missing paths", srv.handleAddDocuments, map[string]interface{}{}, ErrorCodeInvalidParams},
		{"add empty paths", srv.handleAddDocuments, map[string]interface{}{"paths": []interface{}{}}, ErrorCodeInvalidParams},
		{"add non-string path", srv.handleAddDocuments, map[string]interface{}{"paths": []interface{}{42}}, ErrorCodeInvalidParams},
		{"remove missing paths", srv.handleRemoveDocuments, map[string]interface{}{}, ErrorCodeInvalidParams},
		{"query missing", srv.handleQueryDocuments, map[string]interface{}{}, ErrorCodeEmptyQuery},
		{"query blank", srv.handleQueryDocuments, map[string]interface{}{"query": "  "}, ErrorCodeEmptyQuery},
		{"k too large", srv.handleQueryDocuments, map[string]interface{}{"query": "q", "k": float64(6)}, ErrorCodeInvalidParams},
		{"k zero", srv.handleQueryDocuments, map[string]interface{}{"query": "q", "k": float64(0)}, ErrorCodeInvalidParams},
		{"bad max distance", srv.handleQueryDocuments, map[string]interface{}{"query": "q", "max_distance": 3.0}, ErrorCodeInvalidParams},
		{"query before init", srv.handleQueryDocuments, map[string]interface{}{"query": "q"}, ErrorCodeNotInitialized},
		{"add before init", srv.handleAddDocuments, map[string]interface{}{"paths": []interface{}{"/tmp/a.txt"}}, ErrorCodeNotInitialized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.CallToolRequest{}
			req.Params.Arguments = tt.args
			_, err := tt.handler(ctx, req)
			requireMCPError(t, err, tt.code)
		})
	}
}

func TestWriteInProgress(t *testing.T) {
	srv := newTestServer(t)
	lock := srv.lockFor("chat_id_1")
	require.True(t, lock.TryAcquire())

	_, err := srv.handleAddDocuments(context.Background(), callRequest("add_documents", map[string]interface{}{
		"paths": []interface{}{"/tmp/a.txt"},
	}))
	requireMCPError(t, err, ErrorCodeWriteInProgress)

	// Other conversations are unaffected
	_, err = srv.handleInitCollection(context.Background(), callRequest("init_collection", map[string]interface{}{
		"dir":          t.TempDir(),
		"conversation": "other",
	}))
	require.NoError(t, err)

	lock.Release()
	_, err = srv.handleRemoveDocuments(context.Background(), callRequest("remove_documents", map[string]interface{}{
		"paths": []interface{}{"/tmp/a.txt"},
	}))
	requireMCPError(t, err, ErrorCodeNotInitialized)
	assert.True(t, lock.TryAcquire(), "handler released the lock")
}

func TestToMCPError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{collection.ErrNotInitialized, ErrorCodeNotInitialized},
		{fmt.Errorf("wrap: %w", collection.ErrCollectionExists), ErrorCodeAlreadyInitialized},
		{collection.ErrEmptyQuery, ErrorCodeEmptyQuery},
		{fmt.Errorf("embed: %w", embedder.ErrProviderFailed), ErrorCodeProviderFailed},
		{errors.New("disk full"), ErrorCodeInternalError},
	}
	for _, tt := range tests {
		requireMCPError(t, toMCPError("failed", tt.err), tt.code)
	}
}

func TestWriteLock(t *testing.T) {
	var l writeLock
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
}
