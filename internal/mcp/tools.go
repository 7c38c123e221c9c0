package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/voicerag/voicerag/internal/collection"
	"github.com/voicerag/voicerag/internal/embedder"
	"github.com/voicerag/voicerag/internal/retrieval"
	"github.com/voicerag/voicerag/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeNotInitialized     = -32001 // Conversation has no collection yet
	ErrorCodeAlreadyInitialized = -32002 // init_collection on an existing collection
	ErrorCodeWriteInProgress    = -32003 // Another write is running on the conversation
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeProviderFailed     = -32005 // Embedding provider rejected or failed the request
)

const maxFailuresReported = 5

// handleInitCollection handles the init_collection tool invocation
func (s *Server) handleInitCollection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	dir, ok := args["dir"].(string)
	if !ok || strings.TrimSpace(dir) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "dir parameter is required", map[string]interface{}{
			"param":  "dir",
			"reason": "missing or empty",
		})
	}

	svc, release, err := s.writableService(args)
	if err != nil {
		return nil, err
	}
	defer release()

	outcome, err := svc.Init(ctx, dir)
	if err != nil {
		return nil, toMCPError("initialization failed", err)
	}

	response := map[string]interface{}{
		"initialized":  true,
		"conversation": svc.Conversation(),
		"dir":          outcome.Dir,
		"folder_state": outcome.State.String(),
		"chunks_added": outcome.Chunks,
	}
	addFailures(response, outcome.Failures)
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAddDocuments handles the add_documents tool invocation
func (s *Server) handleAddDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	paths, err := getPaths(args)
	if err != nil {
		return nil, err
	}

	svc, release, err := s.writableService(args)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	result, err := svc.Add(ctx, paths...)
	if err != nil {
		return nil, toMCPError("adding documents failed", err)
	}

	response := map[string]interface{}{
		"conversation": svc.Conversation(),
		"files_added":  len(result.Sources),
		"chunks_added": result.Chunks,
		"sources":      result.Sources,
		"duration_ms":  time.Since(start).Milliseconds(),
	}
	addFailures(response, result.Failures)
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRemoveDocuments handles the remove_documents tool invocation
func (s *Server) handleRemoveDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	paths, err := getPaths(args)
	if err != nil {
		return nil, err
	}

	svc, release, err := s.writableService(args)
	if err != nil {
		return nil, err
	}
	defer release()

	removed, err := svc.Remove(ctx, paths...)
	if err != nil {
		return nil, toMCPError("removing documents failed", err)
	}

	response := map[string]interface{}{
		"conversation":   svc.Conversation(),
		"chunks_removed": removed,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleQueryDocuments handles the query_documents tool invocation
func (s *Server) handleQueryDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	k := getIntDefault(args, "k", collection.DefaultResults)
	if k < 1 || k > collection.DefaultResults {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("k must be between 1 and %d", collection.DefaultResults), map[string]interface{}{
			"param": "k",
			"value": k,
		})
	}

	maxDistance := getFloatDefault(args, "max_distance", 0)
	if maxDistance < 0 || maxDistance > 2 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_distance must be between 0 and 2", map[string]interface{}{
			"param": "max_distance",
			"value": maxDistance,
		})
	}

	svc, err := s.service(args)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := svc.Query(ctx, query, k)
	if err != nil {
		return nil, toMCPError("query failed", err)
	}
	filtered := 0
	if maxDistance > 0 && res.AnyDistanceAbove(maxDistance) {
		kept := res.WithinDistance(maxDistance)
		filtered = res.Len() - kept.Len()
		res = kept
	}

	response := map[string]interface{}{
		"conversation": svc.Conversation(),
		"query":        query,
		"results":      formatMatches(res.Matches(0)),
		"count":        res.Len(),
		"filtered":     filtered,
		"relevant":     res.Len() > 0,
		"duration_ms":  time.Since(start).Milliseconds(),
	}
	if res.Len() == 0 {
		response["message"] = "no relevant documents found"
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCollectionStatus handles the collection_status tool invocation
func (s *Server) handleCollectionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	svc, err := s.service(args)
	if err != nil {
		return nil, err
	}

	info, err := svc.Info(ctx)
	if errors.Is(err, collection.ErrNotInitialized) {
		response := map[string]interface{}{
			"initialized":  false,
			"conversation": svc.Conversation(),
			"message":      "Collection not initialized. Use init_collection to create it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, toMCPError("failed to get collection status", err)
	}

	status, err := s.manager.Status(ctx)
	if err != nil {
		return nil, toMCPError("failed to get database status", err)
	}

	sources := make([]map[string]interface{}, len(info.Sources))
	for i, src := range info.Sources {
		sources[i] = map[string]interface{}{
			"source":     src.Source,
			"chunks":     src.Chunks,
			"updated_at": src.UpdatedAt.Format(time.RFC3339),
		}
	}

	response := map[string]interface{}{
		"initialized":  true,
		"conversation": svc.Conversation(),
		"collection": map[string]interface{}{
			"name":       info.Name,
			"distance":   info.Distance,
			"provider":   info.Provider,
			"model":      info.Model,
			"dimension":  info.Dimension,
			"created_at": info.CreatedAt.Format(time.RFC3339),
			"updated_at": info.UpdatedAt.Format(time.RFC3339),
		},
		"statistics": map[string]interface{}{
			"chunks_count":  info.Count,
			"sources_count": len(info.Sources),
		},
		"sources": sources,
		"database": map[string]interface{}{
			"path":           status.Path,
			"schema_version": status.SchemaVersion,
			"build_mode":     status.BuildMode,
			"size_mb":        fmt.Sprintf("%.2f", status.SizeMB),
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// service resolves the conversation argument to a Service
func (s *Server) service(args map[string]interface{}) (*retrieval.Service, error) {
	conversation := getStringDefault(args, "conversation", s.conversation)
	svc, err := s.manager.Service(conversation)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid conversation", map[string]interface{}{
			"param":  "conversation",
			"reason": err.Error(),
		})
	}
	return svc, nil
}

// writableService resolves the conversation and takes its write lock. The
// returned func releases the lock.
func (s *Server) writableService(args map[string]interface{}) (*retrieval.Service, func(), error) {
	svc, err := s.service(args)
	if err != nil {
		return nil, nil, err
	}
	lock := s.lockFor(svc.Conversation())
	if !lock.TryAcquire() {
		return nil, nil, newMCPError(ErrorCodeWriteInProgress, "another write is in progress for this conversation", map[string]interface{}{
			"conversation": svc.Conversation(),
		})
	}
	return svc, lock.Release, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// toMCPError maps a retrieval error to its MCP error code
func toMCPError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, collection.ErrNotInitialized):
		code = ErrorCodeNotInitialized
	case errors.Is(err, collection.ErrCollectionExists):
		code = ErrorCodeAlreadyInitialized
	case errors.Is(err, collection.ErrEmptyQuery):
		code = ErrorCodeEmptyQuery
	case errors.Is(err, embedder.ErrProviderFailed), errors.Is(err, embedder.ErrInvalidInput):
		code = ErrorCodeProviderFailed
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// getPaths extracts the required paths array
func getPaths(args map[string]interface{}) ([]string, error) {
	raw, ok := args["paths"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "paths parameter is required", map[string]interface{}{
			"param":  "paths",
			"reason": "missing or empty",
		})
	}
	paths := make([]string, 0, len(raw))
	for i, v := range raw {
		p, ok := v.(string)
		if !ok || strings.TrimSpace(p) == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, "paths must be non-empty strings", map[string]interface{}{
				"param": "paths",
				"index": i,
			})
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func addFailures(response map[string]interface{}, failures []types.FileFailure) {
	if len(failures) == 0 {
		return
	}
	msgs := make([]string, 0, len(failures))
	for _, f := range failures {
		msgs = append(msgs, fmt.Sprintf("%s: %v", f.Path, f.Err))
	}
	response["files_failed"] = len(failures)
	if len(msgs) > maxFailuresReported {
		msgs = msgs[:maxFailuresReported]
	}
	response["errors"] = msgs
}

func formatMatches(matches []types.Match) []map[string]interface{} {
	out := make([]map[string]interface{}, len(matches))
	for i, m := range matches {
		out[i] = map[string]interface{}{
			"rank":     i + 1,
			"id":       m.ID,
			"source":   m.Metadata.Source,
			"distance": m.Distance,
			"document": m.Document,
		}
	}
	return out
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	switch val := args[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && strings.TrimSpace(val) != "" {
		return val
	}
	return defaultValue
}
