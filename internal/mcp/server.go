package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/voicerag/voicerag/internal/retrieval"
)

const (
	// ServerName is the MCP server name
	ServerName = "voicerag"
	// ServerVersion is the default server version
	ServerVersion = "1.0.0"
)

// Server exposes a retrieval Manager as MCP tools
type Server struct {
	mcp          *server.MCPServer
	manager      *retrieval.Manager
	conversation string
	logger       *slog.Logger

	mu    sync.Mutex
	locks map[string]*writeLock
}

// Options tunes a Server
type Options struct {
	Conversation string       // Used when a tool call names no conversation
	Version      string       // Defaults to ServerVersion
	Logger       *slog.Logger // Defaults to slog.Default(); never stdout
}

// NewServer creates a server whose tools operate on manager
func NewServer(manager *retrieval.Manager, opts Options) (*Server, error) {
	if manager == nil {
		return nil, errors.New("manager cannot be nil")
	}
	if strings.TrimSpace(opts.Conversation) == "" {
		return nil, retrieval.ErrEmptyConversation
	}
	if opts.Version == "" {
		opts.Version = ServerVersion
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			opts.Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		manager:      manager,
		conversation: opts.Conversation,
		logger:       opts.Logger,
		locks:        make(map[string]*writeLock),
	}

	s.registerTools()
	return s, nil
}

// Serve runs the server on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	return s.Listen(ctx, os.Stdin, os.Stdout)
}

// Listen runs the server over the given streams
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("mcp server started", "default_conversation", s.conversation)
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(initCollectionTool(), s.handleInitCollection)
	s.mcp.AddTool(addDocumentsTool(), s.handleAddDocuments)
	s.mcp.AddTool(removeDocumentsTool(), s.handleRemoveDocuments)
	s.mcp.AddTool(queryDocumentsTool(), s.handleQueryDocuments)
	s.mcp.AddTool(collectionStatusTool(), s.handleCollectionStatus)
}

// lockFor returns the write lock of a conversation
func (s *Server) lockFor(conversation string) *writeLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[conversation]
	if !ok {
		l = &writeLock{}
		s.locks[conversation] = l
	}
	return l
}
