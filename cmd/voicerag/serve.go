package main

import (
	"github.com/spf13/cobra"

	"github.com/voicerag/voicerag/internal/mcp"
	"github.com/voicerag/voicerag/internal/retrieval"
	"github.com/voicerag/voicerag/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server for the voice agent's LLM loop.
The server speaks JSON-RPC on stdin/stdout and logs to stderr.

MCP client configuration:
  {
    "mcpServers": {
      "voicerag": {
        "command": "/path/to/voicerag",
        "args": ["serve", "--conversation", "chat_id_1"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager, err := retrieval.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer manager.Close()

	server, err := mcp.NewServer(manager, mcp.Options{
		Conversation: cfg.Conversation,
		Version:      version,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	logger.Info("voicerag MCP server starting", "version", version, "build_mode", storage.BuildMode, "driver", storage.DriverName)
	err = server.Serve(cmd.Context())
	logger.Info("server stopped")
	return err
}
