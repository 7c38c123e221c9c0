package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voicerag/voicerag/internal/config"
	"github.com/voicerag/voicerag/internal/retrieval"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagConfig       string
	flagPersistDir   string
	flagConversation string
	flagVerbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "voicerag",
	Short: "Document ingestion and retrieval for a voice assistant",
	Long: `voicerag converts documents (.pdf, .docx, .md, .xlsx, .txt) into token
chunks, embeds them and answers similarity queries against one collection per
conversation. The serve command exposes the same operations as MCP tools.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default ./config.yaml)")
	pf.StringVar(&flagPersistDir, "persist-dir", "", "directory holding the vector database")
	pf.StringVar(&flagConversation, "conversation", "", "conversation identity naming the collection")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newLogger logs to stderr; stdout carries command output and the MCP protocol
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file and applies the global flags over it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagPersistDir != "" {
		cfg.PersistDir = flagPersistDir
	}
	if flagConversation != "" {
		cfg.Conversation = flagConversation
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openService opens the manager and returns the Service of the configured
// conversation. The caller closes the manager.
func openService(cmd *cobra.Command) (*config.Config, *retrieval.Manager, *retrieval.Service, *slog.Logger, error) {
	logger := newLogger(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	manager, err := retrieval.Open(cfg, logger)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	svc, err := manager.Service(cfg.Conversation)
	if err != nil {
		_ = manager.Close()
		return nil, nil, nil, nil, err
	}
	return cfg, manager, svc, logger, nil
}

// absPaths makes paths absolute so a document keeps one identity no matter
// where the command runs
func absPaths(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		out[i] = abs
	}
	return out, nil
}
