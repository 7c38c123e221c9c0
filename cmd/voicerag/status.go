package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/voicerag/voicerag/internal/collection"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the database and the conversation's collection",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, manager, svc, _, err := openService(cmd)
	if err != nil {
		return err
	}
	defer manager.Close()
	ctx := cmd.Context()

	status, err := manager.Status(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Database:      %s\n", status.Path)
	cmd.Printf("Schema:        %s (%s build)\n", status.SchemaVersion, status.BuildMode)
	cmd.Printf("Size:          %.2f MB\n", status.SizeMB)
	conversations, err := manager.Conversations(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Collections:   %d\n", status.Collections)
	for _, name := range conversations {
		marker := " "
		if name == cfg.Conversation {
			marker = "*"
		}
		cmd.Printf("  %s %s\n", marker, name)
	}
	cmd.Println()

	info, err := svc.Info(ctx)
	if errors.Is(err, collection.ErrNotInitialized) {
		cmd.Printf("Conversation %q has no collection. Run 'voicerag init' first.\n", cfg.Conversation)
		return nil
	}
	if err != nil {
		return err
	}

	cmd.Printf("Conversation:  %s\n", info.Name)
	cmd.Printf("Embedder:      %s / %s (dim %d)\n", info.Provider, info.Model, info.Dimension)
	cmd.Printf("Chunks:        %d\n", info.Count)
	cmd.Printf("Sources:       %d\n", len(info.Sources))
	for _, src := range info.Sources {
		cmd.Printf("  %s (%d chunks)\n", src.Source, src.Chunks)
	}
	return nil
}
