package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicerag/voicerag/internal/watcher"
)

var (
	watchDebounce time.Duration
	watchInit     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Keep the collection in sync with a folder",
	Long: `Watches dir and re-indexes files as they are created or written, and
drops their chunks when they are removed or renamed. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before changes are applied (default from config)")
	watchCmd.Flags().BoolVar(&watchInit, "init", false, "initialize the collection from dir when it does not exist")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	cfg, manager, svc, logger, err := openService(cmd)
	if err != nil {
		return err
	}
	defer manager.Close()
	ctx := cmd.Context()

	debounce := watchDebounce
	if debounce <= 0 {
		debounce = cfg.Watch.Debounce
	}

	// Watch before initializing so files created while Init runs are queued
	w, err := watcher.New(dir, svc, watcher.Options{Debounce: debounce, Logger: logger})
	if err != nil {
		return err
	}
	defer w.Close()

	if watchInit {
		exists, err := svc.Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := svc.Init(ctx, dir); err != nil {
				return err
			}
		}
	}

	cmd.Printf("Watching %s for conversation %q (Ctrl+C to stop)\n", dir, cfg.Conversation)
	return w.Run(ctx)
}
