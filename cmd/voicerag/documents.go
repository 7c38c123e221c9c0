package main

import (
	"github.com/spf13/cobra"

	"github.com/voicerag/voicerag/pkg/types"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create the conversation's collection from a folder",
	Long: `Creates the collection for the configured conversation and indexes the
files directly inside dir. Without dir, or when dir is empty or unreadable,
an empty collection is created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Index documents into the collection",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

var removeCmd = &cobra.Command{
	Use:   "remove <path>...",
	Short: "Remove every chunk of the given documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

func init() {
	rootCmd.AddCommand(initCmd, addCmd, removeCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dirs, err := absPaths(args)
	if err != nil {
		return err
	}

	cfg, manager, svc, _, err := openService(cmd)
	if err != nil {
		return err
	}
	defer manager.Close()

	outcome, err := svc.Init(cmd.Context(), dirs...)
	if err != nil {
		return err
	}

	if outcome.Dir == "" {
		cmd.Printf("Initialized empty collection %q\n", cfg.Conversation)
		return nil
	}
	cmd.Printf("Initialized collection %q from %s (%s folder, %d chunks)\n",
		cfg.Conversation, outcome.Dir, outcome.State, outcome.Chunks)
	printFailures(cmd, outcome.Failures)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	paths, err := absPaths(args)
	if err != nil {
		return err
	}

	_, manager, svc, _, err := openService(cmd)
	if err != nil {
		return err
	}
	defer manager.Close()

	result, err := svc.Add(cmd.Context(), paths...)
	if err != nil {
		return err
	}
	cmd.Printf("Added %d chunks from %d files\n", result.Chunks, len(result.Sources))
	printFailures(cmd, result.Failures)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	paths, err := absPaths(args)
	if err != nil {
		return err
	}

	_, manager, svc, _, err := openService(cmd)
	if err != nil {
		return err
	}
	defer manager.Close()

	removed, err := svc.Remove(cmd.Context(), paths...)
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d chunks\n", removed)
	return nil
}

func printFailures(cmd *cobra.Command, failures []types.FileFailure) {
	if len(failures) == 0 {
		return
	}
	cmd.Printf("Skipped %d files:\n", len(failures))
	for _, f := range failures {
		cmd.Printf("  %s: %v\n", f.Path, f.Err)
	}
}
