package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voicerag/voicerag/internal/collection"
	"github.com/voicerag/voicerag/pkg/types"
)

var (
	queryK           int
	queryMaxDistance float64
	queryJSON        bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>...",
	Short: "Find the chunks most relevant to a question",
	Long: `Embeds the question and returns the nearest chunks by cosine distance.
A populated collection returns at most k chunks (never more than 5); an empty
one returns at most one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "k", "k", collection.DefaultResults, "maximum number of chunks (1-5)")
	queryCmd.Flags().Float64Var(&queryMaxDistance, "max-distance", 0, "drop chunks farther than this distance (0 disables)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the raw query result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	_, manager, svc, _, err := openService(cmd)
	if err != nil {
		return err
	}
	defer manager.Close()

	res, err := svc.Query(cmd.Context(), text, queryK)
	if err != nil {
		return err
	}
	filtered := 0
	if queryMaxDistance > 0 && res.AnyDistanceAbove(queryMaxDistance) {
		kept := res.WithinDistance(queryMaxDistance)
		filtered = res.Len() - kept.Len()
		res = kept
	}

	if queryJSON {
		return outputQueryJSON(cmd, res)
	}
	return outputQueryTable(cmd, res, filtered)
}

func outputQueryJSON(cmd *cobra.Command, res *types.QueryResult) error {
	data, err := json.MarshalIndent(map[string]interface{}{
		"ids":       res.IDs,
		"documents": res.Documents,
		"metadatas": res.Metadatas,
		"distances": res.Distances,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, res *types.QueryResult, filtered int) error {
	matches := res.Matches(0)
	if len(matches) == 0 {
		if filtered > 0 {
			cmd.Printf("No relevant documents found (%d farther than %.2f).\n", filtered, queryMaxDistance)
			return nil
		}
		cmd.Println("No results found.")
		return nil
	}

	for i, m := range matches {
		cmd.Printf("[%d] %s (distance %.4f)\n", i+1, m.Metadata.Source, m.Distance)
		cmd.Printf("    %s\n", snippet(m.Document, 200))
	}
	return nil
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
