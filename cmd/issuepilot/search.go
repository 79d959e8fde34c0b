// File path: cmd/issuepilot/search.go
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/issuepilot-ai/issuepilot/internal/output"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed issues",
	Long: `search runs a hybrid lookup: semantic similarity over the vector index,
plus exact fetches for any issue keys mentioned in the query.`,
	Args: cobra.MinimumNArgs(1),
	RunE: searchRun,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntP("limit", "l", 0, "Maximum semantic results (default 10)")
}

func searchRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	retr, err := getRetriever(ctx)
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	results, err := retr.Retrieve(ctx, query, limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		ui.Info("no results for %q", query)
		return nil
	}

	table := ui.Table([]string{"ISSUE", "CHUNK", "STATUS", "SCORE", "SOURCE"})
	for _, r := range results {
		key, _ := r.Metadata["issue_key"].(string)
		chunkType, _ := r.Metadata["chunk_type"].(string)
		status, _ := r.Metadata["status"].(string)

		score := fmt.Sprintf("%.3f", r.Score)
		source := "semantic"
		if r.Score == 0 {
			score = "-"
			source = "exact"
		}
		_ = table.Append([]string{key, chunkType, output.StatusColor(status), score, source})
	}
	table.Render()

	if ui.Verbose {
		for _, r := range results {
			fmt.Fprintf(ui.Out, "\n%s\n%s\n", output.Cyan(r.ID), r.Document)
		}
	}
	return nil
}
