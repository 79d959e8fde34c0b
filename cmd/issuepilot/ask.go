// File path: cmd/issuepilot/ask.go
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed issues",
	Long: `ask retrieves the most relevant issue chunks for the question and has
the configured LLM answer using only that context. Without an OpenAI
API key a local echo provider is used, which is only useful for
wiring checks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: askRun,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().IntP("limit", "l", 0, "Maximum semantic results to ground on (default 10)")
}

func askRun(cmd *cobra.Command, args []string) error {
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

	answer, err := getSynthesizer().Answer(ctx, query, results)
	if err != nil {
		return err
	}

	fmt.Fprintln(ui.Out, answer)

	if ui.Verbose {
		seen := make(map[string]bool)
		var keys []string
		for _, r := range results {
			if key, ok := r.Metadata["issue_key"].(string); ok && !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
		ui.VerboseLog("grounded on %d chunks from %s", len(results), strings.Join(keys, ", "))
	}
	return nil
}
