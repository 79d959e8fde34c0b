// File path: cmd/issuepilot/ingest.go
package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/issuepilot-ai/issuepilot/internal/ingest"
	"github.com/issuepilot-ai/issuepilot/internal/jira"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index a directory of exported Jira issues",
	Long: `ingest reads issue JSON files from a directory, chunks each issue,
and upserts the chunks into ChromaDB. Issues whose content has not
changed since the last run are skipped unless --force is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: ingestRun,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Bool("force", false, "Re-index issues even when unchanged")
}

func ingestRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dir := viper.GetString("issue_dir")
	if len(args) > 0 {
		dir = args[0]
	}

	source, err := jira.NewFileSource(dir)
	if err != nil {
		return err
	}

	store, err := getVectorStore(ctx)
	if err != nil {
		return err
	}
	cat, err := getCatalog()
	if err != nil {
		ui.Warning("catalog unavailable, skipping run bookkeeping: %v", err)
		cat = nil
	}

	force, _ := cmd.Flags().GetBool("force")

	report, err := ingest.New(store, cat).Run(ctx, source, force)
	if err != nil {
		return err
	}

	ui.Success("indexed %d issues (%d chunks, %d unchanged)", report.Issues, report.Chunks, report.Skipped)
	if report.RunID != "" {
		ui.VerboseLog("run id %s", report.RunID)
	}
	for _, key := range report.Failed {
		ui.Warning("failed to index %s", key)
	}
	return nil
}
