// File path: cmd/issuepilot/mcp.go
package main

import (
	"github.com/spf13/cobra"

	"github.com/issuepilot-ai/issuepilot/internal/common"
	"github.com/issuepilot-ai/issuepilot/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `mcp exposes semantic_search, issue_memory, and ask as Model Context
Protocol tools on stdin/stdout, for use by MCP-capable agents.`,
	RunE: mcpRun,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	retr, err := getRetriever(ctx)
	if err != nil {
		return err
	}

	common.Logger().Info("cli: mcp server starting on stdio")
	return mcp.NewServer(retr, getSynthesizer()).ServeStdio(ctx)
}
