// File path: cmd/issuepilot/serve.go
package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/issuepilot-ai/issuepilot/internal/api"
	"github.com/issuepilot-ai/issuepilot/internal/common"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  serveRun,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default :8080, env ISSUEPILOT_ADDR)")
}

func serveRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := common.Logger()

	store, err := getVectorStore(ctx)
	if err != nil {
		return err
	}
	retr, err := getRetriever(ctx)
	if err != nil {
		return err
	}

	cat, err := getCatalog()
	if err != nil {
		ui.Warning("catalog unavailable, issue and run listings disabled: %v", err)
		logger.Warn("cli: catalog unavailable", "error", err)
		cat = nil
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = viper.GetString("addr")
	}

	srv := api.NewServer(store, retr, getSynthesizer(), cat, &api.Config{
		Addr:     addr,
		IssueDir: viper.GetString("issue_dir"),
	})

	ui.Info("listening on %s", srv.Addr())
	logger.Info("cli: http server starting", "addr", srv.Addr())
	return http.ListenAndServe(srv.Addr(), srv)
}
