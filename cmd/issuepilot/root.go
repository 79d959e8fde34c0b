// File path: cmd/issuepilot/root.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/issuepilot-ai/issuepilot/internal/catalog"
	"github.com/issuepilot-ai/issuepilot/internal/common"
	"github.com/issuepilot-ai/issuepilot/internal/llm"
	"github.com/issuepilot-ai/issuepilot/internal/output"
	"github.com/issuepilot-ai/issuepilot/internal/retriever"
	"github.com/issuepilot-ai/issuepilot/internal/synthesis"
	"github.com/issuepilot-ai/issuepilot/internal/vector"
)

// Package-level shared dependencies, initialized lazily so commands like
// version can run without a vector store or database.
var (
	ui           *output.UI
	provider     llm.Provider
	vectorClient *vector.Client
	catalogStore *catalog.Store

	verbose bool

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "issuepilot",
	Short: "Ingest, search, and answer questions over Jira issue exports",
	Long: `issuepilot turns exported Jira issues into a searchable knowledge base.
It chunks each issue into focused documents, indexes them in ChromaDB,
and answers questions grounded in the retrieved context.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func initConfig() {
	logger := common.Logger()
	if err := godotenv.Load(); err != nil {
		logger.Debug("cli: no .env file loaded", "error", err)
	} else {
		logger.Info("cli: environment variables loaded from .env")
	}

	viper.SetEnvPrefix("ISSUEPILOT")
	viper.AutomaticEnv()

	viper.SetDefault("addr", ":8080")
	viper.SetDefault("issue_dir", "exports")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
}

// getProvider returns the shared LLM provider, initializing it on first call.
func getProvider() llm.Provider {
	if provider == nil {
		provider = llm.NewProvider()
	}
	return provider
}

// getVectorStore returns the shared ChromaDB client, initializing it on
// first call. The client may be unavailable when ChromaDB is unreachable;
// commands still run and report the degraded state.
func getVectorStore(ctx context.Context) (*vector.Client, error) {
	if vectorClient != nil {
		return vectorClient, nil
	}

	client, err := vector.NewFromEnv(ctx, getProvider())
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	if !client.Available() {
		ui.Warning("ChromaDB is unreachable; vector operations will fail until it recovers")
	}

	vectorClient = client
	return vectorClient, nil
}

// getRetriever wires the hybrid retriever over the shared vector store.
func getRetriever(ctx context.Context) (*retriever.Retriever, error) {
	store, err := getVectorStore(ctx)
	if err != nil {
		return nil, err
	}
	return retriever.New(store, retriever.LoadConfig()), nil
}

func getSynthesizer() *synthesis.Synthesizer {
	return synthesis.New(getProvider())
}

// getCatalog opens the ingest catalog database, initializing it on first
// call. Callers that can operate without run bookkeeping should treat a
// failure as non-fatal.
func getCatalog() (*catalog.Store, error) {
	if catalogStore != nil {
		return catalogStore, nil
	}

	cfg, err := catalog.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("catalog config: %w", err)
	}
	store, err := catalog.OpenWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	catalogStore = store
	return catalogStore, nil
}
