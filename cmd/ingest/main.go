// Package main provides the ingestion CLI for the legal Q&A corpus.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/legalqa-server/internal/app"
	"github.com/bull/legalqa-server/internal/config"
	"github.com/bull/legalqa-server/internal/ingest"
)

var (
	configPath string
	docsDir    string
)

var rootCmd = &cobra.Command{
	Use:   "legalqa-ingest",
	Short: "Legal document ingestion tool",
	Long:  "CLI tool for building the legal Q&A vector index from a document directory",
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Chunk all documents and rebuild the vector index",
	Long: `Rebuilds the vector index from every .txt and .md file in the
document directory.

This command:
1. Walks the document directory in sorted order
2. Splits each document into overlapping chunks
3. Embeds every chunk through the OpenAI embeddings API
4. Replaces the previous index atomically

Environment variables:
  OPENAI_API_KEY  OpenAI API key for embeddings (required)
  CONFIG_PATH     Config file path (default: configs/config.yaml)`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&configPath, "config", "", "config file path (overrides CONFIG_PATH)")
	buildCmd.Flags().StringVar(&docsDir, "docs", "data/documents", "directory of legal documents to ingest")
	rootCmd.AddCommand(buildCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	fmt.Println("Starting ingestion...")
	fmt.Println()

	path := configPath
	if path == "" {
		path = getEnv("CONFIG_PATH", "configs/config.yaml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := app.NewLogger(cfg.Log.Level)

	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer a.Close()

	fmt.Printf("Indexing documents from %s (store: %s)...\n", docsDir, cfg.Index.Store)
	pipeline := ingest.NewPipeline(a.Splitter, a.Builder(), logger)

	result, err := pipeline.Run(ctx, docsDir)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Documents: %d/%d\n", result.TotalDocs-len(result.FailedDocs), result.TotalDocs)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))

	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
