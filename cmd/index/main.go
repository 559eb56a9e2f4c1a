package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"document-index/internal/config"
	"document-index/internal/embedding"
	"document-index/internal/helper"
	"document-index/internal/rag"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const configFilePath = "./configs/config.yaml"

var (
	cfgFile   string
	model     string
	provider  string
	batchSize int
	strict    bool
	debug     bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <chunks.json> <index-file>",
		Short: "Embed chunks and build a flat inner-product index",
		Long: `Embed the chunks written by the ingest command in small batches and save
the vectors as a flat inner-product index. A row mapping is written next to the
index as <index-file>.meta.json.

If a batch fails the remaining chunks are dropped and the index is built from
the chunks embedded so far, unless --strict is set.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", configFilePath, "config file")
	cmd.Flags().StringVar(&model, "model", config.DefaultEmbeddingModel, "embedding model")
	cmd.Flags().StringVar(&provider, "provider", config.ProviderOpenAI, "embedding provider (openai, ollama, azure, gemini)")
	cmd.Flags().IntVar(&batchSize, "batch-size", config.DefaultBatchSize, "chunks per embedding request")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of indexing a partial run")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.EmbedLLM.Provider = provider
		if !flags.Changed("model") {
			cfg.EmbedLLM.Model = ""
		}
	}
	if flags.Changed("model") {
		cfg.EmbedLLM.Model = model
	}
	if flags.Changed("batch-size") {
		cfg.EmbedLLM.BatchSize = batchSize
	}
	if strict {
		cfg.EmbedLLM.Strict = true
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runIndex(cmd *cobra.Command, chunksPath, indexPath string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	helper.InitLogger(cfg.Log, debug)

	// .env is optional
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}
	if err := cfg.ResolveCredential(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		return err
	}
	if closer, ok := embedder.(io.Closer); ok {
		defer closer.Close()
	}

	indexer, err := rag.NewIndexer(cfg, embedder)
	if err != nil {
		return err
	}
	report, err := indexer.Run(ctx, chunksPath, indexPath)
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("chunks", report.Chunks).
		Int("embedded", report.Embedded).
		Bool("truncated", report.Truncated()).
		Str("mapping", report.MappingPath).
		Msgf("Indexed %d of %d chunks into %s", report.Embedded, report.Chunks, report.IndexPath)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("Indexing failed")
	}
}
