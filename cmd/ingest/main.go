package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"document-index/internal/config"
	"document-index/internal/helper"
	"document-index/internal/rag"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const configFilePath = "./configs/config.yaml"

var (
	cfgFile      string
	chunkSize    int
	chunkOverlap int
	dryRun       bool
	debug        bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <document> <chunks.json>",
		Short: "Split a document into overlapping chunks",
		Long: `Extract the text of every page of a document (PDF, DOCX, PPTX, XLSX,
Markdown or plain text), split it into overlapping chunks and save them as a
JSON array for the index command.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", configFilePath, "config file")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", config.DefaultChunkSize, "maximum characters per chunk")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", config.DefaultChunkOverlap, "characters carried over between chunks")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the chunks instead of saving them")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		cfg.RAG.ChunkSize = chunkSize
		if !flags.Changed("chunk-overlap") {
			cfg.RAG.FitOverlap()
		}
	}
	if flags.Changed("chunk-overlap") {
		cfg.RAG.ChunkOverlap = chunkOverlap
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runIngest(cmd *cobra.Command, docPath, outPath string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	helper.InitLogger(cfg.Log, debug)
	log.Debug().Interface("config", cfg.RAG).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dryRun {
		chunks, err := rag.Ingest(ctx, cfg, docPath)
		if err != nil {
			return err
		}
		helper.PrettyPrint(chunks)
		return nil
	}

	_, err = rag.RunIngestion(ctx, cfg, docPath, outPath)
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
}
