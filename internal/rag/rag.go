package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"document-index/internal/chromemdb"
	"document-index/internal/config"
	"document-index/internal/db"
	"document-index/internal/embedding"
	"document-index/internal/helper"
	"document-index/internal/index"
	"document-index/internal/models"
	"document-index/internal/parser"

	"github.com/rs/zerolog/log"
)

// ErrTruncated is returned in strict mode when a batch failure dropped chunks.
var ErrTruncated = errors.New("embedding run truncated")

// Ingest opens the document at docPath and returns its chunks.
func Ingest(ctx context.Context, cfg *config.Config, docPath string) ([]models.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunks, err := parser.ParseToChunks(docPath, cfg)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// RunIngestion chunks the document at docPath and writes the chunks as a JSON
// array to outPath. Nothing is written when extraction fails.
func RunIngestion(ctx context.Context, cfg *config.Config, docPath, outPath string) ([]models.Chunk, error) {
	chunks, err := Ingest(ctx, cfg, docPath)
	if err != nil {
		return nil, err
	}
	if chunks == nil {
		chunks = []models.Chunk{}
	}
	if err := helper.WriteJSON(outPath, chunks); err != nil {
		return nil, err
	}
	log.Info().Int("chunks", len(chunks)).Str("path", outPath).Msgf("Saved %d chunks to %s", len(chunks), outPath)
	return chunks, nil
}

// ReadChunks loads a chunks file written by RunIngestion.
func ReadChunks(path string) ([]models.Chunk, error) {
	var chunks []models.Chunk
	if err := helper.ReadJSON(path, &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// Report summarises one indexing run.
type Report struct {
	RunID       string
	Chunks      int
	Embedded    int
	Failure     *embedding.BatchError
	IndexPath   string
	MappingPath string
}

func (r *Report) Truncated() bool { return r.Failure != nil }

// Indexer embeds a chunks file and persists the vectors.
type Indexer struct {
	cfg      *config.Config
	embedder embedding.Embedder
	runID    string
}

func NewIndexer(cfg *config.Config, embedder embedding.Embedder) (*Indexer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: nil embedder", embedding.ErrInvalidArgument)
	}
	runID, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	return &Indexer{cfg: cfg, embedder: embedder, runID: runID}, nil
}

func (ix *Indexer) RunID() string { return ix.runID }

// Run reads the chunks at chunksPath, embeds them batch by batch and writes
// the index to indexPath. A failed batch keeps the embedded prefix unless the
// embedder config is strict, in which case ErrTruncated is returned alongside
// the report and no index is written.
func (ix *Indexer) Run(ctx context.Context, chunksPath, indexPath string) (*Report, error) {
	logger := log.With().Str("run_id", ix.runID).Logger()

	chunks, err := ReadChunks(chunksPath)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("chunks", len(chunks)).Str("model", ix.cfg.EmbedLLM.Model).Msgf("Embedding %d chunks", len(chunks))

	res, err := embedding.EmbedChunks(ctx, chunks, ix.embedder, embedding.BatchOptions{
		BatchSize: ix.cfg.EmbedLLM.BatchSize,
		Pause:     ix.cfg.EmbedLLM.Pause,
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:    ix.runID,
		Chunks:   res.Total,
		Embedded: len(res.Embedded),
		Failure:  res.Failure,
	}
	if res.Truncated() {
		logger.Warn().
			Int("embedded", len(res.Embedded)).
			Int("dropped", res.Dropped()).
			Msgf("Only %d of %d chunks were embedded", len(res.Embedded), res.Total)
		if ix.cfg.EmbedLLM.Strict {
			return report, fmt.Errorf("%w: %w", ErrTruncated, res.Failure)
		}
	}

	if _, err := index.BuildIndex(res.Embedded, indexPath); err != nil {
		return report, err
	}
	report.IndexPath = indexPath

	if ix.cfg.MappingEnabled() {
		m := index.NewMapping(ix.runID, ix.cfg.EmbedLLM.Model, res.Embedded)
		path, err := index.WriteMapping(indexPath, m)
		if err != nil {
			return report, err
		}
		report.MappingPath = path
		logger.Debug().Str("path", path).Msg("Saved row mapping")
	}

	if err := ix.storeSinks(ctx, chunksPath, res.Embedded); err != nil {
		return report, err
	}
	return report, nil
}

func (ix *Indexer) storeSinks(ctx context.Context, chunksPath string, embedded []models.EmbeddedChunk) error {
	if ix.cfg.Chromem.Enabled {
		source, err := filepath.Abs(chunksPath)
		if err != nil {
			return fmt.Errorf("chromem: %w", err)
		}
		if err := ix.storeChromem(ctx, source, embedded); err != nil {
			return fmt.Errorf("chromem: %w", err)
		}
	}
	if ix.cfg.Database.Enabled {
		if err := ix.storeDatabase(ctx, embedded); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	return nil
}

func (ix *Indexer) storeChromem(ctx context.Context, source string, embedded []models.EmbeddedChunk) error {
	vdb, err := chromemdb.NewVectorDBManager(ix.cfg.Chromem)
	if err != nil {
		return err
	}
	if _, err := vdb.GetOrCreateCollection(ix.cfg.Chromem.Collection); err != nil {
		return err
	}
	if err := vdb.AddChunks(ctx, embedded, source, ix.runID); err != nil {
		return err
	}
	return vdb.Export()
}

func (ix *Indexer) storeDatabase(ctx context.Context, embedded []models.EmbeddedChunk) error {
	sqldb, err := db.ConnectDB(&ix.cfg.Database)
	if err != nil {
		return err
	}
	dbInstance := db.NewDB(sqldb, ix.cfg.Database.Debug)
	defer dbInstance.Close()

	if ix.cfg.Database.Reset {
		log.Warn().Str("run_id", ix.runID).Msg("Dropping documents table")
		if err := db.DropDocuments(ctx, dbInstance); err != nil {
			return err
		}
	}
	if err := db.InitDB(ctx, dbInstance); err != nil {
		return err
	}
	if err := db.StoreChunks(ctx, dbInstance, ix.runID, embedded); err != nil {
		return err
	}
	log.Info().Str("run_id", ix.runID).Int("rows", len(embedded)).Msg("Stored chunks in database")
	return nil
}
