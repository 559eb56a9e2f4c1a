package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"document-index/internal/config"
	"document-index/internal/helper"
	"document-index/internal/models"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// VectorDBManager wraps a persistent chromem-go database holding one
// collection of embedded chunks.
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	compress      bool
	encryptionKey string
	exportFile    string
}

// NewVectorDBManager opens (or creates) the database under cfg.Path.
func NewVectorDBManager(cfg config.ChromemConfig) (*VectorDBManager, error) {
	if err := helper.CreateFolder(cfg.Path); err != nil {
		return nil, err
	}
	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return &VectorDBManager{
		db:            db,
		dbPath:        cfg.Path,
		compress:      cfg.Compress,
		encryptionKey: cfg.EncryptionKey,
		exportFile:    cfg.ExportFile,
	}, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	// vectors are always supplied, so no embedding func is needed
	c, err := m.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// SourceKey is a short stable key for the file the chunks were read from.
func SourceKey(source string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)).String()[:8]
}

// DocumentID is stable across runs of the same source so re-indexing it
// overwrites its previous entries. The source key keeps untitled documents,
// which all share the "unknown" file name, apart.
func DocumentID(source string, c models.Chunk) string {
	return fmt.Sprintf("%s-%s-%d-%d", c.FileName, SourceKey(source), c.PageIndex, c.ChunkIndex)
}

// CreateMetadata flattens the chunk position into chromem string metadata.
func CreateMetadata(c models.Chunk, source, runID string) map[string]string {
	md := map[string]string{
		"file_name":   c.FileName,
		"page_index":  strconv.Itoa(c.PageIndex),
		"chunk_index": strconv.Itoa(c.ChunkIndex),
		"source":      source,
	}
	if runID != "" {
		md["run_id"] = runID
	}
	return md
}

// AddChunks stores every embedded chunk in the current collection.
// source identifies the file the chunks came from.
func (m *VectorDBManager) AddChunks(ctx context.Context, embedded []models.EmbeddedChunk, source, runID string) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	docs := make([]chromem.Document, 0, len(embedded))
	for _, ec := range embedded {
		docs = append(docs, chromem.Document{
			ID:        DocumentID(source, ec.Chunk),
			Content:   ec.Text,
			Metadata:  CreateMetadata(ec.Chunk, source, runID),
			Embedding: ec.Embedding,
		})
	}

	log.Info().Msgf("Adding %d documents to vector database", len(docs))
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	if m.collection == nil {
		return nil
	}
	if err := m.db.DeleteCollection(m.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	m.collection = nil
	return nil
}

// Export writes the collection to the configured export file. It is a no-op
// when no file is configured.
func (m *VectorDBManager) Export() error {
	if m.exportFile == "" {
		return nil
	}
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if err := helper.EnsureParentDir(m.exportFile); err != nil {
		return err
	}

	log.Debug().
		Str("db_path", m.dbPath).
		Str("collection", m.collection.Name).
		Str("file", m.exportFile).
		Bool("compress", m.compress).
		Bool("encrypted", m.encryptionKey != "").
		Msg("Exporting collection")
	if err := m.db.ExportToFile(m.exportFile, m.compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}
