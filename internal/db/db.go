package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"document-index/internal/config"
	"document-index/internal/models"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// Document is one embedded chunk in the pgvector table.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            int64           `bun:"id,pk,autoincrement"`
	RunID         string          `bun:"run_id,notnull"`
	FileName      string          `bun:"file_name,notnull"`
	PageIndex     int             `bun:"page_index,notnull"`
	ChunkIndex    int             `bun:"chunk_index,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a lazy connection pool; nothing is dialled until the first
// query.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// ToDocuments converts embedded chunks into table rows, keeping their order.
func ToDocuments(runID string, embedded []models.EmbeddedChunk) []Document {
	docs := make([]Document, len(embedded))
	for i, ec := range embedded {
		docs[i] = Document{
			RunID:      runID,
			FileName:   ec.FileName,
			PageIndex:  ec.PageIndex,
			ChunkIndex: ec.ChunkIndex,
			Content:    ec.Text,
			Embedding:  pgvector.NewVector(ec.Embedding),
		}
	}
	return docs
}

// StoreChunks inserts every embedded chunk in a single statement.
func StoreChunks(ctx context.Context, db *bun.DB, runID string, embedded []models.EmbeddedChunk) error {
	if len(embedded) == 0 {
		return nil
	}
	docs := ToDocuments(runID, embedded)
	if _, err := db.NewInsert().Model(&docs).Exec(ctx); err != nil {
		return fmt.Errorf("insert documents: %w", err)
	}
	return nil
}

func dropDocumentsQuery(db *bun.DB) *bun.DropTableQuery {
	return db.NewDropTable().Model((*Document)(nil)).IfExists()
}

// drop table documents
func DropDocuments(ctx context.Context, db *bun.DB) error {
	if _, err := dropDocumentsQuery(db).Exec(ctx); err != nil {
		return fmt.Errorf("drop documents table: %w", err)
	}
	return nil
}
