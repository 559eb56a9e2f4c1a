package db

import (
	"testing"

	"document-index/internal/config"
	"document-index/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := ConnectDB(&config.DatabaseConfig{
		DSN:      "postgres://postgres@localhost:5432/postgres?sslmode=disable",
		Password: "secret",
	})
	require.NoError(t, err)
	db := NewDB(sqldb, false)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConnectDBRequiresDSN(t *testing.T) {
	_, err := ConnectDB(&config.DatabaseConfig{})
	assert.Error(t, err)
}

func TestToDocumentsKeepsOrder(t *testing.T) {
	embedded := []models.EmbeddedChunk{
		{Chunk: models.Chunk{FileName: "a", PageIndex: 0, ChunkIndex: 0, Text: "x"}, Embedding: []float32{0.5, 0.25}},
		{Chunk: models.Chunk{FileName: "a", PageIndex: 3, ChunkIndex: 1, Text: "y"}, Embedding: []float32{1, 2}},
	}

	docs := ToDocuments("run-7", embedded)
	require.Len(t, docs, 2)
	assert.Equal(t, "run-7", docs[1].RunID)
	assert.Equal(t, 3, docs[1].PageIndex)
	assert.Equal(t, 1, docs[1].ChunkIndex)
	assert.Equal(t, "y", docs[1].Content)
	assert.Equal(t, []float32{0.5, 0.25}, docs[0].Embedding.Slice())
}

func TestInsertQueryIsSingleStatement(t *testing.T) {
	db := newTestDB(t)
	docs := ToDocuments("run-7", []models.EmbeddedChunk{
		{Chunk: models.Chunk{FileName: "a", Text: "x"}, Embedding: []float32{0.5, 0.25}},
		{Chunk: models.Chunk{FileName: "a", ChunkIndex: 1, Text: "y"}, Embedding: []float32{1, 2}},
	})

	query := db.NewInsert().Model(&docs).String()
	assert.Contains(t, query, `INSERT INTO "documents"`)
	assert.Contains(t, query, "'[0.5,0.25]'")
	assert.Contains(t, query, "'[1,2]'")
}

func TestCreateTableUsesVectorType(t *testing.T) {
	db := newTestDB(t)

	query := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().String()
	assert.Contains(t, query, `"documents"`)
	assert.Contains(t, query, `"embedding" vector`)
	assert.Contains(t, query, `"run_id"`)
}

func TestDropDocumentsQuery(t *testing.T) {
	db := newTestDB(t)

	query := dropDocumentsQuery(db).String()
	assert.Contains(t, query, "DROP TABLE IF EXISTS")
	assert.Contains(t, query, `"documents"`)
}
