package chromemdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"document-index/internal/config"
	"document-index/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChunks() []models.EmbeddedChunk {
	return []models.EmbeddedChunk{
		{Chunk: models.Chunk{FileName: "guide", PageIndex: 0, ChunkIndex: 0, Text: "first"}, Embedding: []float32{3, 4}},
		{Chunk: models.Chunk{FileName: "guide", PageIndex: 0, ChunkIndex: 1, Text: "second"}, Embedding: []float32{1, 0}},
		{Chunk: models.Chunk{FileName: "guide", PageIndex: 2, ChunkIndex: 0, Text: "third"}, Embedding: []float32{0, 2}},
	}
}

func TestAddChunksIsIdempotentPerChunk(t *testing.T) {
	dir := t.TempDir()
	m, err := NewVectorDBManager(config.ChromemConfig{
		Path:       filepath.Join(dir, "db"),
		Collection: "chunks",
		ExportFile: filepath.Join(dir, "export", "chunks.gob"),
	})
	require.NoError(t, err)

	_, err = m.GetOrCreateCollection("chunks")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.AddChunks(ctx, sampleChunks(), "/data/guide.chunks.json", "run-a"))
	assert.Equal(t, 3, m.Count())

	require.NoError(t, m.AddChunks(ctx, sampleChunks(), "/data/guide.chunks.json", "run-b"))
	assert.Equal(t, 3, m.Count(), "same positions overwrite previous entries")

	require.NoError(t, m.Export())
	_, err = os.Stat(filepath.Join(dir, "export", "chunks.gob"))
	assert.NoError(t, err)

	require.NoError(t, m.DeleteCollection())
	assert.Zero(t, m.Count())
}

func TestAddChunksWithoutCollection(t *testing.T) {
	m, err := NewVectorDBManager(config.ChromemConfig{Path: t.TempDir()})
	require.NoError(t, err)

	assert.Error(t, m.AddChunks(context.Background(), sampleChunks(), "guide.json", ""))
}

func TestAddChunksKeepsUntitledDocumentsApart(t *testing.T) {
	m, err := NewVectorDBManager(config.ChromemConfig{Path: t.TempDir()})
	require.NoError(t, err)
	_, err = m.GetOrCreateCollection("chunks")
	require.NoError(t, err)

	untitled := func(text string, v []float32) []models.EmbeddedChunk {
		return []models.EmbeddedChunk{{
			Chunk:     models.Chunk{FileName: models.UnknownFileName, PageIndex: 0, ChunkIndex: 0, Text: text},
			Embedding: v,
		}}
	}

	ctx := context.Background()
	require.NoError(t, m.AddChunks(ctx, untitled("doc A page 0", []float32{1, 0}), "/in/a.json", ""))
	require.NoError(t, m.AddChunks(ctx, untitled("doc B page 0", []float32{0, 1}), "/in/b.json", ""))
	assert.Equal(t, 2, m.Count())
}

func TestDocumentIDAndMetadata(t *testing.T) {
	c := models.Chunk{FileName: "guide", PageIndex: 4, ChunkIndex: 7, Text: "x"}

	id := DocumentID("/in/guide.json", c)
	assert.Equal(t, "guide-"+SourceKey("/in/guide.json")+"-4-7", id)
	assert.Equal(t, id, DocumentID("/in/guide.json", c), "same source gives the same id")
	assert.NotEqual(t, id, DocumentID("/in/other.json", c))
	assert.Len(t, SourceKey("/in/guide.json"), 8)

	assert.Equal(t, map[string]string{
		"file_name":   "guide",
		"page_index":  "4",
		"chunk_index": "7",
		"source":      "/in/guide.json",
		"run_id":      "r1",
	}, CreateMetadata(c, "/in/guide.json", "r1"))
	assert.NotContains(t, CreateMetadata(c, "/in/guide.json", ""), "run_id")
}
