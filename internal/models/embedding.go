package models

// Chunk is a bounded excerpt of one page plus its position in the document.
type Chunk struct {
	FileName   string `json:"file_name"`
	PageIndex  int    `json:"page_index"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// EmbeddedChunk is a Chunk with the vector returned by the embedding model.
type EmbeddedChunk struct {
	Chunk
	Embedding []float32 `json:"embedding"`
}

// MappingRow ties an index row back to the chunk it was built from.
type MappingRow struct {
	Row int `json:"row"`
	Chunk
}
