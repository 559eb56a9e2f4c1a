package parser

import (
	"strings"

	"document-index/internal/models"

	"github.com/rs/zerolog/log"
)

// CreateChunks splits every page of doc and tags each piece with its
// document, page and chunk position. Pages without text are skipped with a
// warning, so page indices in the result may have gaps.
func (p *ParserConfig) CreateChunks(doc Document) ([]models.Chunk, error) {
	splitter := RecursiveSplitter{
		ChunkSize:    p.Config.RAG.ChunkSize,
		ChunkOverlap: p.Config.RAG.ChunkOverlap,
		Separators:   models.DefaultSeparators,
	}
	if err := splitter.validate(); err != nil {
		return nil, err
	}

	fileName := strings.TrimSpace(doc.Title())
	if fileName == "" {
		fileName = models.UnknownFileName
	}

	var chunks []models.Chunk
	for pageIndex := 0; pageIndex < doc.NumPage(); pageIndex++ {
		text, err := doc.PageText(pageIndex)
		if err != nil {
			log.Warn().Err(err).Int("page", pageIndex).Msg("Page text extraction failed, skipping")
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			log.Warn().Int("page", pageIndex).Msgf("Page %d has no extractable text", pageIndex)
			continue
		}

		pieces, err := splitter.Split(text)
		if err != nil {
			return nil, err
		}
		for chunkIndex, piece := range pieces {
			chunks = append(chunks, models.Chunk{
				FileName:   fileName,
				PageIndex:  pageIndex,
				ChunkIndex: chunkIndex,
				Text:       piece,
			})
		}
	}

	log.Info().Str("file_name", fileName).Int("chunks", len(chunks)).Msg("Created chunks")
	return chunks, nil
}
