package index

import (
	"fmt"

	"document-index/internal/models"

	"github.com/rs/zerolog/log"
)

// BuildIndex adds every embedding to a new FlatIP in input order and writes it
// to indexPath. Dimensions are checked before anything touches the disk.
func BuildIndex(embedded []models.EmbeddedChunk, indexPath string) (*FlatIP, error) {
	if len(embedded) == 0 {
		return nil, fmt.Errorf("%w: no embedded chunks to index", ErrInvalidArgument)
	}

	dim := len(embedded[0].Embedding)
	if dim == 0 {
		return nil, fmt.Errorf("%w: row 0 has an empty embedding", ErrDimensionMismatch)
	}
	rows := make([][]float32, len(embedded))
	for i, ec := range embedded {
		if len(ec.Embedding) != dim {
			return nil, fmt.Errorf("%w: row %d (%s page %d chunk %d) has %d values, expected %d",
				ErrDimensionMismatch, i, ec.FileName, ec.PageIndex, ec.ChunkIndex, len(ec.Embedding), dim)
		}
		rows[i] = ec.Embedding
	}

	idx, err := NewFlatIP(dim)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(rows); err != nil {
		return nil, err
	}
	if err := idx.Write(indexPath); err != nil {
		return nil, err
	}

	log.Info().
		Str("path", indexPath).
		Int("rows", idx.NTotal()).
		Int("dimension", dim).
		Msgf("Index saved to %s", indexPath)
	return idx, nil
}
