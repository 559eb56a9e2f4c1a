package index

import (
	"fmt"

	"document-index/internal/helper"
	"document-index/internal/models"
)

// Mapping ties every index row back to its chunk. It is stored next to the
// index as <index-file>.meta.json.
type Mapping struct {
	RunID     string              `json:"run_id"`
	Model     string              `json:"model"`
	Dimension int                 `json:"dimension"`
	Count     int                 `json:"count"`
	Rows      []models.MappingRow `json:"rows"`
}

func MappingPath(indexPath string) string {
	return indexPath + ".meta.json"
}

// NewMapping lists the chunks in index row order.
func NewMapping(runID, model string, embedded []models.EmbeddedChunk) *Mapping {
	m := &Mapping{
		RunID: runID,
		Model: model,
		Count: len(embedded),
		Rows:  make([]models.MappingRow, len(embedded)),
	}
	if len(embedded) > 0 {
		m.Dimension = len(embedded[0].Embedding)
	}
	for i, ec := range embedded {
		m.Rows[i] = models.MappingRow{Row: i, Chunk: ec.Chunk}
	}
	return m
}

// WriteMapping writes m next to the index at indexPath and returns the
// sidecar path.
func WriteMapping(indexPath string, m *Mapping) (string, error) {
	path := MappingPath(indexPath)
	if err := helper.WriteJSON(path, m); err != nil {
		return "", fmt.Errorf("write row mapping: %w", err)
	}
	return path, nil
}

// ReadMapping loads the sidecar written for the index at indexPath.
func ReadMapping(indexPath string) (*Mapping, error) {
	var m Mapping
	if err := helper.ReadJSON(MappingPath(indexPath), &m); err != nil {
		return nil, fmt.Errorf("read row mapping: %w", err)
	}
	if m.Count != len(m.Rows) {
		return nil, fmt.Errorf("%w: mapping lists %d rows, count is %d", ErrBadFormat, len(m.Rows), m.Count)
	}
	return &m, nil
}
