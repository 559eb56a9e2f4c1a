package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"document-index/internal/config"
	"document-index/internal/models"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrPageOutOfRange    = errors.New("page index out of range")
)

// Document is a paged source of raw text.
type Document interface {
	// Title returns the document title metadata, or "" when absent.
	Title() string
	NumPage() int
	// PageText returns the raw text of the page at the 0-based index i.
	PageText(i int) (string, error)
	Close() error
}

type ParserConfig struct {
	Config *config.Config
}

// Open picks a loader by file extension.
func Open(filePath string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return openPDF(filePath)
	case ".docx":
		return openDOCX(filePath)
	case ".pptx":
		return openPPTX(filePath)
	case ".xlsx", ".xlsm":
		return openXLSX(filePath)
	case ".md", ".markdown":
		return openMarkdown(filePath)
	case ".txt":
		return openText(filePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// ParseToChunks opens the document at filePath and chunks every page.
func ParseToChunks(filePath string, cfg *config.Config) ([]models.Chunk, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	p := ParserConfig{Config: cfg}

	doc, err := Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer doc.Close()

	log.Debug().
		Str("file", filePath).
		Str("title", doc.Title()).
		Int("pages", doc.NumPage()).
		Msg("Opened document")

	return p.CreateChunks(doc)
}

// pages is an in-memory Document shared by the loaders that read the whole
// file up front.
type pages struct {
	title string
	texts []string
}

func (p *pages) Title() string { return p.title }

func (p *pages) NumPage() int { return len(p.texts) }

func (p *pages) PageText(i int) (string, error) {
	if i < 0 || i >= len(p.texts) {
		return "", fmt.Errorf("%w: %d", ErrPageOutOfRange, i)
	}
	return p.texts[i], nil
}

func (p *pages) Close() error { return nil }
