package parser

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
	title  string
}

func openPDF(filePath string) (*pdfDocument, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	return &pdfDocument{
		file:   f,
		reader: reader,
		title:  reader.Trailer().Key("Info").Key("Title").Text(),
	}, nil
}

func (d *pdfDocument) Title() string { return d.title }

func (d *pdfDocument) NumPage() int { return d.reader.NumPage() }

func (d *pdfDocument) PageText(i int) (text string, err error) {
	if i < 0 || i >= d.reader.NumPage() {
		return "", fmt.Errorf("%w: %d", ErrPageOutOfRange, i)
	}
	page := d.reader.Page(i + 1)
	if page.V.IsNull() {
		return "", nil
	}

	// the content stream interpreter panics on some malformed pages
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extract page %d: %v", i, r)
		}
	}()
	return page.GetPlainText(nil)
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}
