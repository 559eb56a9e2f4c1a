package parser

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// DOCX has no stable page boundaries, so the whole body is one page.
func openDOCX(filePath string) (*pages, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	text, err := extractTextFromXML(r.Editable().GetContent())
	if err != nil {
		return nil, fmt.Errorf("read docx body: %w", err)
	}
	return &pages{texts: []string{text}}, nil
}

// openPPTX treats each slide as a page, in slide number order.
func openPPTX(filePath string) (*pages, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range f.File {
		dir, name := path.Split(file.Name)
		if dir != "ppt/slides/" || !strings.HasPrefix(name, "slide") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "slide"), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: num, file: file})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	doc := &pages{texts: make([]string, 0, len(slides))}
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		text, err := extractTextFromXML(string(data))
		if err != nil {
			return nil, fmt.Errorf("read slide %d: %w", s.num, err)
		}
		doc.texts = append(doc.texts, text)
	}
	return doc, nil
}

// openXLSX treats each sheet as a page: one line per row, tab separated cells.
func openXLSX(filePath string) (*pages, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc := &pages{}
	if props, err := f.GetDocProps(); err == nil {
		doc.title = props.Title
	}

	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
		}
		var text strings.Builder
		text.WriteString("Sheet: " + sheetName + "\n")
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
		doc.texts = append(doc.texts, text.String())
	}
	return doc, nil
}

// extractTextFromXML collects the character data of <t> runs in WordprocessingML
// and DrawingML, ending a line at every paragraph.
func extractTextFromXML(content string) (string, error) {
	var (
		text   strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(strings.NewReader(content))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				text.WriteByte('\t')
			case "br":
				text.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return text.String(), nil
}
