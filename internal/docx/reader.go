package docx

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadParagraphs opens the .docx at path and returns the text of each body
// paragraph. Line breaks read back as "\n" and tabs as "\t".
func ReadParagraphs(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read DOCX as ZIP: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()
		return parseParagraphs(rc)
	}
	return nil, errors.New("document.xml not found in DOCX")
}

func parseParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		cur        *strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return paragraphs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				cur = &strings.Builder{}
			case "t":
				inText = true
			case "br", "cr":
				if cur != nil {
					cur.WriteByte('\n')
				}
			case "tab":
				if cur != nil {
					cur.WriteByte('\t')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if cur != nil {
					paragraphs = append(paragraphs, cur.String())
				}
				cur = nil
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && cur != nil {
				cur.Write(t)
			}
		}
	}
}
