// Package docx writes Word (.docx) documents made of plain-text paragraphs,
// and reads their paragraphs back.
package docx

import (
	"fmt"
	"strings"

	"github.com/gomutex/godocx"
)

// ContentType is the MIME type of a .docx file.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Document is an in-memory list of plain-text paragraphs.
type Document struct {
	paragraphs []string
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// AddParagraph appends a paragraph. Newlines become line breaks inside the
// paragraph.
func (d *Document) AddParagraph(text string) {
	d.paragraphs = append(d.paragraphs, text)
}

// Paragraphs returns the paragraph texts in order.
func (d *Document) Paragraphs() []string {
	return append([]string(nil), d.paragraphs...)
}

// Save writes the document to path, replacing any existing file.
func (d *Document) Save(path string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("new document: %w", err)
	}
	for _, text := range d.paragraphs {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		lines := strings.Split(text, "\n")

		p := doc.AddParagraph("")
		for i, line := range lines {
			run := p.AddText(line)
			if i < len(lines)-1 {
				run.AddBreak(nil)
			}
		}
	}
	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
