package parser

import (
	"fmt"
	"os"
	"strings"
)

// TextDocument is a plain-text document whose pages are separated by form
// feeds, as produced by pdftotext.
type TextDocument struct {
	pages []string
}

// OpenText reads a plain-text document from path.
func OpenText(path string) (*TextDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}
	return NewTextDocument(string(data)), nil
}

// NewTextDocument splits content into form-feed separated pages. A trailing
// form feed does not start a new page.
func NewTextDocument(content string) *TextDocument {
	content = strings.TrimSuffix(content, "\f")
	if content == "" {
		return &TextDocument{}
	}
	return &TextDocument{pages: strings.Split(content, "\f")}
}

func (d *TextDocument) NumPages() int { return len(d.pages) }

func (d *TextDocument) PageText(page int) (string, error) {
	if page < 1 || page > len(d.pages) {
		return "", fmt.Errorf("%w: page %d of %d", ErrPageRange, page, len(d.pages))
	}
	return d.pages[page-1], nil
}

func (d *TextDocument) Outline() []string { return nil }

func (d *TextDocument) Close() error { return nil }
