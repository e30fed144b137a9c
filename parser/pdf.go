package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFDocument is a PDF opened for page-wise text extraction. Page text is
// cached after the first read.
type PDFDocument struct {
	f     *os.File
	r     *pdf.Reader
	cache map[int]string
}

// OpenPDF opens the PDF at path.
func OpenPDF(path string) (*PDFDocument, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	return &PDFDocument{f: f, r: reader, cache: make(map[int]string)}, nil
}

func (d *PDFDocument) NumPages() int { return d.r.NumPage() }

func (d *PDFDocument) PageText(page int) (string, error) {
	if page < 1 || page > d.NumPages() {
		return "", fmt.Errorf("%w: page %d of %d", ErrPageRange, page, d.NumPages())
	}
	if text, ok := d.cache[page]; ok {
		return text, nil
	}

	p := d.r.Page(page)
	if p.V.IsNull() {
		d.cache[page] = ""
		return "", nil
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extracting page %d: %w", page, err)
	}
	d.cache[page] = text
	return text, nil
}

// Outline flattens the bookmark tree depth-first.
func (d *PDFDocument) Outline() []string {
	var titles []string
	var walk func(o pdf.Outline)
	walk = func(o pdf.Outline) {
		if t := strings.TrimSpace(o.Title); t != "" {
			titles = append(titles, t)
		}
		for _, c := range o.Child {
			walk(c)
		}
	}
	walk(d.r.Outline())
	return titles
}

func (d *PDFDocument) Close() error { return d.f.Close() }
