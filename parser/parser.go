// Package parser reads paginated manuals, locates the troubleshooting
// sections in them, and extracts the text of page ranges.
package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrPageRange is returned for a page range that starts before page 1 or
// ends before it starts.
var ErrPageRange = errors.New("parser: invalid page range")

// SectionRef is one located section with an inclusive, 1-based page range.
type SectionRef struct {
	Title     string `json:"title"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

// Document is a paginated source document.
type Document interface {
	NumPages() int
	// PageText returns the plain text of a 1-based page.
	PageText(page int) (string, error)
	// Outline returns bookmark titles in document order, if any.
	Outline() []string
	Close() error
}

// Locate returns the sections of doc whose titles satisfy match, ordered by
// start page. Outline titles are preferred; when none of them can be found
// in the page text, headings are detected from the text itself.
func Locate(ctx context.Context, doc Document, match func(title string) bool) ([]SectionRef, error) {
	pages := make([]string, doc.NumPages())
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.PageText(i + 1)
		if err != nil {
			slog.Warn("parser: skipping unreadable page", "page", i+1, "error", err)
			continue
		}
		pages[i] = text
	}
	return locateSections(pages, doc.Outline(), match), nil
}

// ExtractText concatenates the text of pages start..end inclusive. Pages
// past the end of the document are ignored and unreadable pages are skipped.
func ExtractText(ctx context.Context, doc Document, start, end int) (string, error) {
	if start < 1 || end < start {
		return "", fmt.Errorf("%w: %d-%d", ErrPageRange, start, end)
	}
	end = min(end, doc.NumPages())

	var b strings.Builder
	for p := start; p <= end; p++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := doc.PageText(p)
		if err != nil {
			slog.Warn("parser: skipping unreadable page", "page", p, "error", err)
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}
