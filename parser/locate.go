package parser

import (
	"sort"
	"strings"
	"unicode"
)

type sectionStart struct {
	title string
	page  int
}

// locateSections finds matching section headings in pages (index 0 is page
// 1). Each section ends on the page before the next one starts; the last
// section runs to the final page.
func locateSections(pages []string, outline []string, match func(string) bool) []SectionRef {
	seen := make(map[string]bool)
	var starts []sectionStart

	for _, title := range outline {
		title = collapseSpace(title)
		if title == "" || seen[title] || !match(title) {
			continue
		}
		if p := findHeadingPage(pages, title); p > 0 {
			starts = append(starts, sectionStart{title: title, page: p})
			seen[title] = true
		}
	}

	if len(starts) == 0 {
		for i, text := range pages {
			for _, line := range strings.Split(text, "\n") {
				line = collapseSpace(line)
				if line == "" || seen[line] || isTOCEntry(line) || !isLikelyHeading(line) || !match(line) {
					continue
				}
				starts = append(starts, sectionStart{title: line, page: i + 1})
				seen[line] = true
			}
		}
	}

	sort.SliceStable(starts, func(i, j int) bool { return starts[i].page < starts[j].page })

	refs := make([]SectionRef, len(starts))
	for i, s := range starts {
		end := len(pages)
		if i+1 < len(starts) {
			end = max(starts[i+1].page-1, s.page)
		}
		refs[i] = SectionRef{Title: s.title, StartPage: s.page, EndPage: end}
	}
	return refs
}

// findHeadingPage returns the first page with a line starting with title
// that is not a table-of-contents entry, or 0.
func findHeadingPage(pages []string, title string) int {
	for i, text := range pages {
		for _, line := range strings.Split(text, "\n") {
			line = collapseSpace(line)
			if len(line) < len(title) || !strings.EqualFold(line[:len(title)], title) {
				continue
			}
			if looksLikePageRef(line[len(title):]) {
				continue
			}
			return i + 1
		}
	}
	return 0
}

// looksLikePageRef reports whether rest is a dot leader and/or page number,
// as in "Troubleshooting ........ 42".
func looksLikePageRef(rest string) bool {
	rest = strings.TrimLeft(rest, " .\t…")
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isTOCEntry reports whether line ends in a page number after a dot leader.
func isTOCEntry(line string) bool {
	last := line[len(line)-1]
	return last >= '0' && last <= '9' && (strings.Contains(line, "..") || strings.Contains(line, "…"))
}

func isLikelyHeading(line string) bool {
	if len(line) < 3 || len(line) > 120 {
		return false
	}
	// All caps and short
	if len(line) < 100 && line == strings.ToUpper(line) && hasLetter(line) {
		return true
	}
	// Numbered section like "1.", "1.1", "7.3.1.2"
	if line[0] >= '0' && line[0] <= '9' && strings.Contains(line[:min(10, len(line))], ".") {
		return true
	}
	lower := strings.ToLower(line)
	for _, prefix := range []string{"section ", "chapter ", "appendix ", "part "} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	// Short title-cased line without closing punctuation.
	words := strings.Fields(line)
	first := []rune(line)[0]
	last := line[len(line)-1]
	return len(words) <= 8 && unicode.IsUpper(first) && !strings.ContainsRune(".:;,", rune(last))
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
