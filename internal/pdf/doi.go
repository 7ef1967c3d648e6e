// Package pdf extracts identifiers from local PDF files so they can seed a
// search.
package pdf

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/matsen/findpapers/internal/paper"
)

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// MaxScannedPages bounds how far into a document ExtractDOI looks.
const MaxScannedPages = 3

// ErrNoDOI is returned by Identify when a PDF carries no recognizable DOI.
var ErrNoDOI = errors.New("no DOI found")

// Seed is what a PDF tells us about the paper it contains.
type Seed struct {
	Path  string `json:"path"`
	DOI   string `json:"doi,omitempty"`
	Title string `json:"title,omitempty"` // Best-effort, only when DOI is empty
}

// Identify extracts a seed from a PDF. A document without a DOI yields its
// guessed title together with an error wrapping ErrNoDOI.
func Identify(filePath string) (Seed, error) {
	seed := Seed{Path: filePath}
	doi, err := ExtractDOI(filePath)
	if err != nil {
		return seed, fmt.Errorf("reading %s: %w", filePath, err)
	}
	if doi != "" {
		seed.DOI = doi
		return seed, nil
	}
	seed.Title, _ = ExtractTitle(filePath)
	return seed, fmt.Errorf("%s: %w", filePath, ErrNoDOI)
}

// ExtractDOI extracts a DOI from a PDF file.
// It searches the first few pages for DOI patterns.
func ExtractDOI(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	maxPages := min(r.NumPage(), MaxScannedPages)
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		if doi := findDOI(text); doi != "" {
			return doi, nil
		}
	}

	return "", nil // No DOI found (not an error)
}

// ExtractTitle attempts to extract the title from a PDF.
// This is a best-effort heuristic: the first substantial line of page one.
func ExtractTitle(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return "", nil
	}

	page := r.Page(1)
	if page.V.IsNull() {
		return "", nil
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", nil
	}
	return guessTitle(text), nil
}

func guessTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = paper.CollapseSpace(line)
		// Skip short lines, headers, etc.
		if len(line) > 20 && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

// findDOI finds a DOI in text.
func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		// Remove trailing punctuation
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return paper.CleanDOI(match)
		}
	}
	return ""
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 {
		return false
	}
	if !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	return slashIdx != -1 && slashIdx < len(doi)-1
}

// isHeaderLine checks if a line is likely a header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "copyright"), strings.Contains(lower, "preprint"):
		return true
	case strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	}
	return false
}
