package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/source/scopus"
)

// Constants for output formatting.
const (
	DefaultQueryLimit = 50 // Default limit for index queries

	ListTitleMaxLen   = 70 // Used in paper listings
	DetailTitleMaxLen = 90 // Used in single-paper views
	TextWrapWidth     = 68
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...any) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// printPapersHuman prints a numbered paper listing.
func printPapersHuman(papers []paper.Paper) {
	for i, p := range papers {
		fmt.Printf("%d. %s\n", i+1, truncateString(p.Title, ListTitleMaxLen))
		fmt.Printf("   %s (%d)", formatAuthorsShort(p.Authors, 3), p.Year())
		if p.DOI != "" {
			fmt.Printf("  doi:%s", p.DOI)
		}
		fmt.Printf("\n   [%s]\n\n", strings.Join(p.Databases, ", "))
	}
}

// printPaperHuman prints one paper in detail.
func printPaperHuman(p paper.Paper) {
	fmt.Println(truncateString(p.Title, DetailTitleMaxLen))
	fmt.Printf("  %s\n", wrapText(strings.Join(p.Authors, ", "), TextWrapWidth, "  "))
	fmt.Printf("  %s", p.PublicationDate)
	if p.Publication != nil {
		fmt.Printf("  %s", p.Publication.Title)
	}
	fmt.Println()
	if p.DOI != "" {
		fmt.Printf("  doi: %s\n", p.DOI)
	}
	if p.Citations != nil {
		fmt.Printf("  citations: %d\n", *p.Citations)
	}
	if m := venueMetrics(p); m != "" {
		fmt.Printf("  venue: %s\n", m)
	}
	fmt.Printf("  databases: %s\n", strings.Join(p.Databases, ", "))
	if p.Abstract != "" {
		fmt.Printf("\n  %s\n", wrapText(p.Abstract, TextWrapWidth, "  "))
	}
}

// venueMetrics renders the Scopus scores of a paper's venue, or "".
func venueMetrics(p paper.Paper) string {
	if p.Publication == nil {
		return ""
	}
	b, ok := p.Publication.BibliometricsFor(scopus.Label)
	if !ok {
		return ""
	}
	var parts []string
	for _, s := range []struct{ key, name string }{
		{paper.ScoreCiteScore, "CiteScore"},
		{paper.ScoreSJR, "SJR"},
		{paper.ScoreSNIP, "SNIP"},
	} {
		if v, ok := b.Scores[s.key]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", s.name, strconv.FormatFloat(v, 'f', -1, 64)))
		}
	}
	return strings.Join(parts, ", ")
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	words := strings.Fields(text)
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}

// formatAuthorsShort lists at most n authors, then "et al.".
func formatAuthorsShort(authors []string, n int) string {
	if len(authors) == 0 {
		return "(no authors)"
	}
	if len(authors) <= n {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:n], ", ") + " et al."
}
