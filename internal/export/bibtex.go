// Package export serializes a collection's papers to reference-manager
// formats: BibTeX, RIS and Rayyan CSV.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/matsen/findpapers/internal/author"
	"github.com/matsen/findpapers/internal/paper"
)

// ToBibTeX converts a paper to a BibTeX entry with the given citation key.
func ToBibTeX(p paper.Paper, key string) string {
	entryType := determineEntryType(p)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, key))

	// Authors
	if len(p.Authors) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(p.Authors)))
	}

	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(p.Title)))

	// Venue
	if p.Publication != nil && p.Publication.Title != "" {
		fieldName := "journal"
		switch entryType {
		case "inproceedings":
			fieldName = "booktitle"
		case "misc":
			fieldName = "howpublished"
		}
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", fieldName, escapeLatex(p.Publication.Title)))
		if p.Publication.Publisher != "" {
			b.WriteString(fmt.Sprintf("  publisher = {%s},\n", escapeLatex(p.Publication.Publisher)))
		}
		if p.Publication.ISSN != "" {
			b.WriteString(fmt.Sprintf("  issn = {%s},\n", p.Publication.ISSN))
		}
		if p.Publication.ISBN != "" {
			b.WriteString(fmt.Sprintf("  isbn = {%s},\n", p.Publication.ISBN))
		}
	}

	b.WriteString(fmt.Sprintf("  year = {%d},\n", p.PublicationDate.Year))
	if p.PublicationDate.Month > 0 {
		b.WriteString(fmt.Sprintf("  month = {%d},\n", p.PublicationDate.Month))
	}
	if p.Pages != "" {
		b.WriteString(fmt.Sprintf("  pages = {%s},\n", strings.ReplaceAll(p.Pages, "-", "--")))
	}
	if p.DOI != "" {
		b.WriteString(fmt.Sprintf("  doi = {%s},\n", p.DOI))
	}
	if p.ArXivID != "" {
		b.WriteString(fmt.Sprintf("  eprint = {%s},\n  archiveprefix = {arXiv},\n", p.ArXivID))
	}
	if len(p.URLs) > 0 {
		b.WriteString(fmt.Sprintf("  url = {%s},\n", p.URLs[0]))
	}
	if len(p.Keywords) > 0 {
		b.WriteString(fmt.Sprintf("  keywords = {%s},\n", escapeLatex(strings.Join(p.Keywords, ", "))))
	}
	if p.Abstract != "" {
		b.WriteString(fmt.Sprintf("  abstract = {%s},\n", escapeLatex(p.Abstract)))
	}

	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts papers to BibTeX, generating unique citation keys.
// Papers already present in skip (by DOI or key) are omitted; skip may be
// nil.
func ToBibTeXList(papers []paper.Paper, skip *BibTeXIndex) string {
	used := make(map[string]bool)
	if skip != nil {
		for k := range skip.Keys {
			used[k] = true
		}
	}
	var entries []string
	for _, p := range papers {
		base := CitationKey(p)
		if skip != nil && skip.HasEntry(base, p.DOI) {
			continue
		}
		key := base
		for i := 0; used[key]; i++ {
			key = base + keySuffix(i)
		}
		used[key] = true
		entries = append(entries, ToBibTeX(p, key))
	}
	return strings.Join(entries, "\n")
}

// CitationKey builds "<FirstAuthorLast><Year>-<firstTitleWord>", e.g.
// "Lovelace2021-graph". Non-ASCII letters and punctuation are dropped.
func CitationKey(p paper.Paper) string {
	last := "Anon"
	if len(p.Authors) > 0 {
		if l := keyPart(lastName(p.Authors[0])); l != "" {
			last = l
		}
	}
	word := ""
	for _, w := range strings.Fields(p.Title) {
		w = strings.ToLower(keyPart(w))
		if w != "" && !stopWords[w] {
			word = w
			break
		}
	}
	key := fmt.Sprintf("%s%d", last, p.PublicationDate.Year)
	if word != "" {
		key += "-" + word
	}
	return key
}

// keySuffix disambiguates colliding keys: a, b, ..., z, then 27, 28, ...
func keySuffix(i int) string {
	if i < 26 {
		return string(rune('a' + i))
	}
	return strconv.Itoa(i + 1)
}

var stopWords = map[string]bool{"a": true, "an": true, "the": true, "of": true, "on": true, "in": true, "for": true, "and": true}

func keyPart(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// lastName extracts the family name from "Last, First" or "First Last".
func lastName(name string) string {
	return author.Split(name).Last
}

// determineEntryType returns the BibTeX entry type for a paper.
func determineEntryType(p paper.Paper) string {
	if p.Publication == nil {
		return "misc"
	}
	switch p.Publication.Category {
	case paper.CategoryConference:
		return "inproceedings"
	case paper.CategoryBook:
		return "book"
	case paper.CategoryJournal, paper.CategoryPreprint:
		return "article"
	}

	venue := strings.ToLower(p.Publication.Title)
	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") {
		return "inproceedings"
	}
	return "article"
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First".
func formatAuthors(authors []string) string {
	formatted := make([]string, 0, len(authors))
	for _, a := range authors {
		formatted = append(formatted, escapeLatex(author.Split(a).LastFirst()))
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// Order matters: & must be first (before other escapes that might produce &)
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
