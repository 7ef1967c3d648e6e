// Package paper defines the entity model shared by every source adapter,
// the identity resolver, the merge engine and the exporters.
package paper

import (
	"strings"
	"time"
)

// Paper represents one scholarly work as seen by one or more sources.
//
// Authors, URLs, Keywords, References, Cites and Databases have set
// semantics: order is irrelevant and duplicate insertion is a no-op. Use the
// Add* helpers rather than appending directly.
type Paper struct {
	// Identity
	DOI   string `json:"doi,omitempty"` // Strongest identity key, compared case-insensitively
	Title string `json:"title"`

	// Metadata
	Abstract        string          `json:"abstract,omitempty"`
	Authors         []string        `json:"authors"`
	Publication     *Publication    `json:"publication,omitempty"`
	PublicationDate PublicationDate `json:"publication_date"`
	URLs            []string        `json:"urls,omitempty"`
	Citations       *int            `json:"citations,omitempty"`
	Keywords        []string        `json:"keywords,omitempty"`
	Comments        string          `json:"comments,omitempty"`
	NumberOfPages   *int            `json:"number_of_pages,omitempty"`
	Pages           string          `json:"pages,omitempty"`

	// Citation graph, as DOIs
	References []string `json:"references,omitempty"` // Papers this one cites
	Cites      []string `json:"cites,omitempty"`      // Papers citing this one

	// Provenance and curation
	Databases   []string  `json:"databases"`
	Selected    *bool     `json:"selected,omitempty"`
	ProcessedAt time.Time `json:"processed_at,omitzero"`

	// External identifiers
	PMID    string `json:"pmid,omitempty"`
	PMCID   string `json:"pmcid,omitempty"`
	ArXivID string `json:"arxiv_id,omitempty"`
}

// AddAuthors adds author names, ignoring duplicates.
func (p *Paper) AddAuthors(names ...string) {
	p.Authors = AddToSet(p.Authors, names...)
}

// AddURLs adds access URLs, ignoring duplicates.
func (p *Paper) AddURLs(urls ...string) {
	p.URLs = AddToSet(p.URLs, urls...)
}

// AddKeywords adds keywords, ignoring duplicates.
func (p *Paper) AddKeywords(keywords ...string) {
	p.Keywords = AddToSet(p.Keywords, keywords...)
}

// AddDatabase records that a source contributed to this paper.
func (p *Paper) AddDatabase(label string) {
	p.Databases = AddToSet(p.Databases, label)
}

// HasDatabase reports whether label contributed to this paper.
func (p *Paper) HasDatabase(label string) bool {
	return SetContains(p.Databases, label)
}

// AddReferences records DOIs of papers this paper cites.
func (p *Paper) AddReferences(dois ...string) {
	p.References = AddDOIsToSet(p.References, dois...)
}

// AddCites records DOIs of papers citing this paper.
func (p *Paper) AddCites(dois ...string) {
	p.Cites = AddDOIsToSet(p.Cites, dois...)
}

// SetCitations sets the citation count.
func (p *Paper) SetCitations(n int) {
	p.Citations = &n
}

// CitationCount returns the citation count, or 0 if unknown.
func (p Paper) CitationCount() int {
	if p.Citations == nil {
		return 0
	}
	return *p.Citations
}

// Year returns the publication year.
func (p Paper) Year() int {
	return p.PublicationDate.Year
}

// Clone returns a deep copy so that stored records never share slices or
// pointers with values handed out to callers.
func (p Paper) Clone() Paper {
	c := p
	c.Authors = cloneStrings(p.Authors)
	c.URLs = cloneStrings(p.URLs)
	c.Keywords = cloneStrings(p.Keywords)
	c.References = cloneStrings(p.References)
	c.Cites = cloneStrings(p.Cites)
	c.Databases = cloneStrings(p.Databases)
	if p.Publication != nil {
		pub := p.Publication.Clone()
		c.Publication = &pub
	}
	if p.Citations != nil {
		n := *p.Citations
		c.Citations = &n
	}
	if p.NumberOfPages != nil {
		n := *p.NumberOfPages
		c.NumberOfPages = &n
	}
	if p.Selected != nil {
		s := *p.Selected
		c.Selected = &s
	}
	return c
}

// Validate normalizes the title and DOI in place and checks the mandatory
// fields. Every paper needs a title and a publication year, so a record
// always has at least a title/year identity key even without a DOI.
func (p *Paper) Validate() error {
	p.Title = CollapseSpace(p.Title)
	p.DOI = CleanDOI(p.DOI)
	p.Abstract = strings.TrimSpace(p.Abstract)

	if p.Title == "" {
		return &RecordError{Field: "title", Reason: "missing required field"}
	}
	if p.PublicationDate.Year <= 0 {
		return &RecordError{Field: "publication_date", Reason: "missing publication year"}
	}
	p.PublicationDate = NewPublicationDate(p.PublicationDate.Year, p.PublicationDate.Month, p.PublicationDate.Day)
	if p.Publication != nil {
		p.Publication.Title = CollapseSpace(p.Publication.Title)
		if p.Publication.Title == "" {
			// A venue without a title carries nothing we can identify or export.
			p.Publication = nil
		}
	}
	return nil
}

// CleanDOI strips resolver prefixes and surrounding whitespace from a DOI
// while preserving its case for display.
func CleanDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	lower := strings.ToLower(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi.org/", "doi:"} {
		if strings.HasPrefix(lower, prefix) {
			doi = strings.TrimSpace(doi[len(prefix):])
			break
		}
	}
	return doi
}

// CollapseSpace trims s and collapses internal whitespace runs to one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
