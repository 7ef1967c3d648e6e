// Package merge combines two records that resolved to the same identity.
//
// Precedence is decided per field, never record-wide:
//   - set fields are unioned (case- and whitespace-insensitive)
//   - scalars are filled when the existing value is empty, otherwise the
//     existing (first-seen) value is kept
//   - the citation count keeps the larger value
//   - publications of the same venue merge field by field; bibliometrics are
//     unioned by metric source
package merge

import (
	"github.com/matsen/findpapers/internal/identity"
	"github.com/matsen/findpapers/internal/paper"
)

// Field names reported in Changed, matching the JSON field names.
const (
	FieldDOI           = "doi"
	FieldAbstract      = "abstract"
	FieldAuthors       = "authors"
	FieldPublication   = "publication"
	FieldURLs          = "urls"
	FieldCitations     = "citations"
	FieldKeywords      = "keywords"
	FieldComments      = "comments"
	FieldNumberOfPages = "number_of_pages"
	FieldPages         = "pages"
	FieldReferences    = "references"
	FieldCites         = "cites"
	FieldDatabases     = "databases"
	FieldSelected      = "selected"
	FieldProcessedAt   = "processed_at"
	FieldPMID          = "pmid"
	FieldPMCID         = "pmcid"
	FieldArXivID       = "arxiv_id"
)

// Papers merges incoming into existing and returns the merged record along
// with the names of the fields that changed. Neither argument is modified.
// Merging a record with an identical copy of itself changes nothing.
func Papers(existing, incoming paper.Paper) (paper.Paper, []string) {
	merged := existing.Clone()
	var changed []string

	fill := func(name string, target *string, value string) {
		if *target == "" && value != "" {
			*target = value
			changed = append(changed, name)
		}
	}
	union := func(name string, target *[]string, add func(...string), values []string) {
		before := len(*target)
		add(values...)
		if len(*target) != before {
			changed = append(changed, name)
		}
	}

	// Title and publication date are mandatory on both sides; the first
	// source's framing is kept.
	fill(FieldDOI, &merged.DOI, paper.CleanDOI(incoming.DOI))
	fill(FieldAbstract, &merged.Abstract, incoming.Abstract)
	union(FieldAuthors, &merged.Authors, merged.AddAuthors, incoming.Authors)

	if pub, pubChanged := Publications(merged.Publication, incoming.Publication); pubChanged {
		merged.Publication = pub
		changed = append(changed, FieldPublication)
	}

	union(FieldURLs, &merged.URLs, merged.AddURLs, incoming.URLs)

	if incoming.Citations != nil && (merged.Citations == nil || *incoming.Citations > *merged.Citations) {
		merged.SetCitations(*incoming.Citations)
		changed = append(changed, FieldCitations)
	}

	union(FieldKeywords, &merged.Keywords, merged.AddKeywords, incoming.Keywords)
	fill(FieldComments, &merged.Comments, incoming.Comments)

	if merged.NumberOfPages == nil && incoming.NumberOfPages != nil {
		n := *incoming.NumberOfPages
		merged.NumberOfPages = &n
		changed = append(changed, FieldNumberOfPages)
	}
	fill(FieldPages, &merged.Pages, incoming.Pages)

	union(FieldReferences, &merged.References, merged.AddReferences, incoming.References)
	union(FieldCites, &merged.Cites, merged.AddCites, incoming.Cites)
	union(FieldDatabases, &merged.Databases, func(labels ...string) {
		for _, l := range labels {
			merged.AddDatabase(l)
		}
	}, incoming.Databases)

	if merged.Selected == nil && incoming.Selected != nil {
		s := *incoming.Selected
		merged.Selected = &s
		changed = append(changed, FieldSelected)
	}
	if merged.ProcessedAt.IsZero() && !incoming.ProcessedAt.IsZero() {
		merged.ProcessedAt = incoming.ProcessedAt
		changed = append(changed, FieldProcessedAt)
	}

	fill(FieldPMID, &merged.PMID, incoming.PMID)
	fill(FieldPMCID, &merged.PMCID, incoming.PMCID)
	fill(FieldArXivID, &merged.ArXivID, incoming.ArXivID)

	return merged, changed
}

// Publications merges incoming venue data into existing and reports whether
// the result differs from existing. A nil existing publication takes a copy
// of incoming. When both are present but denote different venues the
// existing one is kept untouched, so fields of two venues are never mixed.
func Publications(existing, incoming *paper.Publication) (*paper.Publication, bool) {
	if incoming == nil {
		return existing, false
	}
	if existing == nil {
		c := incoming.Clone()
		return &c, true
	}
	if !identity.SamePublication(*existing, *incoming) {
		return existing, false
	}

	merged := existing.Clone()
	changed := false
	fill := func(target *string, value string) {
		if *target == "" && value != "" {
			*target = value
			changed = true
		}
	}

	fill(&merged.ISBN, incoming.ISBN)
	fill(&merged.ISSN, incoming.ISSN)
	fill(&merged.Publisher, incoming.Publisher)
	if merged.Category == "" && incoming.Category != "" {
		merged.Category = incoming.Category
		changed = true
	}

	before := len(merged.SubjectAreas)
	merged.AddSubjectAreas(incoming.SubjectAreas...)
	if len(merged.SubjectAreas) != before {
		changed = true
	}

	for _, b := range incoming.Bibliometrics {
		if merged.AddBibliometrics(b) {
			changed = true
		}
	}

	if !changed {
		return existing, false
	}
	return &merged, true
}
