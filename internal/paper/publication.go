package paper

import (
	"sort"
	"strings"
)

// Category classifies a publication venue.
type Category string

const (
	CategoryJournal    Category = "Journal"
	CategoryConference Category = "Conference Proceedings"
	CategoryBook       Category = "Book"
	CategoryPreprint   Category = "Preprint"
	CategoryOther      Category = "Other"
)

// Categories lists the valid categories in display order.
var Categories = []Category{CategoryJournal, CategoryConference, CategoryBook, CategoryPreprint, CategoryOther}

// ParseCategory maps provider vocabulary (CrossRef work types, Scopus
// aggregation types, user input) onto a Category. Empty input yields "".
func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "journal"):
		return CategoryJournal
	case strings.Contains(s, "conference"), strings.Contains(s, "proceeding"):
		return CategoryConference
	case strings.Contains(s, "book"), strings.Contains(s, "monograph"):
		return CategoryBook
	case strings.Contains(s, "preprint"), strings.Contains(s, "posted-content"), strings.Contains(s, "posted content"):
		return CategoryPreprint
	default:
		return CategoryOther
	}
}

// Bibliometrics holds impact metrics for a venue from one metric source,
// e.g. Source "Scopus" with scores cite_score, sjr and snip.
type Bibliometrics struct {
	Source string             `json:"source"`
	Scores map[string]float64 `json:"scores,omitempty"`
}

// Score names used by the Scopus serial title API.
const (
	ScoreCiteScore = "cite_score"
	ScoreSJR       = "sjr"
	ScoreSNIP      = "snip"
)

// Publication represents a journal, proceedings, book or preprint venue.
type Publication struct {
	Title         string          `json:"title"`
	ISBN          string          `json:"isbn,omitempty"`
	ISSN          string          `json:"issn,omitempty"`
	Publisher     string          `json:"publisher,omitempty"`
	Category      Category        `json:"category,omitempty"`
	SubjectAreas  []string        `json:"subject_areas,omitempty"`
	Bibliometrics []Bibliometrics `json:"bibliometrics,omitempty"`
}

// AddSubjectAreas adds subject area tags, ignoring duplicates.
func (p *Publication) AddSubjectAreas(areas ...string) {
	p.SubjectAreas = AddToSet(p.SubjectAreas, areas...)
}

// BibliometricsFor returns the record for a metric source, if present.
func (p *Publication) BibliometricsFor(source string) (Bibliometrics, bool) {
	for _, b := range p.Bibliometrics {
		if strings.EqualFold(b.Source, source) {
			return b, true
		}
	}
	return Bibliometrics{}, false
}

// AddBibliometrics attaches b unless a record for the same source exists;
// scores missing from the existing record are filled in from b.
// Reports whether anything changed.
func (p *Publication) AddBibliometrics(b Bibliometrics) bool {
	if strings.TrimSpace(b.Source) == "" {
		return false
	}
	for i := range p.Bibliometrics {
		existing := &p.Bibliometrics[i]
		if !strings.EqualFold(existing.Source, b.Source) {
			continue
		}
		changed := false
		for name, v := range b.Scores {
			if _, ok := existing.Scores[name]; ok {
				continue
			}
			if existing.Scores == nil {
				existing.Scores = make(map[string]float64)
			}
			existing.Scores[name] = v
			changed = true
		}
		return changed
	}
	p.Bibliometrics = append(p.Bibliometrics, cloneBibliometrics(b))
	sort.SliceStable(p.Bibliometrics, func(i, j int) bool {
		return p.Bibliometrics[i].Source < p.Bibliometrics[j].Source
	})
	return true
}

// Clone returns a deep copy.
func (p Publication) Clone() Publication {
	c := p
	c.SubjectAreas = cloneStrings(p.SubjectAreas)
	if p.Bibliometrics != nil {
		c.Bibliometrics = make([]Bibliometrics, len(p.Bibliometrics))
		for i, b := range p.Bibliometrics {
			c.Bibliometrics[i] = cloneBibliometrics(b)
		}
	}
	return c
}

func cloneBibliometrics(b Bibliometrics) Bibliometrics {
	c := Bibliometrics{Source: b.Source}
	if b.Scores != nil {
		c.Scores = make(map[string]float64, len(b.Scores))
		for k, v := range b.Scores {
			c.Scores[k] = v
		}
	}
	return c
}
