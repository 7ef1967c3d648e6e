// Package identity decides whether two paper or venue records denote the
// same real-world entity.
//
// A paper's strongest key is its DOI, compared case-insensitively. Papers
// without a DOI fall back to a (normalized title, publication year) key.
// Venues are identified by ISSN, or by normalized title when no ISSN is known.
package identity

import (
	"strconv"
	"strings"

	"github.com/matsen/findpapers/internal/paper"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MatchKind classifies the outcome of Resolve.
type MatchKind int

const (
	NoMatch MatchKind = iota
	MatchByDOI
	MatchByTitleYear
)

func (k MatchKind) String() string {
	switch k {
	case MatchByDOI:
		return "doi"
	case MatchByTitleYear:
		return "title_year"
	default:
		return "none"
	}
}

// Match is the result of resolving a candidate against the collection.
type Match struct {
	Kind MatchKind
	// Key is the index key under which the existing record is stored.
	Key string
	// Primary is true when the existing record lives in the DOI index.
	Primary bool
}

// Lookup is the read side of the aggregate's indices. The DOI index and
// the title-year index are disjoint; TitleYearAlias maps the title-year key
// of a DOI-bearing record to its DOI key so that a DOI-less duplicate
// arriving later still finds it.
type Lookup interface {
	HasDOI(doiKey string) bool
	HasTitleYear(titleYearKey string) bool
	TitleYearAlias(titleYearKey string) (doiKey string, ok bool)
}

// Resolve finds the existing record that candidate p should merge into.
//
// A DOI hit always wins, even when titles disagree. A DOI-bearing candidate
// that misses the DOI index may still match a DOI-less record by title and
// year; the caller then migrates that record into the DOI index. It never
// matches a record carrying a different DOI.
func Resolve(p paper.Paper, idx Lookup) Match {
	doiKey := DOIKey(p.DOI)
	tyKey := TitleYearKey(p.Title, p.Year())

	if doiKey != "" {
		if idx.HasDOI(doiKey) {
			return Match{Kind: MatchByDOI, Key: doiKey, Primary: true}
		}
		if tyKey != "" && idx.HasTitleYear(tyKey) {
			return Match{Kind: MatchByTitleYear, Key: tyKey}
		}
		return Match{Kind: NoMatch}
	}

	if tyKey == "" {
		return Match{Kind: NoMatch}
	}
	if idx.HasTitleYear(tyKey) {
		return Match{Kind: MatchByTitleYear, Key: tyKey}
	}
	if alias, ok := idx.TitleYearAlias(tyKey); ok {
		return Match{Kind: MatchByTitleYear, Key: alias, Primary: true}
	}
	return Match{Kind: NoMatch}
}

// DOIKey returns the comparison key for a DOI: resolver prefixes stripped,
// trimmed and lowercased. Returns "" for an empty DOI.
func DOIKey(doi string) string {
	return strings.ToLower(paper.CleanDOI(doi))
}

// NormalizeTitle folds case, applies NFKC and collapses whitespace so that
// titles differing only in those respects compare equal.
func NormalizeTitle(title string) string {
	title = norm.NFKC.String(title)
	title = cases.Fold().String(title)
	return paper.CollapseSpace(title)
}

// TitleYearKey returns the fallback identity key for a DOI-less paper, or ""
// if the title is empty or the year unknown.
func TitleYearKey(title string, year int) string {
	t := NormalizeTitle(title)
	if t == "" || year <= 0 {
		return ""
	}
	return t + "|" + strconv.Itoa(year)
}

// PaperKey returns the key under which p is indexed: its DOI key when it
// has one, otherwise its title-year key.
func PaperKey(p paper.Paper) (key string, primary bool) {
	if k := DOIKey(p.DOI); k != "" {
		return k, true
	}
	return TitleYearKey(p.Title, p.Year()), false
}
