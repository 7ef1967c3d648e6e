package identity

import (
	"strings"
	"unicode"

	"github.com/matsen/findpapers/internal/paper"
)

// ISSNKey normalizes an ISSN for comparison: hyphens and whitespace are
// removed and the check character is uppercased ("0028-0836" and
// "00280836" compare equal, as do "1234-567x" and "1234567X").
func ISSNKey(issn string) string {
	var b strings.Builder
	for _, r := range issn {
		if r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// SamePublication reports whether a and b are the same venue: they share a
// non-empty ISSN, or, when either lacks one, a normalized title.
func SamePublication(a, b paper.Publication) bool {
	ia, ib := ISSNKey(a.ISSN), ISSNKey(b.ISSN)
	if ia != "" && ib != "" {
		return ia == ib
	}
	ta := NormalizeTitle(a.Title)
	return ta != "" && ta == NormalizeTitle(b.Title)
}
