// Package author splits display names into given and family parts and
// matches author filters against them.
package author

import (
	"strings"
)

// Name is a display name split into its parts. Providers deliver names as
// single strings, either "First Last" or "Last, First".
type Name struct {
	First string // Given name(s), may be empty
	Last  string // Family name
}

// Split parses a display name.
//
// Supported formats:
//   - "Yu"           → last="Yu" (single word = last name only)
//   - "Timothy Yu"   → first="Timothy", last="Yu" (space-separated = First Last)
//   - "Yu, Timothy"  → first="Timothy", last="Yu" (comma = Last, First)
//
// Names are trimmed and inner whitespace collapsed; case is preserved.
func Split(input string) Name {
	input = strings.Join(strings.Fields(input), " ")
	if input == "" {
		return Name{}
	}

	// Check for comma format: "Last, First"
	if idx := strings.Index(input, ","); idx > 0 {
		last := strings.TrimSpace(input[:idx])
		first := strings.TrimSpace(input[idx+1:])
		return Name{First: first, Last: last}
	}

	// Multiple words: last word is last name, rest is first name
	// e.g., "Timothy C Yu" → first="Timothy C", last="Yu"
	parts := strings.Fields(input)
	last := parts[len(parts)-1]
	first := strings.Join(parts[:len(parts)-1], " ")
	return Name{First: first, Last: last}
}

// LastFirst renders the name as "Last, First", or just "Last" when there
// is no given name.
func (n Name) LastFirst() string {
	if n.First == "" {
		return n.Last
	}
	return n.Last + ", " + n.First
}

// Query represents a parsed author filter.
type Query Name

// ParseQuery parses an author filter with the formats Split accepts.
func ParseQuery(input string) Query {
	return Query(Split(input))
}

// ParseQueries parses several filters, dropping empty ones.
func ParseQueries(inputs []string) []Query {
	var out []Query
	for _, in := range inputs {
		if q := ParseQuery(in); q.Last != "" {
			out = append(out, q)
		}
	}
	return out
}

// Matches checks if the query matches a display name.
//
// Matching rules:
//   - Last name: case-insensitive exact match (required)
//   - First name: case-insensitive prefix match (if query has first name)
//
// This enables "Tim Yu" to match "Timothy C Yu" while preventing
// "Yu" from matching "Yujia" (since "Yu" is not Yujia's last name).
func (q Query) Matches(name string) bool {
	a := Split(name)

	// Last name must match exactly (case-insensitive)
	if !strings.EqualFold(q.Last, a.Last) {
		return false
	}

	// If no first name in query, we're done
	if q.First == "" {
		return true
	}

	// First name uses prefix matching (case-insensitive)
	// "Tim" matches "Timothy", "Timothy C", etc.
	return strings.HasPrefix(
		strings.ToLower(a.First),
		strings.ToLower(q.First),
	)
}

// MatchesAny checks if the query matches any author in the list.
func (q Query) MatchesAny(authors []string) bool {
	for _, a := range authors {
		if q.Matches(a) {
			return true
		}
	}
	return false
}

// AllMatch checks if all queries match at least one author each.
// This implements AND logic for multiple author filters.
func AllMatch(queries []Query, authors []string) bool {
	for _, q := range queries {
		if !q.MatchesAny(authors) {
			return false
		}
	}
	return true
}
