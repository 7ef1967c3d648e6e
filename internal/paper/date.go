package paper

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PublicationDate is a calendar date. Partial source dates are completed to
// the first month or first day, never stored as invalid combinations.
type PublicationDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// NewPublicationDate builds a valid date from possibly partial parts.
// An out-of-range month resets the date to the first day of the year; a day
// that does not exist in the month resets it to the first of the month.
func NewPublicationDate(year, month, day int) PublicationDate {
	if month < 1 || month > 12 {
		return PublicationDate{Year: year, Month: 1, Day: 1}
	}
	if day < 1 || day > daysIn(year, month) {
		day = 1
	}
	return PublicationDate{Year: year, Month: month, Day: day}
}

// DateOf converts a time to a PublicationDate.
func DateOf(t time.Time) PublicationDate {
	return PublicationDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsZero reports whether no year is known.
func (d PublicationDate) IsZero() bool {
	return d.Year == 0
}

// Time returns the date at midnight UTC.
func (d PublicationDate) Time() time.Time {
	n := NewPublicationDate(d.Year, d.Month, d.Day)
	return time.Date(n.Year, time.Month(n.Month), n.Day, 0, 0, 0, 0, time.UTC)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after other.
func (d PublicationDate) Compare(other PublicationDate) int {
	return d.Time().Compare(other.Time())
}

// String formats the date as YYYY-MM-DD.
func (d PublicationDate) String() string {
	n := NewPublicationDate(d.Year, d.Month, d.Day)
	return fmt.Sprintf("%04d-%02d-%02d", n.Year, n.Month, n.Day)
}

// ParsePublicationDate parses "YYYY", "YYYY-MM", "YYYY-MM-DD" and the same
// forms separated by '/'. Month may also be an English month name or
// abbreviation ("Mar", "March"). Invalid month/day parts are corrected
// rather than reported; only a missing or non-numeric year is an error.
func ParsePublicationDate(s string) (PublicationDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PublicationDate{}, fmt.Errorf("empty date")
	}
	// Drop any time component ("2020-05-01T00:00:00Z")
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '/' })
	if len(parts) == 0 {
		return PublicationDate{}, fmt.Errorf("invalid date: %q", s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil || year <= 0 {
		return PublicationDate{}, fmt.Errorf("invalid year in date %q", s)
	}

	month, day := 1, 1
	if len(parts) >= 2 {
		month = ParseMonth(parts[1])
	}
	if len(parts) >= 3 {
		if d, err := strconv.Atoi(parts[2]); err == nil {
			day = d
		}
	}
	return NewPublicationDate(year, month, day), nil
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ParseMonth converts "3", "03", "Mar" or "March" to 3. Unknown values
// return 0, which NewPublicationDate corrects to January.
func ParseMonth(s string) int {
	s = strings.TrimSpace(s)
	if m, err := strconv.Atoi(s); err == nil {
		return m
	}
	if len(s) >= 3 {
		return monthNames[strings.ToLower(s[:3])]
	}
	return 0
}
