package export

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/matsen/findpapers/internal/paper"
)

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("no papers to export")

// Formats lists the supported export format names.
var Formats = []string{"bibtex", "ris", "rayyan"}

// Write serializes papers in the named format. accessed is used by formats
// that record an access date.
func Write(w io.Writer, format string, papers []paper.Paper, accessed time.Time) error {
	switch strings.ToLower(format) {
	case "bibtex", "bib":
		if len(papers) == 0 {
			return ErrEmpty
		}
		_, err := io.WriteString(w, ToBibTeXList(papers, nil))
		return err
	case "ris":
		if len(papers) == 0 {
			return ErrEmpty
		}
		return WriteRIS(w, papers, accessed)
	case "rayyan", "csv":
		return WriteRayyan(w, papers)
	default:
		return fmt.Errorf("unknown export format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// Selected returns the papers whose curation flag is true, keeping order.
func Selected(papers []paper.Paper) []paper.Paper {
	return slices.DeleteFunc(slices.Clone(papers), func(p paper.Paper) bool {
		return p.Selected == nil || !*p.Selected
	})
}
