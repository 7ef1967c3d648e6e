package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matsen/findpapers/internal/paper"
)

// RayyanHeader is the column layout Rayyan imports.
var RayyanHeader = []string{
	"key", "title", "authors", "databases", "journal", "issn", "day", "month", "year",
	"volume", "issue", "pages", "publisher", "pmc_id", "pubmed_id", "url", "abstract", "notes",
}

// WriteRayyan writes papers as a Rayyan-compatible CSV. Keys start at 1;
// list fields are joined with ", ". An empty collection writes nothing and
// returns ErrEmpty.
func WriteRayyan(w io.Writer, papers []paper.Paper) error {
	if len(papers) == 0 {
		return ErrEmpty
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(RayyanHeader); err != nil {
		return err
	}
	for i, p := range papers {
		var journal, issn, publisher string
		if p.Publication != nil {
			journal, issn, publisher = p.Publication.Title, p.Publication.ISSN, p.Publication.Publisher
		}
		d := paper.NewPublicationDate(p.PublicationDate.Year, p.PublicationDate.Month, p.PublicationDate.Day)
		notes := ""
		if p.DOI != "" {
			notes = "doi: " + p.DOI
		}
		row := []string{
			strconv.Itoa(i + 1),
			p.Title,
			strings.Join(p.Authors, ", "),
			strings.Join(p.Databases, ", "),
			journal,
			issn,
			strconv.Itoa(d.Day),
			strconv.Itoa(d.Month),
			strconv.Itoa(d.Year),
			"", // volume
			"", // issue
			p.Pages,
			publisher,
			p.PMCID,
			p.PMID,
			strings.Join(p.URLs, ", "),
			p.Abstract,
			notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
