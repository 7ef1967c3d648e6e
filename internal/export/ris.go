package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/findpapers/internal/paper"
)

var risTypes = map[paper.Category]string{
	paper.CategoryJournal:    "JOUR",
	paper.CategoryBook:       "BOOK",
	paper.CategoryConference: "CONF",
	paper.CategoryPreprint:   "UNPB",
}

// WriteRIS writes papers as RIS records. accessed is recorded as the access
// date (Y2) of every record, normally the search's processing time.
func WriteRIS(w io.Writer, papers []paper.Paper, accessed time.Time) error {
	bw := bufio.NewWriter(w)
	for i, p := range papers {
		writeRISRecord(bw, i+1, p, accessed)
	}
	return bw.Flush()
}

func writeRISRecord(w *bufio.Writer, id int, p paper.Paper, accessed time.Time) {
	tag := func(name, value string) {
		value = strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
		if value != "" {
			fmt.Fprintf(w, "%s  - %s\n", name, value)
		}
	}

	ty := "JOUR"
	if p.Publication != nil {
		if t, ok := risTypes[p.Publication.Category]; ok {
			ty = t
		}
	}
	tag("TY", ty)
	tag("ID", strconv.Itoa(id))
	tag("TI", p.Title)
	for _, a := range p.Authors {
		tag("AU", a)
	}
	tag("PY", strconv.Itoa(p.PublicationDate.Year))
	d := paper.NewPublicationDate(p.PublicationDate.Year, p.PublicationDate.Month, p.PublicationDate.Day)
	tag("DA", fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day))
	if pub := p.Publication; pub != nil {
		tag("JO", pub.Title)
		tag("T2", pub.Title)
		tag("PB", pub.Publisher)
		tag("SN", pub.ISSN)
		if pub.ISSN == "" {
			tag("SN", pub.ISBN)
		}
		for _, area := range pub.SubjectAreas {
			tag("C2", area)
		}
	}
	tag("AB", p.Abstract)
	tag("DO", p.DOI)
	for _, k := range p.Keywords {
		tag("KW", k)
	}
	tag("N1", p.Comments)
	tag("SP", p.Pages)
	for _, u := range p.URLs {
		tag("UR", u)
	}
	for _, db := range p.Databases {
		tag("DB", db)
	}
	if p.Citations != nil {
		tag("C1", strconv.Itoa(*p.Citations))
	}
	if p.Selected != nil {
		tag("LB", strconv.FormatBool(*p.Selected))
		tag("RV", "true")
	}
	if !accessed.IsZero() {
		tag("Y2", accessed.UTC().Format("2006/01/02"))
	}
	w.WriteString("ER  - \n\n")
}
