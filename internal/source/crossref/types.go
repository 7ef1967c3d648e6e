package crossref

import (
	"strings"

	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/source"
)

type searchResponse struct {
	Message struct {
		TotalResults int    `json:"total-results"`
		NextCursor   string `json:"next-cursor"`
		Items        []work `json:"items"`
	} `json:"message"`
}

type workResponse struct {
	Message work `json:"message"`
}

type dateParts struct {
	Parts [][]source.FlexibleString `json:"date-parts"`
}

// date returns the first complete-enough date, or ok=false.
func (d *dateParts) date() (paper.PublicationDate, bool) {
	if d == nil || len(d.Parts) == 0 || len(d.Parts[0]) == 0 {
		return paper.PublicationDate{}, false
	}
	parts := d.Parts[0]
	y, ok := parts[0].Int()
	if !ok || y <= 0 {
		return paper.PublicationDate{}, false
	}
	m, d2 := 1, 1
	if len(parts) > 1 {
		m, _ = parts[1].Int()
	}
	if len(parts) > 2 {
		d2, _ = parts[2].Int()
	}
	return paper.NewPublicationDate(y, m, d2), true
}

// work is a CrossRef work record as returned by /works and /works/{doi}.
type work struct {
	DOI            string   `json:"DOI"`
	Title          []string `json:"title"`
	Abstract       string   `json:"abstract"`
	ContainerTitle []string `json:"container-title"`
	ISSN           []string `json:"ISSN"`
	ISBN           []string `json:"ISBN"`
	Publisher      string   `json:"publisher"`
	Type           string   `json:"type"`
	URL            string   `json:"URL"`
	CitedBy        *int     `json:"is-referenced-by-count"`
	Subject        []string `json:"subject"`
	Page           string   `json:"page"`
	Author         []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
		Name   string `json:"name"`
	} `json:"author"`
	Published       *dateParts `json:"published"`
	PublishedPrint  *dateParts `json:"published-print"`
	PublishedOnline *dateParts `json:"published-online"`
	Issued          *dateParts `json:"issued"`
	Reference       []struct {
		DOI string `json:"DOI"`
	} `json:"reference"`
}

func (w work) toPaper() (paper.Paper, error) {
	title := ""
	if len(w.Title) > 0 {
		title = source.StripMarkup(w.Title[0])
	}
	if title == "" {
		return paper.Paper{}, source.Malformed(Label, w.DOI, "title", "missing required field")
	}

	var date paper.PublicationDate
	found := false
	for _, d := range []*dateParts{w.Published, w.PublishedPrint, w.PublishedOnline, w.Issued} {
		if date, found = d.date(); found {
			break
		}
	}
	if !found {
		return paper.Paper{}, source.Malformed(Label, w.DOI, "publication_date", "no usable date")
	}

	p := paper.Paper{
		DOI:             w.DOI,
		Title:           title,
		Abstract:        source.StripMarkup(w.Abstract),
		PublicationDate: date,
		Pages:           w.Page,
		Citations:       w.CitedBy,
	}
	for _, a := range w.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name == "" {
			name = a.Name
		}
		p.AddAuthors(name)
	}
	p.AddURLs(w.URL)
	for _, r := range w.Reference {
		p.AddReferences(r.DOI)
	}
	p.Publication = w.publication()
	p.AddDatabase(Label)
	return p, nil
}

func (w work) publication() *paper.Publication {
	if len(w.ContainerTitle) == 0 || strings.TrimSpace(w.ContainerTitle[0]) == "" {
		return nil
	}
	pub := &paper.Publication{
		Title:     w.ContainerTitle[0],
		Publisher: w.Publisher,
		Category:  paper.ParseCategory(w.Type),
	}
	if len(w.ISSN) > 0 {
		pub.ISSN = w.ISSN[0]
	}
	if len(w.ISBN) > 0 {
		pub.ISBN = w.ISBN[0]
	}
	pub.AddSubjectAreas(w.Subject...)
	return pub
}
