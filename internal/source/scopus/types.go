package scopus

import (
	"strings"

	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/source"
)

type searchResponse struct {
	Results struct {
		TotalResults source.FlexibleString `json:"opensearch:totalResults"`
		StartIndex   source.FlexibleString `json:"opensearch:startIndex"`
		Entries      []entry               `json:"entry"`
	} `json:"search-results"`
}

type link struct {
	Ref  string `json:"@ref"`
	Href string `json:"@href"`
}

type entry struct {
	Error           string                `json:"error"`
	Identifier      string                `json:"dc:identifier"`
	Title           string                `json:"dc:title"`
	Description     string                `json:"dc:description"`
	Creator         string                `json:"dc:creator"`
	CoverDate       string                `json:"prism:coverDate"`
	DOI             string                `json:"prism:doi"`
	CitedBy         source.FlexibleString `json:"citedby-count"`
	PublicationName string                `json:"prism:publicationName"`
	ISBN            source.StringOrList   `json:"prism:isbn"`
	ISSN            source.StringOrList   `json:"prism:issn"`
	EISSN           source.StringOrList   `json:"prism:eIssn"`
	AggregationType string                `json:"prism:aggregationType"`
	PageRange       string                `json:"prism:pageRange"`
	AuthKeywords    string                `json:"authkeywords"`
	Links           []link                `json:"link"`
	Authors         []struct {
		Name string `json:"authname"`
	} `json:"author"`
}

func (e entry) toPaper() (paper.Paper, error) {
	id := strings.TrimPrefix(e.Identifier, "SCOPUS_ID:")
	title := source.StripMarkup(e.Title)
	if title == "" {
		return paper.Paper{}, source.Malformed(Label, id, "title", "missing required field")
	}
	date, err := paper.ParsePublicationDate(e.CoverDate)
	if err != nil {
		return paper.Paper{}, source.Malformed(Label, id, "publication_date", err.Error())
	}

	p := paper.Paper{
		DOI:             e.DOI,
		Title:           title,
		Abstract:        source.StripMarkup(e.Description),
		PublicationDate: date,
		Pages:           e.PageRange,
	}
	if n, ok := e.CitedBy.Int(); ok {
		p.SetCitations(n)
	}
	for _, au := range e.Authors {
		p.AddAuthors(au.Name)
	}
	if len(p.Authors) == 0 {
		p.AddAuthors(e.Creator)
	}
	if e.AuthKeywords != "" {
		p.AddKeywords(strings.Split(e.AuthKeywords, "|")...)
	}
	for _, l := range e.Links {
		if l.Ref == "scopus" {
			p.AddURLs(l.Href)
		}
	}

	if name := strings.TrimSpace(e.PublicationName); name != "" {
		issn := e.ISSN.First()
		if issn == "" {
			issn = e.EISSN.First()
		}
		p.Publication = &paper.Publication{
			Title:    name,
			ISBN:     e.ISBN.First(),
			ISSN:     issn,
			Category: paper.ParseCategory(e.AggregationType),
		}
	}
	p.AddDatabase(Label)
	return p, nil
}
