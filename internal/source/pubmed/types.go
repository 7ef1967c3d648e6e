package pubmed

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/source"
)

type searchResult struct {
	XMLName   xml.Name  `xml:"eSearchResult"`
	Count     int       `xml:"Count"`
	IDs       []string  `xml:"IdList>Id"`
	ErrorList *struct{} `xml:"ErrorList"`
}

type articleSet struct {
	XMLName  xml.Name  `xml:"PubmedArticleSet"`
	Articles []article `xml:"PubmedArticle"`
}

// markup holds an element whose content may mix text with inline tags
// such as <i> or <sup>.
type markup struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}

func (m markup) text() string {
	return source.StripMarkup(m.Inner)
}

type ymd struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

// date converts an ArticleDate or PubDate element. MedlineDate values
// such as "1998 Dec-1999 Jan" contribute only their leading year.
func (d *ymd) date() (paper.PublicationDate, bool) {
	if d == nil {
		return paper.PublicationDate{}, false
	}
	year, err := strconv.Atoi(strings.TrimSpace(d.Year))
	if err != nil && len(strings.TrimSpace(d.MedlineDate)) >= 4 {
		year, err = strconv.Atoi(strings.TrimSpace(d.MedlineDate)[:4])
	}
	if err != nil || year <= 0 {
		return paper.PublicationDate{}, false
	}
	day, _ := strconv.Atoi(strings.TrimSpace(d.Day))
	return paper.NewPublicationDate(year, paper.ParseMonth(d.Month), day), true
}

type article struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Journal struct {
				ISSN    string `xml:"ISSN"`
				Title   string `xml:"Title"`
				PubDate *ymd   `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
			Title      markup   `xml:"ArticleTitle"`
			Pagination string   `xml:"Pagination>MedlinePgn"`
			Abstract   []markup `xml:"Abstract>AbstractText"`
			Authors    []struct {
				LastName       string `xml:"LastName"`
				ForeName       string `xml:"ForeName"`
				CollectiveName string `xml:"CollectiveName"`
			} `xml:"AuthorList>Author"`
			ArticleDate *ymd `xml:"ArticleDate"`
		} `xml:"Article"`
		Keywords []markup `xml:"KeywordList>Keyword"`
	} `xml:"MedlineCitation"`
	IDs []struct {
		Type  string `xml:"IdType,attr"`
		Value string `xml:",chardata"`
	} `xml:"PubmedData>ArticleIdList>ArticleId"`
}

func (a article) toPaper() (paper.Paper, error) {
	c := a.Citation
	art := c.Article

	title := art.Title.text()
	if title == "" {
		return paper.Paper{}, source.Malformed(Label, c.PMID, "title", "missing required field")
	}

	date, ok := art.ArticleDate.date()
	if !ok {
		date, ok = art.Journal.PubDate.date()
	}
	if !ok {
		return paper.Paper{}, source.Malformed(Label, c.PMID, "publication_date", "no usable date")
	}

	var parts []string
	for _, m := range art.Abstract {
		if t := m.text(); t != "" {
			parts = append(parts, t)
		}
	}

	p := paper.Paper{
		Title:           title,
		Abstract:        strings.Join(parts, "\n"),
		PublicationDate: date,
		Pages:           strings.TrimSpace(art.Pagination),
		NumberOfPages:   pageCount(art.Pagination),
		PMID:            strings.TrimSpace(c.PMID),
	}
	for _, id := range a.IDs {
		switch strings.ToLower(id.Type) {
		case "doi":
			p.DOI = strings.TrimSpace(id.Value)
		case "pmc":
			p.PMCID = strings.TrimSpace(id.Value)
		case "pubmed":
			if p.PMID == "" {
				p.PMID = strings.TrimSpace(id.Value)
			}
		}
	}
	for _, au := range art.Authors {
		name := strings.TrimSpace(au.ForeName + " " + au.LastName)
		if name == "" {
			name = au.CollectiveName
		}
		p.AddAuthors(name)
	}
	for _, k := range c.Keywords {
		p.AddKeywords(k.text())
	}
	if p.PMID != "" {
		p.AddURLs("https://pubmed.ncbi.nlm.nih.gov/" + p.PMID + "/")
	}
	if t := strings.TrimSpace(art.Journal.Title); t != "" {
		p.Publication = &paper.Publication{
			Title:    t,
			ISSN:     strings.TrimSpace(art.Journal.ISSN),
			Category: paper.CategoryJournal,
		}
	}
	p.AddDatabase(Label)
	return p, nil
}

// pageCount derives the page count from a MedlinePgn range. MEDLINE
// abbreviates the end page ("1021-9" means 1021-1029); single pages and
// electronic locators ("e1234") yield nil.
func pageCount(pgn string) *int {
	pgn = strings.TrimSpace(pgn)
	if i := strings.IndexAny(pgn, ",;"); i >= 0 {
		pgn = pgn[:i]
	}
	first, last, ok := strings.Cut(pgn, "-")
	if !ok {
		return nil
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if len(last) < len(first) {
		last = first[:len(first)-len(last)] + last
	}
	a, err1 := strconv.Atoi(first)
	b, err2 := strconv.Atoi(last)
	if err1 != nil || err2 != nil || b < a {
		return nil
	}
	n := b - a + 1
	return &n
}
