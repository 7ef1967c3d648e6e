package rxiv

import (
	"context"
	"fmt"
	"strings"

	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/source"
)

type detailsResponse struct {
	Collection []struct {
		DOI       string `json:"doi"`
		Title     string `json:"title"`
		Authors   string `json:"authors"`
		Date      string `json:"date"`
		Category  string `json:"category"`
		Abstract  string `json:"abstract"`
		Published string `json:"published"`
	} `json:"collection"`
}

// details resolves one preprint DOI. When the preprint has since been
// published, the journal DOI replaces the preprint DOI so the record can
// merge with the journal version found elsewhere.
func (a *Adapter) details(ctx context.Context, doi string) (paper.Paper, error) {
	var resp detailsResponse
	u := fmt.Sprintf("%s/details/%s/%s", a.apiURL, strings.ToLower(string(a.server)), doi)
	if err := a.client.GetJSON(ctx, u, &resp); err != nil {
		return paper.Paper{}, fmt.Errorf("%s details %s: %w", a.server, doi, err)
	}
	if len(resp.Collection) == 0 {
		return paper.Paper{}, source.Malformed(a.Label(), doi, "details", "no metadata available")
	}
	d := resp.Collection[0]

	title := paper.CollapseSpace(d.Title)
	if title == "" {
		return paper.Paper{}, source.Malformed(a.Label(), doi, "title", "missing required field")
	}
	date, err := paper.ParsePublicationDate(d.Date)
	if err != nil {
		return paper.Paper{}, source.Malformed(a.Label(), doi, "publication_date", err.Error())
	}

	p := paper.Paper{
		DOI:             d.DOI,
		Title:           title,
		Abstract:        source.StripMarkup(strings.TrimPrefix(strings.TrimSpace(d.Abstract), "<h3>Abstract</h3>")),
		PublicationDate: date,
	}
	if p.DOI == "" {
		p.DOI = doi
	}
	p.AddURLs("https://doi.org/" + p.DOI)
	if pub := strings.ReplaceAll(strings.TrimSpace(d.Published), `\`, ""); pub != "" && !strings.EqualFold(pub, "NA") {
		p.DOI = pub
	}
	for _, name := range strings.Split(d.Authors, ";") {
		p.AddAuthors(strings.TrimSpace(name))
	}

	pb := &paper.Publication{Title: a.Label(), Category: paper.CategoryPreprint}
	pb.AddSubjectAreas(d.Category)
	p.Publication = pb
	p.AddDatabase(a.Label())
	return p, nil
}
