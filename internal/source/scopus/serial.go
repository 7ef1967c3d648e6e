package scopus

import (
	"context"
	"net/url"

	"github.com/matsen/findpapers/internal/identity"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/source"
)

type serialResponse struct {
	Response struct {
		Entries []struct {
			Publisher string `json:"dc:publisher"`
			CiteScore struct {
				Current source.FlexibleString `json:"citeScoreCurrentMetric"`
			} `json:"citeScoreYearInfoList"`
			SJR struct {
				Values []struct {
					Value source.FlexibleString `json:"$"`
				} `json:"SJR"`
			} `json:"SJRList"`
			SNIP struct {
				Values []struct {
					Value source.FlexibleString `json:"$"`
				} `json:"SNIP"`
			} `json:"SNIPList"`
			SubjectAreas []struct {
				Name string `json:"$"`
			} `json:"subject-area"`
		} `json:"entry"`
	} `json:"serial-metadata-response"`
}

// serial is the venue metadata kept per ISSN.
type serial struct {
	publisher     string
	subjectAreas  []string
	bibliometrics paper.Bibliometrics
}

// enrich fills publisher, subject areas and Scopus bibliometrics on pub from
// the serial title API. Lookups are cached per ISSN for the adapter's
// lifetime, failures included; a failed lookup leaves pub unchanged.
func (a *Adapter) enrich(ctx context.Context, pub *paper.Publication) {
	key := identity.ISSNKey(pub.ISSN)
	if key == "" {
		return
	}

	a.mu.Lock()
	s, cached := a.serials[key]
	a.mu.Unlock()

	if !cached {
		s = a.lookupSerial(ctx, key)
		a.mu.Lock()
		a.serials[key] = s
		a.mu.Unlock()
	}
	if s == nil {
		return
	}

	if pub.Publisher == "" {
		pub.Publisher = s.publisher
	}
	pub.AddSubjectAreas(s.subjectAreas...)
	if len(s.bibliometrics.Scores) > 0 {
		pub.AddBibliometrics(s.bibliometrics)
	}
}

func (a *Adapter) lookupSerial(ctx context.Context, issn string) *serial {
	var resp serialResponse
	u := a.baseURL + "/content/serial/title/issn/" + url.PathEscape(issn)
	if err := a.client.GetJSON(ctx, u, &resp); err != nil {
		a.log.Warn("serial title lookup failed", "issn", issn, "error", err)
		return nil
	}
	if len(resp.Response.Entries) == 0 {
		return nil
	}
	e := resp.Response.Entries[0]

	s := &serial{
		publisher:     e.Publisher,
		bibliometrics: paper.Bibliometrics{Source: Label, Scores: make(map[string]float64)},
	}
	for _, area := range e.SubjectAreas {
		s.subjectAreas = append(s.subjectAreas, area.Name)
	}
	if v, ok := e.CiteScore.Current.Float(); ok {
		s.bibliometrics.Scores[paper.ScoreCiteScore] = v
	}
	if len(e.SJR.Values) > 0 {
		if v, ok := e.SJR.Values[0].Value.Float(); ok {
			s.bibliometrics.Scores[paper.ScoreSJR] = v
		}
	}
	if len(e.SNIP.Values) > 0 {
		if v, ok := e.SNIP.Values[0].Value.Float(); ok {
			s.bibliometrics.Scores[paper.ScoreSNIP] = v
		}
	}
	return s
}
