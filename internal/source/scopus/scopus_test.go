package scopus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matsen/findpapers/internal/fetch"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/query"
	"github.com/matsen/findpapers/internal/source"
)

const searchFixture = `{"search-results": {
  "opensearch:totalResults": "3",
  "opensearch:startIndex": "0",
  "entry": [
    {
      "dc:identifier": "SCOPUS_ID:1",
      "dc:title": "Graph learning",
      "dc:creator": "Lovelace A.",
      "prism:coverDate": "2020-03-01",
      "prism:doi": "10.1000/g1",
      "citedby-count": "12",
      "prism:publicationName": "Journal of Graphs",
      "prism:issn": "12345678",
      "prism:aggregationType": "Journal",
      "prism:pageRange": "1-10",
      "link": [{"@ref": "self", "@href": "https://api/x"}, {"@ref": "scopus", "@href": "https://www.scopus.com/1"}]
    },
    {
      "dc:identifier": "SCOPUS_ID:2",
      "dc:title": "Conference graphs",
      "prism:coverDate": "2019-07-01",
      "citedby-count": 0,
      "prism:publicationName": "Proc. Graphs",
      "prism:issn": "1234-5678",
      "prism:isbn": [{"@_fa": "true", "$": "9780000000001"}],
      "prism:aggregationType": "Conference Proceeding",
      "authkeywords": "graphs | learning"
    },
    {
      "dc:identifier": "SCOPUS_ID:3",
      "prism:coverDate": "2019-07-01"
    }
  ]
}}`

const serialFixture = `{"serial-metadata-response": {"entry": [{
  "dc:publisher": "Graph Press",
  "citeScoreYearInfoList": {"citeScoreCurrentMetric": "4.5"},
  "SJRList": {"SJR": [{"@year": "2020", "$": "1.25"}]},
  "SNIPList": {"SNIP": [{"@year": "2020", "$": "0.9"}]},
  "subject-area": [{"@code": "1700", "$": "Computer Science"}]
}]}}`

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(fetch.NewClient(), "  ", source.Request{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("New() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestQuery(t *testing.T) {
	q, err := query.Parse("[deep learning] AND NOT [survey]")
	if err != nil {
		t.Fatal(err)
	}
	since := paper.NewPublicationDate(2019, 6, 1)
	a, err := New(fetch.NewClient(), "k", source.Request{Query: q, Since: &since},
		WithSubjectAreas("mathematics", "computer_science", "unknown"))
	if err != nil {
		t.Fatal(err)
	}
	want := `TITLE-ABS-KEY("deep learning" AND NOT "survey") AND PUBYEAR > 2018 AND SUBJAREA(MATH OR MULT OR COMP)`
	if got := a.Query(); got != want {
		t.Errorf("Query() = %q, want %q", got, want)
	}
}

func TestFetchNextBatch(t *testing.T) {
	var serialCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(APIKeyHeader) != "secret" {
			t.Errorf("missing API key header on %s", r.URL.Path)
		}
		if strings.Contains(r.URL.RawQuery, "secret") {
			t.Errorf("API key leaked into URL")
		}
		switch {
		case r.URL.Path == "/content/search/scopus":
			w.Write([]byte(searchFixture))
		case strings.HasPrefix(r.URL.Path, "/content/serial/title/issn/"):
			serialCalls++
			w.Write([]byte(serialFixture))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	q, _ := query.Parse("[graph]")
	client := fetch.NewClient(fetch.WithRateLimit(0), fetch.WithMaxRetries(1))
	a, err := New(client, "secret", source.Request{Query: q}, WithBaseURL(server.URL))
	if err != nil {
		t.Fatal(err)
	}

	page, err := a.FetchNextBatch(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchNextBatch() error = %v", err)
	}
	if page.Total != 3 || page.Next != "3" || !page.Done {
		t.Errorf("Total = %d, Next = %q, Done = %v", page.Total, page.Next, page.Done)
	}
	if len(page.Papers) != 2 || len(page.Dropped) != 1 {
		t.Fatalf("got %d papers, %d dropped", len(page.Papers), len(page.Dropped))
	}
	// Both venues share one ISSN once hyphens are ignored.
	if serialCalls != 1 {
		t.Errorf("serial lookups = %d, want 1", serialCalls)
	}

	p := page.Papers[0]
	if p.CitationCount() != 12 || p.Authors[0] != "Lovelace A." || len(p.URLs) != 1 {
		t.Errorf("paper = %+v", p)
	}
	pub := p.Publication
	if pub.Category != paper.CategoryJournal || pub.Publisher != "Graph Press" {
		t.Errorf("publication = %+v", pub)
	}
	b, ok := pub.BibliometricsFor(Label)
	if !ok || b.Scores[paper.ScoreCiteScore] != 4.5 || b.Scores[paper.ScoreSJR] != 1.25 || b.Scores[paper.ScoreSNIP] != 0.9 {
		t.Errorf("bibliometrics = %+v", b)
	}
	if !paper.SetContains(pub.SubjectAreas, "computer science") {
		t.Errorf("subject areas = %v", pub.SubjectAreas)
	}

	c := page.Papers[1]
	if c.Publication.Category != paper.CategoryConference || c.Publication.ISBN != "9780000000001" {
		t.Errorf("conference publication = %+v", c.Publication)
	}
	if c.Citations == nil || *c.Citations != 0 {
		t.Errorf("citations = %v, want 0", c.Citations)
	}
	if len(c.Keywords) != 2 {
		t.Errorf("keywords = %v", c.Keywords)
	}
}

func TestFetchNextBatch_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"search-results": {"opensearch:totalResults": "0", "entry": [{"@_fa": "true", "error": "Result set was empty"}]}}`))
	}))
	defer server.Close()

	q, _ := query.Parse("[zzz]")
	a, _ := New(fetch.NewClient(fetch.WithRateLimit(0)), "k", source.Request{Query: q}, WithBaseURL(server.URL))
	page, err := a.FetchNextBatch(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if !page.Done || len(page.Papers) != 0 || len(page.Dropped) != 0 {
		t.Errorf("page = %+v", page)
	}
}
