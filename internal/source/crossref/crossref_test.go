package crossref

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matsen/findpapers/internal/fetch"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/query"
	"github.com/matsen/findpapers/internal/source"
)

const searchFixture = `{
  "status": "ok",
  "message": {
    "total-results": 3,
    "next-cursor": "AoJ3",
    "items": [
      {
        "DOI": "10.1000/One",
        "title": ["Deep <i>learning</i> for graphs"],
        "abstract": "<jats:p>We study graphs.</jats:p>",
        "author": [{"given": "Ada", "family": "Lovelace"}, {"name": "The Consortium"}],
        "container-title": ["Journal of Graphs"],
        "ISSN": ["1234-5678"],
        "publisher": "Graph Press",
        "type": "journal-article",
        "published": {"date-parts": [[2021, 3, 14]]},
        "URL": "https://doi.org/10.1000/one",
        "is-referenced-by-count": 42,
        "subject": ["Computer Science"],
        "reference": [{"DOI": "10.1000/ref"}, {"key": "no-doi"}]
      },
      {
        "DOI": "10.1000/two",
        "title": ["Year only"],
        "type": "proceedings-article",
        "container-title": ["Proc. Graphs"],
        "issued": {"date-parts": [["2019"]]}
      },
      {
        "DOI": "10.1000/bad",
        "title": [],
        "issued": {"date-parts": [[2020]]}
      }
    ]
  }
}`

func testClient() *fetch.Client {
	return fetch.NewClient(fetch.WithRateLimit(0), fetch.WithMaxRetries(1))
}

func TestFetchNextBatch(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/works" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Write([]byte(searchFixture))
	}))
	defer server.Close()

	q, err := query.Parse("[graph] AND ([deep learning] OR [neural]) AND NOT [survey]")
	if err != nil {
		t.Fatal(err)
	}
	since := paper.NewPublicationDate(2019, 1, 1)
	a := New(testClient(), source.Request{Query: q, Since: &since},
		WithBaseURL(server.URL), WithMailto("me@example.org"), WithRows(3))

	page, err := a.FetchNextBatch(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchNextBatch() error = %v", err)
	}

	for _, want := range []string{"cursor=%2A", "rows=3", "filter=from-pub-date%3A2019-01-01", "mailto=me%40example.org"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	if strings.Contains(gotQuery, "survey") {
		t.Errorf("negated term leaked into query: %q", gotQuery)
	}

	if len(page.Papers) != 2 || len(page.Dropped) != 1 {
		t.Fatalf("got %d papers, %d dropped", len(page.Papers), len(page.Dropped))
	}
	if !paper.IsMalformed(page.Dropped[0]) {
		t.Errorf("dropped error %v is not malformed", page.Dropped[0])
	}
	if page.Next != "AoJ3" || page.Done {
		t.Errorf("Next = %q, Done = %v", page.Next, page.Done)
	}

	p := page.Papers[0]
	if p.Title != "Deep learning for graphs" || p.Abstract != "We study graphs." {
		t.Errorf("title/abstract = %q / %q", p.Title, p.Abstract)
	}
	if p.PublicationDate != paper.NewPublicationDate(2021, 3, 14) {
		t.Errorf("date = %v", p.PublicationDate)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Ada Lovelace" {
		t.Errorf("authors = %v", p.Authors)
	}
	if p.CitationCount() != 42 || len(p.References) != 1 {
		t.Errorf("citations = %d, references = %v", p.CitationCount(), p.References)
	}
	if p.Publication == nil || p.Publication.Category != paper.CategoryJournal || p.Publication.ISSN != "1234-5678" {
		t.Errorf("publication = %+v", p.Publication)
	}
	if !p.HasDatabase(Label) {
		t.Errorf("databases = %v", p.Databases)
	}

	q2 := page.Papers[1]
	if q2.PublicationDate != paper.NewPublicationDate(2019, 1, 1) {
		t.Errorf("year-only date = %v", q2.PublicationDate)
	}
	if q2.Publication.Category != paper.CategoryConference {
		t.Errorf("category = %q", q2.Publication.Category)
	}
}

func TestFetchNextBatch_LastPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {"total-results": 0, "next-cursor": "x", "items": []}}`))
	}))
	defer server.Close()

	q, _ := query.Parse("[graph]")
	a := New(testClient(), source.Request{Query: q}, WithBaseURL(server.URL))
	page, err := a.FetchNextBatch(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if !page.Done {
		t.Error("short page should be Done")
	}
}

func TestResolveAndExpand(t *testing.T) {
	works := map[string]string{
		"/works/10.1000/a": `{"message": {"DOI": "10.1000/a", "title": ["A"], "issued": {"date-parts": [[2020]]},
			"reference": [{"DOI": "10.1000/b"}]}}`,
		"/works/10.1000/b": `{"message": {"DOI": "10.1000/b", "title": ["B"], "issued": {"date-parts": [[2018]]},
			"reference": [{"DOI": "10.1000/A"}]}}`,
	}
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, ok := works[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	defer server.Close()

	a := New(testClient(), source.Request{}, WithBaseURL(server.URL))

	p, err := a.Resolve(context.Background(), "https://doi.org/10.1000/a")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Title != "A" || p.References[0] != "10.1000/b" {
		t.Errorf("resolved %+v", p)
	}

	calls = 0
	e := NewExpander(a, source.WalkOptions{References: true, Cites: true, Depth: 3})
	got, err := e.Expand(context.Background(), []string{"10.1000/a"})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(got) != 2 || calls != 2 {
		t.Errorf("Expand() returned %d papers in %d calls, want 2 in 2", len(got), calls)
	}

	if _, err := a.Resolve(context.Background(), "10.1000/missing"); !fetch.IsNotFound(err) {
		t.Errorf("missing DOI error = %v, want not found", err)
	}
}
