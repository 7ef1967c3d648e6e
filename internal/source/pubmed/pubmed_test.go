package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matsen/findpapers/internal/fetch"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/query"
	"github.com/matsen/findpapers/internal/source"
)

const esearchFixture = `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult><Count>3</Count><RetMax>2</RetMax><RetStart>0</RetStart>
<IdList><Id>111</Id><Id>222</Id></IdList></eSearchResult>`

const efetchFixture = `<?xml version="1.0" ?>
<PubmedArticleSet>
<PubmedArticle>
  <MedlineCitation Status="MEDLINE" Owner="NLM">
    <PMID Version="1">111</PMID>
    <Article PubModel="Print">
      <Journal>
        <ISSN IssnType="Electronic">1476-4687</ISSN>
        <JournalIssue CitedMedium="Internet">
          <PubDate><Year>2020</Year><Month>Mar</Month></PubDate>
        </JournalIssue>
        <Title>Nature</Title>
      </Journal>
      <ArticleTitle>CRISPR in <i>E. coli</i> &amp; yeast.</ArticleTitle>
      <Pagination><MedlinePgn>1021-9</MedlinePgn></Pagination>
      <Abstract>
        <AbstractText Label="BACKGROUND">First <sup>2</sup> part.</AbstractText>
        <AbstractText Label="RESULTS">Second part.</AbstractText>
      </Abstract>
      <AuthorList>
        <Author><LastName>Doudna</LastName><ForeName>Jennifer A</ForeName></Author>
        <Author><CollectiveName>CRISPR Consortium</CollectiveName></Author>
      </AuthorList>
    </Article>
    <KeywordList Owner="NOTNLM"><Keyword>gene editing</Keyword><Keyword>Cas9</Keyword></KeywordList>
  </MedlineCitation>
  <PubmedData>
    <ArticleIdList>
      <ArticleId IdType="pubmed">111</ArticleId>
      <ArticleId IdType="doi">10.1038/s41586-020-0001</ArticleId>
      <ArticleId IdType="pmc">PMC7000001</ArticleId>
    </ArticleIdList>
  </PubmedData>
</PubmedArticle>
<PubmedArticle>
  <MedlineCitation><PMID>222</PMID>
    <Article>
      <Journal><JournalIssue><PubDate><MedlineDate>1998 Dec-1999 Jan</MedlineDate></PubDate></JournalIssue><Title>Old J</Title></Journal>
      <ArticleTitle></ArticleTitle>
    </Article>
  </MedlineCitation>
</PubmedArticle>
</PubmedArticleSet>`

func testClient() *fetch.Client {
	return fetch.NewClient(fetch.WithRateLimit(0), fetch.WithMaxRetries(1))
}

func TestFetchNextBatch(t *testing.T) {
	var term, fetchedIDs string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			term = r.URL.Query().Get("term")
			if r.URL.Query().Get("api_key") != "secret" {
				t.Errorf("api_key not sent")
			}
			w.Write([]byte(esearchFixture))
		case "/efetch.fcgi":
			fetchedIDs = r.URL.Query().Get("id")
			w.Write([]byte(efetchFixture))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	q, err := query.Parse("[crispr] AND NOT [plant]")
	if err != nil {
		t.Fatal(err)
	}
	since := paper.NewPublicationDate(2019, 1, 1)
	now := func() time.Time { return time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC) }
	a := New(testClient(), source.Request{Query: q, Since: &since},
		WithBaseURL(server.URL), WithAPIKey("secret"), WithClock(now))

	page, err := a.FetchNextBatch(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchNextBatch() error = %v", err)
	}

	wantTerm := `"crispr"[TIAB] NOT "plant"[TIAB]` + articleFilter + ` AND 2019/01/01:2024/06/30[Date - Publication]`
	if term != wantTerm {
		t.Errorf("term = %q\nwant  %q", term, wantTerm)
	}
	if fetchedIDs != "111,222" {
		t.Errorf("efetch ids = %q", fetchedIDs)
	}
	if page.Total != 3 || page.Next != "2" || page.Done {
		t.Errorf("Total = %d, Next = %q, Done = %v", page.Total, page.Next, page.Done)
	}
	if len(page.Papers) != 1 || len(page.Dropped) != 1 {
		t.Fatalf("got %d papers, %d dropped", len(page.Papers), len(page.Dropped))
	}

	p := page.Papers[0]
	if p.Title != "CRISPR in E. coli & yeast." {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Abstract != "First 2 part.\nSecond part." {
		t.Errorf("Abstract = %q", p.Abstract)
	}
	if p.DOI != "10.1038/s41586-020-0001" || p.PMID != "111" || p.PMCID != "PMC7000001" {
		t.Errorf("ids = %q %q %q", p.DOI, p.PMID, p.PMCID)
	}
	if p.PublicationDate != paper.NewPublicationDate(2020, 3, 1) {
		t.Errorf("date = %v", p.PublicationDate)
	}
	if p.NumberOfPages == nil || *p.NumberOfPages != 9 {
		t.Errorf("NumberOfPages = %v", p.NumberOfPages)
	}
	if strings.Join(p.Authors, "|") != "Jennifer A Doudna|CRISPR Consortium" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if len(p.Keywords) != 2 {
		t.Errorf("Keywords = %v", p.Keywords)
	}
	if p.Publication == nil || p.Publication.Title != "Nature" || p.Publication.Category != paper.CategoryJournal {
		t.Errorf("Publication = %+v", p.Publication)
	}
	if !p.HasDatabase(Label) {
		t.Errorf("Databases = %v", p.Databases)
	}
}

func TestFetchNextBatch_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/efetch.fcgi" {
			t.Error("efetch called for empty result")
		}
		w.Write([]byte(`<eSearchResult><Count>0</Count><IdList/><ErrorList><PhraseNotFound>zzz</PhraseNotFound></ErrorList></eSearchResult>`))
	}))
	defer server.Close()

	q, _ := query.Parse("[zzz]")
	a := New(testClient(), source.Request{Query: q}, WithBaseURL(server.URL))
	page, err := a.FetchNextBatch(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if !page.Done || len(page.Papers) != 0 {
		t.Errorf("page = %+v", page)
	}
}

func TestSupportsTypes(t *testing.T) {
	a := New(testClient(), source.Request{})
	if !a.SupportsTypes(nil) {
		t.Error("no filter should be supported")
	}
	if !a.SupportsTypes([]paper.Category{paper.CategoryBook, paper.CategoryJournal}) {
		t.Error("journal should be supported")
	}
	if a.SupportsTypes([]paper.Category{paper.CategoryPreprint}) {
		t.Error("preprint-only should be skipped")
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		pgn  string
		want int // 0 means nil
	}{
		{"1021-9", 9},
		{"100-120", 21},
		{"e1234", 0},
		{"55", 0},
		{"12-15, 18", 4},
		{"S1-S5", 0},
	}
	for _, tt := range tests {
		got := pageCount(tt.pgn)
		switch {
		case tt.want == 0 && got != nil:
			t.Errorf("pageCount(%q) = %d, want nil", tt.pgn, *got)
		case tt.want != 0 && (got == nil || *got != tt.want):
			t.Errorf("pageCount(%q) = %v, want %d", tt.pgn, got, tt.want)
		}
	}
}
