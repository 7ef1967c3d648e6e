// Package pubmed searches PubMed through the NCBI E-utilities: esearch
// pages through matching PMIDs and efetch retrieves each page's records in
// one batch.
package pubmed

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/findpapers/internal/fetch"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/query"
	"github.com/matsen/findpapers/internal/source"
)

const (
	// Label is the database label PubMed contributes.
	Label = "PubMed"

	// BaseURL is the E-utilities base URL.
	BaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// PageSize is the number of PMIDs requested per esearch call.
	PageSize = 50

	// RequestsPerSecond without and with an API key, per NCBI policy.
	RequestsPerSecond        = 3.0
	RequestsPerSecondWithKey = 10.0
)

// Only journal articles carrying an abstract are requested.
const articleFilter = ` AND has abstract [FILT] AND ("journal article"[Publication Type] OR "classical article"[Publication Type])`

var dialect = query.Dialect{Term: query.Quoted("", "[TIAB]"), AndNot: "NOT"}

// Adapter implements source.Adapter and source.TypeFilterer for PubMed.
type Adapter struct {
	client  *fetch.Client
	req     source.Request
	baseURL string
	apiKey  string
	now     func() time.Time
	log     *logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIKey sets the NCBI API key.
func WithAPIKey(key string) Option {
	return func(a *Adapter) { a.apiKey = key }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithClock sets the clock used for open-ended date ranges.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New creates a PubMed adapter.
func New(client *fetch.Client, req source.Request, opts ...Option) *Adapter {
	a := &Adapter{
		client:  client,
		req:     req,
		baseURL: BaseURL,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Label() string { return Label }

// SupportsTypes reports whether journal articles are among types. PubMed
// only indexes journal literature.
func (a *Adapter) SupportsTypes(types []paper.Category) bool {
	return len(types) == 0 || slices.Contains(types, paper.CategoryJournal)
}

// FetchNextBatch runs one esearch page and fetches its records. The cursor
// is the esearch retstart offset.
func (a *Adapter) FetchNextBatch(ctx context.Context, cursor string) (source.Page, error) {
	if a.req.Query == nil {
		return source.Page{}, fmt.Errorf("pubmed: no query")
	}
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return source.Page{}, fmt.Errorf("pubmed: invalid cursor %q", cursor)
		}
		start = n
	}

	var res searchResult
	if err := a.client.GetXML(ctx, a.searchURL(start), &res); err != nil {
		return source.Page{}, fmt.Errorf("pubmed esearch: %w", err)
	}
	if res.ErrorList != nil && len(res.IDs) == 0 {
		// esearch reports phrase-not-found conditions as an ErrorList with
		// an empty result rather than an HTTP error.
		return source.Page{Done: true}, nil
	}

	page := source.Page{Total: res.Count}
	if len(res.IDs) > 0 {
		var set articleSet
		if err := a.client.GetXML(ctx, a.fetchURL(res.IDs), &set); err != nil {
			return source.Page{}, fmt.Errorf("pubmed efetch: %w", err)
		}
		for _, art := range set.Articles {
			p, err := art.toPaper()
			if err != nil {
				page.Dropped = append(page.Dropped, err)
				continue
			}
			page.Papers = append(page.Papers, p)
		}
	}

	next := start + len(res.IDs)
	a.log.Debug("pubmed page", "start", start, "ids", len(res.IDs), "total", res.Count)
	page.Next = strconv.Itoa(next)
	page.Done = len(res.IDs) == 0 || next >= res.Count
	return page, nil
}

func (a *Adapter) searchURL(start int) string {
	term := a.req.Query.Render(dialect) + articleFilter
	if a.req.Since != nil || a.req.Until != nil {
		since, until := a.req.DateRange(a.now())
		term += fmt.Sprintf(" AND %s:%s[Date - Publication]", slashDate(since), slashDate(until))
	}

	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("term", term)
	v.Set("retstart", strconv.Itoa(start))
	v.Set("retmax", strconv.Itoa(PageSize))
	v.Set("sort", "pub_date")
	if a.apiKey != "" {
		v.Set("api_key", a.apiKey)
	}
	return a.baseURL + "/esearch.fcgi?" + v.Encode()
}

func (a *Adapter) fetchURL(ids []string) string {
	v := url.Values{}
	v.Set("db", "pubmed")
	v.Set("id", strings.Join(ids, ","))
	v.Set("rettype", "abstract")
	v.Set("retmode", "xml")
	if a.apiKey != "" {
		v.Set("api_key", a.apiKey)
	}
	return a.baseURL + "/efetch.fcgi?" + v.Encode()
}

func slashDate(d paper.PublicationDate) string {
	n := paper.NewPublicationDate(d.Year, d.Month, d.Day)
	return fmt.Sprintf("%04d/%02d/%02d", n.Year, n.Month, n.Day)
}
