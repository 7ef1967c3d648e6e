// Package crossref searches the CrossRef works API, looks up single works by
// DOI and expands the collection along CrossRef reference lists.
package crossref

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/matsen/findpapers/internal/fetch"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/source"
)

const (
	// Label is the database label CrossRef contributes.
	Label = "CrossRef"

	// BaseURL is the CrossRef REST API base URL.
	BaseURL = "https://api.crossref.org"

	// DefaultRows is the page size for works searches.
	DefaultRows = 50

	// RequestsPerSecond stays within the polite pool allowance.
	RequestsPerSecond = 10.0
)

// Adapter implements source.Adapter and source.Resolver for CrossRef.
type Adapter struct {
	client  *fetch.Client
	req     source.Request
	baseURL string
	mailto  string
	rows    int
	log     *logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(u, "/") }
}

// WithMailto identifies the caller for CrossRef's polite pool.
func WithMailto(email string) Option {
	return func(a *Adapter) { a.mailto = email }
}

// WithRows sets the page size.
func WithRows(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.rows = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// New creates a CrossRef adapter. req.Query may be nil when the adapter is
// only used for lookups and expansion.
func New(client *fetch.Client, req source.Request, opts ...Option) *Adapter {
	a := &Adapter{
		client:  client,
		req:     req,
		baseURL: BaseURL,
		rows:    DefaultRows,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Label() string { return Label }

// FetchNextBatch fetches one page of works using CrossRef deep paging; the
// cursor is CrossRef's next-cursor token.
func (a *Adapter) FetchNextBatch(ctx context.Context, cursor string) (source.Page, error) {
	if a.req.Query == nil {
		return source.Page{}, fmt.Errorf("crossref: no query")
	}
	if cursor == "" {
		cursor = "*"
	}

	var resp searchResponse
	if err := a.client.GetJSON(ctx, a.searchURL(cursor), &resp); err != nil {
		return source.Page{}, fmt.Errorf("crossref search: %w", err)
	}

	a.log.Debug("crossref page", "cursor", cursor, "items", len(resp.Message.Items), "total", resp.Message.TotalResults)

	page := source.Page{Total: resp.Message.TotalResults, Next: resp.Message.NextCursor}
	for _, item := range resp.Message.Items {
		p, err := item.toPaper()
		if err != nil {
			page.Dropped = append(page.Dropped, err)
			continue
		}
		page.Papers = append(page.Papers, p)
	}
	page.Done = len(resp.Message.Items) < a.rows || resp.Message.NextCursor == ""
	return page, nil
}

// Resolve looks up one work by DOI.
func (a *Adapter) Resolve(ctx context.Context, doi string) (paper.Paper, error) {
	var resp workResponse
	u := a.baseURL + "/works/" + url.PathEscape(paper.CleanDOI(doi))
	if a.mailto != "" {
		u += "?mailto=" + url.QueryEscape(a.mailto)
	}
	if err := a.client.GetJSON(ctx, u, &resp); err != nil {
		return paper.Paper{}, fmt.Errorf("crossref lookup %s: %w", doi, err)
	}
	return resp.Message.toPaper()
}

func (a *Adapter) searchURL(cursor string) string {
	v := url.Values{}
	v.Set("query.bibliographic", strings.Join(a.req.Query.PositiveTerms(), " "))
	v.Set("rows", strconv.Itoa(a.rows))
	v.Set("cursor", cursor)
	v.Set("select", "DOI,title,abstract,author,container-title,ISSN,ISBN,publisher,type,published,issued,URL,is-referenced-by-count,subject,page,reference")

	var filters []string
	if a.req.Since != nil {
		filters = append(filters, "from-pub-date:"+a.req.Since.String())
	}
	if a.req.Until != nil {
		filters = append(filters, "until-pub-date:"+a.req.Until.String())
	}
	if len(filters) > 0 {
		v.Set("filter", strings.Join(filters, ","))
	}
	if a.mailto != "" {
		v.Set("mailto", a.mailto)
	}
	return a.baseURL + "/works?" + v.Encode()
}
