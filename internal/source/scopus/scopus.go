// Package scopus searches Elsevier's Scopus index and enriches each venue
// with Scopus serial bibliometrics (CiteScore, SJR, SNIP).
package scopus

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/matsen/findpapers/internal/fetch"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/matsen/findpapers/internal/query"
	"github.com/matsen/findpapers/internal/source"
)

const (
	// Label is the database label Scopus contributes.
	Label = "Scopus"

	// BaseURL is the Elsevier API base URL.
	BaseURL = "https://api.elsevier.com"

	// PageSize is the number of entries requested per call.
	PageSize = 25

	// RequestsPerSecond stays under the Scopus Search API quota.
	RequestsPerSecond = 6.0

	// APIKeyHeader carries the Elsevier API key.
	APIKeyHeader = "X-ELS-APIKey"
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("scopus: API key is required")

var dialect = query.Dialect{Term: query.Quoted("", "")}

// areasByKey maps broad subject keys onto Scopus SUBJAREA codes.
var areasByKey = map[string][]string{
	"computer_science": {"COMP", "MULT"},
	"economics":        {"ECON", "BUSI", "MULT"},
	"engineering":      {"AGRI", "CENG", "ENER", "ENGI", "ENVI", "MATE", "MULT"},
	"mathematics":      {"MATH", "MULT"},
	"physics":          {"EART", "PHYS", "MULT"},
	"biology":          {"AGRI", "BIOC", "DENT", "ENVI", "HEAL", "IMMU", "MEDI", "NEUR", "NURS", "PHAR", "VETE", "MULT"},
	"chemistry":        {"CENG", "CHEM", "PHAR", "MULT"},
	"humanities":       {"ARTS", "DECI", "ENVI", "PSYC", "SOCI", "MULT"},
}

// Adapter implements source.Adapter for Scopus.
type Adapter struct {
	client  *fetch.Client
	req     source.Request
	baseURL string
	areas   []string
	log     *logger.Logger

	mu      sync.Mutex
	serials map[string]*serial // by ISSNKey; nil records a failed lookup
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(u, "/") }
}

// WithSubjectAreas restricts results to broad subject keys such as
// "computer_science" or "biology". Unknown keys are ignored.
func WithSubjectAreas(keys ...string) Option {
	return func(a *Adapter) {
		seen := make(map[string]bool)
		for _, k := range keys {
			for _, code := range areasByKey[strings.ToLower(strings.TrimSpace(k))] {
				if !seen[code] {
					seen[code] = true
					a.areas = append(a.areas, code)
				}
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// New creates a Scopus adapter. The API key is sent as a header on a copy
// of client so it never appears in URLs.
func New(client *fetch.Client, apiKey string, req source.Request, opts ...Option) (*Adapter, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	a := &Adapter{
		client:  client.With(fetch.WithHeader(APIKeyHeader, apiKey), fetch.WithHeader("Accept", "application/json")),
		req:     req,
		baseURL: BaseURL,
		log:     logger.Nop(),
		serials: make(map[string]*serial),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Adapter) Label() string { return Label }

// SubjectAreaKeys lists the keys WithSubjectAreas understands.
func SubjectAreaKeys() []string {
	return slices.Sorted(maps.Keys(areasByKey))
}

// FetchNextBatch fetches one page of search results. The cursor is the
// start offset.
func (a *Adapter) FetchNextBatch(ctx context.Context, cursor string) (source.Page, error) {
	if a.req.Query == nil {
		return source.Page{}, fmt.Errorf("scopus: no query")
	}
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return source.Page{}, fmt.Errorf("scopus: invalid cursor %q", cursor)
		}
		start = n
	}

	var resp searchResponse
	if err := a.client.GetJSON(ctx, a.searchURL(start), &resp); err != nil {
		return source.Page{}, fmt.Errorf("scopus search: %w", err)
	}
	res := resp.Results
	total, ok := res.TotalResults.Int()
	if !ok {
		total = -1
	}

	page := source.Page{Total: total}
	n := 0
	for _, e := range res.Entries {
		if e.Error != "" {
			// An empty result set comes back as a single error entry.
			continue
		}
		n++
		p, err := e.toPaper()
		if err != nil {
			page.Dropped = append(page.Dropped, err)
			continue
		}
		if p.Publication != nil && p.Publication.ISSN != "" {
			a.enrich(ctx, p.Publication)
		}
		page.Papers = append(page.Papers, p)
	}

	next := start + n
	a.log.Debug("scopus page", "start", start, "entries", n, "total", total)
	page.Next = strconv.Itoa(next)
	page.Done = n == 0 || (total >= 0 && next >= total)
	return page, nil
}

// Query returns the Scopus advanced-search expression for the request.
func (a *Adapter) Query() string {
	q := "TITLE-ABS-KEY(" + a.req.Query.Render(dialect) + ")"
	if a.req.Since != nil {
		q += fmt.Sprintf(" AND PUBYEAR > %d", a.req.Since.Year-1)
	}
	if a.req.Until != nil {
		q += fmt.Sprintf(" AND PUBYEAR < %d", a.req.Until.Year+1)
	}
	if len(a.areas) > 0 {
		q += " AND SUBJAREA(" + strings.Join(a.areas, " OR ") + ")"
	}
	return q
}

func (a *Adapter) searchURL(start int) string {
	v := url.Values{}
	v.Set("query", a.Query())
	v.Set("start", strconv.Itoa(start))
	v.Set("count", strconv.Itoa(PageSize))
	v.Set("sort", "citedby-count,relevancy,pubyear")
	return a.baseURL + "/content/search/scopus?" + v.Encode()
}
