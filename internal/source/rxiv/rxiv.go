// Package rxiv searches the bioRxiv and medRxiv preprint servers. The
// public search form has no API, so result pages are scraped for DOIs and
// each DOI is then resolved through api.biorxiv.org.
package rxiv

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/matsen/findpapers/internal/fetch"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/source"
)

// Server names a preprint server. Its value is the database label.
type Server string

const (
	BioRxiv Server = "bioRxiv"
	MedRxiv Server = "medRxiv"
)

const (
	// APIBaseURL serves per-DOI details for both servers.
	APIBaseURL = "https://api.biorxiv.org"

	// RequestsPerSecond keeps scraping gentle.
	RequestsPerSecond = 1.0

	resultsPerPage = 75
	earliestDate   = "1970-01-01"
)

func (s Server) siteURL() string {
	if s == BioRxiv {
		return "https://www.biorxiv.org"
	}
	return "https://www.medrxiv.org"
}

// Adapter implements source.Adapter for one preprint server.
type Adapter struct {
	client  *fetch.Client
	req     source.Request
	server  Server
	siteURL string
	apiURL  string
	now     func() time.Time
	log     *logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBaseURLs sets custom search-site and API base URLs (for testing).
func WithBaseURLs(site, api string) Option {
	return func(a *Adapter) {
		a.siteURL = strings.TrimRight(site, "/")
		a.apiURL = strings.TrimRight(api, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithClock sets the clock used for open-ended date ranges.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New creates an adapter for server.
func New(client *fetch.Client, server Server, req source.Request, opts ...Option) *Adapter {
	a := &Adapter{
		client:  client,
		req:     req,
		server:  server,
		siteURL: server.siteURL(),
		apiURL:  APIBaseURL,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Label() string { return string(a.server) }

// FetchNextBatch scrapes one result page and resolves its DOIs. The cursor
// is "<sub-query index>|<next page URL>"; an empty URL starts the sub-query
// at its first page.
func (a *Adapter) FetchNextBatch(ctx context.Context, cursor string) (source.Page, error) {
	if a.req.Query == nil {
		return source.Page{}, fmt.Errorf("%s: no query", a.server)
	}
	subs, err := Split(a.req.Query)
	if err != nil {
		return source.Page{}, err
	}

	idx, pageURL, err := parseCursor(cursor)
	if err != nil || idx >= len(subs) {
		return source.Page{}, fmt.Errorf("%s: invalid cursor %q", a.server, cursor)
	}
	if pageURL == "" {
		pageURL = a.searchURL(subs[idx])
	}

	body, err := a.client.Get(ctx, pageURL)
	if err != nil {
		return source.Page{}, fmt.Errorf("%s search: %w", a.server, err)
	}
	res, err := parseResults(body)
	if err != nil {
		return source.Page{}, fmt.Errorf("%s search: %w: %v", a.server, fetch.ErrInvalidResponse, err)
	}
	a.log.Debug("rxiv page", "server", a.server, "sub_query", idx, "dois", len(res.dois), "total", res.total)

	page := source.Page{Total: -1}
	if idx == 0 && cursor == "" {
		page.Total = res.total
	}
	for _, doi := range res.dois {
		p, err := a.details(ctx, doi)
		if err != nil {
			if ctx.Err() != nil {
				return source.Page{}, ctx.Err()
			}
			page.Dropped = append(page.Dropped, err)
			continue
		}
		page.Papers = append(page.Papers, p)
	}

	switch {
	case res.next != "":
		page.Next = formatCursor(idx, a.siteURL+res.next)
	case idx+1 < len(subs):
		page.Next = formatCursor(idx+1, "")
	default:
		page.Done = true
	}
	return page, nil
}

func (a *Adapter) searchURL(sq SubQuery) string {
	since, until := earliestDate, paper.DateOf(a.now()).String()
	if a.req.Since != nil {
		since = a.req.Since.String()
	}
	if a.req.Until != nil {
		until = a.req.Until.String()
	}
	return fmt.Sprintf("%s/search/%s%%20jcode%%3A%s%%20limit_from%%3A%s%%20limit_to%%3A%s"+
		"%%20numresults%%3A%d%%20sort%%3Apublication-date%%20direction%%3Adescending%%20format_result%%3Acondensed",
		a.siteURL, sq.encode(), strings.ToLower(string(a.server)), since, until, resultsPerPage)
}

func formatCursor(idx int, next string) string {
	return strconv.Itoa(idx) + "|" + next
}

func parseCursor(c string) (int, string, error) {
	if c == "" {
		return 0, "", nil
	}
	i, next, ok := strings.Cut(c, "|")
	if !ok {
		return 0, "", fmt.Errorf("missing separator")
	}
	idx, err := strconv.Atoi(i)
	if err != nil || idx < 0 {
		return 0, "", fmt.Errorf("bad index %q", i)
	}
	return idx, next, nil
}

type results struct {
	total int
	dois  []string
	next  string
}

// parseResults reads the result count, DOIs and next-page link from a
// condensed search result page.
func parseResults(body []byte) (results, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return results{}, err
	}

	var res results
	title := strings.TrimSpace(doc.Find("#page-title").First().Text())
	if title == "" {
		return results{}, fmt.Errorf("no result count on page")
	}
	if strings.Contains(strings.ToLower(title), "no results") {
		return res, nil
	}
	fields := strings.Fields(title)
	n, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil {
		return results{}, fmt.Errorf("unexpected result count %q", title)
	}
	res.total = n

	doc.Find(".highwire-cite-metadata-doi").Each(func(_ int, s *goquery.Selection) {
		doi := paper.CleanDOI(strings.TrimPrefix(strings.TrimSpace(s.Text()), "doi:"))
		if doi != "" {
			res.dois = append(res.dois, doi)
		}
	})
	if href, ok := doc.Find(".link-icon.link-icon-after").First().Attr("href"); ok {
		res.next = href
	}
	return res, nil
}
