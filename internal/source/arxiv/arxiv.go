// Package arxiv searches the arXiv Atom API.
package arxiv

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/matsen/findpapers/internal/fetch"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/query"
	"github.com/matsen/findpapers/internal/source"
)

const (
	// Label is the database label arXiv contributes.
	Label = "arXiv"

	// BaseURL is the arXiv API query endpoint.
	BaseURL = "https://export.arxiv.org/api/query"

	// PageSize is the number of entries requested per call.
	PageSize = 50

	// RequestsPerSecond follows arXiv's one request every three seconds.
	RequestsPerSecond = 1.0 / 3
)

var dialect = query.Dialect{Term: query.Quoted("all:", ""), AndNot: "ANDNOT"}

// Adapter implements source.Adapter for arXiv.
type Adapter struct {
	client  *fetch.Client
	req     source.Request
	baseURL string
	now     func() time.Time
	parser  *gofeed.Parser
	log     *logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBaseURL sets a custom endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(a *Adapter) { a.baseURL = u }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithClock sets the clock used for open-ended date ranges.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New creates an arXiv adapter.
func New(client *fetch.Client, req source.Request, opts ...Option) *Adapter {
	a := &Adapter{
		client:  client,
		req:     req,
		baseURL: BaseURL,
		now:     time.Now,
		parser:  gofeed.NewParser(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Label() string { return Label }

// FetchNextBatch fetches one page of the Atom feed. The cursor is the start
// offset.
func (a *Adapter) FetchNextBatch(ctx context.Context, cursor string) (source.Page, error) {
	if a.req.Query == nil {
		return source.Page{}, fmt.Errorf("arxiv: no query")
	}
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return source.Page{}, fmt.Errorf("arxiv: invalid cursor %q", cursor)
		}
		start = n
	}

	body, err := a.client.Get(ctx, a.searchURL(start))
	if err != nil {
		return source.Page{}, fmt.Errorf("arxiv search: %w", err)
	}
	feed, err := a.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return source.Page{}, fmt.Errorf("arxiv search: %w: %v", fetch.ErrInvalidResponse, err)
	}

	total := -1
	if v := extValue(feed.Extensions, "opensearch", "totalResults"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			total = n
		}
	}

	page := source.Page{Total: total}
	for _, item := range feed.Items {
		p, err := toPaper(item)
		if err != nil {
			page.Dropped = append(page.Dropped, err)
			continue
		}
		page.Papers = append(page.Papers, p)
	}

	next := start + len(feed.Items)
	a.log.Debug("arxiv page", "start", start, "entries", len(feed.Items), "total", total)
	page.Next = strconv.Itoa(next)
	page.Done = len(feed.Items) < PageSize || (total >= 0 && next >= total)
	return page, nil
}

func (a *Adapter) searchURL(start int) string {
	q := a.req.Query.Render(dialect)
	if a.req.Since != nil || a.req.Until != nil {
		since, until := a.req.DateRange(a.now())
		q = fmt.Sprintf("(%s) AND submittedDate:[%s0000 TO %s2359]", q, compactDate(since), compactDate(until))
	}
	v := url.Values{}
	v.Set("search_query", q)
	v.Set("start", strconv.Itoa(start))
	v.Set("max_results", strconv.Itoa(PageSize))
	v.Set("sortBy", "submittedDate")
	v.Set("sortOrder", "descending")
	return a.baseURL + "?" + v.Encode()
}

func compactDate(d paper.PublicationDate) string {
	n := paper.NewPublicationDate(d.Year, d.Month, d.Day)
	return fmt.Sprintf("%04d%02d%02d", n.Year, n.Month, n.Day)
}

func toPaper(item *gofeed.Item) (paper.Paper, error) {
	id := ArXivID(item.GUID)
	title := paper.CollapseSpace(item.Title)
	if title == "" {
		return paper.Paper{}, source.Malformed(Label, id, "title", "missing required field")
	}
	if item.PublishedParsed == nil {
		return paper.Paper{}, source.Malformed(Label, id, "publication_date", "no usable date")
	}

	p := paper.Paper{
		DOI:             extValue(item.Extensions, "arxiv", "doi"),
		Title:           title,
		Abstract:        paper.CollapseSpace(item.Description),
		PublicationDate: paper.DateOf(item.PublishedParsed.UTC()),
		Comments:        paper.CollapseSpace(extValue(item.Extensions, "arxiv", "comment")),
		ArXivID:         id,
	}
	for _, au := range item.Authors {
		if au != nil {
			p.AddAuthors(paper.CollapseSpace(au.Name))
		}
	}
	p.AddURLs(item.Link)
	p.AddURLs(item.Links...)

	pub := &paper.Publication{Title: Label, Category: paper.CategoryPreprint}
	pub.AddSubjectAreas(item.Categories...)
	p.Publication = pub
	p.AddDatabase(Label)
	return p, nil
}

// ArXivID extracts the versionless identifier from an abs URL such as
// http://arxiv.org/abs/2101.00001v2 or http://arxiv.org/abs/hep-th/9901001v1.
func ArXivID(guid string) string {
	id := strings.TrimSpace(guid)
	if i := strings.Index(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	if i := strings.LastIndex(id, "v"); i > 0 && i > strings.LastIndex(id, "/") {
		if _, err := strconv.Atoi(id[i+1:]); err == nil {
			id = id[:i]
		}
	}
	return id
}

// extValue returns the first value of a namespaced extension element,
// trying the conventional prefix before any other declared prefix.
func extValue(exts ext.Extensions, prefix, name string) string {
	if v := first(exts[prefix][name]); v != "" {
		return v
	}
	for _, byName := range exts {
		if v := first(byName[name]); v != "" {
			return v
		}
	}
	return ""
}

func first(values []ext.Extension) string {
	for _, v := range values {
		if s := strings.TrimSpace(v.Value); s != "" {
			return s
		}
	}
	return ""
}
