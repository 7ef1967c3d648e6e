// Package opencitations resolves DOIs through the OpenCitations metadata
// API and expands a collection along its open citation graph.
package opencitations

import (
	"context"
	"fmt"
	"strings"

	"github.com/matsen/findpapers/internal/fetch"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/source"
)

const (
	// Label is the database label OpenCitations contributes.
	Label = "OpenCitations"

	// BaseURL is the metadata endpoint of the OpenCitations index API.
	BaseURL = "https://opencitations.net/index/api/v1/metadata"

	// RequestsPerSecond is a polite default; the API publishes no quota.
	RequestsPerSecond = 2.0

	listSeparator = ";"
)

// Client implements source.Resolver and source.Expander.
type Client struct {
	client  *fetch.Client
	baseURL string
	token   string
	opts    source.WalkOptions
	log     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAccessToken sets the optional OpenCitations access token.
func WithAccessToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithWalk sets how far Expand follows the graph. The default follows
// references and citing papers one hop.
func WithWalk(opts source.WalkOptions) Option {
	return func(c *Client) { c.opts = opts }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates an OpenCitations client.
func New(client *fetch.Client, opts ...Option) *Client {
	c := &Client{
		client:  client,
		baseURL: BaseURL,
		opts:    source.WalkOptions{References: true, Cites: true, Depth: 1},
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.token != "" {
		c.client = c.client.With(fetch.WithHeader("authorization", c.token))
	}
	return c
}

func (c *Client) Label() string { return Label }

type metadata struct {
	Author        string                `json:"author"`
	Year          source.FlexibleString `json:"year"`
	Title         string                `json:"title"`
	SourceTitle   string                `json:"source_title"`
	Page          string                `json:"page"`
	DOI           string                `json:"doi"`
	Reference     string                `json:"reference"`
	Citation      string                `json:"citation"`
	CitationCount source.FlexibleString `json:"citation_count"`
	OALink        string                `json:"oa_link"`
}

// Resolve fetches one DOI's metadata together with its reference and
// citing-paper DOI lists.
func (c *Client) Resolve(ctx context.Context, doi string) (paper.Paper, error) {
	doi = paper.CleanDOI(doi)
	var resp []metadata
	if err := c.client.GetJSON(ctx, c.baseURL+"/"+doi, &resp); err != nil {
		return paper.Paper{}, fmt.Errorf("opencitations metadata %s: %w", doi, err)
	}
	if len(resp) == 0 {
		return paper.Paper{}, fmt.Errorf("opencitations metadata %s: %w", doi, fetch.ErrNotFound)
	}
	return resp[0].toPaper(doi)
}

// Expand walks the citation graph from existingDOIs.
func (c *Client) Expand(ctx context.Context, existingDOIs []string) ([]paper.Paper, error) {
	var out []paper.Paper
	err := source.Walk(ctx, c, existingDOIs, c.opts, func(p paper.Paper) {
		out = append(out, p)
	})
	c.log.Debug("opencitations walk", "seeds", len(existingDOIs), "papers", len(out))
	return out, err
}

func (m metadata) toPaper(requested string) (paper.Paper, error) {
	title := paper.CollapseSpace(m.Title)
	if title == "" {
		return paper.Paper{}, source.Malformed(Label, requested, "title", "missing required field")
	}
	year, ok := m.Year.Int()
	if !ok || year <= 0 {
		return paper.Paper{}, source.Malformed(Label, requested, "publication_date", "no usable year")
	}

	p := paper.Paper{
		DOI:             m.DOI,
		Title:           title,
		PublicationDate: paper.NewPublicationDate(year, 1, 1),
		Pages:           strings.TrimSpace(m.Page),
	}
	if p.DOI == "" {
		p.DOI = requested
	}
	if n, ok := m.CitationCount.Int(); ok {
		p.SetCitations(n)
	}
	p.AddAuthors(splitList(m.Author)...)
	p.AddReferences(splitList(m.Reference)...)
	p.AddCites(splitList(m.Citation)...)
	p.AddURLs(m.OALink)
	if t := strings.TrimSpace(m.SourceTitle); t != "" {
		p.Publication = &paper.Publication{Title: t}
	}
	p.AddDatabase(Label)
	return p, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, listSeparator)
}
