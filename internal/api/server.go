// Package api serves a saved search over a read-only HTTP API.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matsen/findpapers/internal/author"
	"github.com/matsen/findpapers/internal/collection"
	"github.com/matsen/findpapers/internal/export"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/storage"
)

// DefaultPageSize is the /papers page size when no limit is given.
const DefaultPageSize = 50

var errNoIndex = errors.New("no search index loaded; run `fp index rebuild` first")

// Server exposes one search and, optionally, its SQLite index.
type Server struct {
	search *collection.Search
	index  *storage.DB
	log    *logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithIndex enables the full-text and citation endpoints.
func WithIndex(db *storage.DB) Option {
	return func(s *Server) { s.index = db }
}

// WithLogger sets the request logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a server for search.
func New(search *collection.Search, opts ...Option) *Server {
	s := &Server{search: search, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/search", wrap(s.info))

	papers := r.Group("/papers")
	{
		papers.GET("", wrap(s.list))
		papers.GET("/query", wrap(s.query))
		papers.GET("/doi/*doi", wrap(s.byDOI))
	}

	r.GET("/citations/*doi", wrap(s.citations))
	r.GET("/export/:format", s.export)
	return r
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start).String())
}

// wrap renders a handler's result as {"data": ...} or {"error": "..."}.
func wrap(next func(*gin.Context) (any, int, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, code, err := next(c)
		if err != nil {
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		c.JSON(code, gin.H{"data": data})
	}
}

type searchInfo struct {
	ID               string                 `json:"id"`
	Query            string                 `json:"query"`
	Since            *paper.PublicationDate `json:"since,omitempty"`
	Until            *paper.PublicationDate `json:"until,omitempty"`
	Limit            int                    `json:"limit,omitempty"`
	LimitPerDatabase int                    `json:"limit_per_database,omitempty"`
	ProcessedAt      time.Time              `json:"processed_at"`
	Papers           int                    `json:"papers"`
	Databases        map[string]int         `json:"databases"`
	Stats            collection.Stats       `json:"stats"`
	IndexedCitations *int                   `json:"indexed_citations,omitempty"`
}

func (s *Server) info(c *gin.Context) (any, int, error) {
	p := s.search.Params()
	info := searchInfo{
		ID:               s.search.ID.String(),
		Query:            p.Query,
		Since:            p.Since,
		Until:            p.Until,
		Limit:            p.Limit,
		LimitPerDatabase: p.LimitPerDatabase,
		ProcessedAt:      s.search.ProcessedAt,
		Papers:           s.search.Len(),
		Databases:        s.search.DatabaseCounts(),
		Stats:            s.search.Stats(),
	}
	if s.index != nil {
		n, err := s.index.CountCitations()
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		info.IndexedCitations = &n
	}
	return info, http.StatusOK, nil
}

type page struct {
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Papers []paper.Paper `json:"papers"`
}

// list pages through the collection in insertion order, optionally
// restricted to one database, to selected papers or to papers by every
// given author.
func (s *Server) list(c *gin.Context) (any, int, error) {
	limit, err := intParam(c, "limit", DefaultPageSize)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	offset, err := intParam(c, "offset", 0)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	all := s.search.Papers()
	if db := c.Query("database"); db != "" {
		all = filter(all, func(p paper.Paper) bool { return p.HasDatabase(db) })
	}
	if c.Query("selected") == "true" {
		all = export.Selected(all)
	}
	if qs := author.ParseQueries(c.QueryArray("author")); len(qs) > 0 {
		all = filter(all, func(p paper.Paper) bool { return author.AllMatch(qs, p.Authors) })
	}

	out := page{Total: len(all), Offset: offset, Papers: []paper.Paper{}}
	if offset < len(all) {
		out.Papers = all[offset:min(len(all), offset+limit)]
	}
	return out, http.StatusOK, nil
}

func (s *Server) byDOI(c *gin.Context) (any, int, error) {
	doi := strings.TrimPrefix(c.Param("doi"), "/")
	p, ok := s.search.Get(doi)
	if !ok {
		return nil, http.StatusNotFound, fmt.Errorf("no paper with DOI %q", doi)
	}
	return p, http.StatusOK, nil
}

// query runs a full-text search against the index.
func (s *Server) query(c *gin.Context) (any, int, error) {
	if s.index == nil {
		return nil, http.StatusServiceUnavailable, errNoIndex
	}
	f := storage.SearchFilters{
		Keyword:      c.Query("q"),
		Title:        c.Query("title"),
		Authors:      c.QueryArray("author"),
		Venue:        c.Query("venue"),
		Category:     paper.Category(c.Query("category")),
		Database:     c.Query("database"),
		SelectedOnly: c.Query("selected") == "true",
	}
	var err error
	if f.YearFrom, err = intParam(c, "year_from", 0); err != nil {
		return nil, http.StatusBadRequest, err
	}
	if f.YearTo, err = intParam(c, "year_to", 0); err != nil {
		return nil, http.StatusBadRequest, err
	}
	limit, err := intParam(c, "limit", DefaultPageSize)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	papers, err := s.index.SearchWithFilters(f, limit)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	if papers == nil {
		papers = []paper.Paper{}
	}
	return papers, http.StatusOK, nil
}

type citations struct {
	DOI        string   `json:"doi"`
	References []string `json:"references"`
	CitedBy    []string `json:"cited_by"`
}

func (s *Server) citations(c *gin.Context) (any, int, error) {
	if s.index == nil {
		return nil, http.StatusServiceUnavailable, errNoIndex
	}
	doi := strings.TrimPrefix(c.Param("doi"), "/")
	refs, err := s.index.ReferencesOf(doi)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	citedBy, err := s.index.CitedBy(doi)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return citations{DOI: doi, References: orEmpty(refs), CitedBy: orEmpty(citedBy)}, http.StatusOK, nil
}

var contentTypes = map[string]string{
	"bibtex": "application/x-bibtex; charset=utf-8",
	"ris":    "application/x-research-info-systems; charset=utf-8",
	"rayyan": "text/csv; charset=utf-8",
}

func (s *Server) export(c *gin.Context) {
	format := strings.ToLower(c.Param("format"))
	papers := s.search.Papers()
	if c.Query("selected") == "true" {
		papers = export.Selected(papers)
	}

	var buf strings.Builder
	err := export.Write(&buf, format, papers, s.search.ProcessedAt)
	switch {
	case errors.Is(err, export.ErrEmpty):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ct, ok := contentTypes[format]
	if !ok {
		ct = "text/plain; charset=utf-8"
	}
	c.Data(http.StatusOK, ct, []byte(buf.String()))
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, v)
	}
	return n, nil
}

func filter(papers []paper.Paper, keep func(paper.Paper) bool) []paper.Paper {
	var out []paper.Paper
	for _, p := range papers {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
