package main

import (
	"fmt"
	"strings"

	"github.com/matsen/findpapers/internal/config"
	"github.com/matsen/findpapers/internal/fetch"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/matsen/findpapers/internal/source"
	"github.com/matsen/findpapers/internal/source/arxiv"
	"github.com/matsen/findpapers/internal/source/crossref"
	"github.com/matsen/findpapers/internal/source/opencitations"
	"github.com/matsen/findpapers/internal/source/pubmed"
	"github.com/matsen/findpapers/internal/source/rxiv"
	"github.com/matsen/findpapers/internal/source/scopus"
)

// userAgent identifies fp to providers.
var userAgent = "findpapers/" + Version + " (+https://github.com/matsen/findpapers)"

// Expansion sources accepted by --source.
const (
	ExpandCrossRef      = "crossref"
	ExpandOpenCitations = "opencitations"
)

// providerRate returns the provider's own rate, capped by the configured
// requests_per_second when that is set.
func providerRate(c *config.GlobalConfig, own float64) float64 {
	if c != nil && c.RequestsPerSecond > 0 && c.RequestsPerSecond < own {
		return c.RequestsPerSecond
	}
	return own
}

// newClient builds a rate-limited HTTP client for one provider.
func newClient(c *config.GlobalConfig, l *logger.Logger, rate float64) *fetch.Client {
	opts := []fetch.ClientOption{
		fetch.WithRateLimit(providerRate(c, rate)),
		fetch.WithUserAgent(userAgent),
		fetch.WithLogger(l),
	}
	if c != nil && c.MaxRetries > 0 {
		opts = append(opts, fetch.WithMaxRetries(c.MaxRetries))
	}
	return fetch.NewClient(opts...)
}

// buildAdapters creates one adapter per database label, in order. Labels
// must already be canonical (see config.CanonicalDatabases).
func buildAdapters(c *config.GlobalConfig, l *logger.Logger, databases []string, req source.Request) ([]source.Adapter, error) {
	adapters := make([]source.Adapter, 0, len(databases))
	for _, db := range databases {
		a, err := buildAdapter(c, l.With("database", db), db, req)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func buildAdapter(c *config.GlobalConfig, l *logger.Logger, db string, req source.Request) (source.Adapter, error) {
	switch db {
	case arxiv.Label:
		return arxiv.New(newClient(c, l, arxiv.RequestsPerSecond), req, arxiv.WithLogger(l)), nil
	case string(rxiv.BioRxiv), string(rxiv.MedRxiv):
		return rxiv.New(newClient(c, l, rxiv.RequestsPerSecond), rxiv.Server(db), req, rxiv.WithLogger(l)), nil
	case crossref.Label:
		return newCrossRef(c, l, req), nil
	case pubmed.Label:
		rate := pubmed.RequestsPerSecond
		opts := []pubmed.Option{pubmed.WithLogger(l)}
		if c.PubMedAPIKey != "" {
			rate = pubmed.RequestsPerSecondWithKey
			opts = append(opts, pubmed.WithAPIKey(c.PubMedAPIKey))
		}
		return pubmed.New(newClient(c, l, rate), req, opts...), nil
	case scopus.Label:
		a, err := scopus.New(newClient(c, l, scopus.RequestsPerSecond), c.ScopusAPIKey, req, scopus.WithLogger(l))
		if err != nil {
			return nil, fmt.Errorf("%w (set scopus_api_key or %s)", err, config.EnvScopusAPIKey)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown database %q", db)
	}
}

func newCrossRef(c *config.GlobalConfig, l *logger.Logger, req source.Request) *crossref.Adapter {
	opts := []crossref.Option{crossref.WithLogger(l)}
	if c.CrossRefMailto != "" {
		opts = append(opts, crossref.WithMailto(c.CrossRefMailto))
	}
	return crossref.New(newClient(c, l, crossref.RequestsPerSecond), req, opts...)
}

// buildExpander creates the citation-graph expander named by name.
func buildExpander(c *config.GlobalConfig, l *logger.Logger, name string, opts source.WalkOptions) (source.Expander, error) {
	switch strings.ToLower(name) {
	case ExpandCrossRef:
		l = l.With("database", crossref.Label)
		return crossref.NewExpander(newCrossRef(c, l, source.Request{}), opts), nil
	case ExpandOpenCitations:
		l = l.With("database", opencitations.Label)
		ocOpts := []opencitations.Option{opencitations.WithWalk(opts), opencitations.WithLogger(l)}
		if c.OpenCitationsToken != "" {
			ocOpts = append(ocOpts, opencitations.WithAccessToken(c.OpenCitationsToken))
		}
		return opencitations.New(newClient(c, l, opencitations.RequestsPerSecond), ocOpts...), nil
	default:
		return nil, fmt.Errorf("unknown expansion source %q (want %s or %s)", name, ExpandCrossRef, ExpandOpenCitations)
	}
}
