// Package source defines the contract between external paper providers and
// the collection, and drives adapters through their pagination loops.
package source

import (
	"context"
	"time"

	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/query"
)

// Page is one batch of results from a provider.
type Page struct {
	Papers []paper.Paper
	// Dropped holds one error per raw entry that could not be converted,
	// normally a *paper.RecordError.
	Dropped []error
	// Next is the continuation passed to the following FetchNextBatch call.
	Next string
	// Done is true when the provider has no further results.
	Done bool
	// Total is the provider-reported result count, or -1 if unknown.
	Total int
}

// Adapter is a paginated search source. FetchNextBatch is first called with
// an empty cursor and then with each Page.Next until a page reports Done.
// Papers must carry the adapter's label in Databases.
type Adapter interface {
	Label() string
	FetchNextBatch(ctx context.Context, cursor string) (Page, error)
}

// Expander discovers papers related to DOIs already in the collection
// through a citation graph.
type Expander interface {
	Label() string
	Expand(ctx context.Context, existingDOIs []string) ([]paper.Paper, error)
}

// TypeFilterer is implemented by adapters that can only return some
// publication categories. SupportsTypes reports whether the adapter can
// return anything for the selected categories.
type TypeFilterer interface {
	SupportsTypes(types []paper.Category) bool
}

// Request carries the search parameters every adapter needs. It is built
// once per run from the collection parameters.
type Request struct {
	Query *query.Query
	Since *paper.PublicationDate
	Until *paper.PublicationDate
}

// DateRange returns the request bounds, substituting 0001-01-01 and today
// for open ends, for providers that require both.
func (r Request) DateRange(now time.Time) (since, until paper.PublicationDate) {
	since = paper.PublicationDate{Year: 1, Month: 1, Day: 1}
	until = paper.DateOf(now)
	if r.Since != nil {
		since = *r.Since
	}
	if r.Until != nil {
		until = *r.Until
	}
	return since, until
}
