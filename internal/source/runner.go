package source

import (
	"context"
	"errors"
	"slices"

	"github.com/matsen/findpapers/internal/collection"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/matsen/findpapers/internal/paper"
)

// Report summarizes one adapter or expander run.
type Report struct {
	Label        string `json:"label"`
	Batches      int    `json:"batches"`
	Fetched      int    `json:"fetched"`
	Inserted     int    `json:"inserted"`
	Merged       int    `json:"merged"`
	Linked       int    `json:"linked,omitempty"` // existing papers that gained graph edges
	OutOfRange   int    `json:"out_of_range"`
	LimitReached int    `json:"limit_reached"`
	Malformed    int    `json:"malformed"`
	Filtered     int    `json:"filtered"`
	Skipped      bool   `json:"skipped,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Runner feeds adapters into a collection one at a time.
type Runner struct {
	search *collection.Search
	types  []paper.Category
	log    *logger.Logger
}

// NewRunner creates a runner for search. The publication-type filter is
// taken from the search parameters.
func NewRunner(search *collection.Search, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		search: search,
		types:  search.Params().PublicationTypes,
		log:    log,
	}
}

// RunAll runs each adapter to completion in order. A failing adapter does
// not stop the others.
func (r *Runner) RunAll(ctx context.Context, adapters []Adapter) []Report {
	reports := make([]Report, 0, len(adapters))
	for _, a := range adapters {
		if ctx.Err() != nil {
			break
		}
		reports = append(reports, r.Run(ctx, a))
	}
	return reports
}

// Run drives a's pagination loop until the provider is exhausted, the
// collection's global limit or a's per-database limit is reached, or a
// fetch fails. A failed fetch contributes zero records; papers already
// added stay in the collection.
func (r *Runner) Run(ctx context.Context, a Adapter) Report {
	label := a.Label()
	rep := Report{Label: label}
	log := r.log.With("database", label)

	if tf, ok := a.(TypeFilterer); ok && len(r.types) > 0 && !tf.SupportsTypes(r.types) {
		log.Info("skipping database, it returns none of the selected publication types")
		rep.Skipped = true
		return rep
	}

	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			rep.Error = err.Error()
			return rep
		}
		if r.search.ReachedLimit(label) {
			log.Info("limit reached, stopping")
			return rep
		}

		page, err := a.FetchNextBatch(ctx, cursor)
		if err != nil {
			log.Warn("fetch failed, skipping remaining results", "error", err, "batch", rep.Batches+1)
			rep.Error = err.Error()
			return rep
		}
		rep.Batches++
		if rep.Batches == 1 && page.Total >= 0 {
			log.Info("papers to fetch", "total", page.Total)
		}

		for _, dropErr := range page.Dropped {
			rep.Malformed++
			log.Warn("dropping malformed record", "error", dropErr)
		}
		for _, p := range page.Papers {
			if r.search.ReachedLimit(label) {
				log.Info("limit reached, stopping")
				return rep
			}
			rep.Fetched++
			r.offer(label, p, &rep, log)
		}
		log.Info("batch processed", "batch", rep.Batches, "fetched", rep.Fetched, "collection_size", r.search.Len())

		if page.Done {
			return rep
		}
		if page.Next == cursor {
			log.Warn("provider returned the same continuation twice, stopping", "cursor", cursor)
			return rep
		}
		cursor = page.Next
	}
}

// Expand asks e for papers related to the collection's DOIs. Newly
// discovered papers go through the same add path as primary adapters;
// papers already held by DOI only gain their graph edges, so seeds never
// take the expander's label or spend its per-database budget.
func (r *Runner) Expand(ctx context.Context, e Expander) Report {
	label := e.Label()
	rep := Report{Label: label, Batches: 1}
	log := r.log.With("database", label)

	dois := r.search.DOIs()
	log.Info("expanding citation graph", "seeds", len(dois))
	papers, err := e.Expand(ctx, dois)
	if err != nil {
		// Partial results are still offered.
		log.Warn("expansion incomplete", "error", err)
		rep.Error = err.Error()
	}
	for _, p := range papers {
		rep.Fetched++
		if changed, ok := r.search.Link(p.DOI, p.References, p.Cites); ok {
			if changed {
				rep.Linked++
			}
			continue
		}
		r.offer(label, p, &rep, log)
	}
	log.Info("expansion done", "fetched", rep.Fetched, "inserted", rep.Inserted, "merged", rep.Merged, "linked", rep.Linked)
	return rep
}

// offer validates, filters and adds one paper.
func (r *Runner) offer(label string, p paper.Paper, rep *Report, log *logger.Logger) {
	p = p.Clone()
	if err := p.Validate(); err != nil {
		var recErr *paper.RecordError
		if errors.As(err, &recErr) && recErr.Source == "" {
			recErr.Source = label
		}
		rep.Malformed++
		log.Warn("dropping malformed record", "error", err)
		return
	}
	if !r.acceptsType(p) {
		rep.Filtered++
		log.Debug("publication type filtered out", "title", p.Title)
		return
	}
	p.AddDatabase(label)

	switch r.search.Add(p) {
	case collection.Inserted:
		rep.Inserted++
	case collection.Merged:
		rep.Merged++
	case collection.RejectedOutOfRange:
		rep.OutOfRange++
	case collection.RejectedLimitReached:
		rep.LimitReached++
	}
}

// acceptsType applies the publication-type filter. Papers without a
// publication always pass.
func (r *Runner) acceptsType(p paper.Paper) bool {
	if len(r.types) == 0 || p.Publication == nil {
		return true
	}
	return slices.Contains(r.types, p.Publication.Category)
}
