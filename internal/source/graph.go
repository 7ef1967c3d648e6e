package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/matsen/findpapers/internal/identity"
	"github.com/matsen/findpapers/internal/paper"
)

// Resolver fetches the metadata of one paper by DOI, including its
// References and Cites lists where the provider knows them.
type Resolver interface {
	Resolve(ctx context.Context, doi string) (paper.Paper, error)
}

// WalkOptions bounds a citation-graph walk.
type WalkOptions struct {
	References bool // follow papers the seeds cite
	Cites      bool // follow papers citing the seeds
	Depth      int  // hops from the seeds; values below 1 mean 1
	Max        int  // cap on newly discovered papers; 0 means no cap
}

// Walk resolves every seed DOI, then follows reference and citation edges
// breadth-first, resolving each DOI at most once. Seeds are re-emitted so
// their graph edges merge into the stored records. Resolution failures for
// individual DOIs are skipped and returned joined; the walk itself only
// stops early on context cancellation.
//
// Cycles (a paper citing a paper that cites it back) are harmless: every
// DOI is keyed case-insensitively in a seen set before it is queued.
func Walk(ctx context.Context, r Resolver, seeds []string, opts WalkOptions, emit func(paper.Paper)) error {
	depth := max(opts.Depth, 1)

	type item struct {
		doi   string
		level int
	}
	seen := make(map[string]bool)
	var queue []item
	for _, d := range seeds {
		key := identity.DOIKey(d)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		queue = append(queue, item{doi: paper.CleanDOI(d)})
	}

	discovered := 0
	var errs []error
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		it := queue[0]
		queue = queue[1:]

		p, err := r.Resolve(ctx, it.doi)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolving %s: %w", it.doi, err))
			continue
		}
		emit(p)

		if it.level+1 > depth {
			continue
		}
		var next []string
		if opts.References {
			next = append(next, p.References...)
		}
		if opts.Cites {
			next = append(next, p.Cites...)
		}
		for _, d := range next {
			key := identity.DOIKey(d)
			if key == "" || seen[key] {
				continue
			}
			if opts.Max > 0 && discovered >= opts.Max {
				break
			}
			seen[key] = true
			discovered++
			queue = append(queue, item{doi: paper.CleanDOI(d), level: it.level + 1})
		}
	}
	return errors.Join(errs...)
}
