package crossref

import (
	"context"

	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/source"
)

// Expander follows CrossRef reference lists from papers already in the
// collection. CrossRef does not publish citing works, so only
// WalkOptions.References is honoured.
type Expander struct {
	adapter *Adapter
	opts    source.WalkOptions
}

// NewExpander creates an expander backed by a.
func NewExpander(a *Adapter, opts source.WalkOptions) *Expander {
	opts.Cites = false
	return &Expander{adapter: a, opts: opts}
}

func (e *Expander) Label() string { return Label }

func (e *Expander) Expand(ctx context.Context, existingDOIs []string) ([]paper.Paper, error) {
	var out []paper.Paper
	err := source.Walk(ctx, e.adapter, existingDOIs, e.opts, func(p paper.Paper) {
		out = append(out, p)
	})
	return out, err
}
