package collection

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matsen/findpapers/internal/identity"
	"github.com/matsen/findpapers/internal/paper"
)

// Snapshot is the persisted form of a Search: its parameters, identity,
// processed-at timestamp and every stored paper in insertion order.
type Snapshot struct {
	ID               string                 `json:"id"`
	Query            string                 `json:"query"`
	Since            *paper.PublicationDate `json:"since,omitempty"`
	Until            *paper.PublicationDate `json:"until,omitempty"`
	Limit            int                    `json:"limit,omitempty"`
	LimitPerDatabase int                    `json:"limit_per_database,omitempty"`
	Databases        []string               `json:"databases,omitempty"`
	PublicationTypes []paper.Category       `json:"publication_types,omitempty"`
	ProcessedAt      time.Time              `json:"processed_at"`
	Papers           []paper.Paper          `json:"papers"`
}

// Snapshot captures the current state of the search.
func (s *Search) Snapshot() Snapshot {
	p := s.Params()
	return Snapshot{
		ID:               s.ID.String(),
		Query:            p.Query,
		Since:            p.Since,
		Until:            p.Until,
		Limit:            p.Limit,
		LimitPerDatabase: p.LimitPerDatabase,
		Databases:        p.Databases,
		PublicationTypes: p.PublicationTypes,
		ProcessedAt:      s.ProcessedAt,
		Papers:           s.Papers(),
	}
}

// FromSnapshot rebuilds a Search from its persisted form. Papers are
// restored without re-applying the date window or limits, so a snapshot
// round-trips exactly; duplicates in a hand-edited document are merged.
func FromSnapshot(snap Snapshot, opts ...Option) (*Search, error) {
	id, err := uuid.Parse(snap.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid search id %q: %w", snap.ID, err)
	}
	s, err := New(Params{
		Query:            snap.Query,
		Since:            snap.Since,
		Until:            snap.Until,
		Limit:            snap.Limit,
		LimitPerDatabase: snap.LimitPerDatabase,
		Databases:        snap.Databases,
		PublicationTypes: snap.PublicationTypes,
	}, append([]Option{WithID(id), WithProcessedAt(snap.ProcessedAt)}, opts...)...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range snap.Papers {
		c := p.Clone()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("paper %d: %w", i, err)
		}
		m := identity.Resolve(c, lookup{s})
		if m.Kind == identity.NoMatch {
			s.insert(c)
		} else {
			s.mergeInto(m, c)
		}
	}
	return s, nil
}
