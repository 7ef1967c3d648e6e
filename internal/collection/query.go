package collection

import (
	"github.com/matsen/findpapers/internal/identity"
	"github.com/matsen/findpapers/internal/paper"
)

// Len returns the number of distinct papers.
func (s *Search) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.papers)
}

// Papers returns copies of all papers in insertion order.
func (s *Search) Papers() []paper.Paper {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]paper.Paper, len(s.papers))
	for i, p := range s.papers {
		out[i] = p.Clone()
	}
	return out
}

// Get returns the paper stored under doi, compared case-insensitively.
func (s *Search) Get(doi string) (paper.Paper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byDOI[identity.DOIKey(doi)]
	if !ok {
		return paper.Paper{}, false
	}
	return s.papers[idx].Clone(), true
}

// Find returns the stored paper that p would merge into, if any.
func (s *Search) Find(p paper.Paper) (paper.Paper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := identity.Resolve(p, lookup{s})
	if m.Kind == identity.NoMatch {
		return paper.Paper{}, false
	}
	return s.papers[s.indexOf(m)].Clone(), true
}

// DOIs returns the DOIs of all DOI-bearing papers, in insertion order.
func (s *Search) DOIs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, p := range s.papers {
		if p.DOI != "" {
			out = append(out, p.DOI)
		}
	}
	return out
}

// CountFor returns how many papers carry the database label.
func (s *Search) CountFor(label string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dbCounts[paper.SetKey(label)]
}

// ReachedLimit reports whether a source contributing under label can no
// longer insert new papers: the global limit is saturated, or label's
// per-database limit is.
func (s *Search) ReachedLimit(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.params.Limit > 0 && len(s.papers) >= s.params.Limit {
		return true
	}
	return s.params.LimitPerDatabase > 0 && s.dbCounts[paper.SetKey(label)] >= s.params.LimitPerDatabase
}

// Stats returns the Add outcome counters.
func (s *Search) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// DatabaseCounts returns the per-label paper counts keyed by the label as
// first seen on a stored paper.
func (s *Search) DatabaseCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	seen := make(map[string]bool)
	for _, p := range s.papers {
		for _, label := range p.Databases {
			key := paper.SetKey(label)
			if seen[key] {
				continue
			}
			seen[key] = true
			out[label] = s.dbCounts[key]
		}
	}
	return out
}
