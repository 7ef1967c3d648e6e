// Package collection holds the deduplicated set of papers gathered by one
// search run. Papers enter only through Search.Add, which resolves identity,
// merges duplicates and enforces the run's date window and limits.
package collection

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matsen/findpapers/internal/identity"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/matsen/findpapers/internal/merge"
	"github.com/matsen/findpapers/internal/paper"
)

// Outcome is the result of Search.Add.
type Outcome int

const (
	Inserted Outcome = iota
	Merged
	RejectedOutOfRange
	RejectedLimitReached
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Merged:
		return "merged"
	case RejectedOutOfRange:
		return "rejected_out_of_range"
	case RejectedLimitReached:
		return "rejected_limit_reached"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Params are the immutable parameters of a search run. Zero limits mean
// unlimited; nil bounds mean unbounded.
type Params struct {
	Query            string
	Since            *paper.PublicationDate
	Until            *paper.PublicationDate
	Limit            int
	LimitPerDatabase int
	Databases        []string
	PublicationTypes []paper.Category
}

// Validate checks that the parameters describe a satisfiable run.
func (p Params) Validate() error {
	if p.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", p.Limit)
	}
	if p.LimitPerDatabase < 0 {
		return fmt.Errorf("limit per database must not be negative, got %d", p.LimitPerDatabase)
	}
	if p.Since != nil && p.Until != nil && p.Since.Compare(*p.Until) > 0 {
		return fmt.Errorf("since (%s) is after until (%s)", p.Since, p.Until)
	}
	return nil
}

// Stats counts Add outcomes over the lifetime of a Search.
type Stats struct {
	Inserted             int `json:"inserted"`
	Merged               int `json:"merged"`
	RejectedOutOfRange   int `json:"rejected_out_of_range"`
	RejectedLimitReached int `json:"rejected_limit_reached"`
}

// Search is the collection aggregate. All methods are safe for concurrent
// use; Add is the single serialization point for mutation.
type Search struct {
	ID          uuid.UUID
	ProcessedAt time.Time

	params Params
	log    *logger.Logger

	mu          sync.Mutex
	papers      []*paper.Paper    // insertion order
	byDOI       map[string]int    // DOI key -> index into papers
	byTitleYear map[string]int    // title-year key -> index, DOI-less papers only
	aliases     map[string]string // title-year key -> DOI key of a DOI-bearing paper
	dbCounts    map[string]int    // paper.SetKey(label) -> papers carrying label
	stats       Stats
}

// Option configures a Search.
type Option func(*Search)

// WithLogger sets the logger used to report merges and rejections.
func WithLogger(l *logger.Logger) Option {
	return func(s *Search) { s.log = l }
}

// WithProcessedAt overrides the processed-at timestamp, which otherwise is
// the creation time.
func WithProcessedAt(t time.Time) Option {
	return func(s *Search) { s.ProcessedAt = t.UTC() }
}

// WithID overrides the generated run identifier.
func WithID(id uuid.UUID) Option {
	return func(s *Search) { s.ID = id }
}

// New creates an empty search run.
func New(params Params, opts ...Option) (*Search, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search parameters: %w", err)
	}
	params.Databases = slices.Clone(params.Databases)
	params.PublicationTypes = slices.Clone(params.PublicationTypes)
	if params.Since != nil {
		d := *params.Since
		params.Since = &d
	}
	if params.Until != nil {
		d := *params.Until
		params.Until = &d
	}

	s := &Search{
		ID:          uuid.New(),
		ProcessedAt: time.Now().UTC(),
		params:      params,
		log:         logger.Nop(),
		byDOI:       make(map[string]int),
		byTitleYear: make(map[string]int),
		aliases:     make(map[string]string),
		dbCounts:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Params returns a copy of the run parameters.
func (s *Search) Params() Params {
	p := s.params
	p.Databases = slices.Clone(p.Databases)
	p.PublicationTypes = slices.Clone(p.PublicationTypes)
	if p.Since != nil {
		d := *p.Since
		p.Since = &d
	}
	if p.Until != nil {
		d := *p.Until
		p.Until = &d
	}
	return p
}

// Add offers a paper to the collection.
//
// The paper must pass paper.Validate; adapters are expected to validate
// and drop malformed records before calling Add, so an invalid paper here
// is a programmer error and panics.
func (s *Search) Add(p paper.Paper) Outcome {
	c := p.Clone()
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("collection: Add called with invalid paper: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := s.add(c)
	switch outcome {
	case Inserted:
		s.stats.Inserted++
	case Merged:
		s.stats.Merged++
	case RejectedOutOfRange:
		s.stats.RejectedOutOfRange++
	case RejectedLimitReached:
		s.stats.RejectedLimitReached++
	}
	return outcome
}

// Link merges reference and citation edges into the paper stored under
// doi. The paper's databases are left alone and no limit or date window
// applies. ok is false when no paper carries doi.
func (s *Search) Link(doi string, references, cites []string) (changed, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identity.DOIKey(doi)
	if key == "" {
		return false, false
	}
	idx, ok := s.byDOI[key]
	if !ok {
		return false, false
	}
	p := s.papers[idx].Clone()
	nRefs, nCites := len(p.References), len(p.Cites)
	p.AddReferences(references...)
	p.AddCites(cites...)
	if len(p.References) == nRefs && len(p.Cites) == nCites {
		return false, true
	}
	s.papers[idx] = &p
	return true, true
}

func (s *Search) add(p paper.Paper) Outcome {
	if !s.inWindow(p.PublicationDate) {
		s.log.Debug("paper outside date window", "title", p.Title, "date", p.PublicationDate.String())
		return RejectedOutOfRange
	}

	match := identity.Resolve(p, lookup{s})

	var existing *paper.Paper
	if match.Kind != identity.NoMatch {
		existing = s.papers[s.indexOf(match)]
	}

	if s.params.LimitPerDatabase > 0 {
		for _, label := range p.Databases {
			if existing != nil && existing.HasDatabase(label) {
				continue
			}
			if s.dbCounts[paper.SetKey(label)] >= s.params.LimitPerDatabase {
				s.log.Debug("database limit reached", "database", label, "title", p.Title)
				return RejectedLimitReached
			}
		}
	}
	if existing == nil && s.params.Limit > 0 && len(s.papers) >= s.params.Limit {
		s.log.Debug("global limit reached", "title", p.Title)
		return RejectedLimitReached
	}

	if existing == nil {
		s.insert(p)
		return Inserted
	}
	s.mergeInto(match, p)
	return Merged
}

func (s *Search) inWindow(d paper.PublicationDate) bool {
	if s.params.Since != nil && d.Compare(*s.params.Since) < 0 {
		return false
	}
	if s.params.Until != nil && d.Compare(*s.params.Until) > 0 {
		return false
	}
	return true
}

func (s *Search) indexOf(m identity.Match) int {
	if m.Primary {
		return s.byDOI[m.Key]
	}
	return s.byTitleYear[m.Key]
}

func (s *Search) insert(p paper.Paper) {
	if p.ProcessedAt.IsZero() {
		p.ProcessedAt = s.ProcessedAt
	}
	idx := len(s.papers)
	s.papers = append(s.papers, &p)
	s.index(idx, p)
	for _, label := range p.Databases {
		s.dbCounts[paper.SetKey(label)]++
	}
}

// index registers p under its identity keys. A DOI-bearing paper goes into
// the DOI index and claims its title-year alias if no other paper has.
func (s *Search) index(idx int, p paper.Paper) {
	tyKey := identity.TitleYearKey(p.Title, p.Year())
	if doiKey := identity.DOIKey(p.DOI); doiKey != "" {
		s.byDOI[doiKey] = idx
		if _, taken := s.aliases[tyKey]; !taken {
			s.aliases[tyKey] = doiKey
		}
		return
	}
	s.byTitleYear[tyKey] = idx
}

func (s *Search) mergeInto(m identity.Match, incoming paper.Paper) {
	idx := s.indexOf(m)
	existing := s.papers[idx]

	merged, changed := merge.Papers(*existing, incoming)
	for _, label := range merged.Databases {
		if !existing.HasDatabase(label) {
			s.dbCounts[paper.SetKey(label)]++
		}
	}

	// A DOI-less record that acquired a DOI moves to the DOI index.
	if !m.Primary && merged.DOI != "" {
		delete(s.byTitleYear, m.Key)
		s.index(idx, merged)
		s.log.Debug("paper migrated to DOI index", "doi", merged.DOI, "title", merged.Title)
	}

	s.papers[idx] = &merged
	if len(changed) > 0 {
		s.log.Debug("paper merged", "title", merged.Title, "match", m.Kind.String(), "changed", changed)
	}
}

// lookup exposes the indices to the identity resolver. Callers hold s.mu.
type lookup struct{ s *Search }

func (l lookup) HasDOI(k string) bool {
	_, ok := l.s.byDOI[k]
	return ok
}

func (l lookup) HasTitleYear(k string) bool {
	_, ok := l.s.byTitleYear[k]
	return ok
}

func (l lookup) TitleYearAlias(k string) (string, bool) {
	v, ok := l.s.aliases[k]
	return v, ok
}
