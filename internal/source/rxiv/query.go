package rxiv

import (
	"fmt"
	"strings"

	"github.com/matsen/findpapers/internal/query"
)

// SubQuery is one search-page request: a flat list of terms joined by a
// single connector.
type SubQuery struct {
	Terms    []string
	MatchAll bool
}

// Split checks that q fits what the bioRxiv/medRxiv search form can express
// and splits it into one sub-query per top-level group. Allowed: no
// wildcards, no AND NOT, at most one level of grouping, only OR between
// groups, and a single connector type inside each group.
func Split(q *query.Query) ([]SubQuery, error) {
	if q.HasWildcard() {
		return nil, fmt.Errorf("%w: wildcards are not supported by bioRxiv/medRxiv", query.ErrInvalidQuery)
	}
	if q.HasConnector(query.AndNot) {
		return nil, fmt.Errorf("%w: AND NOT is not supported by bioRxiv/medRxiv", query.ErrInvalidQuery)
	}
	if q.Depth() > 1 {
		return nil, fmt.Errorf("%w: bioRxiv/medRxiv allow at most one level of grouping", query.ErrInvalidQuery)
	}

	root := q.Root
	if len(root.Nodes) == 1 {
		if g, ok := root.Nodes[0].(*query.Group); ok {
			root = g
		}
	}

	hasGroups := false
	for _, n := range root.Nodes {
		if _, ok := n.(*query.Group); ok {
			hasGroups = true
			break
		}
	}
	if !hasGroups {
		sq, err := flat(root)
		if err != nil {
			return nil, err
		}
		return []SubQuery{sq}, nil
	}

	for _, c := range root.Connectors {
		if c != query.Or {
			return nil, fmt.Errorf("%w: only OR may join groups for bioRxiv/medRxiv", query.ErrInvalidQuery)
		}
	}
	out := make([]SubQuery, 0, len(root.Nodes))
	for _, n := range root.Nodes {
		switch v := n.(type) {
		case query.Term:
			out = append(out, SubQuery{Terms: []string{v.Text}})
		case *query.Group:
			sq, err := flat(v)
			if err != nil {
				return nil, err
			}
			out = append(out, sq)
		}
	}
	return out, nil
}

func flat(g *query.Group) (SubQuery, error) {
	var sq SubQuery
	for _, n := range g.Nodes {
		t, ok := n.(query.Term)
		if !ok {
			return SubQuery{}, fmt.Errorf("%w: nested groups are not supported by bioRxiv/medRxiv", query.ErrInvalidQuery)
		}
		sq.Terms = append(sq.Terms, t.Text)
	}
	for i, c := range g.Connectors {
		if i > 0 && c != g.Connectors[0] {
			return SubQuery{}, fmt.Errorf("%w: mixed connectors in group %q", query.ErrInvalidQuery, strings.Join(sq.Terms, ", "))
		}
	}
	sq.MatchAll = len(g.Connectors) > 0 && g.Connectors[0] == query.And
	return sq, nil
}

// encode renders the abstract_title path segment the search form builds:
// quoted terms with spaces as '+', joined by '+', double-escaped.
func (sq SubQuery) encode() string {
	parts := make([]string, len(sq.Terms))
	for i, t := range sq.Terms {
		t = strings.ReplaceAll(strings.Join(strings.Fields(t), "+"), "+", "%252B")
		parts[i] = "%2522" + t + "%2522"
	}
	flag := "match-any"
	if sq.MatchAll {
		flag = "match-all"
	}
	return "abstract_title%3A" + strings.Join(parts, "%2B") + "%20abstract_title_flags%3A" + flag
}
