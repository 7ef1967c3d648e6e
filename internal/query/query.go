// Package query parses the provider-neutral search language: terms in
// square brackets combined with AND, OR and AND NOT, grouped with
// parentheses, e.g.
//
//	[term a] AND ([term b] OR [term c]) AND NOT [term d]
//
// Connectors are upper case. Adapters render a parsed Query into their
// provider's syntax with Render.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuery is wrapped by every parse error.
var ErrInvalidQuery = errors.New("invalid query")

// Connector joins two operands.
type Connector string

const (
	And    Connector = "AND"
	Or     Connector = "OR"
	AndNot Connector = "AND NOT"
)

// Node is a Term or a Group.
type Node interface {
	node()
}

// Term is one bracketed search term.
type Term struct {
	Text string
}

// HasWildcard reports whether the term uses '*' or '?'.
func (t Term) HasWildcard() bool {
	return strings.ContainsAny(t.Text, "*?")
}

// Group is a sequence of operands; Connectors[i] joins Nodes[i] and
// Nodes[i+1].
type Group struct {
	Nodes      []Node
	Connectors []Connector
}

func (Term) node()   {}
func (*Group) node() {}

// Query is a parsed search expression.
type Query struct {
	Raw  string // sanitized source text
	Root *Group
}

// Sanitize collapses whitespace runs (including newlines and tabs) to a
// single space and trims the ends.
func Sanitize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Validate reports whether s is a well-formed query.
func Validate(s string) error {
	_, err := Parse(s)
	return err
}

// Parse sanitizes and parses s.
func Parse(s string) (*Query, error) {
	raw := Sanitize(s)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	toks, err := tokenize(raw)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.group()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, p.errorf("unexpected %s", p.peek())
	}
	return &Query{Raw: raw, Root: root}, nil
}

// Terms returns the text of every term in order of appearance.
func (q *Query) Terms() []string {
	var out []string
	walk(q.Root, func(t Term, _ bool) { out = append(out, t.Text) })
	return out
}

// PositiveTerms returns the terms that are not negated by AND NOT.
func (q *Query) PositiveTerms() []string {
	var out []string
	walk(q.Root, func(t Term, negated bool) {
		if !negated {
			out = append(out, t.Text)
		}
	})
	return out
}

// Depth returns the maximum parenthesis nesting level.
func (q *Query) Depth() int {
	return depth(q.Root) - 1
}

// HasConnector reports whether c appears anywhere in the query.
func (q *Query) HasConnector(c Connector) bool {
	var has func(g *Group) bool
	has = func(g *Group) bool {
		for _, conn := range g.Connectors {
			if conn == c {
				return true
			}
		}
		for _, n := range g.Nodes {
			if sub, ok := n.(*Group); ok && has(sub) {
				return true
			}
		}
		return false
	}
	return has(q.Root)
}

// HasWildcard reports whether any term uses a wildcard.
func (q *Query) HasWildcard() bool {
	found := false
	walk(q.Root, func(t Term, _ bool) { found = found || t.HasWildcard() })
	return found
}

func (q *Query) String() string {
	return q.Raw
}

func walk(g *Group, fn func(t Term, negated bool)) {
	var visit func(g *Group, negated bool)
	visit = func(g *Group, negated bool) {
		for i, n := range g.Nodes {
			neg := negated || (i > 0 && g.Connectors[i-1] == AndNot)
			switch v := n.(type) {
			case Term:
				fn(v, neg)
			case *Group:
				visit(v, neg)
			}
		}
	}
	visit(g, false)
}

func depth(g *Group) int {
	d := 0
	for _, n := range g.Nodes {
		if sub, ok := n.(*Group); ok {
			d = max(d, depth(sub))
		}
	}
	return d + 1
}
