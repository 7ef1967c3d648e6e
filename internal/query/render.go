package query

import "strings"

// Dialect describes how a provider spells terms, connectors and groups.
type Dialect struct {
	Term   func(text string) string
	And    string
	Or     string
	AndNot string
	Open   string
	Close  string
}

func (d Dialect) connector(c Connector) string {
	switch c {
	case And:
		return d.And
	case Or:
		return d.Or
	default:
		return d.AndNot
	}
}

// Render writes q in dialect d. Empty dialect fields fall back to the
// neutral spelling.
func (q *Query) Render(d Dialect) string {
	if d.Term == nil {
		d.Term = func(s string) string { return "[" + s + "]" }
	}
	if d.And == "" {
		d.And = string(And)
	}
	if d.Or == "" {
		d.Or = string(Or)
	}
	if d.AndNot == "" {
		d.AndNot = string(AndNot)
	}
	if d.Open == "" && d.Close == "" {
		d.Open, d.Close = "(", ")"
	}

	var b strings.Builder
	var render func(g *Group)
	render = func(g *Group) {
		for i, n := range g.Nodes {
			if i > 0 {
				b.WriteString(" ")
				b.WriteString(d.connector(g.Connectors[i-1]))
				b.WriteString(" ")
			}
			switch v := n.(type) {
			case Term:
				b.WriteString(d.Term(v.Text))
			case *Group:
				b.WriteString(d.Open)
				render(v)
				b.WriteString(d.Close)
			}
		}
	}
	render(q.Root)
	return b.String()
}

// Quoted is a Term function wrapping text in double quotes with an optional
// prefix and suffix, e.g. Quoted("", "[TIAB]") gives "text"[TIAB].
func Quoted(prefix, suffix string) func(string) string {
	return func(s string) string {
		return prefix + `"` + s + `"` + suffix
	}
}
