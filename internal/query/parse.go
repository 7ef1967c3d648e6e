package query

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokTerm tokenKind = iota
	tokOpen
	tokClose
	tokWord
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokTerm:
		return fmt.Sprintf("term [%s]", t.text)
	case tokOpen:
		return `"("`
	case tokClose:
		return `")"`
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == ' ':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokOpen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokClose, pos: i})
			i++
		case c == '[':
			end := strings.IndexAny(s[i+1:], "[]")
			if end < 0 || s[i+1+end] != ']' {
				return nil, fmt.Errorf("%w: unterminated term at position %d", ErrInvalidQuery, i)
			}
			text := strings.TrimSpace(s[i+1 : i+1+end])
			if text == "" {
				return nil, fmt.Errorf("%w: empty term at position %d", ErrInvalidQuery, i)
			}
			toks = append(toks, token{kind: tokTerm, text: text, pos: i})
			i += end + 2
		case c == ']':
			return nil, fmt.Errorf("%w: unexpected ']' at position %d", ErrInvalidQuery, i)
		default:
			start := i
			for i < len(s) && !strings.ContainsRune(" ()[]", rune(s[i])) {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: s[start:i], pos: start})
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) errorf(format string, args ...any) error {
	where := "end of query"
	if !p.done() {
		where = fmt.Sprintf("position %d", p.peek().pos)
	}
	return fmt.Errorf("%w: %s at %s", ErrInvalidQuery, fmt.Sprintf(format, args...), where)
}

// group parses operand (connector operand)* up to a ')' or the end.
func (p *parser) group() (*Group, error) {
	g := &Group{}
	first, err := p.operand()
	if err != nil {
		return nil, err
	}
	g.Nodes = append(g.Nodes, first)

	for !p.done() && p.peek().kind != tokClose {
		conn, err := p.connector()
		if err != nil {
			return nil, err
		}
		next, err := p.operand()
		if err != nil {
			return nil, err
		}
		g.Connectors = append(g.Connectors, conn)
		g.Nodes = append(g.Nodes, next)
	}
	return g, nil
}

func (p *parser) operand() (Node, error) {
	if p.done() {
		return nil, p.errorf("expected a term or '('")
	}
	switch t := p.peek(); t.kind {
	case tokTerm:
		p.pos++
		return Term{Text: t.text}, nil
	case tokOpen:
		p.pos++
		g, err := p.group()
		if err != nil {
			return nil, err
		}
		if p.done() || p.peek().kind != tokClose {
			return nil, p.errorf("missing ')'")
		}
		p.pos++
		return g, nil
	default:
		return nil, p.errorf("expected a term or '(', got %s", t)
	}
}

func (p *parser) connector() (Connector, error) {
	t := p.peek()
	if t.kind != tokWord {
		return "", p.errorf("missing connector before %s", t)
	}
	p.pos++
	switch t.text {
	case "OR":
		return Or, nil
	case "AND":
		if !p.done() && p.peek().kind == tokWord && p.peek().text == "NOT" {
			p.pos++
			return AndNot, nil
		}
		return And, nil
	default:
		p.pos--
		return "", p.errorf("invalid connector %q (use AND, OR or AND NOT)", t.text)
	}
}
