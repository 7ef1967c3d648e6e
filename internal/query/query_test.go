package query

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		query string
		valid bool
	}{
		{"([term a] OR [term b])", true},
		{"[term a] OR [term b]", true},
		{"[term a] AND [term b]", true},
		{"[term a] AND NOT ([term b] OR [term c])", true},
		{"[term a] OR ([term b] AND ([term c] OR [term d]))", true},
		{"[term a]", true},
		{"[term *] AND [t?rm]", true},
		{"[term a] OR ([term b] AND ([term c] OR [term d])", false},
		{"[term a] or [term b]", false},
		{"[term a] and [term b]", false},
		{"[term a] and not [term b]", false},
		{"([term a] OR [term b]", false},
		{"[term a] OR [term b])", false},
		{"term a OR [term b]", false},
		{"[term a] [term b]", false},
		{"[term a] XOR [term b]", false},
		{"[term a] OR NOT [term b]", false},
		{"[] AND [term b]", false},
		{"[ ] AND [term b]", false},
		{"[ ]", false},
		{"[", false},
		{"[term a] AND", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			err := Validate(tt.query)
			if tt.valid && err != nil {
				t.Errorf("Validate(%q) error = %v, want nil", tt.query, err)
			}
			if !tt.valid {
				if err == nil {
					t.Errorf("Validate(%q) = nil, want error", tt.query)
				} else if !errors.Is(err, ErrInvalidQuery) {
					t.Errorf("Validate(%q) error = %v, want ErrInvalidQuery", tt.query, err)
				}
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"[term a]    OR     [term b]", "[term a] OR [term b]"},
		{"[term a]    AND     [term b]", "[term a] AND [term b]"},
		{"([term a]    OR     [term b]) AND [term *]", "([term a] OR [term b]) AND [term *]"},
		{"([term a]\nOR\t[term b]) AND [term *]", "([term a] OR [term b]) AND [term *]"},
		{"([term a]\n\n\n\nOR\n\n\n\n[term b]) AND [term *]", "([term a] OR [term b]) AND [term *]"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.input); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParse_Structure(t *testing.T) {
	q, err := Parse("[a] AND NOT ([b] OR [c]) AND [  d  ]")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got, want := q.Terms(), []string{"a", "b", "c", "d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
	if got, want := q.PositiveTerms(), []string{"a", "d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("PositiveTerms() = %v, want %v", got, want)
	}
	if !q.HasConnector(AndNot) || !q.HasConnector(Or) {
		t.Error("HasConnector() missed a connector")
	}
	if q.Depth() != 1 {
		t.Errorf("Depth() = %d, want 1", q.Depth())
	}
	if q.HasWildcard() {
		t.Error("HasWildcard() = true, want false")
	}
}

func TestQuery_Depth(t *testing.T) {
	tests := map[string]int{
		"[a]":                           0,
		"([a] OR [b])":                  1,
		"[a] OR ([b] AND ([c] OR [d]))": 2,
	}
	for input, want := range tests {
		q, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", input, err)
		}
		if q.Depth() != want {
			t.Errorf("Depth(%q) = %d, want %d", input, q.Depth(), want)
		}
	}
}

func TestRender(t *testing.T) {
	q, err := Parse("[deep learning] AND NOT ([graph] OR [tree*])")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		name    string
		dialect Dialect
		want    string
	}{
		{"neutral", Dialect{}, "[deep learning] AND NOT ([graph] OR [tree*])"},
		{
			"pubmed",
			Dialect{Term: Quoted("", "[TIAB]"), AndNot: "NOT"},
			`"deep learning"[TIAB] NOT ("graph"[TIAB] OR "tree*"[TIAB])`,
		},
		{
			"arxiv",
			Dialect{Term: Quoted("all:", ""), AndNot: "ANDNOT"},
			`all:"deep learning" ANDNOT (all:"graph" OR all:"tree*")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := q.Render(tt.dialect); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}
