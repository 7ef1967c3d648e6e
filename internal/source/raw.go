package source

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/matsen/findpapers/internal/paper"
)

// FlexibleString can unmarshal from either string or number JSON values.
// Providers disagree on whether counts and years are quoted.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// Int parses the value as an integer; ok is false for empty or non-numeric
// values.
func (f FlexibleString) Int() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(string(f)))
	return n, err == nil
}

// Float parses the value as a float.
func (f FlexibleString) Float() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(f)), 64)
	return v, err == nil
}

// StringOrList unmarshals a JSON value that is either a single string, a
// list of strings, or a list of {"$": "value"} objects (the Elsevier
// convention for repeated fields).
type StringOrList []string

func (s *StringOrList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var one FlexibleString
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StringOrList{string(one)}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// A lone {"$": "value"} object.
		raw = []json.RawMessage{data}
	}
	out := make(StringOrList, 0, len(raw))
	for _, r := range raw {
		var v FlexibleString
		if err := json.Unmarshal(r, &v); err == nil {
			out = append(out, string(v))
			continue
		}
		var obj struct {
			Value FlexibleString `json:"$"`
		}
		if err := json.Unmarshal(r, &obj); err != nil {
			return fmt.Errorf("cannot unmarshal %s into StringOrList", string(r))
		}
		out = append(out, string(obj.Value))
	}
	*s = out
	return nil
}

// First returns the first non-empty value, or "".
func (s StringOrList) First() string {
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// StripMarkup returns the text content of an HTML or JATS fragment with
// whitespace collapsed and entities decoded. Plain text passes through
// unchanged apart from whitespace.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return paper.CollapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return paper.CollapseSpace(s)
	}
	return paper.CollapseSpace(doc.Text())
}

// Malformed builds the error recorded for a raw entry that cannot become a
// paper.
func Malformed(label, id, field, reason string) error {
	return &paper.RecordError{Source: label, ID: id, Field: field, Reason: reason}
}
