package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matsen/findpapers/internal/collection"
	"github.com/matsen/findpapers/internal/config"
	"github.com/matsen/findpapers/internal/export"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/source"
	"github.com/matsen/findpapers/internal/source/scopus"
)

func TestMain(m *testing.M) {
	log = logger.Nop()
	os.Exit(m.Run())
}

func testPaper(doi, title string, year int) paper.Paper {
	return paper.Paper{
		DOI:             doi,
		Title:           title,
		Authors:         []string{"Ada Lovelace"},
		PublicationDate: paper.NewPublicationDate(year, 1, 1),
		Databases:       []string{"CrossRef"},
	}
}

func TestProviderRate(t *testing.T) {
	tests := []struct {
		name string
		cap  float64
		own  float64
		want float64
	}{
		{"no cap", 0, 10, 10},
		{"cap below own", 2, 10, 2},
		{"cap above own", 20, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := providerRate(&config.GlobalConfig{RequestsPerSecond: tt.cap}, tt.own)
			if got != tt.want {
				t.Errorf("providerRate() = %g, want %g", got, tt.want)
			}
		})
	}
	if got := providerRate(nil, 3); got != 3 {
		t.Errorf("providerRate(nil) = %g, want 3", got)
	}
}

func TestBuildAdapters(t *testing.T) {
	c := &config.GlobalConfig{ScopusAPIKey: "key"}
	dbs := []string{"arXiv", "bioRxiv", "CrossRef", "medRxiv", "PubMed", "Scopus"}

	adapters, err := buildAdapters(c, log, dbs, source.Request{})
	if err != nil {
		t.Fatalf("buildAdapters() error = %v", err)
	}
	if len(adapters) != len(dbs) {
		t.Fatalf("got %d adapters, want %d", len(adapters), len(dbs))
	}
	for i, a := range adapters {
		if a.Label() != dbs[i] {
			t.Errorf("adapter %d label = %q, want %q", i, a.Label(), dbs[i])
		}
	}
}

func TestBuildAdapters_ScopusNeedsKey(t *testing.T) {
	_, err := buildAdapters(&config.GlobalConfig{}, log, []string{"Scopus"}, source.Request{})
	if !errors.Is(err, scopus.ErrMissingAPIKey) {
		t.Errorf("buildAdapters() error = %v, want ErrMissingAPIKey", err)
	}
	if err != nil && !strings.Contains(err.Error(), config.EnvScopusAPIKey) {
		t.Errorf("error should mention %s: %v", config.EnvScopusAPIKey, err)
	}
}

func TestBuildExpander(t *testing.T) {
	c := &config.GlobalConfig{}
	for name, label := range map[string]string{"crossref": "CrossRef", "OpenCitations": "OpenCitations"} {
		e, err := buildExpander(c, log, name, source.WalkOptions{References: true})
		if err != nil {
			t.Fatalf("buildExpander(%q) error = %v", name, err)
		}
		if e.Label() != label {
			t.Errorf("buildExpander(%q).Label() = %q, want %q", name, e.Label(), label)
		}
	}
	if _, err := buildExpander(c, log, "scholar", source.WalkOptions{}); err == nil {
		t.Error("buildExpander(unknown) should fail")
	}
}

func TestParseYearRange(t *testing.T) {
	tests := []struct {
		in       string
		from, to int
		wantErr  bool
	}{
		{"", 0, 0, false},
		{"2020", 2020, 2020, false},
		{"2018:2022", 2018, 2022, false},
		{"2020:", 2020, 0, false},
		{":2019", 0, 2019, false},
		{"2022:2018", 0, 0, true},
		{"20a0", 0, 0, true},
		{"99", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			from, to, err := parseYearRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseYearRange(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if from != tt.from || to != tt.to {
				t.Errorf("parseYearRange(%q) = %d, %d, want %d, %d", tt.in, from, to, tt.from, tt.to)
			}
		})
	}
}

func TestParseDateFlag(t *testing.T) {
	d, err := parseDateFlag("")
	if err != nil || d != nil {
		t.Errorf("parseDateFlag(\"\") = %v, %v, want nil, nil", d, err)
	}
	d, err = parseDateFlag("2020-03")
	if err != nil {
		t.Fatal(err)
	}
	if d.Year != 2020 || d.Month != 3 {
		t.Errorf("parseDateFlag(2020-03) = %v", d)
	}
	if _, err := parseDateFlag("soon"); err == nil {
		t.Error("parseDateFlag(soon) should fail")
	}
}

func TestAllFailed(t *testing.T) {
	tests := []struct {
		name    string
		reports []source.Report
		want    bool
	}{
		{"none ran", nil, false},
		{"one ok", []source.Report{{Label: "a", Error: "boom"}, {Label: "b"}}, false},
		{"all failed", []source.Report{{Label: "a", Error: "boom"}, {Label: "b", Error: "boom"}}, true},
		{"skipped ignored", []source.Report{{Label: "a", Error: "boom"}, {Label: "b", Skipped: true}}, true},
		{"only skipped", []source.Report{{Label: "a", Skipped: true}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := allFailed(tt.reports); got != tt.want {
				t.Errorf("allFailed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImportPapers(t *testing.T) {
	since := paper.NewPublicationDate(2000, 1, 1)
	search, err := collection.New(collection.Params{Query: "[graph]", Since: &since})
	if err != nil {
		t.Fatal(err)
	}

	got := importPapers(search, []paper.Paper{
		testPaper("10.1/a", "First paper", 2020),
		testPaper("10.1/A", "First paper", 2020), // same DOI, different case
		testPaper("10.1/b", "Too old", 1990),
		{Title: "", PublicationDate: paper.NewPublicationDate(2020, 1, 1)},
	})

	if got.Imported != 1 || got.Merged != 1 || got.OutOfRange != 1 || got.Malformed != 1 {
		t.Errorf("importPapers() = %+v", got)
	}
	if len(got.Errors) != 1 || !strings.HasPrefix(got.Errors[0], "paper 4:") {
		t.Errorf("Errors = %v", got.Errors)
	}
	if search.Len() != 1 {
		t.Errorf("search.Len() = %d, want 1", search.Len())
	}
}

func TestSummarize(t *testing.T) {
	search, err := collection.New(collection.Params{Query: "[graph]", Databases: []string{"CrossRef", "PubMed"}})
	if err != nil {
		t.Fatal(err)
	}
	selected := true
	a := testPaper("10.1/a", "First", 2020)
	a.Selected = &selected
	b := testPaper("", "Second", 2021)
	b.Databases = []string{"PubMed"}
	search.Add(a)
	search.Add(b)

	got := summarize(search)
	if got.Papers != 2 || got.WithDOI != 1 || got.Selected != 1 {
		t.Errorf("summarize() = %+v", got)
	}
	if got.PerDatabase["CrossRef"] != 1 || got.PerDatabase["PubMed"] != 1 {
		t.Errorf("PerDatabase = %v", got.PerDatabase)
	}
	if got.Query != "[graph]" || got.ID != search.ID.String() {
		t.Errorf("summarize() identity = %q, %q", got.Query, got.ID)
	}
}

func TestWriteExport(t *testing.T) {
	a := testPaper("10.1/a", "First", 2020)
	a.References = []string{"10.1/b"}
	papers := []paper.Paper{a, testPaper("10.1/b", "Second", 2021)}

	tests := []struct {
		format string
		prefix string
	}{
		{"jsonl", `{"`},
		{"citations", `{"citing":"10.1/a","cited":"10.1/b"}`},
		{"bibtex", "@misc{"},
		{"ris", "TY  - "},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeExport(&buf, tt.format, papers, time.Time{}); err != nil {
				t.Fatalf("writeExport() error = %v", err)
			}
			if !strings.HasPrefix(buf.String(), tt.prefix) {
				t.Errorf("writeExport(%s) = %q, want prefix %q", tt.format, buf.String(), tt.prefix)
			}
		})
	}

	for _, format := range []string{"jsonl", "citations"} {
		var buf bytes.Buffer
		err := writeExport(&buf, format, nil, time.Time{})
		if !errors.Is(err, export.ErrEmpty) {
			t.Errorf("writeExport(%s, empty) error = %v, want ErrEmpty", format, err)
		}
	}
	var buf bytes.Buffer
	err := writeExport(&buf, "citations", []paper.Paper{testPaper("10.1/c", "Lonely", 2020)}, time.Time{})
	if !errors.Is(err, export.ErrEmpty) {
		t.Errorf("writeExport(citations, no edges) error = %v, want ErrEmpty", err)
	}
}

func TestAppendBibTeX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	papers := []paper.Paper{testPaper("10.1/a", "First", 2020), testPaper("10.1/b", "Second", 2021)}

	n, err := appendBibTeX(path, papers)
	if err != nil || n != 2 {
		t.Fatalf("appendBibTeX() = %d, %v, want 2", n, err)
	}
	n, err = appendBibTeX(path, append(papers, testPaper("10.1/c", "Third", 2022)))
	if err != nil || n != 1 {
		t.Fatalf("second appendBibTeX() = %d, %v, want 1", n, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "@misc{"); got != 3 {
		t.Errorf("file has %d entries, want 3:\n%s", got, data)
	}
}

func TestSetConfigValue(t *testing.T) {
	var c config.GlobalConfig
	for key, value := range map[string]string{
		"crossref_mailto":     "me@example.org",
		"databases":           "CrossRef, PubMed,",
		"limit":               "100",
		"requests_per_second": "0.5",
	} {
		if err := setConfigValue(&c, key, value); err != nil {
			t.Fatalf("setConfigValue(%s) error = %v", key, err)
		}
	}
	if c.CrossRefMailto != "me@example.org" || c.Limit != 100 || c.RequestsPerSecond != 0.5 {
		t.Errorf("config = %+v", c)
	}
	if len(c.Databases) != 2 || c.Databases[1] != "PubMed" {
		t.Errorf("Databases = %v", c.Databases)
	}

	if err := setConfigValue(&c, "limit", "many"); err == nil {
		t.Error("non-integer limit should fail")
	}
	if err := setConfigValue(&c, "colour", "blue"); err == nil {
		t.Error("unknown key should fail")
	}
}

func TestRedacted(t *testing.T) {
	c := &config.GlobalConfig{ScopusAPIKey: "secret", CrossRefMailto: "me@example.org"}
	got := redacted(c)
	if got.ScopusAPIKey != "[REDACTED]" || got.PubMedAPIKey != "" || got.CrossRefMailto != "me@example.org" {
		t.Errorf("redacted() = %+v", got)
	}
	if c.ScopusAPIKey != "secret" {
		t.Error("redacted() modified its input")
	}
}

func TestSeedFromPDFs_Unreadable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.PDF"), []byte("not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	search, err := collection.New(collection.Params{Query: "[graph]"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := seedFromPDFs(t.Context(), search, nil, "", []string{dir})
	if err != nil {
		t.Fatalf("seedFromPDFs() error = %v", err)
	}
	if got.Files != 1 || got.Identified != 0 || got.Added != 0 {
		t.Errorf("seedFromPDFs() = %+v", got)
	}
	if len(got.Seeds) != 1 || got.Seeds[0].Error == "" {
		t.Errorf("Seeds = %+v", got.Seeds)
	}

	if _, err := seedFromPDFs(t.Context(), search, nil, "", []string{filepath.Join(dir, "missing.pdf")}); err == nil {
		t.Error("missing path should fail")
	}
}

func TestVenueMetrics(t *testing.T) {
	p := testPaper("10.1/a", "A", 2020)
	if got := venueMetrics(p); got != "" {
		t.Errorf("venueMetrics(no publication) = %q", got)
	}
	p.Publication = &paper.Publication{
		Title: "Nature",
		Bibliometrics: []paper.Bibliometrics{
			{Source: "Other", Scores: map[string]float64{paper.ScoreSJR: 1}},
			{Source: "scopus", Scores: map[string]float64{paper.ScoreCiteScore: 12.5, paper.ScoreSNIP: 2}},
		},
	}
	if got, want := venueMetrics(p), "CiteScore 12.5, SNIP 2"; got != want {
		t.Errorf("venueMetrics() = %q, want %q", got, want)
	}
}
