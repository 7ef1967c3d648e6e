package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/findpapers/internal/paper"
)

func journalPaper() paper.Paper {
	return paper.Paper{
		DOI:             "10.1234/test",
		Title:           "Test Paper Title",
		Authors:         []string{"John Smith", "Jane Doe"},
		Abstract:        "This is the abstract",
		Publication:     &paper.Publication{Title: "Nature", Category: paper.CategoryJournal, ISSN: "1476-4687"},
		PublicationDate: paper.NewPublicationDate(2026, 3, 1),
		Pages:           "10-20",
	}
}

func TestToBibTeX_BasicArticle(t *testing.T) {
	got := ToBibTeX(journalPaper(), "Smith2026-test")

	// Check entry type and key
	if !strings.HasPrefix(got, "@article{Smith2026-test,") {
		t.Errorf("ToBibTeX() should start with @article{Smith2026-test, got:\n%s", got)
	}

	for _, want := range []string{
		`author = {Smith, John and Doe, Jane}`,
		`title = {Test Paper Title}`,
		`journal = {Nature}`,
		`issn = {1476-4687}`,
		`year = {2026}`,
		`month = {3}`,
		`pages = {10--20}`,
		`doi = {10.1234/test}`,
		`abstract = {This is the abstract}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ToBibTeX() should contain %q, got:\n%s", want, got)
		}
	}

	// Check closing brace
	if !strings.HasSuffix(strings.TrimSpace(got), "}") {
		t.Errorf("ToBibTeX() should end with }, got:\n%s", got)
	}
}

func TestToBibTeX_Inproceedings(t *testing.T) {
	p := paper.Paper{
		Title:           "A Conference Paper",
		Authors:         []string{"Alice Brown"},
		Publication:     &paper.Publication{Title: "Proceedings of ICML 2026", Category: paper.CategoryConference},
		PublicationDate: paper.NewPublicationDate(2026, 1, 1),
	}

	got := ToBibTeX(p, "Conference2026")

	if !strings.HasPrefix(got, "@inproceedings{Conference2026,") {
		t.Errorf("ToBibTeX() conference paper should be @inproceedings, got:\n%s", got)
	}
	if !strings.Contains(got, `booktitle = {Proceedings of ICML 2026}`) {
		t.Errorf("ToBibTeX() conference paper should use booktitle, got:\n%s", got)
	}
}

func TestDetermineEntryType(t *testing.T) {
	tests := []struct {
		venue    string
		category paper.Category
		want     string
	}{
		{"Nature", paper.CategoryJournal, "article"},
		{"bioRxiv", paper.CategoryPreprint, "article"},
		{"Some Book", paper.CategoryBook, "book"},
		{"Proceedings of NeurIPS", "", "inproceedings"},
		{"International Conference on Machine Learning", paper.CategoryOther, "inproceedings"},
		{"Workshop on AI Safety", "", "inproceedings"},
		{"Symposium on Theory of Computing", "", "inproceedings"},
		{"Science", "", "article"}, // Default
	}

	for _, tt := range tests {
		t.Run(tt.venue, func(t *testing.T) {
			p := paper.Paper{Publication: &paper.Publication{Title: tt.venue, Category: tt.category}}
			got := determineEntryType(p)
			if got != tt.want {
				t.Errorf("determineEntryType(%q) = %q, want %q", tt.venue, got, tt.want)
			}
		})
	}

	if got := determineEntryType(paper.Paper{}); got != "misc" {
		t.Errorf("determineEntryType(no publication) = %q, want misc", got)
	}
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		name    string
		authors []string
		want    string
	}{
		{"single author", []string{"John Smith"}, "Smith, John"},
		{"two authors", []string{"John Smith", "Jane Doe"}, "Smith, John and Doe, Jane"},
		{"middle names", []string{"Jennifer A Doudna"}, "Doudna, Jennifer A"},
		{"already last-first", []string{"Lovelace, Ada"}, "Lovelace, Ada"},
		{"author with only one name", []string{"Corporation"}, "Corporation"},
		{"mixed authors", []string{"John Smith", "WHO"}, "Smith, John and WHO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatAuthors(tt.authors)
			if got != tt.want {
				t.Errorf("formatAuthors() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"100% effective", `100\% effective`},
		{"A & B", `A \& B`},
		{"$100 price", `\$100 price`},
		{"section #1", `section \#1`},
		{"under_score", `under\_score`},
		{"{braces}", `\{braces\}`},
		{"test~tilde", `test\textasciitilde{}tilde`},
		{"x^2", `x\textasciicircum{}2`},
		{"A & B: $100 for {item} #1", `A \& B: \$100 for \{item\} \#1`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := escapeLatex(tt.input)
			if got != tt.want {
				t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToBibTeX_OptionalFields(t *testing.T) {
	p := paper.Paper{
		Title:           "Minimal Paper",
		Authors:         []string{"A B"},
		PublicationDate: paper.PublicationDate{Year: 2026},
	}

	got := ToBibTeX(p, "Minimal2026")

	// Should NOT contain optional fields
	for _, field := range []string{"doi = ", "abstract = ", "month = ", "journal = ", "booktitle = ", "pages = "} {
		if strings.Contains(got, field) {
			t.Errorf("ToBibTeX() should not include %q, got:\n%s", field, got)
		}
	}
	if !strings.HasPrefix(got, "@misc{") {
		t.Errorf("paper without publication should be @misc, got:\n%s", got)
	}
}

func TestToBibTeX_SpecialCharactersInTitle(t *testing.T) {
	p := paper.Paper{
		Title:           "A Study of α & β: 100% Complete",
		Authors:         []string{"Test Author"},
		PublicationDate: paper.NewPublicationDate(2026, 1, 1),
	}

	got := ToBibTeX(p, "Special2026")

	if !strings.Contains(got, `title = {A Study of α \& β: 100\% Complete}`) {
		t.Errorf("ToBibTeX() should escape special chars in title, got:\n%s", got)
	}
}

func TestCitationKey(t *testing.T) {
	tests := []struct {
		authors []string
		title   string
		year    int
		want    string
	}{
		{[]string{"Ada Lovelace"}, "Graph learning", 2021, "Lovelace2021-graph"},
		{[]string{"Lovelace, Ada"}, "The analytical engine", 1843, "Lovelace1843-analytical"},
		{[]string{"Erdős Pál"}, "On random graphs", 1959, "Pl1959-random"},
		{nil, "A note", 2000, "Anon2000-note"},
	}
	for _, tt := range tests {
		p := paper.Paper{Authors: tt.authors, Title: tt.title, PublicationDate: paper.NewPublicationDate(tt.year, 1, 1)}
		if got := CitationKey(p); got != tt.want {
			t.Errorf("CitationKey(%v, %q) = %q, want %q", tt.authors, tt.title, got, tt.want)
		}
	}
}

func TestToBibTeXList(t *testing.T) {
	a := journalPaper()
	b := journalPaper()
	b.DOI = "10.1234/other"

	got := ToBibTeXList([]paper.Paper{a, b}, nil)

	if !strings.Contains(got, "@article{Smith2026-test,") {
		t.Errorf("ToBibTeXList() should contain first entry, got:\n%s", got)
	}
	if !strings.Contains(got, "@article{Smith2026-testa,") {
		t.Errorf("ToBibTeXList() should disambiguate the second key, got:\n%s", got)
	}
}

func TestToBibTeXList_Empty(t *testing.T) {
	got := ToBibTeXList(nil, nil)
	if got != "" {
		t.Errorf("ToBibTeXList(nil) should return empty string, got: %q", got)
	}
}

func TestToBibTeXList_SkipsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	existing := "@article{Old2020,\n  title = {Old},\n  doi = {https://doi.org/10.1234/TEST},\n}\n"
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}
	idx, err := ParseBibTeXFile(path)
	if err != nil {
		t.Fatalf("ParseBibTeXFile() error = %v", err)
	}

	fresh := journalPaper()
	fresh.DOI = "10.1234/new"
	got := ToBibTeXList([]paper.Paper{journalPaper(), fresh}, idx)
	if strings.Count(got, "@article{") != 1 || !strings.Contains(got, "10.1234/new") {
		t.Errorf("ToBibTeXList() should skip the existing DOI, got:\n%s", got)
	}

	if err := AppendToBibFile(path, got); err != nil {
		t.Fatal(err)
	}
	idx, err = ParseBibTeXFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !idx.HasEntry("", "10.1234/NEW") || len(idx.Keys) != 2 {
		t.Errorf("index after append: keys = %v, dois = %v", idx.Keys, idx.DOIs)
	}
}

func TestParseBibTeXFile_Missing(t *testing.T) {
	idx, err := ParseBibTeXFile(filepath.Join(t.TempDir(), "none.bib"))
	if err != nil || len(idx.Keys) != 0 {
		t.Errorf("ParseBibTeXFile(missing) = %v, %v", idx, err)
	}
}

func TestToBibTeX_NoAuthors(t *testing.T) {
	p := paper.Paper{Title: "Paper Without Authors", PublicationDate: paper.PublicationDate{Year: 2026}}

	got := ToBibTeX(p, "NoAuth2026")

	// Should not include author field if empty
	if strings.Contains(got, "author = ") {
		t.Errorf("ToBibTeX() should not include empty authors, got:\n%s", got)
	}

	// But should still have title and year
	if !strings.Contains(got, "title = ") || !strings.Contains(got, "year = ") {
		t.Errorf("ToBibTeX() should still include title and year, got:\n%s", got)
	}
}

func TestToBibTeXList_TakenKeyWithNewDOI(t *testing.T) {
	idx := NewBibTeXIndex()
	idx.Keys["Smith2026-test"] = true
	idx.DOIs["10.1234/old"] = "Smith2026-test"

	got := ToBibTeXList([]paper.Paper{journalPaper()}, idx)
	if !strings.HasPrefix(got, "@article{Smith2026-testa,") {
		t.Errorf("a new DOI under a taken key should get a suffixed key, got:\n%s", got)
	}
}
