package storage

import (
	"cmp"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/matsen/findpapers/internal/identity"
	"github.com/matsen/findpapers/internal/paper"
)

// Citation is one edge of the citation graph: Citing lists Cited among its
// references. Both ends are normalized DOI keys.
type Citation struct {
	Citing string `json:"citing"`
	Cited  string `json:"cited"`
}

// CitationsOf collects the citation edges recorded on papers, from both
// their reference lists and their citing lists. Papers without a DOI
// contribute nothing. The result is deduplicated and sorted.
func CitationsOf(papers []paper.Paper) []Citation {
	seen := make(map[Citation]bool)
	var edges []Citation
	add := func(citing, cited string) {
		c := Citation{Citing: identity.DOIKey(citing), Cited: identity.DOIKey(cited)}
		if c.Citing == "" || c.Cited == "" || c.Citing == c.Cited || seen[c] {
			return
		}
		seen[c] = true
		edges = append(edges, c)
	}
	for _, p := range papers {
		if p.DOI == "" {
			continue
		}
		for _, ref := range p.References {
			add(p.DOI, ref)
		}
		for _, c := range p.Cites {
			add(c, p.DOI)
		}
	}
	slices.SortFunc(edges, func(a, b Citation) int {
		return cmp.Or(cmp.Compare(a.Citing, b.Citing), cmp.Compare(a.Cited, b.Cited))
	})
	return edges
}

// WriteCitations writes citation edges as JSONL, replacing existing content.
func WriteCitations(path string, edges []Citation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating citations file: %w", err)
	}
	defer f.Close()

	return EncodeCitations(f, edges)
}

// EncodeCitations writes one citation edge per line.
func EncodeCitations(w io.Writer, edges []Citation) error {
	for _, e := range edges {
		if err := writeJSONL(w, e); err != nil {
			return fmt.Errorf("writing citation %s -> %s: %w", e.Citing, e.Cited, err)
		}
	}
	return nil
}

// ReadCitations reads citation edges from a JSONL file. A missing file
// yields no edges.
func ReadCitations(path string) ([]Citation, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening citations file: %w", err)
	}
	defer f.Close()

	var edges []Citation
	dec := json.NewDecoder(f)
	for line := 1; dec.More(); line++ {
		var e Citation
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("parsing citation %d: %w", line, err)
		}
		if e.Citing == "" || e.Cited == "" {
			return nil, fmt.Errorf("invalid citation %d: both ends are required", line)
		}
		edges = append(edges, e)
	}
	return edges, nil
}

func createCitationsSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS citations (
			citing TEXT NOT NULL,
			cited TEXT NOT NULL,
			PRIMARY KEY (citing, cited)
		);

		CREATE INDEX IF NOT EXISTS idx_citations_cited ON citations(cited);
	`
	_, err := db.Exec(schema)
	return err
}

func insertCitations(tx *sql.Tx, edges []Citation) error {
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO citations (citing, cited) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing citations insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.Exec(e.Citing, e.Cited); err != nil {
			return fmt.Errorf("inserting citation: %w", err)
		}
	}
	return nil
}

// ReferencesOf returns the DOIs the given paper cites.
func (d *DB) ReferencesOf(doi string) ([]string, error) {
	return d.queryDOIs(`SELECT cited FROM citations WHERE citing = ? ORDER BY cited`, doi)
}

// CitedBy returns the DOIs of papers citing the given paper.
func (d *DB) CitedBy(doi string) ([]string, error) {
	return d.queryDOIs(`SELECT citing FROM citations WHERE cited = ? ORDER BY citing`, doi)
}

// CitedCount is a DOI with the number of indexed papers citing it.
type CitedCount struct {
	DOI   string `json:"doi"`
	Count int    `json:"count"`
}

// MostCited returns the DOIs cited most often within the graph, highest
// first.
func (d *DB) MostCited(limit int) ([]CitedCount, error) {
	rows, err := d.db.Query(`
		SELECT cited, COUNT(*) AS n FROM citations
		GROUP BY cited ORDER BY n DESC, cited LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying most cited: %w", err)
	}
	defer rows.Close()

	var counts []CitedCount
	for rows.Next() {
		var c CitedCount
		if err := rows.Scan(&c.DOI, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CountCitations returns the total number of citation edges.
func (d *DB) CountCitations() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM citations").Scan(&count)
	return count, err
}

func (d *DB) queryDOIs(query, doi string) ([]string, error) {
	rows, err := d.db.Query(query, identity.DOIKey(doi))
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	defer rows.Close()

	var dois []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		dois = append(dois, s)
	}
	return dois, rows.Err()
}
