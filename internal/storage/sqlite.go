package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/findpapers/internal/identity"
	"github.com/matsen/findpapers/internal/paper"
	_ "modernc.org/sqlite"
)

// DB is a query index over one search's papers. It is derived data: the
// JSON search document is the source of truth and Rebuild recreates the
// index from it.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS papers (
			key TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			doi TEXT,
			title TEXT NOT NULL,
			venue TEXT,
			category TEXT,
			pub_year INTEGER NOT NULL,
			citations INTEGER,
			selected INTEGER,
			paper_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_papers_doi ON papers(doi) WHERE doi IS NOT NULL AND doi != '';

		-- One row per (paper, source label)
		CREATE TABLE IF NOT EXISTS paper_databases (
			key TEXT NOT NULL,
			label TEXT NOT NULL COLLATE NOCASE,
			PRIMARY KEY (key, label)
		);

		-- Full-text search virtual table (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS papers_fts USING fts5(
			key UNINDEXED,
			title,
			abstract,
			authors_text,
			keywords_text,
			pub_year
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return createCitationsSchema(db)
}

// Rebuild clears the index and fills it with papers, keeping their order.
// It returns the number of papers indexed.
func (d *DB) Rebuild(papers []paper.Paper) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"papers", "paper_databases", "papers_fts", "citations"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	papersStmt, err := tx.Prepare(`
		INSERT INTO papers (
			key, position, doi, title, venue, category,
			pub_year, citations, selected, paper_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing papers insert: %w", err)
	}
	defer papersStmt.Close()

	dbStmt, err := tx.Prepare(`INSERT OR IGNORE INTO paper_databases (key, label) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing databases insert: %w", err)
	}
	defer dbStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO papers_fts (key, title, abstract, authors_text, keywords_text, pub_year)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for i, p := range papers {
		key := indexKey(p, i)
		data, err := json.Marshal(p)
		if err != nil {
			return 0, fmt.Errorf("encoding paper %s: %w", key, err)
		}

		var venue, category sql.NullString
		if p.Publication != nil {
			venue = nullableStringValue(p.Publication.Title)
			category = nullableStringValue(string(p.Publication.Category))
		}
		var citations, selected sql.NullInt64
		if p.Citations != nil {
			citations = sql.NullInt64{Int64: int64(*p.Citations), Valid: true}
		}
		if p.Selected != nil {
			selected = sql.NullInt64{Valid: true}
			if *p.Selected {
				selected.Int64 = 1
			}
		}

		_, err = papersStmt.Exec(
			key, i, nullableStringValue(identity.DOIKey(p.DOI)), p.Title, venue, category,
			p.Year(), citations, selected, string(data),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting paper %s: %w", key, err)
		}

		for _, label := range p.Databases {
			if _, err := dbStmt.Exec(key, label); err != nil {
				return 0, fmt.Errorf("inserting database %s for %s: %w", label, key, err)
			}
		}

		_, err = ftsStmt.Exec(key, p.Title, p.Abstract,
			strings.Join(p.Authors, ", "), strings.Join(p.Keywords, ", "), strconv.Itoa(p.Year()))
		if err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", key, err)
		}
	}

	if err := insertCitations(tx, CitationsOf(papers)); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(papers), nil
}

// indexKey is the paper's identity key, or a positional key for a paper
// with neither a DOI nor a usable title and year.
func indexKey(p paper.Paper, position int) string {
	if k, _ := identity.PaperKey(p); k != "" {
		return k
	}
	return "#" + strconv.Itoa(position)
}

// GetByDOI retrieves a paper by DOI. It returns nil if none is indexed.
func (d *DB) GetByDOI(doi string) (*paper.Paper, error) {
	k := identity.DOIKey(doi)
	if k == "" {
		return nil, nil
	}
	var data string
	err := d.db.QueryRow(`SELECT paper_json FROM papers WHERE doi = ?`, k).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var p paper.Paper
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("parsing paper %s: %w", k, err)
	}
	return &p, nil
}

// Search performs a full-text search over titles, abstracts, authors and
// keywords.
func (d *DB) Search(query string, limit int) ([]paper.Paper, error) {
	return d.SearchWithFilters(SearchFilters{Keyword: query}, limit)
}

// SearchFilters contains optional filters for SearchWithFilters.
type SearchFilters struct {
	Keyword      string   // General keyword search across all text fields
	Title        string   // Search in title only (FTS)
	Authors      []string // Author names (AND logic, prefix matching)
	YearFrom     int      // Minimum publication year (0 = no minimum)
	YearTo       int      // Maximum publication year (0 = no maximum)
	Venue        string   // Publication title substring, case-insensitive
	Category     paper.Category
	Database     string // Source label that returned the paper
	SelectedOnly bool
}

// SearchWithFilters returns papers matching ALL specified criteria, in
// collection order. A non-positive limit means no limit.
func (d *DB) SearchWithFilters(filters SearchFilters, limit int) ([]paper.Paper, error) {
	var ftsTerms []string
	var args []any

	if filters.Keyword != "" {
		ftsTerms = append(ftsTerms, prepareFTSQuery(filters.Keyword))
	}
	if filters.Title != "" {
		ftsTerms = append(ftsTerms, "title:"+prepareFTSQuery(filters.Title))
	}
	for _, author := range filters.Authors {
		if author != "" {
			ftsTerms = append(ftsTerms, "authors_text:"+prepareAuthorQuery(author))
		}
	}

	query := `SELECT paper_json FROM papers WHERE 1=1`
	if len(ftsTerms) > 0 {
		query += ` AND key IN (SELECT key FROM papers_fts WHERE papers_fts MATCH ?)`
		args = append(args, strings.Join(ftsTerms, " AND "))
	}

	// SQL-based filters (exact/range matches)
	if filters.YearFrom > 0 {
		query += " AND pub_year >= ?"
		args = append(args, filters.YearFrom)
	}
	if filters.YearTo > 0 {
		query += " AND pub_year <= ?"
		args = append(args, filters.YearTo)
	}
	if filters.Venue != "" {
		query += " AND venue LIKE ?"
		args = append(args, "%"+filters.Venue+"%")
	}
	if filters.Category != "" {
		query += " AND category = ?"
		args = append(args, string(filters.Category))
	}
	if filters.Database != "" {
		query += " AND key IN (SELECT key FROM paper_databases WHERE label = ?)"
		args = append(args, filters.Database)
	}
	if filters.SelectedOnly {
		query += " AND selected = 1"
	}

	query += " ORDER BY position"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching with filters: %w", err)
	}
	defer rows.Close()

	return scanPapers(rows)
}

// prepareAuthorQuery prepares an author name for FTS5 search with prefix matching.
// It adds a wildcard (*) to enable fuzzy matching (e.g., "Tim" matches "Timothy").
func prepareAuthorQuery(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return author
	}

	parts := strings.Fields(author)
	var terms []string
	for _, part := range parts {
		escaped := strings.ReplaceAll(part, "\"", "\"\"")
		terms = append(terms, "\""+escaped+"\"*")
	}

	// Use OR for multi-word author queries (match any part)
	return "(" + strings.Join(terms, " OR ") + ")"
}

// ListAll returns all papers in collection order, optionally limited.
func (d *DB) ListAll(limit int) ([]paper.Paper, error) {
	return d.SearchWithFilters(SearchFilters{}, limit)
}

// Count returns the total number of indexed papers.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM papers").Scan(&count)
	return count, err
}

// CountByDatabase returns how many indexed papers each source label returned.
func (d *DB) CountByDatabase() (map[string]int, error) {
	rows, err := d.db.Query(`SELECT label, COUNT(*) FROM paper_databases GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("counting by database: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

func scanPapers(rows *sql.Rows) ([]paper.Paper, error) {
	var papers []paper.Paper
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p paper.Paper
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("parsing indexed paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	// FTS5 uses double quotes for phrase matching
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// If query contains special chars, quote it
	if strings.ContainsAny(query, "\"*+-:(){}[]^~.,/") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
