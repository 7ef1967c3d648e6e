// Package storage persists searches: the lossless JSON search document,
// JSONL paper and citation streams, and a rebuildable SQLite query index.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matsen/findpapers/internal/identity"
	"github.com/matsen/findpapers/internal/paper"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
// This constant is shared across all JSONL file readers.
const MaxJSONLLineCapacity = 1024 * 1024

// ReadPapers reads all papers from a JSONL file. A missing file yields no
// papers and no error.
func ReadPapers(path string) ([]paper.Paper, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening papers file: %w", err)
	}
	defer f.Close()

	return DecodePapers(f)
}

// DecodePapers reads one JSON paper per line from r. Blank lines are
// skipped; the first undecodable line aborts with its line number.
func DecodePapers(r io.Reader) ([]paper.Paper, error) {
	var papers []paper.Paper
	scanner := bufio.NewScanner(r)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var p paper.Paper
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		papers = append(papers, p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading papers: %w", err)
	}

	return papers, nil
}

// writeJSONL marshals v and writes it as a single JSONL line.
func writeJSONL(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// EncodePapers writes papers to w, one per line.
func EncodePapers(w io.Writer, papers []paper.Paper) error {
	bw := bufio.NewWriter(w)
	for i, p := range papers {
		if err := writeJSONL(bw, p); err != nil {
			return fmt.Errorf("writing paper %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// AppendPaper adds a paper to the end of a JSONL file.
func AppendPaper(path string, p paper.Paper) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening papers file for append: %w", err)
	}
	defer f.Close()

	if err := writeJSONL(f, p); err != nil {
		return fmt.Errorf("appending paper: %w", err)
	}
	return nil
}

// WritePapers writes all papers to a JSONL file, replacing existing content.
func WritePapers(path string, papers []paper.Paper) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating papers file: %w", err)
	}
	defer f.Close()

	return EncodePapers(f, papers)
}

// FindByDOI searches for a paper by DOI, ignoring case and resolver prefixes.
func FindByDOI(papers []paper.Paper, doi string) (int, bool) {
	k := identity.DOIKey(doi)
	if k == "" {
		return -1, false
	}
	for i, p := range papers {
		if identity.DOIKey(p.DOI) == k {
			return i, true
		}
	}
	return -1, false
}
