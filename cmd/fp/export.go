package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/matsen/findpapers/internal/export"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportFormat   string
	exportOutput   string
	exportSelected bool
	exportAppend   bool
)

// Export formats beyond the reference-manager ones in package export.
const (
	FormatJSONL     = "jsonl"
	FormatCitations = "citations"
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "bibtex", "Output format (bibtex, ris, rayyan, jsonl, citations)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")
	exportCmd.Flags().BoolVar(&exportSelected, "selected", false, "Export only papers marked as selected")
	exportCmd.Flags().BoolVar(&exportAppend, "append", false, "Append BibTeX to --output, skipping entries already there")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <search.json>",
	Short: "Export the papers of a search",
	Long: `Export the papers of a search document for reference managers and
screening tools.

Formats:
  bibtex     BibTeX entries (default)
  ris        RIS records
  rayyan     Rayyan CSV
  jsonl      one paper per line, readable by 'fp import'
  citations  citation edges between DOIs, one JSON object per line

Examples:
  fp export search.json > refs.bib
  fp export search.json --format ris -o refs.ris
  fp export search.json --selected --append -o ~/refs.bib`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	search := mustLoadSearch(args[0])
	papers := search.Papers()
	if exportSelected {
		papers = export.Selected(papers)
	}

	if exportAppend {
		if exportOutput == "" || !isBibTeX(exportFormat) {
			exitWithError(ExitError, "--append needs --output and the bibtex format")
		}
		n, err := appendBibTeX(exportOutput, papers)
		if err != nil {
			exitWithError(ExitError, "appending to %s: %v", exportOutput, err)
		}
		if humanOutput {
			fmt.Fprintf(os.Stderr, "Appended %d entries to %s\n", n, exportOutput)
			return nil
		}
		return outputJSON(struct {
			Appended int    `json:"appended"`
			Path     string `json:"path"`
		}{n, exportOutput})
	}

	var w io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			exitWithError(ExitError, "creating output: %v", err)
		}
		defer f.Close()
		w = f
	}

	if err := writeExport(w, exportFormat, papers, search.ProcessedAt); err != nil {
		if errors.Is(err, export.ErrEmpty) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}
	return nil
}

// writeExport writes papers in any supported format.
func writeExport(w io.Writer, format string, papers []paper.Paper, accessed time.Time) error {
	switch strings.ToLower(format) {
	case FormatJSONL:
		if len(papers) == 0 {
			return export.ErrEmpty
		}
		return storage.EncodePapers(w, papers)
	case FormatCitations:
		edges := storage.CitationsOf(papers)
		if len(edges) == 0 {
			return export.ErrEmpty
		}
		return storage.EncodeCitations(w, edges)
	}
	return export.Write(w, format, papers, accessed)
}

func isBibTeX(format string) bool {
	f := strings.ToLower(format)
	return f == "bibtex" || f == "bib"
}

// appendBibTeX appends entries not already in the file and returns how
// many were written.
func appendBibTeX(path string, papers []paper.Paper) (int, error) {
	idx, err := export.ParseBibTeXFile(path)
	if err != nil {
		return 0, err
	}
	var fresh []paper.Paper
	for _, p := range papers {
		if !idx.HasEntry(export.CitationKey(p), p.DOI) {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := export.AppendToBibFile(path, export.ToBibTeXList(fresh, idx)); err != nil {
		return 0, err
	}
	return len(fresh), nil
}
