package main

import (
	"fmt"
	"io"
	"os"

	"github.com/matsen/findpapers/internal/collection"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/storage"
	"github.com/spf13/cobra"
)

var importDryRun bool

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without writing")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <search.json> <papers.jsonl|->",
	Short: "Merge papers from a JSONL file into a search",
	Long: `Merge papers from a JSONL file (one paper per line, the format written
by 'fp export --format jsonl') into a search document. Papers go through
the same deduplication, date window and limits as search results.

Usage:
  fp import search.json other.jsonl
  fp export old.json --format jsonl | fp import search.json -
  fp import search.json other.jsonl --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

// ImportResult represents the result of an import operation.
type ImportResult struct {
	Imported     int      `json:"imported"`
	Merged       int      `json:"merged"`
	OutOfRange   int      `json:"out_of_range"`
	LimitReached int      `json:"limit_reached"`
	Malformed    int      `json:"malformed"`
	Errors       []string `json:"errors"`
	DryRun       bool     `json:"dry_run,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	searchPath, inputPath := args[0], args[1]
	search := mustLoadSearch(searchPath)

	var in io.Reader = os.Stdin
	if inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			exitWithError(ExitError, "opening input: %v", err)
		}
		defer f.Close()
		in = f
	}
	papers, err := storage.DecodePapers(in)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	// A dry run merges into a throwaway copy.
	target := search
	if importDryRun {
		target, err = collection.FromSnapshot(search.Snapshot())
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
	}
	result := importPapers(target, papers)
	result.DryRun = importDryRun

	if !importDryRun && result.Imported+result.Merged > 0 {
		if err := storage.SaveSearch(searchPath, search); err != nil {
			exitWithError(ExitError, "saving search: %v", err)
		}
	}

	if humanOutput {
		verb := "Imported"
		if importDryRun {
			verb = "Would import"
		}
		fmt.Printf("%s %d papers (%d merged, %d out of range, %d over limit, %d malformed)\n",
			verb, result.Imported, result.Merged, result.OutOfRange, result.LimitReached, result.Malformed)
		for _, e := range result.Errors {
			fmt.Printf("  %s\n", e)
		}
		return nil
	}
	return outputJSON(result)
}

// importPapers validates each paper and adds the valid ones to search.
func importPapers(search *collection.Search, papers []paper.Paper) ImportResult {
	result := ImportResult{Errors: []string{}}
	for i, p := range papers {
		if err := p.Validate(); err != nil {
			result.Malformed++
			result.Errors = append(result.Errors, fmt.Sprintf("paper %d: %v", i+1, err))
			continue
		}
		switch search.Add(p) {
		case collection.Inserted:
			result.Imported++
		case collection.Merged:
			result.Merged++
		case collection.RejectedOutOfRange:
			result.OutOfRange++
		case collection.RejectedLimitReached:
			result.LimitReached++
		}
	}
	return result
}
