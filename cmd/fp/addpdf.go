package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/matsen/findpapers/internal/collection"
	"github.com/matsen/findpapers/internal/pdf"
	"github.com/matsen/findpapers/internal/source"
	"github.com/matsen/findpapers/internal/source/crossref"
	"github.com/matsen/findpapers/internal/storage"
	"github.com/spf13/cobra"
)

var addPDFCmd = &cobra.Command{
	Use:   "add-pdf <search.json> <pdf|dir>...",
	Short: "Add the papers behind local PDFs to a search",
	Long: `Extract a DOI from each PDF, resolve it through CrossRef and add the
result to the search document. Directories are scanned recursively.
Relative paths that do not exist are also tried under the configured
pdf_dir.

Examples:
  fp add-pdf search.json paper.pdf
  fp add-pdf search.json ~/papers/to-read`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAddPDF,
}

func init() {
	rootCmd.AddCommand(addPDFCmd)
}

// PDFSeed is the outcome for one PDF.
type PDFSeed struct {
	pdf.Seed
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PDFSeedResult summarizes a PDF seeding pass.
type PDFSeedResult struct {
	Files      int       `json:"files"`
	Identified int       `json:"identified"`
	Added      int       `json:"added"`
	Seeds      []PDFSeed `json:"seeds"`
}

func runAddPDF(cmd *cobra.Command, args []string) error {
	searchPath := args[0]
	search := mustLoadSearch(searchPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := seedFromPDFs(ctx, search, newCrossRef(cfg, log, source.Request{}), cfg.PDFDir, args[1:])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if result.Added > 0 {
		if err := storage.SaveSearch(searchPath, search); err != nil {
			exitWithError(ExitError, "saving search: %v", err)
		}
	}

	if humanOutput {
		for _, s := range result.Seeds {
			switch {
			case s.Error != "":
				fmt.Printf("  %s: %s\n", s.Path, s.Error)
			default:
				fmt.Printf("  %s: %s (%s)\n", s.Path, s.DOI, s.Outcome)
			}
		}
		fmt.Printf("\n%d PDFs, %d identified, %d added\n", result.Files, result.Identified, result.Added)
		return nil
	}
	return outputJSON(result)
}

// seedFromPDFs identifies each PDF, resolves its DOI and offers the paper
// to search. Per-file failures are recorded in the result; only an
// unusable path list is an error.
func seedFromPDFs(ctx context.Context, search *collection.Search, r source.Resolver, root string, args []string) (PDFSeedResult, error) {
	files, err := pdf.Collect(root, args)
	if err != nil {
		return PDFSeedResult{}, err
	}

	result := PDFSeedResult{Files: len(files), Seeds: make([]PDFSeed, 0, len(files))}
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		seed, err := pdf.Identify(f)
		entry := PDFSeed{Seed: seed}
		if err != nil {
			entry.Error = err.Error()
			if errors.Is(err, pdf.ErrNoDOI) {
				log.Debug("no DOI in PDF", "path", f, "title", seed.Title)
			} else {
				log.Warn("unreadable PDF", "path", f, "error", err)
			}
			result.Seeds = append(result.Seeds, entry)
			continue
		}
		result.Identified++

		p, err := r.Resolve(ctx, seed.DOI)
		if err != nil {
			entry.Error = err.Error()
			log.Warn("resolving PDF DOI", "path", f, "doi", seed.DOI, "error", err)
			result.Seeds = append(result.Seeds, entry)
			continue
		}
		if len(p.Databases) == 0 {
			p.AddDatabase(crossref.Label)
		}
		outcome := search.Add(p)
		entry.Outcome = outcome.String()
		if outcome == collection.Inserted || outcome == collection.Merged {
			result.Added++
		}
		result.Seeds = append(result.Seeds, entry)
	}
	return result, nil
}
