package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matsen/findpapers/internal/collection"
	"github.com/matsen/findpapers/internal/config"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/query"
	"github.com/matsen/findpapers/internal/source"
	"github.com/matsen/findpapers/internal/storage"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <out.json>",
	Short: "Run a query against the configured databases",
	Long: `Run a boolean query against each database in turn and save the merged,
deduplicated collection as a search document.

Query syntax: terms in square brackets joined by AND, OR and AND NOT, with
parentheses for grouping, e.g. "[graph neural network] AND ([drug] OR [molecule])".

Examples:
  fp search out.json --query "[covid] AND [vaccine]" --since 2020-01-01
  fp search out.json -q "[phylogenetics]" --databases arXiv,PubMed --limit 200
  fp search out.json -q "[transformers]" --expand opencitations`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var (
	searchQuery            string
	searchSince            string
	searchUntil            string
	searchLimit            int
	searchLimitPerDatabase int
	searchDatabases        []string
	searchPublicationTypes []string
	searchExpand           string
	searchPDFDir           string
)

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Search query (required)")
	searchCmd.Flags().StringVar(&searchSince, "since", "", "Earliest publication date (YYYY, YYYY-MM or YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchUntil, "until", "", "Latest publication date (YYYY, YYYY-MM or YYYY-MM-DD)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum papers in the collection (0 = unlimited)")
	searchCmd.Flags().IntVar(&searchLimitPerDatabase, "limit-per-database", 0, "Maximum papers contributed by each database (0 = unlimited)")
	searchCmd.Flags().StringSliceVar(&searchDatabases, "databases", nil, "Databases to query (default: config, else all)")
	searchCmd.Flags().StringSliceVar(&searchPublicationTypes, "publication-types", nil, "Keep only these categories (Journal, Book, Conference Proceedings, Preprint, Other)")
	searchCmd.Flags().StringVar(&searchExpand, "expand", "", "Expand the results through a citation graph (crossref or opencitations)")
	searchCmd.Flags().StringVar(&searchPDFDir, "pdf-dir", "", "Seed the collection with the PDFs in this directory")
	searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}

// SearchResult is the response for the search command.
type SearchResult struct {
	ID        string           `json:"id"`
	Path      string           `json:"path"`
	Papers    int              `json:"papers"`
	Stats     collection.Stats `json:"stats"`
	Databases []source.Report  `json:"databases"`
	Expansion *source.Report   `json:"expansion,omitempty"`
	PDFs      *PDFSeedResult   `json:"pdfs,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	outPath := args[0]

	params, err := searchParams(cmd, cfg)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	q, err := query.Parse(params.Query)
	if err != nil {
		exitWithError(ExitError, "invalid query: %v", err)
	}

	search, err := collection.New(params, collection.WithLogger(log))
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	req := source.Request{Query: q, Since: params.Since, Until: params.Until}
	adapters, err := buildAdapters(cfg, log, params.Databases, req)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := source.NewRunner(search, log)
	result := SearchResult{Path: outPath}

	pdfDir := searchPDFDir
	if !cmd.Flags().Changed("pdf-dir") {
		pdfDir = cfg.PDFDir
	}
	if pdfDir != "" {
		seeded, err := seedFromPDFs(ctx, search, newCrossRef(cfg, log, source.Request{}), "", []string{pdfDir})
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		result.PDFs = &seeded
	}

	result.Databases = runner.RunAll(ctx, adapters)

	if searchExpand != "" {
		e, err := buildExpander(cfg, log, searchExpand, source.WalkOptions{References: true, Cites: true, Depth: 1})
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		rep := runner.Expand(ctx, e)
		result.Expansion = &rep
	}

	// Whatever was collected before an interrupt is still saved.
	if err := storage.SaveSearch(outPath, search); err != nil {
		exitWithError(ExitError, "saving search: %v", err)
	}

	result.ID = search.ID.String()
	result.Papers = search.Len()
	result.Stats = search.Stats()

	if humanOutput {
		printSearchHuman(result)
	} else if err := outputJSON(result); err != nil {
		return err
	}

	if allFailed(result.Databases) {
		os.Exit(ExitProviderError)
	}
	return nil
}

// searchParams builds the run parameters from flags, falling back to the
// config for flags that were not given.
func searchParams(cmd *cobra.Command, c *config.GlobalConfig) (collection.Params, error) {
	var params collection.Params

	params.Query = query.Sanitize(searchQuery)
	if err := query.Validate(params.Query); err != nil {
		return params, fmt.Errorf("invalid query: %w", err)
	}

	var err error
	if params.Since, err = parseDateFlag(searchSince); err != nil {
		return params, fmt.Errorf("--since: %w", err)
	}
	if params.Until, err = parseDateFlag(searchUntil); err != nil {
		return params, fmt.Errorf("--until: %w", err)
	}

	params.Limit, params.LimitPerDatabase = c.Limit, c.LimitPerDatabase
	if cmd.Flags().Changed("limit") {
		params.Limit = searchLimit
	}
	if cmd.Flags().Changed("limit-per-database") {
		params.LimitPerDatabase = searchLimitPerDatabase
	}

	databases := c.Databases
	if cmd.Flags().Changed("databases") {
		databases = searchDatabases
	}
	if len(databases) == 0 {
		databases = config.Databases
	}
	if params.Databases, err = config.CanonicalDatabases(databases); err != nil {
		return params, err
	}

	types := c.PublicationTypes
	if cmd.Flags().Changed("publication-types") {
		types = searchPublicationTypes
	}
	if params.PublicationTypes, err = config.ParsePublicationTypes(types); err != nil {
		return params, err
	}

	return params, params.Validate()
}

// parseDateFlag parses an optional date flag; empty means unbounded.
func parseDateFlag(s string) (*paper.PublicationDate, error) {
	if s == "" {
		return nil, nil
	}
	d, err := paper.ParsePublicationDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// allFailed reports whether every database that ran failed.
func allFailed(reports []source.Report) bool {
	ran := 0
	for _, r := range reports {
		if r.Skipped {
			continue
		}
		ran++
		if r.Error == "" {
			return false
		}
	}
	return ran > 0
}

func printSearchHuman(r SearchResult) {
	fmt.Printf("Saved %d papers to %s\n\n", r.Papers, r.Path)
	if r.PDFs != nil {
		fmt.Printf("  %-14s %d PDFs, %d identified, %d added\n", "PDFs", r.PDFs.Files, r.PDFs.Identified, r.PDFs.Added)
	}
	for _, rep := range r.Databases {
		printReportHuman(rep)
	}
	if r.Expansion != nil {
		printReportHuman(*r.Expansion)
	}
	fmt.Printf("\nInserted %d, merged %d, out of range %d, over limit %d\n",
		r.Stats.Inserted, r.Stats.Merged, r.Stats.RejectedOutOfRange, r.Stats.RejectedLimitReached)
}

func printReportHuman(rep source.Report) {
	switch {
	case rep.Skipped:
		fmt.Printf("  %-14s skipped\n", rep.Label)
	case rep.Error != "":
		fmt.Printf("  %-14s %d fetched, %d inserted, %d merged (error: %s)\n", rep.Label, rep.Fetched, rep.Inserted, rep.Merged, rep.Error)
	case rep.Linked > 0:
		fmt.Printf("  %-14s %d fetched, %d inserted, %d merged, %d linked\n", rep.Label, rep.Fetched, rep.Inserted, rep.Merged, rep.Linked)
	default:
		fmt.Printf("  %-14s %d fetched, %d inserted, %d merged\n", rep.Label, rep.Fetched, rep.Inserted, rep.Merged)
	}
}
