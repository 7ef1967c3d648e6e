package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/findpapers/internal/config"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/matsen/findpapers/internal/storage"
	"github.com/spf13/cobra"
)

var (
	queryTitle    string
	queryAuthors  []string
	queryYear     string
	queryVenue    string
	queryCategory string
	queryDatabase string
	querySelected bool
	queryLimit    int
	topLimit      int
)

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexRebuildCmd, indexQueryCmd, indexCitationsCmd, indexTopCmd)

	indexQueryCmd.Flags().StringVar(&queryTitle, "title", "", "Search titles only")
	indexQueryCmd.Flags().StringArrayVarP(&queryAuthors, "author", "a", nil, "Author name prefix (repeatable, all must match)")
	indexQueryCmd.Flags().StringVar(&queryYear, "year", "", "Publication year or range (2020, 2018:2022, 2020:, :2019)")
	indexQueryCmd.Flags().StringVar(&queryVenue, "venue", "", "Publication title substring")
	indexQueryCmd.Flags().StringVar(&queryCategory, "category", "", "Publication category")
	indexQueryCmd.Flags().StringVar(&queryDatabase, "database", "", "Only papers found in this database")
	indexQueryCmd.Flags().BoolVar(&querySelected, "selected", false, "Only papers marked as selected")
	indexQueryCmd.Flags().IntVarP(&queryLimit, "limit", "n", DefaultQueryLimit, "Maximum results (0 = all)")
	indexTopCmd.Flags().IntVarP(&topLimit, "limit", "n", 20, "Number of DOIs to show")
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the full-text index of a search",
	Long: `Commands for the SQLite index kept next to a search document
(search.json is indexed in search.db). The index is derived data: rebuild
it after the search document changes.`,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild <search.json>",
	Short: "Rebuild the index and citation edge file",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRebuild,
}

var indexQueryCmd = &cobra.Command{
	Use:   "query <search.json> [keywords]",
	Short: "Full-text query over the indexed papers",
	Long: `Query the index by keyword and filters. Keywords match titles,
abstracts, authors and keywords.

Examples:
  fp index query search.json "phylogenetic inference"
  fp index query search.json --author Matsen --year 2018:
  fp index query search.json --database PubMed --category Journal`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runIndexQuery,
}

var indexCitationsCmd = &cobra.Command{
	Use:   "citations <search.json> <doi>",
	Short: "Show indexed citation edges of one DOI",
	Args:  cobra.ExactArgs(2),
	RunE:  runIndexCitations,
}

var indexTopCmd = &cobra.Command{
	Use:   "top <search.json>",
	Short: "List the DOIs cited most often by the collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexTop,
}

// RebuildResult is the response for index rebuild.
type RebuildResult struct {
	Status          string  `json:"status"`
	Papers          int     `json:"papers"`
	Citations       int     `json:"citations"`
	IndexPath       string  `json:"index_path"`
	CitationsPath   string  `json:"citations_path"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	searchPath := args[0]
	start := time.Now()
	search := mustLoadSearch(searchPath)
	papers := search.Papers()

	db := mustOpenIndex(searchPath, false)
	defer db.Close()

	n, err := db.Rebuild(papers)
	if err != nil {
		exitWithError(ExitError, "rebuilding index: %v", err)
	}

	edges := storage.CitationsOf(papers)
	citationsPath := config.CitationsPath(searchPath)
	if err := storage.WriteCitations(citationsPath, edges); err != nil {
		exitWithError(ExitError, "writing citations: %v", err)
	}

	result := RebuildResult{
		Status:          "rebuilt",
		Papers:          n,
		Citations:       len(edges),
		IndexPath:       config.IndexPath(searchPath),
		CitationsPath:   citationsPath,
		DurationSeconds: time.Since(start).Seconds(),
	}
	if humanOutput {
		fmt.Printf("Indexed %d papers and %d citation edges in %.1fs\n", result.Papers, result.Citations, result.DurationSeconds)
		fmt.Printf("  %s\n  %s\n", result.IndexPath, result.CitationsPath)
		return nil
	}
	return outputJSON(result)
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	filters := storage.SearchFilters{
		Title:        queryTitle,
		Authors:      queryAuthors,
		Venue:        queryVenue,
		Database:     queryDatabase,
		SelectedOnly: querySelected,
	}
	if len(args) == 2 {
		filters.Keyword = args[1]
	}
	if queryCategory != "" {
		filters.Category = paper.ParseCategory(queryCategory)
	}
	var err error
	if filters.YearFrom, filters.YearTo, err = parseYearRange(queryYear); err != nil {
		exitWithError(ExitError, "--year: %v", err)
	}

	db := mustOpenIndex(args[0], true)
	defer db.Close()

	papers, err := db.SearchWithFilters(filters, queryLimit)
	if err != nil {
		exitWithError(ExitError, "querying index: %v", err)
	}

	if humanOutput {
		if len(papers) == 0 {
			fmt.Println("No papers found.")
			return nil
		}
		fmt.Printf("Found %d papers:\n\n", len(papers))
		printPapersHuman(papers)
		return nil
	}
	if papers == nil {
		papers = []paper.Paper{}
	}
	return outputJSON(papers)
}

// parseYearRange parses "2020", "2018:2022", "2020:" or ":2019". Zero
// means no bound.
func parseYearRange(s string) (from, to int, err error) {
	if s == "" {
		return 0, 0, nil
	}
	lo, hi, isRange := strings.Cut(s, ":")
	if !isRange {
		hi = lo
	}
	if from, err = parseYear(lo); err != nil {
		return 0, 0, err
	}
	if to, err = parseYear(hi); err != nil {
		return 0, 0, err
	}
	if from > 0 && to > 0 && from > to {
		return 0, 0, fmt.Errorf("range %q is reversed", s)
	}
	return from, to, nil
}

func parseYear(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || len(s) != 4 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return y, nil
}

// CitationsResult is the response for index citations.
type CitationsResult struct {
	DOI        string   `json:"doi"`
	References []string `json:"references"`
	CitedBy    []string `json:"cited_by"`
}

func runIndexCitations(cmd *cobra.Command, args []string) error {
	db := mustOpenIndex(args[0], true)
	defer db.Close()

	doi := paper.CleanDOI(args[1])
	refs, err := db.ReferencesOf(doi)
	if err != nil {
		exitWithError(ExitError, "querying references: %v", err)
	}
	citing, err := db.CitedBy(doi)
	if err != nil {
		exitWithError(ExitError, "querying citations: %v", err)
	}
	result := CitationsResult{DOI: doi, References: orEmpty(refs), CitedBy: orEmpty(citing)}

	if humanOutput {
		fmt.Printf("%s\n  references (%d):\n", result.DOI, len(result.References))
		for _, d := range result.References {
			fmt.Printf("    %s\n", d)
		}
		fmt.Printf("  cited by (%d):\n", len(result.CitedBy))
		for _, d := range result.CitedBy {
			fmt.Printf("    %s\n", d)
		}
		return nil
	}
	return outputJSON(result)
}

func runIndexTop(cmd *cobra.Command, args []string) error {
	if topLimit <= 0 {
		exitWithError(ExitError, "--limit must be positive")
	}
	db := mustOpenIndex(args[0], true)
	defer db.Close()

	counts, err := db.MostCited(topLimit)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if humanOutput {
		for i, c := range counts {
			fmt.Printf("%3d. %-40s %d\n", i+1, c.DOI, c.Count)
		}
		return nil
	}
	if counts == nil {
		counts = []storage.CitedCount{}
	}
	return outputJSON(counts)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
