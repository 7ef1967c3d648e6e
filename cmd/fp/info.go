package main

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/matsen/findpapers/internal/author"
	"github.com/matsen/findpapers/internal/collection"
	"github.com/matsen/findpapers/internal/paper"
	"github.com/spf13/cobra"
)

var (
	listDatabase string
	listSelected bool
	listAuthors  []string
	listLimit    int
)

func init() {
	listCmd.Flags().StringVar(&listDatabase, "database", "", "Only papers found in this database")
	listCmd.Flags().BoolVar(&listSelected, "selected", false, "Only papers marked as selected")
	listCmd.Flags().StringArrayVarP(&listAuthors, "author", "a", nil, "Author name, \"Last\", \"First Last\" or \"Last, First\" (repeatable, all must match)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum papers to list (0 = all)")
	rootCmd.AddCommand(infoCmd, listCmd, getCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info <search.json>",
	Short: "Summarize a search document",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var listCmd = &cobra.Command{
	Use:   "list <search.json>",
	Short: "List the papers of a search",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

var getCmd = &cobra.Command{
	Use:   "get <search.json> <doi>",
	Short: "Show one paper by DOI",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

// InfoResult is the response for the info command.
type InfoResult struct {
	ID               string                 `json:"id"`
	Query            string                 `json:"query"`
	Since            *paper.PublicationDate `json:"since,omitempty"`
	Until            *paper.PublicationDate `json:"until,omitempty"`
	Limit            int                    `json:"limit,omitempty"`
	LimitPerDatabase int                    `json:"limit_per_database,omitempty"`
	Databases        []string               `json:"databases"`
	PublicationTypes []paper.Category       `json:"publication_types,omitempty"`
	ProcessedAt      time.Time              `json:"processed_at"`
	Papers           int                    `json:"papers"`
	WithDOI          int                    `json:"with_doi"`
	Selected         int                    `json:"selected"`
	PerDatabase      map[string]int         `json:"per_database"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	result := summarize(mustLoadSearch(args[0]))

	if humanOutput {
		fmt.Printf("Search %s\n", result.ID)
		fmt.Printf("  query:      %s\n", result.Query)
		if result.Since != nil || result.Until != nil {
			fmt.Printf("  window:     %s .. %s\n", dateOrOpen(result.Since), dateOrOpen(result.Until))
		}
		fmt.Printf("  processed:  %s\n", result.ProcessedAt.Format(time.RFC3339))
		fmt.Printf("  papers:     %d (%d with DOI, %d selected)\n", result.Papers, result.WithDOI, result.Selected)
		for _, db := range slices.Sorted(maps.Keys(result.PerDatabase)) {
			fmt.Printf("    %-12s %d\n", db, result.PerDatabase[db])
		}
		return nil
	}
	return outputJSON(result)
}

// summarize builds the info response for a search.
func summarize(s *collection.Search) InfoResult {
	p := s.Params()
	r := InfoResult{
		ID:               s.ID.String(),
		Query:            p.Query,
		Since:            p.Since,
		Until:            p.Until,
		Limit:            p.Limit,
		LimitPerDatabase: p.LimitPerDatabase,
		Databases:        p.Databases,
		PublicationTypes: p.PublicationTypes,
		ProcessedAt:      s.ProcessedAt,
		Papers:           s.Len(),
		WithDOI:          len(s.DOIs()),
		PerDatabase:      s.DatabaseCounts(),
	}
	if r.Databases == nil {
		r.Databases = []string{}
	}
	for _, p := range s.Papers() {
		if p.Selected != nil && *p.Selected {
			r.Selected++
		}
	}
	return r
}

func dateOrOpen(d *paper.PublicationDate) string {
	if d == nil {
		return "*"
	}
	return d.String()
}

func runList(cmd *cobra.Command, args []string) error {
	search := mustLoadSearch(args[0])
	authors := author.ParseQueries(listAuthors)

	var papers []paper.Paper
	for _, p := range search.Papers() {
		if listDatabase != "" && !p.HasDatabase(listDatabase) {
			continue
		}
		if listSelected && (p.Selected == nil || !*p.Selected) {
			continue
		}
		if !author.AllMatch(authors, p.Authors) {
			continue
		}
		papers = append(papers, p)
		if listLimit > 0 && len(papers) == listLimit {
			break
		}
	}

	if humanOutput {
		if len(papers) == 0 {
			fmt.Println("No papers found.")
			return nil
		}
		printPapersHuman(papers)
		return nil
	}
	if papers == nil {
		papers = []paper.Paper{}
	}
	return outputJSON(papers)
}

func runGet(cmd *cobra.Command, args []string) error {
	search := mustLoadSearch(args[0])
	p, ok := search.Get(args[1])
	if !ok {
		exitWithError(ExitDataError, "no paper with DOI %s", args[1])
	}
	if humanOutput {
		printPaperHuman(p)
		return nil
	}
	return outputJSON(p)
}
