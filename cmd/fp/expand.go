package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/matsen/findpapers/internal/source"
	"github.com/matsen/findpapers/internal/storage"
	"github.com/spf13/cobra"
)

var (
	expandReferences bool
	expandCites      bool
	expandSource     string
	expandDepth      int
	expandMax        int
)

func init() {
	expandCmd.Flags().BoolVar(&expandReferences, "references", true, "Follow papers the collection cites")
	expandCmd.Flags().BoolVar(&expandCites, "cites", true, "Follow papers citing the collection (OpenCitations only)")
	expandCmd.Flags().StringVar(&expandSource, "source", ExpandOpenCitations, "Citation graph to walk (crossref or opencitations)")
	expandCmd.Flags().IntVar(&expandDepth, "depth", 1, "Hops from the papers already collected")
	expandCmd.Flags().IntVar(&expandMax, "max", 0, "Maximum newly discovered papers (0 = unlimited)")
	rootCmd.AddCommand(expandCmd)
}

var expandCmd = &cobra.Command{
	Use:   "expand <search.json>",
	Short: "Grow a search through citation graphs",
	Long: `Resolve every DOI in a search document and follow its reference and
citation edges, adding the papers found. Found papers go through the
usual deduplication, date window and limits.

Examples:
  fp expand search.json
  fp expand search.json --source crossref --depth 2 --max 500
  fp expand search.json --cites=false`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

// ExpandResult is the response for the expand command.
type ExpandResult struct {
	Path   string        `json:"path"`
	Before int           `json:"before"`
	After  int           `json:"after"`
	Report source.Report `json:"report"`
}

func runExpand(cmd *cobra.Command, args []string) error {
	searchPath := args[0]
	if !expandReferences && !expandCites {
		exitWithError(ExitError, "nothing to follow: both --references and --cites are off")
	}
	if expandDepth < 1 || expandMax < 0 {
		exitWithError(ExitError, "--depth must be at least 1 and --max must not be negative")
	}

	search := mustLoadSearch(searchPath)
	e, err := buildExpander(cfg, log, expandSource, source.WalkOptions{
		References: expandReferences,
		Cites:      expandCites,
		Depth:      expandDepth,
		Max:        expandMax,
	})
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result := ExpandResult{Path: searchPath, Before: search.Len()}
	result.Report = source.NewRunner(search, log).Expand(ctx, e)
	result.After = search.Len()

	if result.Report.Inserted+result.Report.Merged+result.Report.Linked > 0 {
		if err := storage.SaveSearch(searchPath, search); err != nil {
			exitWithError(ExitError, "saving search: %v", err)
		}
	}

	if humanOutput {
		printReportHuman(result.Report)
		outputHuman("\n%d papers before, %d after\n", result.Before, result.After)
	} else if err := outputJSON(result); err != nil {
		return err
	}
	if result.Report.Error != "" && result.Report.Fetched == 0 {
		os.Exit(ExitProviderError)
	}
	return nil
}
