package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matsen/findpapers/internal/api"
	"github.com/matsen/findpapers/internal/config"
	"github.com/spf13/cobra"
)

var serveAddr string

// shutdownTimeout bounds how long in-flight requests may finish on exit.
const shutdownTimeout = 5 * time.Second

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve <search.json>",
	Short: "Serve a search read-only over HTTP",
	Long: `Serve a search document as a read-only JSON API. When an index exists
next to the document (see 'fp index rebuild'), full-text queries and
citation lookups are served from it.

Endpoints:
  GET /health
  GET /search
  GET /papers?limit=&offset=&database=&selected=
  GET /papers/query?q=&title=&author=&year_from=&year_to=&venue=&database=
  GET /papers/doi/<doi>
  GET /citations/<doi>
  GET /export/<bibtex|ris|rayyan>`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	searchPath := args[0]
	search := mustLoadSearch(searchPath)

	opts := []api.Option{api.WithLogger(log)}
	if _, err := os.Stat(config.IndexPath(searchPath)); err == nil {
		db := mustOpenIndex(searchPath, true)
		defer db.Close()
		opts = append(opts, api.WithIndex(db))
	}
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           api.New(search, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("serving search", "addr", serveAddr, "papers", search.Len())
	if humanOutput {
		outputHuman("Serving %d papers on http://%s\n", search.Len(), serveAddr)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			exitWithError(ExitError, "serving: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			exitWithError(ExitError, "shutting down: %v", err)
		}
	}
	return nil
}
