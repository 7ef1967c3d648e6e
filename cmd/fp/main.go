// Package main provides the fp CLI entry point.
package main

import (
	"strings"

	"github.com/matsen/findpapers/internal/config"
	"github.com/matsen/findpapers/internal/logger"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	configPath  string
	envFile     string

	cfg *config.GlobalConfig
	log *logger.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitWithError(ExitError, "%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fp",
	Short: "Search, deduplicate and merge scholarly papers from many databases",
	Long: `fp runs one boolean query against several scholarly databases and
merges what they return into a single deduplicated collection.

A search is saved as one JSON document that later commands read and
update: expand it through citation graphs, seed it from PDFs, export it
for reference managers, index it for full-text queries or serve it over
HTTP. All commands output JSON by default for easy integration with
scripts and other tools.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/findpapers/config.yml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Load credentials from this file if it exists")
	rootCmd.Version = Version
}

// setup loads configuration and the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	mode := "prod"
	if verbose {
		mode = "dev"
	}
	l, err := logger.New(mode)
	if err != nil {
		exitWithError(ExitError, "creating logger: %v", err)
	}
	log = l

	if err := config.LoadDotEnv(envFile); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if configPath == "" {
		configPath = config.GlobalConfigPath()
	}
	c, err := config.LoadFile(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		// The config commands must still run so a broken file can be fixed.
		if !strings.HasPrefix(cmd.CommandPath(), "fp config") {
			exitWithError(ExitConfigError, "%s: %v", configPath, err)
		}
		log.Warn("invalid configuration", "path", configPath, "error", err)
	}
	cfg = c
	return nil
}
