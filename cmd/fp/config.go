package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/findpapers/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd, configSetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration: the config file with FP_* environment
variables and the .env file applied. Credentials are redacted.

Usage:
  fp config                                  # Show all config
  fp config path                             # Print the config file path
  fp config set crossref_mailto me@example.org
  fp config set databases CrossRef,PubMed`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if humanOutput {
			fmt.Println(configPath)
			return
		}
		outputJSON(StatusResponse{Status: "ok", Path: configPath})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in the config file",
	Long: `Set a value in the config file. Environment overrides are not written.

Keys:
  scopus_api_key, pubmed_api_key, crossref_mailto, opencitations_token,
  databases, publication_types (comma-separated),
  limit, limit_per_database, max_retries, requests_per_second, pdf_dir`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := redacted(cfg)
	if humanOutput {
		fmt.Printf("# %s\n", configPath)
		fmt.Printf("scopus_api_key:      %s\n", shown.ScopusAPIKey)
		fmt.Printf("pubmed_api_key:      %s\n", shown.PubMedAPIKey)
		fmt.Printf("crossref_mailto:     %s\n", shown.CrossRefMailto)
		fmt.Printf("opencitations_token: %s\n", shown.OpenCitationsToken)
		fmt.Printf("databases:           %s\n", strings.Join(shown.Databases, ", "))
		fmt.Printf("publication_types:   %s\n", strings.Join(shown.PublicationTypes, ", "))
		fmt.Printf("limit:               %d\n", shown.Limit)
		fmt.Printf("limit_per_database:  %d\n", shown.LimitPerDatabase)
		fmt.Printf("requests_per_second: %g\n", shown.RequestsPerSecond)
		fmt.Printf("max_retries:         %d\n", shown.MaxRetries)
		fmt.Printf("pdf_dir:             %s\n", shown.PDFDir)
		return nil
	}
	return outputJSON(shown)
}

// redacted returns a copy of c with credentials masked.
func redacted(c *config.GlobalConfig) config.GlobalConfig {
	out := *c
	for _, s := range []*string{&out.ScopusAPIKey, &out.PubMedAPIKey, &out.OpenCitationsToken} {
		if *s != "" {
			*s = "[REDACTED]"
		}
	}
	return out
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	// Start from the file alone so environment overrides are not persisted.
	c, err := config.LoadFile(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := setConfigValue(c, args[0], args[1]); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := c.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := c.Save(configPath); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Set %s in %s\n", args[0], configPath)
		return nil
	}
	return outputJSON(StatusResponse{Status: "updated", Path: configPath})
}

// setConfigValue parses value for key and stores it in c.
func setConfigValue(c *config.GlobalConfig, key, value string) error {
	value = strings.TrimSpace(value)
	ints := map[string]*int{
		"limit":              &c.Limit,
		"limit_per_database": &c.LimitPerDatabase,
		"max_retries":        &c.MaxRetries,
	}
	strs := map[string]*string{
		"scopus_api_key":      &c.ScopusAPIKey,
		"pubmed_api_key":      &c.PubMedAPIKey,
		"crossref_mailto":     &c.CrossRefMailto,
		"opencitations_token": &c.OpenCitationsToken,
	}

	if p, ok := ints[key]; ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %q", key, value)
		}
		*p = n
		return nil
	}
	if p, ok := strs[key]; ok {
		*p = value
		return nil
	}

	switch key {
	case "databases":
		c.Databases = splitList(value)
	case "publication_types":
		c.PublicationTypes = splitList(value)
	case "requests_per_second":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %q", key, value)
		}
		c.RequestsPerSecond = f
	case "pdf_dir":
		c.PDFDir = config.ExpandPath(value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
