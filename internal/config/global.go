// Package config handles the global configuration and the file layout
// around a saved search.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/matsen/findpapers/internal/paper"
	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/findpapers/config.yml.
type GlobalConfig struct {
	ScopusAPIKey       string `yaml:"scopus_api_key,omitempty"`
	PubMedAPIKey       string `yaml:"pubmed_api_key,omitempty"`
	CrossRefMailto     string `yaml:"crossref_mailto,omitempty"`
	OpenCitationsToken string `yaml:"opencitations_token,omitempty"`

	// Search defaults, overridden by command flags
	Databases         []string `yaml:"databases,omitempty"`
	Limit             int      `yaml:"limit,omitempty"`
	LimitPerDatabase  int      `yaml:"limit_per_database,omitempty"`
	PublicationTypes  []string `yaml:"publication_types,omitempty"`
	RequestsPerSecond float64  `yaml:"requests_per_second,omitempty"` // Caps every provider's own rate
	MaxRetries        int      `yaml:"max_retries,omitempty"`
	PDFDir            string   `yaml:"pdf_dir,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "findpapers"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// Environment variables that override the file.
const (
	EnvScopusAPIKey       = "FP_SCOPUS_API_KEY"
	EnvPubMedAPIKey       = "FP_PUBMED_API_KEY"
	EnvCrossRefMailto     = "FP_CROSSREF_MAILTO"
	EnvOpenCitationsToken = "FP_OPENCITATIONS_TOKEN"
)

// Database labels accepted in the databases list.
var Databases = []string{"arXiv", "bioRxiv", "CrossRef", "medRxiv", "PubMed", "Scopus"}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/findpapers/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file and applies
// environment overrides. Returns an empty config (not an error) if the file
// doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	cfg, err := LoadFile(GlobalConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	globalConfigCache = cfg
	return cfg, nil
}

// LoadFile reads a YAML config file without applying the environment.
// A missing file or empty path yields an empty config.
func LoadFile(path string) (*GlobalConfig, error) {
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.PDFDir != "" {
		cfg.PDFDir = ExpandPath(cfg.PDFDir)
	}
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides credentials with non-empty FP_* environment variables.
func (c *GlobalConfig) ApplyEnv() {
	for env, field := range map[string]*string{
		EnvScopusAPIKey:       &c.ScopusAPIKey,
		EnvPubMedAPIKey:       &c.PubMedAPIKey,
		EnvCrossRefMailto:     &c.CrossRefMailto,
		EnvOpenCitationsToken: &c.OpenCitationsToken,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*field = v
		}
	}
}

// Save writes the config as YAML, creating the directory if needed.
func (c *GlobalConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks value ranges and vocabularies. All problems are reported
// together; each wraps ErrInvalid.
func (c *GlobalConfig) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if _, err := CanonicalDatabases(c.Databases); err != nil {
		errs = append(errs, err)
	}
	if c.Limit < 0 {
		bad("limit must not be negative, got %d", c.Limit)
	}
	if c.LimitPerDatabase < 0 {
		bad("limit_per_database must not be negative, got %d", c.LimitPerDatabase)
	}
	if _, err := ParsePublicationTypes(c.PublicationTypes); err != nil {
		errs = append(errs, err)
	}
	if c.RequestsPerSecond < 0 {
		bad("requests_per_second must not be negative, got %g", c.RequestsPerSecond)
	}
	if c.MaxRetries < 0 {
		bad("max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.CrossRefMailto != "" && !strings.Contains(c.CrossRefMailto, "@") {
		bad("crossref_mailto is not an email address: %q", c.CrossRefMailto)
	}
	if err := ValidatePDFDir(c.PDFDir); err != nil {
		errs = append(errs, fmt.Errorf("%w: pdf_dir: %v", ErrInvalid, err))
	}
	return errors.Join(errs...)
}

// CanonicalDatabases maps database names, matched case-insensitively, onto
// their labels. Duplicates are dropped; unknown names are an error.
func CanonicalDatabases(names []string) ([]string, error) {
	var out []string
	for _, name := range names {
		i := slices.IndexFunc(Databases, func(d string) bool {
			return strings.EqualFold(d, strings.TrimSpace(name))
		})
		if i < 0 {
			return nil, fmt.Errorf("%w: unknown database %q (valid: %s)", ErrInvalid, name, strings.Join(Databases, ", "))
		}
		if !slices.Contains(out, Databases[i]) {
			out = append(out, Databases[i])
		}
	}
	return out, nil
}

// ParsePublicationTypes maps type names onto categories. Names must match a
// category exactly, ignoring case.
func ParsePublicationTypes(names []string) ([]paper.Category, error) {
	var out []paper.Category
	for _, name := range names {
		i := slices.IndexFunc(paper.Categories, func(c paper.Category) bool {
			return strings.EqualFold(string(c), strings.TrimSpace(name))
		})
		if i < 0 {
			return nil, fmt.Errorf("%w: unknown publication type %q", ErrInvalid, name)
		}
		if !slices.Contains(out, paper.Categories[i]) {
			out = append(out, paper.Categories[i])
		}
	}
	return out, nil
}

// HelpfulConfigMessage describes where the config lives and what it holds.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`Create %s to set credentials and search defaults:
  mkdir -p %s
  cat > %s <<'YAML'
  scopus_api_key: ...
  crossref_mailto: you@example.org
  databases: [CrossRef, PubMed, arXiv]
  YAML

Credentials can also be set with %s, %s, %s and %s.`,
		configPath,
		filepath.Dir(configPath),
		configPath,
		EnvScopusAPIKey, EnvPubMedAPIKey, EnvCrossRefMailto, EnvOpenCitationsToken)
}
