package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/infradigest/internal/section"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Source types.
const (
	TypeRSS  = "rss"
	TypeHTML = "html"
)

type Config struct {
	Metadata  Metadata   `yaml:"metadata"`
	Sources   []Source   `yaml:"sources"`
	Keywords  Vocabulary `yaml:"keywords"`
	Sections  []Section  `yaml:"sections"`
	Relevance Relevance  `yaml:"relevance"`
	Fetch     Fetch      `yaml:"fetch"`
	Enrich    Enrich     `yaml:"enrich"`
	Digest    Digest     `yaml:"digest"`
	Output    Output     `yaml:"output"`
	Archive   Archive    `yaml:"archive"`
}

type Metadata struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	SiteURL  string `yaml:"site_url"`
}

// Source is a single feed or listing page.
type Source struct {
	Name     string           `yaml:"name"`
	URL      string           `yaml:"url"`
	Feed     string           `yaml:"feed"`
	Type     string           `yaml:"type"`
	Category section.Category `yaml:"category"`
	Tier     int              `yaml:"tier"`
	Selector string           `yaml:"selector"`
}

// FetchURL returns the URL to request. Only rss sources use the feed URL;
// html sources always scrape the page URL.
func (s Source) FetchURL() string {
	if s.Type != TypeHTML && s.Feed != "" {
		return s.Feed
	}
	return s.URL
}

// Vocabulary is the global relevance vocabulary. Primary terms weigh 2,
// secondary terms weigh 1.
type Vocabulary struct {
	Primary   []string `yaml:"primary"`
	Secondary []string `yaml:"secondary"`
}

type Section struct {
	ID          section.Category  `yaml:"id"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Keywords    []section.Keyword `yaml:"keywords"`
	SourceHints []string          `yaml:"source_hints"`
}

type Relevance struct {
	MinScore   int `yaml:"min_score"`
	Tier1Boost int `yaml:"tier1_boost"`
	Tier2Boost int `yaml:"tier2_boost"`
}

type Fetch struct {
	Timeout           time.Duration `yaml:"timeout"`
	RunTimeout        time.Duration `yaml:"run_timeout"`
	Concurrency       int           `yaml:"concurrency"`
	HostInterval      time.Duration `yaml:"host_interval"`
	UserAgent         string        `yaml:"user_agent"`
	MaxItemsPerSource int           `yaml:"max_items_per_source"`
	MaxAgeDays        int           `yaml:"max_age_days"`
}

type Enrich struct {
	MaxItems int           `yaml:"max_items"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Digest struct {
	MaxItemsPerSection int `yaml:"max_items_per_section"`
}

type Output struct {
	Path    string `yaml:"path"`
	DataDir string `yaml:"data_dir"`
}

type Archive struct {
	Dir      string `yaml:"dir"`
	Database bool   `yaml:"database"`
}

// ConfigDir returns the XDG config directory for infradigest.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "infradigest")
}

// DataDir returns the XDG data directory for infradigest.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "infradigest")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/infradigest/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'infradigest init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Metadata: Metadata{
			Title:    "Global Infrastructure Intelligence Digest",
			Subtitle: "Policy, Finance & Delivery",
		},
		Relevance: Relevance{MinScore: 2, Tier1Boost: 3, Tier2Boost: 1},
		Fetch: Fetch{
			Timeout:           20 * time.Second,
			RunTimeout:        10 * time.Minute,
			Concurrency:       8,
			HostInterval:      time.Second,
			UserAgent:         "Mozilla/5.0 (compatible; infradigest/1.0)",
			MaxItemsPerSource: 15,
			MaxAgeDays:        2,
		},
		Enrich:  Enrich{MaxItems: 30, Timeout: 15 * time.Second},
		Digest:  Digest{MaxItemsPerSection: 10},
		Output:  Output{Path: filepath.Join("output", "index.html")},
		Archive: Archive{Dir: "archive", Database: true},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		s.Type = strings.ToLower(strings.TrimSpace(s.Type))
		if s.Type == "" || s.Type == "feed" || s.Type == "atom" {
			s.Type = TypeRSS
		}
		if s.Type == "scrape" {
			s.Type = TypeHTML
		}
		if s.Tier == 0 {
			s.Tier = 3
		}
	}

	return cfg, nil
}

// Validate checks the source list and section rules.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[section.Category]bool)
	for _, s := range c.Sections {
		if !s.ID.Valid() {
			errs = append(errs, fmt.Errorf("section %q: unknown category", s.ID))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("section %q: defined twice", s.ID))
		}
		seen[s.ID] = true
		for _, kw := range s.Keywords {
			if kw.Weight < 0 {
				errs = append(errs, fmt.Errorf("section %q: keyword %q has negative weight", s.ID, kw.Term))
			}
		}
	}

	names := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("source %s: missing name", label))
		} else if names[s.Name] {
			errs = append(errs, fmt.Errorf("source %s: name used more than once", label))
		}
		names[s.Name] = true
		if s.FetchURL() == "" {
			errs = append(errs, fmt.Errorf("source %s: missing url", label))
		}
		if s.Type != TypeRSS && s.Type != TypeHTML {
			errs = append(errs, fmt.Errorf("source %s: unknown type %q", label, s.Type))
		}
		if !s.Category.Valid() {
			errs = append(errs, fmt.Errorf("source %s: unknown category %q", label, s.Category))
		}
		if s.Tier < 1 || s.Tier > 3 {
			errs = append(errs, fmt.Errorf("source %s: tier must be 1..3, got %d", label, s.Tier))
		}
	}

	if c.Relevance.MinScore < 0 {
		errs = append(errs, fmt.Errorf("relevance.min_score must not be negative"))
	}
	if c.Output.Path == "" {
		errs = append(errs, fmt.Errorf("output.path must be set"))
	}

	return errors.Join(errs...)
}

// Rules returns the categorizer rules keyed by section.
func (c *Config) Rules() section.Rules {
	rules := make(section.Rules, len(c.Sections))
	for _, s := range c.Sections {
		rules[s.ID] = section.Rule{Keywords: s.Keywords, Hints: s.SourceHints}
	}
	return rules
}

// SectionConfig returns the configured section for id, falling back to a
// section titled with the category label.
func (c *Config) SectionConfig(id section.Category) Section {
	for _, s := range c.Sections {
		if s.ID == id {
			return s
		}
	}
	return Section{ID: id, Title: id.Label()}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
