package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/TobiSchelling/infradigest/internal/collect"
	"github.com/TobiSchelling/infradigest/internal/config"
	"github.com/TobiSchelling/infradigest/internal/database"
	"github.com/TobiSchelling/infradigest/internal/pipeline"
	"github.com/TobiSchelling/infradigest/internal/section"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "infradigest",
	Short:   "Daily infrastructure policy digest",
	Long:    "infradigest collects infrastructure policy, finance and delivery news from RSS feeds and web pages and renders a categorized static HTML digest.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("infradigest", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to ~/.config/infradigest/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to adjust sources, section keywords and the output path.")
		return nil
	},
}

// --- run command ---

var (
	dryRun     bool
	outputPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the digest: collect -> enrich -> score -> dedupe -> categorize -> compose -> render -> publish -> archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var db *database.DB
		if cfg.Archive.Database && !dryRun {
			var err error
			db, err = openDB()
			if err != nil {
				log.Printf("Warning: run archive unavailable: %v", err)
				db = nil
			} else {
				defer db.Close()
			}
		}

		pipe, err := pipeline.New(cfg, db)
		if err != nil {
			return err
		}
		pipe.SetOutputPath(outputPath)

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(ctx)
		} else {
			result = pipe.Run(ctx)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if len(result.Failed) > 0 {
			fmt.Printf("\n%d source(s) failed:\n", len(result.Failed))
			for _, f := range result.Failed {
				fmt.Printf("  %s: %v\n", f.Source, f.Err)
			}
		}

		if dryRun {
			printTop(result)
			return nil
		}

		if err := result.Err(); err != nil {
			return err
		}
		fmt.Printf("\nDigest published to %s\n", result.OutputPath)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Collect and score without rendering or writing anything")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the page here instead of output.path")
}

func printTop(result *pipeline.Result) {
	if len(result.Top) == 0 {
		fmt.Println("\n[dry-run] No items met the relevance threshold.")
		return
	}
	fmt.Printf("\n[dry-run] Top %d items:\n", len(result.Top))
	for i, it := range result.Top {
		fmt.Printf("  %2d. [%3d] %-24s %s\n", i+1, it.Score, it.Category, it.Title)
		fmt.Printf("       %s (%s)\n", it.Link, it.Source)
	}
}

// --- sources command ---

var sectionFilter string

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter section.Category
		if sectionFilter != "" {
			c, err := section.Parse(sectionFilter)
			if err != nil {
				return err
			}
			filter = c
		}

		n := 0
		for _, id := range section.All() {
			if filter != "" && id != filter {
				continue
			}
			var list []config.Source
			for _, s := range cfg.Sources {
				if s.Category == id {
					list = append(list, s)
				}
			}
			if len(list) == 0 {
				continue
			}
			fmt.Printf("\n%s (%d)\n", cfg.SectionConfig(id).Title, len(list))
			for _, s := range list {
				fmt.Printf("  [T%d] %-4s %s\n        %s\n", s.Tier, s.Type, s.Name, s.FetchURL())
			}
			n += len(list)
		}
		fmt.Printf("\n%d sources\n", n)
		return nil
	},
}

func init() {
	sourcesCmd.Flags().StringVarP(&sectionFilter, "section", "s", "", "Only list sources of this section")
}

// --- check command ---

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch every source and report item counts and errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if cfg.Fetch.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Fetch.RunTimeout)
			defer cancel()
		}

		fmt.Printf("Checking %d sources...\n", len(cfg.Sources))
		result := collect.NewCollector(cfg).Collect(ctx)

		failed := make(map[string]*collect.SourceFetchError, len(result.Failed))
		for _, f := range result.Failed {
			failed[f.Source] = f
		}

		fmt.Println()
		empty := 0
		for _, s := range cfg.Sources {
			if f, ok := failed[s.Name]; ok {
				fmt.Printf("  FAIL  %-40s %v\n", s.Name, f.Err)
				continue
			}
			n := result.Sources[s.Name]
			status := "ok"
			if n == 0 {
				status = "EMPTY"
				empty++
			}
			fmt.Printf("  %-5s %-40s %d items\n", status, s.Name, n)
		}

		fmt.Printf("\n%d ok, %d empty, %d failed, %d items total\n",
			len(cfg.Sources)-len(result.Failed)-empty, empty, len(result.Failed), len(result.Items))
		if len(result.Failed) == len(cfg.Sources) && len(cfg.Sources) > 0 {
			return fmt.Errorf("all %d sources failed", len(cfg.Sources))
		}
		return nil
	},
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and run archive status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Configuration:")
		fmt.Printf("  Title: %s\n", cfg.Metadata.Title)
		fmt.Printf("  Sources: %d\n", len(cfg.Sources))
		fmt.Printf("  Output: %s\n", cfg.Output.Path)
		if info, err := os.Stat(cfg.Output.Path); err == nil {
			fmt.Printf("  Last written: %s\n", info.ModTime().UTC().Format("2006-01-02 15:04 UTC"))
		}

		if !cfg.Archive.Database {
			fmt.Println("\nRun archive disabled (archive.database: false)")
			return nil
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("\nRun archive:")
		fmt.Printf("  Database: %s\n", db.Path())
		if v, err := db.SchemaVersion(); err == nil {
			fmt.Printf("  Schema version: %d\n", v)
		}
		fmt.Printf("  Runs: %d over %d days\n", stats.Runs, stats.Days)
		if stats.LastRunDate != "" {
			fmt.Printf("  Last run date: %s\n", database.FormatRunDate(stats.LastRunDate))
		}
		fmt.Printf("  Published items: %d (%d distinct links)\n", stats.PublishedItems, stats.DistinctURLs)
		fmt.Printf("  Source failures: %d\n", stats.SourceFailures)

		last, err := db.GetLastRun()
		if err != nil {
			return fmt.Errorf("getting last run: %w", err)
		}
		if last == nil {
			fmt.Println("\nNo runs yet. Run 'infradigest run' to publish the first digest.")
			return nil
		}

		fmt.Printf("\nLast run: %s (%s)\n", database.FormatRunDate(last.RunDate), last.GeneratedAt)
		fmt.Printf("  %d published from %d collected, %d of %d sources failed\n",
			last.Published, last.RawItems, last.FailedSources, last.Sources)

		failures, err := db.GetSourceFailures(last.ID)
		if err != nil {
			return err
		}
		for _, f := range failures {
			fmt.Printf("  - %s: %s\n", f.Source, f.Error)
		}
		return nil
	},
}

// --- history command ---

var (
	historyLimit int
	historyItems bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.GetRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs archived yet.")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("  #%-4d %s  %3d published  %4d collected  %2d/%d sources failed\n",
				r.ID, database.FormatRunDate(r.RunDate), r.Published, r.RawItems, r.FailedSources, r.Sources)
			if !historyItems {
				continue
			}
			items, err := db.GetRunItems(r.ID)
			if err != nil {
				return fmt.Errorf("getting items of run %d: %w", r.ID, err)
			}
			printRunItems(os.Stdout, items)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 14, "Number of runs to show (0 for all)")
	historyCmd.Flags().BoolVarP(&historyItems, "items", "i", false, "List the published items of each run")
}

// printRunItems lists archived items grouped under their section title.
func printRunItems(w io.Writer, items []database.RunItem) {
	current := ""
	for _, it := range items {
		if it.Section != current {
			current = it.Section
			title := it.Section
			if c, err := section.Parse(it.Section); err == nil {
				title = c.Label()
			}
			fmt.Fprintf(w, "        %s\n", title)
		}
		sig := "low"
		if it.Significance != nil && *it.Significance != "" {
			sig = *it.Significance
		}
		fmt.Fprintf(w, "          %d. [%-6s] %s\n", it.Position, sig, it.Title)
		fmt.Fprintf(w, "             %s\n", it.URL)
	}
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "infradigest.db")
	return database.Open(dbPath)
}
