package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/PentesterFlow/apicoverage/internal/logger"
	"github.com/PentesterFlow/apicoverage/internal/output"
	"github.com/PentesterFlow/apicoverage/internal/parser"
	"github.com/PentesterFlow/apicoverage/internal/progress"
	"github.com/PentesterFlow/apicoverage/internal/shutdown"
	"github.com/PentesterFlow/apicoverage/pkg/coverage"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	// Cache flags
	cached       bool
	cacheDir     string
	cacheBackend string

	// Run flags
	reportPath string
	clientSrc  string
	jsonPath   string
	dryRun     bool
	printTable bool

	// Display flags
	showProgress bool
	noProgress   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "apicoverage",
		Short: "apicoverage - Tesla API endpoint coverage",
		Long: `apicoverage - Reconciles the endpoints a Tesla API client implements against
the Fleet API documentation, the unofficial owner API catalog and the vehicle
command table, and splices a coverage table into a markdown document.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Build the coverage table and update the report",
		Long:  "Fetch every source, reconcile the endpoints and splice the table into the report document.",
		Args:  cobra.NoArgs,
		RunE:  runCoverage,
	}

	// Check command
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Reconcile the sources without writing anything",
		Long:  "Run the full pipeline and report consistency errors. The report document is left untouched.",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}

	// Fetch command
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Refresh the source cache",
		Long:  "Download the remote sources into the cache so later runs can use --cached.",
		Args:  cobra.NoArgs,
		RunE:  runFetch,
	}

	// Config command
	configCmd := &cobra.Command{
		Use:   "config [file]",
		Short: "Write the default configuration",
		Long:  "Write the default configuration to a file (YAML, or JSON for a .json extension).",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfig,
	}

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apicoverage %s\n", version)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode")

	// Cache flags
	for _, cmd := range []*cobra.Command{runCmd, checkCmd} {
		cmd.Flags().BoolVar(&cached, "cached", false, "Use cached sources instead of fetching")
		cmd.Flags().StringVar(&clientSrc, "client-src", "", "Client library checkout (default: ..)")
	}
	for _, cmd := range []*cobra.Command{runCmd, checkCmd, fetchCmd} {
		cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (default: cached)")
		cmd.Flags().StringVar(&cacheBackend, "cache-backend", "", "Cache backend (file, bolt, memory)")
	}

	// Run flags
	runCmd.Flags().StringVarP(&reportPath, "report", "r", "", "Markdown document to update (default: ../API.md)")
	runCmd.Flags().StringVar(&jsonPath, "json", "", "Also write the reconciled registry as JSON")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build the table but do not write it")
	runCmd.Flags().BoolVarP(&printTable, "print", "p", false, "Print the table to stdout")

	// Display flags
	runCmd.Flags().BoolVar(&showProgress, "progress", true, "Show a progress bar while running")
	runCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bar (use verbose logging instead)")

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies command-line
// overrides. Command-line flags take precedence.
func loadConfig(cmd *cobra.Command) (*coverage.Config, error) {
	config := coverage.DefaultConfig()
	if configFile != "" {
		fileConfig, err := coverage.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = fileConfig
	}

	flags := cmd.Flags()
	if flags.Changed("cached") {
		config.Cache.UseCached = cached
	}
	if flags.Changed("cache-dir") {
		config.Cache.Dir = cacheDir
	}
	if flags.Changed("cache-backend") {
		config.Cache.Backend = cacheBackend
	}
	if flags.Changed("client-src") {
		config.Client.Root = clientSrc
	}
	if flags.Changed("report") {
		config.Report.Path = reportPath
	}
	if flags.Changed("json") {
		config.Report.JSONPath = jsonPath
	}
	if flags.Changed("dry-run") {
		config.Report.DryRun = dryRun
	}
	if verbose {
		config.Verbose = true
	}
	if debug {
		config.Debug = true
	}

	return config, nil
}

// newRunner creates a runner and a shutdown handler that cancels it on
// SIGINT or SIGTERM.
func newRunner(cmd *cobra.Command, config *coverage.Config, opts ...coverage.Option) (*coverage.Runner, *shutdown.Handler, error) {
	r, err := coverage.New(append([]coverage.Option{coverage.WithConfig(config)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create runner: %w", err)
	}

	cfg := shutdown.DefaultConfig()
	cfg.OnSignal = func(sig os.Signal) {
		fmt.Fprintf(os.Stderr, "\nReceived %s, stopping...\n", sig)
	}
	cfg.OnShutdownDone = func(_ time.Duration, errs []error) {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "Shutdown: %v\n", err)
		}
	}

	h := shutdown.New(cmd.Context(), cfg)
	h.Register("runner", func(_ context.Context) error {
		return r.Close()
	})
	return r, h, nil
}

func runCoverage(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Progress replaces the info-level log lines
	enableProgress := showProgress && !noProgress && !config.Verbose && !config.Debug && !printTable

	var opts []coverage.Option
	var display *progress.Display
	if enableProgress {
		display = progress.New(os.Stderr, len(coverage.Stages))
		opts = append(opts,
			coverage.WithProgress(display),
			coverage.WithLogger(logger.New(logger.Config{
				Level:     logger.WarnLevel,
				Pretty:    true,
				Output:    os.Stderr,
				Component: "coverage",
			})),
		)
	}

	r, h, err := newRunner(cmd, config, opts...)
	if err != nil {
		return err
	}
	defer h.Close()

	if !printTable {
		printBanner(config)
	}

	if display != nil {
		display.Start("coverage")
	}
	result, err := r.Run(h.Context())
	if display != nil {
		display.Stop(err == nil)
	}
	if err != nil {
		return fmt.Errorf("coverage run failed: %w", err)
	}

	if printTable {
		w := output.NewWriter(os.Stdout, output.Config{Format: output.FormatMarkdown})
		if err := w.WriteReport(result.Report); err != nil {
			return err
		}
		return w.Flush()
	}

	printSummary(result, config)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	config.Report.DryRun = true

	r, h, err := newRunner(cmd, config)
	if err != nil {
		return err
	}
	defer h.Close()

	result, err := r.Build(h.Context())
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	printSummary(result, config)
	fmt.Println("Sources are consistent.")
	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	config.Cache.UseCached = false
	config.Report.DryRun = true

	r, h, err := newRunner(cmd, config)
	if err != nil {
		return err
	}
	defer h.Close()

	result, err := r.Fetch(h.Context())
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	names := make([]string, 0, len(result.Sizes))
	for name := range result.Sizes {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Cached %d sources in %s (%s):\n", len(names), result.CacheDir, result.Backend)
	for _, name := range names {
		fmt.Printf("  %-10s %d bytes\n", name, result.Sizes[name])
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := coverage.DefaultConfig().SaveToFile(args[0]); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("Default configuration written to %s\n", args[0])
	return nil
}

func printBanner(config *coverage.Config) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                     apicoverage v1.0                         ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Client:     %s\n", config.Client.Root)
	fmt.Printf("Report:     %s\n", config.Report.Path)
	fmt.Printf("Cache:      %s (%s)\n", config.Cache.Dir, config.Cache.Backend)
	if config.Cache.UseCached {
		fmt.Println("Sources:    cached")
	}
	fmt.Println()
}

func printSummary(result *coverage.Result, config *coverage.Config) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      Coverage Summary                        ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Duration:           %v\n", result.Duration().Round(time.Millisecond))
	fmt.Printf("Client endpoints:   %d\n", result.Totals[parser.SourceMacro])
	fmt.Printf("Fleet endpoints:    %d\n", result.Totals[parser.SourceFleet])
	fmt.Printf("Vehicle commands:   %d\n", result.Totals[parser.SourceCommand])
	fmt.Printf("Catalog endpoints:  %d\n", result.Totals[parser.SourceCatalog])
	fmt.Printf("Renames:            %d\n", len(result.Renames))
	fmt.Printf("Merged:             %d\n", len(result.Merged))
	fmt.Printf("Filtered:           %d\n", len(result.Filtered))
	fmt.Printf("Reported:           %d\n", len(result.Registry))
	fmt.Println()

	counts := result.Registry.Count()
	if total := len(result.Registry); total > 0 {
		fmt.Printf("Implemented:        %d/%d\n", counts[parser.SourceMacro], total)
	}

	if result.Written {
		fmt.Printf("Report written to %s\n", config.Report.Path)
	}
	if config.Report.JSONPath != "" && result.Written {
		fmt.Printf("JSON written to %s\n", config.Report.JSONPath)
	}
}
