// Package main provides the eVIEW extraction command line. It drives a
// headless browser through sign-in, project navigation and variable
// table extraction, then writes the table in the requested formats.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/browser"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/config"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/export"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/logging"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/orchestrator"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/scrape"
)

const version = "0.1.0"

// passwordEnv supplies the sign-in password. Passwords never appear on
// the command line where process listings would expose them.
const passwordEnv = "EVIEW_PASSWORD"

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigFile  string
	BatchFile   string
	Email       string
	Project     string
	BaseURL     string
	OutputDir   string
	Formats     string
	MaxRetries  int
	Visible     bool
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("eview-extract v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errCancelled) || orchestrator.IsCancellation(err) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

// errCancelled distinguishes a user-cancelled run from a failure in the
// process exit code.
var errCancelled = errors.New("extraction cancelled")

// parseFlags parses command line flags.
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (JSON, default ~/.eview-extractor/config.json)")
	flag.StringVar(&cli.BatchFile, "batch", "", "Path to batch job file (YAML) extracting multiple projects")
	flag.StringVar(&cli.Email, "email", "", "Sign-in email address")
	flag.StringVar(&cli.Project, "project", "", "Project name as shown in the eVIEW workspace")
	flag.StringVar(&cli.BaseURL, "base-url", "", "eVIEW entry URL (overrides configuration)")
	flag.StringVar(&cli.OutputDir, "output", "", "Output directory for exported files")
	flag.StringVar(&cli.Formats, "formats", "", "Comma-separated export formats: xlsx, csv, json")
	flag.IntVar(&cli.MaxRetries, "retries", 0, "Total attempts for the sign-in and navigation phases")
	flag.BoolVar(&cli.Visible, "visible", false, "Show the browser window")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "eview-extract - EPLAN eVIEW variable table extractor\n\n")
		fmt.Fprintf(os.Stderr, "Usage: eview-extract [options]\n\n")
		fmt.Fprintf(os.Stderr, "The sign-in password is read from the %s environment variable.\n\n", passwordEnv)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Extract one project to Excel\n")
		fmt.Fprintf(os.Stderr, "  EVIEW_PASSWORD=... eview-extract -email user@example.com -project \"P-4711\"\n\n")
		fmt.Fprintf(os.Stderr, "  # Extract several projects from a job file\n")
		fmt.Fprintf(os.Stderr, "  EVIEW_PASSWORD=... eview-extract -batch jobs.yaml\n\n")
	}

	flag.Parse()
	return cli
}

func run(ctx context.Context, cancel context.CancelFunc, cli *CLIConfig) error {
	if err := config.Initialize(cli.ConfigFile); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.NewLogger("main")
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logger.Close()

	password, err := resolvePassword()
	if err != nil {
		return err
	}

	scraper := config.GetScraper()
	exportCfg := config.GetExport()

	email := firstNonEmpty(cli.Email, scraper.GetEmail())
	if email == "" {
		return fmt.Errorf("email is required (-email or configuration)")
	}

	baseURL := firstNonEmpty(cli.BaseURL, scraper.GetBaseURL())
	outputDir := firstNonEmpty(cli.OutputDir, exportCfg.GetOutputDir())
	formats := exportCfg.GetFormats()
	if cli.Formats != "" {
		formats = splitFormats(cli.Formats)
	}
	retries := scraper.GetMaxRetries()
	if cli.MaxRetries > 0 {
		retries = cli.MaxRetries
	}
	visible := cli.Visible || scraper.GetVisible()

	mgr := browser.NewManager()
	if err := mgr.Initialize(logger.Writer()); err != nil {
		return fmt.Errorf("initializing browser runtime: %w", err)
	}
	defer mgr.Shutdown()

	scrapeCfg := scrape.Config{
		BaseURL:      baseURL,
		PollInterval: scraper.PollInterval(),
		PhaseTimeout: scraper.PhaseTimeout(),
		StableReads:  scraper.GetStableReads(),
	}
	orch := orchestrator.New(scrape.Pipeline(mgr, scrapeCfg, logger), logger)

	// First signal cancels the run gracefully, a second one force-quits.
	// Cancelling the root context covers the gaps where no run is active,
	// such as between batch jobs or while exports are being written.
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nCancelling, waiting for cleanup...")
		orch.Cancel()
		cancel()
		<-sigChan
		os.Exit(130)
	}()

	creds := config.Credentials{Email: email, Password: password}

	if cli.BatchFile != "" {
		return runBatch(ctx, orch, cli.BatchFile, creds, batchDefaults{
			OutputDir:  outputDir,
			Formats:    formats,
			MaxRetries: retries,
			Visible:    visible,
		})
	}

	project := firstNonEmpty(cli.Project, scraper.GetProject())
	if project == "" {
		return fmt.Errorf("project is required (-project, -batch or configuration)")
	}

	return extractOne(ctx, orch, creds, project, outputDir, formats, retries, visible)
}

// extractOne runs one extraction to completion and exports the result.
func extractOne(ctx context.Context, orch *orchestrator.Orchestrator, creds config.Credentials,
	projectName, outputDir string, formats []string, retries int, visible bool) error {

	project, err := models.NewProjectReference(projectName)
	if err != nil {
		return err
	}

	run, err := orch.Start(ctx, orchestrator.RunConfig{
		Credentials: creds,
		Project:     project,
		Visible:     visible,
		MaxRetries:  retries,
	})
	if err != nil {
		return err
	}

	for event := range run.Follow() {
		printEvent(event)
	}

	switch run.Wait() {
	case orchestrator.StateCompleted:
	case orchestrator.StateCancelled:
		return errCancelled
	default:
		return run.Err()
	}

	table := run.Table()
	paths, err := export.WriteAll(outputDir, formats, table)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("Wrote %s\n", p)
	}
	fmt.Printf("Extracted %d variables from %s\n", table.Len(), table.Project)
	return nil
}

// printEvent renders one run event on stderr.
func printEvent(e orchestrator.Event) {
	fmt.Fprintf(os.Stderr, "%s [%s] %s\n",
		e.Time.Format(time.TimeOnly), e.Severity, e.Message)
}

// resolvePassword takes the sign-in password from the environment, and
// falls back to a no-echo terminal prompt when running interactively.
func resolvePassword() (string, error) {
	if password := os.Getenv(passwordEnv); password != "" {
		return password, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("%s is not set", passwordEnv)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("password is empty")
	}
	return string(raw), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitFormats(raw string) []string {
	var formats []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			formats = append(formats, strings.ToLower(part))
		}
	}
	return formats
}
