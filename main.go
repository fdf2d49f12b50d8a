package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/cookiecode-sync/internal/browser"
	"github.com/go-scripts/cookiecode-sync/internal/config"
	"github.com/go-scripts/cookiecode-sync/internal/pipeline"
	"github.com/go-scripts/cookiecode-sync/internal/progress"
	"github.com/go-scripts/cookiecode-sync/internal/webhook"
	"github.com/go-scripts/cookiecode-sync/internal/writer"
	"github.com/go-scripts/cookiecode-sync/ui"
)

// CLIFlags override the environment configuration for one run
type CLIFlags struct {
	EnvFile      string `name:"env-file" help:"Path to a .env file; a missing file is ignored" default:".env"`
	RefreshURLs  bool   `name:"refresh-urls" help:"Ignore the edit URL cache and collect from the listing again"`
	PageMax      int    `name:"page-max" help:"Number of customer listing pages to read (PAGE_MAX)"`
	DispatchMode string `name:"dispatch-mode" help:"Webhook delivery, single or batched (DISPATCH_MODE)"`
	FailureMode  string `name:"failure-mode" help:"On a failing page, collect or abort (FAILURE_MODE)"`
	Headful      bool   `help:"Show the browser window"`
	Debug        bool   `help:"Enable debug logging" default:"false"`
}

// Apply overrides cfg with every flag that was set
func (f CLIFlags) Apply(cfg *config.Config) {
	if f.RefreshURLs {
		cfg.RefreshURLs = true
	}
	if f.PageMax != 0 {
		cfg.PageMax = f.PageMax
	}
	if f.DispatchMode != "" {
		cfg.DispatchMode = strings.ToLower(f.DispatchMode)
	}
	if f.FailureMode != "" {
		cfg.FailureMode = strings.ToLower(f.FailureMode)
	}
	if f.Headful {
		cfg.Headless = false
	}
}

func newLogger(debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "cookiecode",
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// loadConfig reads the environment, applies flag overrides and validates
// the result before anything is started.
func loadConfig(flags CLIFlags, logger *log.Logger) (config.Config, error) {
	cfg, err := config.Load(flags.EnvFile)
	if err != nil {
		return config.Config{}, err
	}
	for _, key := range cfg.Fallbacks {
		logger.Warn("malformed value ignored, using the default", "var", key)
	}
	flags.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// webhookOptions maps cfg to dispatcher options. A half-configured auth
// header is dropped with a warning.
func webhookOptions(cfg config.Config, logger *log.Logger) webhook.Options {
	opts := webhook.Options{
		URL:       cfg.WebhookURL,
		BatchSize: cfg.BatchSize,
		Timeout:   cfg.WebhookTimeout,
	}
	switch {
	case cfg.HasWebhookAuth():
		opts.AuthHeader = cfg.WebhookAuthHeader
		opts.AuthValue = cfg.WebhookAuthValue
	case cfg.WebhookAuthHeader != "" || cfg.WebhookAuthValue != "":
		logger.Warn("webhook auth ignored, WEBHOOK_AUTH_HEADER and WEBHOOK_AUTH_VALUE must both be set")
	}
	return opts
}

func run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	session, err := browser.NewSession(ctx, browser.Options{
		Headless:    cfg.Headless,
		SlowMo:      cfg.SlowMo(),
		ExecPath:    cfg.ChromePath,
		NavTimeout:  cfg.NavTimeout,
		SettleDelay: cfg.SettleDelay,
	}, logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer session.Close()

	artifacts, err := writer.New(cfg.DebugDir)
	if err != nil {
		return err
	}

	logger.Debug("diagnostics directory", "dir", artifacts.Dir())

	dispatcher := webhook.New(webhookOptions(cfg, logger), nil, logger)

	p := pipeline.New(cfg, session, artifacts, dispatcher, progress.New(os.Stderr), logger)
	sum, runErr := p.Run(ctx)

	fmt.Println(ui.RenderSummary(ui.RunStats{
		Counts:       sum.Counts,
		Failures:     sum.Failures,
		Batches:      sum.Batches,
		DispatchMode: cfg.DispatchMode,
		FromCache:    sum.FromCache,
		Elapsed:      sum.Elapsed,
		Err:          runErr,
	}))
	return runErr
}

func main() {
	var flags CLIFlags

	// Parse command line flags using kong
	kong.Parse(&flags,
		kong.Name("cookiecode-sync"),
		kong.Description("Scrape customer and website records from the CookieCode portal and post them to a webhook."),
	)

	logger := newLogger(flags.Debug)

	cfg, err := loadConfig(flags, logger)
	if err != nil {
		logger.Error("configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
	logger.Info("done")
}
