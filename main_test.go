package main

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/cookiecode-sync/internal/config"
)

func parseFlags(t *testing.T, args ...string) CLIFlags {
	t.Helper()
	var flags CLIFlags
	parser, err := kong.New(&flags)
	require.NoError(t, err)
	_, err = parser.Parse(args)
	require.NoError(t, err)
	return flags
}

func TestFlagDefaults(t *testing.T) {
	flags := parseFlags(t)
	assert.Equal(t, ".env", flags.EnvFile)
	assert.False(t, flags.Debug)

	cfg := config.Config{PageMax: 9, DispatchMode: config.DispatchSingle, FailureMode: config.FailureCollect, Headless: true}
	want := cfg
	flags.Apply(&cfg)
	assert.Equal(t, want, cfg)
}

func TestFlagOverrides(t *testing.T) {
	flags := parseFlags(t,
		"--env-file", "prod.env",
		"--refresh-urls",
		"--page-max", "3",
		"--dispatch-mode", "Batched",
		"--failure-mode", "abort",
		"--headful",
		"--debug",
	)
	assert.Equal(t, "prod.env", flags.EnvFile)
	assert.True(t, flags.Debug)

	cfg := config.Config{PageMax: 9, DispatchMode: config.DispatchSingle, FailureMode: config.FailureCollect, Headless: true}
	flags.Apply(&cfg)

	assert.True(t, cfg.RefreshURLs)
	assert.Equal(t, 3, cfg.PageMax)
	assert.Equal(t, config.DispatchBatched, cfg.DispatchMode)
	assert.Equal(t, config.FailureAbort, cfg.FailureMode)
	assert.False(t, cfg.Headless)
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("COOKIECODE_EMAIL", "bot@example.com")
	t.Setenv("COOKIECODE_PASSWORD", "pw")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/cookiecode")
}

func TestLoadConfigAppliesFlags(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PAGE_MAX", "5")

	flags := parseFlags(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "--page-max", "2")
	cfg, err := loadConfig(flags, log.New(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.PageMax)
	assert.Equal(t, "bot@example.com", cfg.Email)
}

func TestLoadConfigRejectsInvalidFlag(t *testing.T) {
	setRequiredEnv(t)

	flags := parseFlags(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "--dispatch-mode", "stream")
	_, err := loadConfig(flags, log.New(io.Discard))
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestLoadConfigMissingCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COOKIECODE_PASSWORD", "")

	flags := parseFlags(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	_, err := loadConfig(flags, log.New(io.Discard))
	assert.True(t, errors.Is(err, config.ErrMissingCredentials))
}

func TestWebhookOptions(t *testing.T) {
	testCases := []struct {
		name       string
		header     string
		value      string
		wantHeader string
		wantWarn   bool
	}{
		{name: "no auth"},
		{name: "full auth", header: "X-Api-Key", value: "k", wantHeader: "X-Api-Key"},
		{name: "header only", header: "X-Api-Key", wantWarn: true},
		{name: "value only", value: "k", wantWarn: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cfg := config.Config{
				WebhookURL:        "https://hooks.example.com/cookiecode",
				WebhookAuthHeader: tc.header,
				WebhookAuthValue:  tc.value,
				BatchSize:         50,
				WebhookTimeout:    30 * time.Second,
			}

			opts := webhookOptions(cfg, log.New(&out))
			assert.Equal(t, cfg.WebhookURL, opts.URL)
			assert.Equal(t, 50, opts.BatchSize)
			assert.Equal(t, 30*time.Second, opts.Timeout)
			assert.Equal(t, tc.wantHeader, opts.AuthHeader)
			if tc.wantHeader == "" {
				assert.Empty(t, opts.AuthValue)
			}
			assert.Equal(t, tc.wantWarn, strings.Contains(out.String(), "webhook auth ignored"))
		})
	}
}

func TestLoadConfigWarnsOnFallback(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PAGE_MAX", "abc")

	var out bytes.Buffer
	flags := parseFlags(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	cfg, err := loadConfig(flags, log.New(&out))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.PageMax)
	assert.Contains(t, out.String(), "malformed value ignored")
	assert.Contains(t, out.String(), "PAGE_MAX")
}
