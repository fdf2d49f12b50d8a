package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/go-scripts/cookiecode-sync/internal/types"
)

var (
	ErrMissingCredentials = errors.New("COOKIECODE_EMAIL or COOKIECODE_PASSWORD is missing")
	ErrMissingWebhook     = errors.New("WEBHOOK_URL is missing")
	ErrInvalid            = errors.New("invalid configuration")
)

// Dispatch modes
const (
	DispatchSingle  = "single"
	DispatchBatched = "batched"
)

// Failure modes
const (
	FailureCollect = "collect"
	FailureAbort   = "abort"
)

// Config holds every setting of a run. It is loaded once at startup and
// handed to the components that need it.
type Config struct {
	BaseURL  string `env:"COOKIECODE_BASE_URL" envDefault:"https://portal.cookiecode.nl"`
	Email    string `env:"COOKIECODE_EMAIL"`
	Password string `env:"COOKIECODE_PASSWORD"`

	PageMax   int `env:"PAGE_MAX" envDefault:"9"`
	BatchSize int `env:"BATCH_SIZE" envDefault:"50"`

	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookAuthHeader string        `env:"WEBHOOK_AUTH_HEADER"`
	WebhookAuthValue  string        `env:"WEBHOOK_AUTH_VALUE"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"30s"`

	DispatchMode string `env:"DISPATCH_MODE" envDefault:"single"`
	FailureMode  string `env:"FAILURE_MODE" envDefault:"collect"`

	Headless    bool          `env:"HEADLESS" envDefault:"true"`
	SlowMoMS    int           `env:"SLOW_MO_MS" envDefault:"0"`
	ChromePath  string        `env:"CHROME_PATH"`
	NavTimeout  time.Duration `env:"NAV_TIMEOUT" envDefault:"30s"`
	FormTimeout time.Duration `env:"FORM_TIMEOUT" envDefault:"15s"`
	SettleDelay time.Duration `env:"SETTLE_DELAY" envDefault:"500ms"`

	CustomerDelay time.Duration `env:"CUSTOMER_DELAY" envDefault:"120ms"`
	WebsiteDelay  time.Duration `env:"WEBSITE_DELAY" envDefault:"2s"`

	URLsFile    string `env:"URLS_FILE" envDefault:"data/urls.json"`
	RefreshURLs bool   `env:"REFRESH_URLS" envDefault:"false"`
	DebugDir    string `env:"DEBUG_DIR" envDefault:"."`

	// Fallbacks lists the variables whose malformed values were replaced by
	// their defaults
	Fallbacks []string
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment take precedence over the file.
// A missing .env file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return LoadFrom(env.ToMap(os.Environ()))
}

// LoadFrom parses cfg from an explicit variable map instead of the process
// environment. Numbers, booleans and durations that do not parse fall back
// to their defaults and are listed in Fallbacks.
func LoadFrom(environ map[string]string) (Config, error) {
	environ = maps.Clone(environ)
	if environ == nil {
		environ = map[string]string{}
	}
	fallbacks := dropMalformed(environ)

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	cfg.normalize()
	cfg.Fallbacks = fallbacks
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// dropMalformed removes typed variables whose value would not parse, so the
// field keeps its envDefault, and returns their names.
func dropMalformed(environ map[string]string) []string {
	var dropped []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Tag.Get("env")
		value, ok := environ[key]
		if key == "" || !ok || value == "" {
			continue
		}
		if !parses(f.Type, value) {
			delete(environ, key)
			dropped = append(dropped, key)
		}
	}
	return dropped
}

func parses(t reflect.Type, value string) bool {
	var err error
	switch {
	case t == durationType:
		_, err = time.ParseDuration(value)
	case t.Kind() == reflect.Int:
		_, err = strconv.Atoi(value)
	case t.Kind() == reflect.Bool:
		_, err = strconv.ParseBool(value)
	}
	return err == nil
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.DispatchMode = strings.ToLower(strings.TrimSpace(c.DispatchMode))
	c.FailureMode = strings.ToLower(strings.TrimSpace(c.FailureMode))
}

// Validate fails fast on anything that would break the run before the
// browser is started.
func (c Config) Validate() error {
	if c.Email == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	if c.WebhookURL == "" {
		return ErrMissingWebhook
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: COOKIECODE_BASE_URL %q is not an absolute URL", ErrInvalid, c.BaseURL)
	}
	if c.PageMax < 1 {
		return fmt.Errorf("%w: PAGE_MAX must be at least 1, got %d", ErrInvalid, c.PageMax)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: BATCH_SIZE must be at least 1, got %d", ErrInvalid, c.BatchSize)
	}
	if c.SlowMoMS < 0 {
		return fmt.Errorf("%w: SLOW_MO_MS must not be negative", ErrInvalid)
	}

	switch c.DispatchMode {
	case DispatchSingle, DispatchBatched:
	default:
		return fmt.Errorf("%w: DISPATCH_MODE must be %q or %q, got %q", ErrInvalid, DispatchSingle, DispatchBatched, c.DispatchMode)
	}

	switch c.FailureMode {
	case FailureCollect, FailureAbort:
	default:
		return fmt.Errorf("%w: FAILURE_MODE must be %q or %q, got %q", ErrInvalid, FailureCollect, FailureAbort, c.FailureMode)
	}

	return nil
}

// Credentials returns the login credentials
func (c Config) Credentials() types.Credentials {
	return types.Credentials{Email: c.Email, Password: c.Password}
}

// SlowMo is the delay applied after every browser action
func (c Config) SlowMo() time.Duration {
	return time.Duration(c.SlowMoMS) * time.Millisecond
}

// HasWebhookAuth reports whether the optional auth header is fully configured
func (c Config) HasWebhookAuth() bool {
	return c.WebhookAuthHeader != "" && c.WebhookAuthValue != ""
}
