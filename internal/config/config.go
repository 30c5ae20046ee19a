// Package config loads the service configuration: built-in defaults, then an optional
// YAML file named by METASYNC_CONFIG, then environment variables (a .env file in the
// working directory is loaded into the environment first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable holding the YAML config path.
const ConfigFileEnv = "METASYNC_CONFIG"

// Catalog backends.
const (
	BackendSpanner = "spanner"
	BackendShopify = "shopify"
)

// ShopifyConfig configures the Admin API backend and the webhook trigger.
type ShopifyConfig struct {
	Shop          string  `yaml:"shop"`
	AdminToken    string  `yaml:"admin_token"`
	APIVersion    string  `yaml:"api_version"`
	WebhookSecret string  `yaml:"webhook_secret"`
	RateLimit     float64 `yaml:"rate_limit"`
}

// Config holds the runtime configuration.
type Config struct {
	SpannerDatabase string `yaml:"spanner_database"`
	GRPCPort        string `yaml:"grpc_port"`
	HTTPPort        string `yaml:"http_port"`
	LogLevel        string `yaml:"log_level"`

	CatalogBackend string        `yaml:"catalog_backend"`
	Shopify        ShopifyConfig `yaml:"shopify"`

	// ShopID keys the error log row in Spanner.
	ShopID            string `yaml:"shop_id"`
	ErrorLogNamespace string `yaml:"error_log_namespace"`
	ErrorLogKey       string `yaml:"error_log_key"`

	BacklinkPageSize  int           `yaml:"backlink_page_size"`
	WorkerCount       int           `yaml:"worker_count"`
	MaxConcurrentRuns int           `yaml:"max_concurrent_runs"`
	CallTimeout       time.Duration `yaml:"call_timeout"`
	CallRetries       int           `yaml:"call_retries"`
	RunTimeout        time.Duration `yaml:"run_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing overrides it, suited to the local
// Spanner emulator.
func Default() Config {
	return Config{
		SpannerDatabase:   "projects/test-project/instances/dev-instance/databases/metasync-db",
		GRPCPort:          "9090",
		HTTPPort:          "8080",
		LogLevel:          "info",
		CatalogBackend:    BackendSpanner,
		Shopify:           ShopifyConfig{APIVersion: "2025-01", RateLimit: 2},
		ShopID:            "default",
		ErrorLogNamespace: "metasync",
		ErrorLogKey:       "error_log",
		BacklinkPageSize:  250,
		WorkerCount:       4,
		MaxConcurrentRuns: 2,
		CallTimeout:       10 * time.Second,
		CallRetries:       3,
		RunTimeout:        30 * time.Minute,
		ShutdownTimeout:   15 * time.Second,
	}
}

// Load builds the configuration and validates it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.SpannerDatabase, "SPANNER_DATABASE")
	setString(&c.GRPCPort, "GRPC_PORT")
	setString(&c.HTTPPort, "HTTP_PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.CatalogBackend, "CATALOG_BACKEND")
	setString(&c.Shopify.Shop, "SHOPIFY_SHOP")
	setString(&c.Shopify.AdminToken, "SHOPIFY_ADMIN_TOKEN")
	setString(&c.Shopify.APIVersion, "SHOPIFY_API_VERSION")
	setString(&c.Shopify.WebhookSecret, "SHOPIFY_WEBHOOK_SECRET")
	setString(&c.ShopID, "SHOP_ID")
	setString(&c.ErrorLogNamespace, "ERROR_LOG_NAMESPACE")
	setString(&c.ErrorLogKey, "ERROR_LOG_KEY")

	var errs []error
	errs = append(errs,
		setFloat(&c.Shopify.RateLimit, "SHOPIFY_RATE_LIMIT"),
		setInt(&c.BacklinkPageSize, "BACKLINK_PAGE_SIZE"),
		setInt(&c.WorkerCount, "WORKER_COUNT"),
		setInt(&c.MaxConcurrentRuns, "MAX_CONCURRENT_RUNS"),
		setInt(&c.CallRetries, "CALL_RETRIES"),
		setDuration(&c.CallTimeout, "CALL_TIMEOUT"),
		setDuration(&c.RunTimeout, "RUN_TIMEOUT"),
		setDuration(&c.ShutdownTimeout, "SHUTDOWN_TIMEOUT"),
	)
	return errors.Join(errs...)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.SpannerDatabase == "" {
		errs = append(errs, errors.New("SPANNER_DATABASE is required"))
	}
	switch c.CatalogBackend {
	case BackendSpanner:
	case BackendShopify:
		if c.Shopify.Shop == "" {
			errs = append(errs, errors.New("SHOPIFY_SHOP is required for the shopify backend"))
		}
		if c.Shopify.AdminToken == "" {
			errs = append(errs, errors.New("SHOPIFY_ADMIN_TOKEN is required for the shopify backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("CATALOG_BACKEND must be %q or %q, got %q", BackendSpanner, BackendShopify, c.CatalogBackend))
	}
	if c.BacklinkPageSize < 1 || c.BacklinkPageSize > 250 {
		errs = append(errs, fmt.Errorf("BACKLINK_PAGE_SIZE must be between 1 and 250, got %d", c.BacklinkPageSize))
	}
	if c.WorkerCount < 1 {
		errs = append(errs, fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount))
	}
	if c.MaxConcurrentRuns < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENT_RUNS must be positive, got %d", c.MaxConcurrentRuns))
	}
	if c.CallRetries < 0 {
		errs = append(errs, fmt.Errorf("CALL_RETRIES cannot be negative, got %d", c.CallRetries))
	}
	if c.CallTimeout <= 0 {
		errs = append(errs, errors.New("CALL_TIMEOUT must be positive"))
	}
	if c.Shopify.RateLimit < 0 {
		errs = append(errs, errors.New("SHOPIFY_RATE_LIMIT cannot be negative"))
	}
	return errors.Join(errs...)
}

// ReadAttempts is the total number of tries of a read call.
func (c Config) ReadAttempts() int {
	return c.CallRetries + 1
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %q is not a number", key, v)
	}
	*dst = f
	return nil
}

// setDuration accepts Go durations ("1500ms", "30s") and bare integers as seconds.
func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not a duration", key, v)
	}
	*dst = d
	return nil
}
