package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the storefront SDK.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := core.NewConfig(
//	    core.WithAPIBaseURL("https://api.greencart.example"),
//	    core.WithPaymentProvider("stripe"),
//	)
type Config struct {
	// Backend API endpoint configuration
	APIBaseURL string `yaml:"api_base_url"`
	APIPrefix  string `yaml:"api_prefix"`

	// Anonymous GETs are cacheable for this window to bound backend
	// read load; authenticated or mutating requests are never cached.
	RevalidateWindow time.Duration `yaml:"revalidate_window"`

	// HTTP client timeout
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// Redis configuration for shared state backends (optional)
	RedisURL       string `yaml:"redis_url"`
	RedisNamespace string `yaml:"redis_namespace"`

	// Session persistence (file backend path; empty keeps tokens in memory)
	SessionFile string `yaml:"session_file"`

	// Checkout configuration
	PaymentProvider string `yaml:"payment_provider"`
	SuccessURL      string `yaml:"success_url"`
	CancelURL       string `yaml:"cancel_url"`

	// Analytics event ingestion
	AnalyticsSource string `yaml:"analytics_source"`

	// Catalogue paging
	PageSize int `yaml:"page_size"`

	// Logging configuration
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Retry policy for the gateway's idempotent requests
	RetryMaxAttempts  int           `yaml:"retry_max_attempts"`
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay"`
}

// Option is a functional option for Config
type Option func(*Config)

// NewConfig builds a Config from defaults, environment, then options
func NewConfig(opts ...Option) (*Config, error) {
	cfg := defaultConfig()
	cfg.applyEnvironment()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		APIBaseURL:        "http://localhost:8000",
		APIPrefix:         "/api/v1",
		RevalidateWindow:  300 * time.Second,
		HTTPTimeout:       30 * time.Second,
		RedisNamespace:    "greencart",
		PaymentProvider:   "stripe",
		SuccessURL:        "/payment/success",
		CancelURL:         "/payment/cancel",
		AnalyticsSource:   "web_app",
		PageSize:          12,
		LogLevel:          "info",
		RetryMaxAttempts:  3,
		RetryInitialDelay: 100 * time.Millisecond,
	}
}

// applyEnvironment overlays GREENCART_* environment variables
func (c *Config) applyEnvironment() {
	setString(&c.APIBaseURL, "GREENCART_API_BASE")
	setString(&c.APIPrefix, "GREENCART_API_PREFIX")
	setDuration(&c.RevalidateWindow, "GREENCART_REVALIDATE_WINDOW")
	setDuration(&c.HTTPTimeout, "GREENCART_HTTP_TIMEOUT")
	setString(&c.RedisURL, "GREENCART_REDIS_URL")
	setString(&c.RedisNamespace, "GREENCART_REDIS_NAMESPACE")
	setString(&c.SessionFile, "GREENCART_SESSION_FILE")
	setString(&c.PaymentProvider, "GREENCART_PAYMENT_PROVIDER")
	setString(&c.SuccessURL, "GREENCART_SUCCESS_URL")
	setString(&c.CancelURL, "GREENCART_CANCEL_URL")
	setString(&c.AnalyticsSource, "GREENCART_ANALYTICS_SOURCE")
	setInt(&c.PageSize, "GREENCART_PAGE_SIZE")
	setString(&c.LogLevel, "GREENCART_LOG_LEVEL")
	setString(&c.LogFormat, "GREENCART_LOG_FORMAT")
	setInt(&c.RetryMaxAttempts, "GREENCART_RETRY_MAX_ATTEMPTS")
	setDuration(&c.RetryInitialDelay, "GREENCART_RETRY_INITIAL_DELAY")
}

// LoadConfigFile overlays values from a YAML file onto a Config built
// from defaults and environment. Options still win over the file.
func LoadConfigFile(path string, opts ...Option) (*Config, error) {
	cfg := defaultConfig()
	cfg.applyEnvironment()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, ErrMissingConfiguration)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, ErrInvalidConfiguration)
	}

	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base URL: %w", ErrMissingConfiguration)
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("api base URL %q must be http(s): %w", c.APIBaseURL, ErrInvalidConfiguration)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive: %w", ErrInvalidConfiguration)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be >= 1: %w", ErrInvalidConfiguration)
	}
	// The base URL is joined with the prefix; a trailing slash would
	// produce double slashes in every request path.
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	return nil
}

// Functional options

func WithAPIBaseURL(url string) Option {
	return func(c *Config) { c.APIBaseURL = url }
}

func WithAPIPrefix(prefix string) Option {
	return func(c *Config) { c.APIPrefix = prefix }
}

func WithRevalidateWindow(d time.Duration) Option {
	return func(c *Config) { c.RevalidateWindow = d }
}

func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Config) { c.HTTPTimeout = d }
}

func WithRedis(url, namespace string) Option {
	return func(c *Config) {
		c.RedisURL = url
		if namespace != "" {
			c.RedisNamespace = namespace
		}
	}
}

func WithSessionFile(path string) Option {
	return func(c *Config) { c.SessionFile = path }
}

func WithPaymentProvider(provider string) Option {
	return func(c *Config) { c.PaymentProvider = provider }
}

func WithReturnURLs(success, cancel string) Option {
	return func(c *Config) {
		c.SuccessURL = success
		c.CancelURL = cancel
	}
}

func WithPageSize(size int) Option {
	return func(c *Config) { c.PageSize = size }
}

func WithLogging(level, format string) Option {
	return func(c *Config) {
		c.LogLevel = level
		c.LogFormat = format
	}
}

func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(c *Config) {
		c.RetryMaxAttempts = maxAttempts
		c.RetryInitialDelay = initialDelay
	}
}

// env helpers

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}
