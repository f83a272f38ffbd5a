package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/leadscout/parser"
)

// Config holds crawler configuration.
type Config struct {
	Target     int              `mapstructure:"target"`
	Output     OutputConfig     `mapstructure:"output"`
	Domains    DomainConfig     `mapstructure:"domains"`
	Automation AutomationConfig `mapstructure:"automation"`
	Email      EmailConfig      `mapstructure:"email"`
	Neighbors  NeighborConfig   `mapstructure:"neighbors"`
	Server     ServerConfig     `mapstructure:"server"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Log        LogConfig        `mapstructure:"log"`
	CacheSize  int              `mapstructure:"cache_size"`
}

type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"` // csv or dual
}

type DomainConfig struct {
	Platforms    []string `mapstructure:"platforms"`
	SearchIgnore []string `mapstructure:"search_ignore"`
}

type AutomationConfig struct {
	Headless       bool          `mapstructure:"headless"`
	UserAgent      string        `mapstructure:"user_agent"`
	MapsURL        string        `mapstructure:"maps_url"`
	SearchURL      string        `mapstructure:"search_url"`
	ResultsTimeout time.Duration `mapstructure:"results_timeout"`
	ConsentTimeout time.Duration `mapstructure:"consent_timeout"`
	PlaceTimeout   time.Duration `mapstructure:"place_timeout"`
	VerifyTimeout  time.Duration `mapstructure:"verify_timeout"`
	ScrollPause    time.Duration `mapstructure:"scroll_pause"`
	ScrollStable   int           `mapstructure:"scroll_stable"`
	// MinInterval spaces out navigations to the search engine.
	MinInterval time.Duration `mapstructure:"min_interval"`
}

type EmailConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	RetryBackoffMax time.Duration `mapstructure:"retry_backoff_max"`
	VerifyMX        bool          `mapstructure:"verify_mx"`
	Resolvers       []string      `mapstructure:"resolvers"`
}

type NeighborConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// DefaultConfig returns conservative defaults for a single-observer deployment.
func DefaultConfig() *Config {
	return &Config{
		Target: 10,
		Output: OutputConfig{
			Dir:    "output",
			Format: "csv",
		},
		Domains: DomainConfig{
			Platforms:    append([]string(nil), parser.DefaultPlatformDomains...),
			SearchIgnore: append([]string(nil), parser.DefaultSearchIgnoreDomains...),
		},
		Automation: AutomationConfig{
			Headless:       true,
			UserAgent:      defaultUserAgent,
			MapsURL:        "https://www.google.com/maps",
			SearchURL:      "https://www.google.com/search",
			ResultsTimeout: 10 * time.Second,
			ConsentTimeout: 3 * time.Second,
			PlaceTimeout:   30 * time.Second,
			VerifyTimeout:  20 * time.Second,
			ScrollPause:    2 * time.Second,
			ScrollStable:   3,
			MinInterval:    time.Second,
		},
		Email: EmailConfig{
			Timeout:         15 * time.Second,
			MaxRetries:      1,
			RetryBackoff:    500 * time.Millisecond,
			RetryBackoffMax: 2 * time.Second,
			VerifyMX:        false,
			Resolvers:       []string{"8.8.8.8:53", "1.1.1.1:53"},
		},
		Neighbors: NeighborConfig{
			BaseURL: "https://citiesnear.com",
			Timeout: 15 * time.Second,
		},
		Server: ServerConfig{
			Addr:        ":3000",
			MetricsPath: "/metrics",
		},
		NATS: NATSConfig{
			SubjectPrefix: "leadscout.runs",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		CacheSize: 512,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Target <= 0 {
		return fmt.Errorf("target must be positive")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.Output.Format != "csv" && c.Output.Format != "dual" {
		return fmt.Errorf("output format must be csv or dual")
	}
	if len(c.Domains.Platforms) == 0 {
		return fmt.Errorf("platform domain list cannot be empty")
	}
	for name, raw := range map[string]string{
		"maps url":      c.Automation.MapsURL,
		"search url":    c.Automation.SearchURL,
		"neighbors url": c.Neighbors.BaseURL,
	} {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.Automation.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Automation.ResultsTimeout <= 0 || c.Automation.PlaceTimeout <= 0 || c.Automation.VerifyTimeout <= 0 {
		return fmt.Errorf("automation timeouts must be positive")
	}
	if c.Automation.ScrollPause < 0 {
		return fmt.Errorf("scroll pause cannot be negative")
	}
	if c.Automation.ScrollStable <= 0 {
		return fmt.Errorf("scroll stable count must be positive")
	}
	if c.Automation.MinInterval < 0 {
		return fmt.Errorf("min interval cannot be negative")
	}
	if c.Email.Timeout <= 0 {
		return fmt.Errorf("email timeout must be positive")
	}
	if c.Email.MaxRetries < 0 {
		return fmt.Errorf("email max retries cannot be negative")
	}
	if c.Email.RetryBackoff < 0 || c.Email.RetryBackoffMax < 0 {
		return fmt.Errorf("email retry backoff cannot be negative")
	}
	if c.Email.RetryBackoffMax > 0 && c.Email.RetryBackoff > c.Email.RetryBackoffMax {
		return fmt.Errorf("email retry backoff (%s) cannot exceed retry backoff max (%s)", c.Email.RetryBackoff, c.Email.RetryBackoffMax)
	}
	if c.Email.VerifyMX && len(c.Email.Resolvers) == 0 {
		return fmt.Errorf("mx verification needs at least one resolver")
	}
	if c.Neighbors.Timeout <= 0 {
		return fmt.Errorf("neighbors timeout must be positive")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr cannot be empty")
	}
	if c.NATS.URL != "" && c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("nats subject prefix cannot be empty")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("log format must be auto, text, or json")
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Host == "" {
		return fmt.Errorf("url must include a host")
	}
	return nil
}
