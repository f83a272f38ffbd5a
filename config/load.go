package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from defaults, an optional config file, a .env
// file and LEADSCOUT_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("leadscout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// LEADSCOUT_AUTOMATION_HEADLESS → automation.headless
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("target", d.Target)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("domains.platforms", d.Domains.Platforms)
	v.SetDefault("domains.search_ignore", d.Domains.SearchIgnore)
	v.SetDefault("automation.headless", d.Automation.Headless)
	v.SetDefault("automation.user_agent", d.Automation.UserAgent)
	v.SetDefault("automation.maps_url", d.Automation.MapsURL)
	v.SetDefault("automation.search_url", d.Automation.SearchURL)
	v.SetDefault("automation.results_timeout", d.Automation.ResultsTimeout)
	v.SetDefault("automation.consent_timeout", d.Automation.ConsentTimeout)
	v.SetDefault("automation.place_timeout", d.Automation.PlaceTimeout)
	v.SetDefault("automation.verify_timeout", d.Automation.VerifyTimeout)
	v.SetDefault("automation.scroll_pause", d.Automation.ScrollPause)
	v.SetDefault("automation.scroll_stable", d.Automation.ScrollStable)
	v.SetDefault("automation.min_interval", d.Automation.MinInterval)
	v.SetDefault("email.timeout", d.Email.Timeout)
	v.SetDefault("email.max_retries", d.Email.MaxRetries)
	v.SetDefault("email.retry_backoff", d.Email.RetryBackoff)
	v.SetDefault("email.retry_backoff_max", d.Email.RetryBackoffMax)
	v.SetDefault("email.verify_mx", d.Email.VerifyMX)
	v.SetDefault("email.resolvers", d.Email.Resolvers)
	v.SetDefault("neighbors.base_url", d.Neighbors.BaseURL)
	v.SetDefault("neighbors.timeout", d.Neighbors.Timeout)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.metrics_path", d.Server.MetricsPath)
	v.SetDefault("nats.url", d.NATS.URL)
	v.SetDefault("nats.subject_prefix", d.NATS.SubjectPrefix)
	v.SetDefault("postgres.dsn", d.Postgres.DSN)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
