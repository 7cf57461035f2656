// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob that influences a harvest run.
type Config struct {
	Directory DirectoryConfig `mapstructure:"directory"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Output    OutputConfig    `mapstructure:"output"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DirectoryConfig identifies the paginated directory being harvested.
type DirectoryConfig struct {
	RootURL           string `mapstructure:"root_url"`
	ProfilePathPrefix string `mapstructure:"profile_path_prefix"`
	UserAgent         string `mapstructure:"user_agent"`
}

// DiscoveryConfig governs the scroll-driven link discovery loop.
type DiscoveryConfig struct {
	TargetCount    int           `mapstructure:"target_count"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	SettleInterval time.Duration `mapstructure:"settle_interval"`
	// StallLimit stops the loop after this many consecutive attempts that
	// surface no new links. Zero disables the early exit.
	StallLimit int `mapstructure:"stall_limit"`
}

// FetchConfig governs the bounded profile fetch engine.
type FetchConfig struct {
	Concurrency   int           `mapstructure:"concurrency"`
	NavTimeout    time.Duration `mapstructure:"nav_timeout"`
	JitterMin     time.Duration `mapstructure:"jitter_min"`
	JitterMax     time.Duration `mapstructure:"jitter_max"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	HydrationWait time.Duration `mapstructure:"hydration_wait"`
	HostQPS       float64       `mapstructure:"host_qps"`
}

// OutputConfig controls checkpointing and the final CSV export.
type OutputConfig struct {
	Dir          string `mapstructure:"dir"`
	ProgressFile string `mapstructure:"progress_file"`
	BatchSize    int    `mapstructure:"batch_size"`
}

// MetricsConfig enables the optional Prometheus endpoint.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("directory.root_url", "https://www.ycombinator.com/companies")
	v.SetDefault("directory.profile_path_prefix", "/companies/")
	v.SetDefault("directory.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("discovery.target_count", 500)
	v.SetDefault("discovery.max_attempts", 150)
	v.SetDefault("discovery.settle_interval", "2s")
	v.SetDefault("discovery.stall_limit", 8)
	v.SetDefault("fetch.concurrency", 3)
	v.SetDefault("fetch.nav_timeout", "40s")
	v.SetDefault("fetch.jitter_min", "1s")
	v.SetDefault("fetch.jitter_max", "2s")
	v.SetDefault("fetch.retry_backoff", "3s")
	v.SetDefault("fetch.hydration_wait", "3s")
	v.SetDefault("fetch.host_qps", 0)
	v.SetDefault("output.dir", "data")
	v.SetDefault("output.progress_file", "harvest_progress.csv")
	v.SetDefault("output.batch_size", 50)
	v.SetDefault("metrics.port", 0)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Directory.RootURL == "" {
		return fmt.Errorf("directory.root_url must be set")
	}
	if c.Directory.ProfilePathPrefix == "" {
		return fmt.Errorf("directory.profile_path_prefix must be set")
	}
	if c.Directory.UserAgent == "" {
		return fmt.Errorf("directory.user_agent must be set")
	}
	if c.Discovery.TargetCount <= 0 {
		return fmt.Errorf("discovery.target_count must be > 0")
	}
	if c.Discovery.MaxAttempts <= 0 {
		return fmt.Errorf("discovery.max_attempts must be > 0")
	}
	if c.Discovery.SettleInterval < 0 {
		return fmt.Errorf("discovery.settle_interval must be >= 0")
	}
	if c.Discovery.StallLimit < 0 {
		return fmt.Errorf("discovery.stall_limit must be >= 0")
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be > 0")
	}
	if c.Fetch.NavTimeout <= 0 {
		return fmt.Errorf("fetch.nav_timeout must be > 0")
	}
	if c.Fetch.JitterMin < 0 || c.Fetch.JitterMax < c.Fetch.JitterMin {
		return fmt.Errorf("fetch jitter bounds must satisfy 0 <= jitter_min <= jitter_max")
	}
	if c.Fetch.RetryBackoff < 0 {
		return fmt.Errorf("fetch.retry_backoff must be >= 0")
	}
	if c.Fetch.HydrationWait < 0 {
		return fmt.Errorf("fetch.hydration_wait must be >= 0")
	}
	if c.Fetch.HostQPS < 0 {
		return fmt.Errorf("fetch.host_qps must be >= 0")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	if c.Output.ProgressFile == "" {
		return fmt.Errorf("output.progress_file must be set")
	}
	if c.Output.BatchSize <= 0 {
		return fmt.Errorf("output.batch_size must be > 0")
	}
	if c.Metrics.Port < 0 {
		return fmt.Errorf("metrics.port must be >= 0")
	}
	return nil
}
